package service

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/supportbot/internal/domain"
)

const minTokenRunes = 3

// Retriever selects the chunks most relevant to a query. Implementations must
// be deterministic for identical input.
type Retriever interface {
	Rank(query string, chunks []domain.KnowledgeChunk, topK int) []domain.KnowledgeChunk
}

// DefaultSynonyms maps support vocabulary between Swedish and English.
var DefaultSynonyms = map[string][]string{
	"connect":       {"anslut", "koppla"},
	"anslut":        {"connect", "koppla"},
	"koppla":        {"anslut", "connect"},
	"payment":       {"betalning"},
	"betalning":     {"payment"},
	"receipt":       {"kvitto"},
	"kvitto":        {"receipt"},
	"refund":        {"återbetalning", "retur"},
	"återbetalning": {"refund", "retur"},
	"retur":         {"refund", "återbetalning"},
	"card":          {"kort"},
	"kort":          {"card"},
	"login":         {"logga"},
	"logga":         {"login"},
	"password":      {"lösenord"},
	"lösenord":      {"password"},
	"printer":       {"skrivare"},
	"skrivare":      {"printer"},
	"invoice":       {"faktura"},
	"faktura":       {"invoice"},
	"settings":      {"inställningar"},
	"inställningar": {"settings"},
	"terminal":      {"kortterminal"},
	"kortterminal":  {"terminal"},
}

// inflectionSuffixes are tried longest first; the first match wins.
var inflectionSuffixes = []string{
	"ningarna", "ningar", "ningen", "arna", "erna", "orna", "ande", "ende",
	"ing", "ade", "het", "ies", "ar", "er", "or", "en", "et", "ed", "es", "ly", "s",
}

// KeywordRanker scores chunks by how many distinct query tokens appear as
// substrings of their text. It is a lexical heuristic, not semantic search.
type KeywordRanker struct {
	synonyms map[string][]string
	stemming bool
}

type RankerOption func(*KeywordRanker)

// WithSynonyms replaces the synonym table. A nil map disables synonym expansion.
func WithSynonyms(synonyms map[string][]string) RankerOption {
	return func(r *KeywordRanker) {
		r.synonyms = synonyms
	}
}

// WithStemming toggles suffix-stripping expansion.
func WithStemming(enabled bool) RankerOption {
	return func(r *KeywordRanker) {
		r.stemming = enabled
	}
}

func NewKeywordRanker(opts ...RankerOption) *KeywordRanker {
	r := &KeywordRanker{
		synonyms: DefaultSynonyms,
		stemming: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns at most topK chunks with a non-zero score, best first. Ties
// keep their original order.
func (r *KeywordRanker) Rank(query string, chunks []domain.KnowledgeChunk, topK int) []domain.KnowledgeChunk {
	if topK <= 0 {
		return []domain.KnowledgeChunk{}
	}

	scored := r.Score(query, chunks)
	if len(scored) > topK {
		scored = scored[:topK]
	}

	ranked := make([]domain.KnowledgeChunk, len(scored))
	for i, sc := range scored {
		ranked[i] = sc.Chunk
	}
	return ranked
}

// Score returns every chunk with a non-zero score, sorted by score descending.
func (r *KeywordRanker) Score(query string, chunks []domain.KnowledgeChunk) []domain.ScoredChunk {
	tokens := r.SearchTokens(query)
	if len(tokens) == 0 {
		return []domain.ScoredChunk{}
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for i, chunk := range chunks {
		haystack := strings.ToLower(chunk.Title + " " + chunk.Content)
		score := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		scored = append(scored, domain.ScoredChunk{Chunk: chunk, Score: score, Index: i})
	}

	slices.SortStableFunc(scored, func(a, b domain.ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scored
}

// SearchTokens returns the query tokens plus their expansions, deduplicated,
// in first-seen order.
func (r *KeywordRanker) SearchTokens(query string) []string {
	base := Tokenize(query)

	seen := make(map[string]struct{}, len(base)*2)
	tokens := make([]string, 0, len(base)*2)
	add := func(token string) {
		if utf8.RuneCountInString(token) < minTokenRunes {
			return
		}
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	for _, token := range base {
		add(token)

		variants := []string{token}
		if r.stemming {
			if stem := StripSuffix(token); stem != token {
				add(stem)
				variants = append(variants, stem)
			}
		}
		for _, variant := range variants {
			for _, synonym := range r.synonyms[variant] {
				add(synonym)
			}
		}
	}
	return tokens
}

// Tokenize lowercases the query, splits on whitespace, trims punctuation from
// token edges and drops tokens shorter than three runes.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if utf8.RuneCountInString(token) < minTokenRunes {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// StripSuffix removes one common English or Swedish inflectional ending,
// keeping a stem of at least three runes.
func StripSuffix(token string) string {
	for _, suffix := range inflectionSuffixes {
		if !strings.HasSuffix(token, suffix) {
			continue
		}
		stem := strings.TrimSuffix(token, suffix)
		if utf8.RuneCountInString(stem) >= minTokenRunes {
			return stem
		}
	}
	return token
}
