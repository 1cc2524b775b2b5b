package service

import (
	"encoding/csv"
	"io"
	"regexp"
	"strings"

	"github.com/cloo-solutions/supportbot/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	breakMarker   = regexp.MustCompile(`(?i)<br\s*/?>|\\n`)
	htmlTableHint = regexp.MustCompile(`(?i)<(table|tr|td)[\s>]`)
	blankRun      = regexp.MustCompile(`\s+`)
)

// ParseChunks turns a CSV or HTML-table document into knowledge chunks.
// Cells are read in document order and paired title/content. A document that
// yields no cells produces an empty slice.
func ParseChunks(raw string) []domain.KnowledgeChunk {
	return pairCells(normalizeCells(raw))
}

func normalizeCells(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if htmlTableHint.MatchString(raw) {
		return htmlCells(raw)
	}
	return csvCells(raw)
}

func pairCells(cells []string) []domain.KnowledgeChunk {
	chunks := make([]domain.KnowledgeChunk, 0, (len(cells)+1)/2)
	for i := 0; i < len(cells); i += 2 {
		chunk := domain.KnowledgeChunk{Title: cells[i]}
		if i+1 < len(cells) {
			chunk.Content = cells[i+1]
		}
		if chunk.IsEmpty() {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// csvCells flattens every record. A malformed document yields no cells so a
// half-read sheet never replaces a complete one.
func csvCells(raw string) []string {
	r := csv.NewReader(strings.NewReader(raw))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var cells []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		for _, field := range record {
			if cell := cleanCell(field); cell != "" {
				cells = append(cells, cell)
			}
		}
	}
	return cells
}

// htmlCells collects the text of every <td>. Header cells are skipped since
// published sheets use them for row numbers and column letters.
func htmlCells(raw string) []string {
	z := html.NewTokenizer(strings.NewReader(raw))

	var (
		cells   []string
		current strings.Builder
		inCell  bool
		skip    int
	)

	flush := func() {
		if inCell {
			if cell := cleanCell(current.String()); cell != "" {
				cells = append(cells, cell)
			}
		}
		current.Reset()
		inCell = false
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return cells
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Td:
				flush()
				inCell = true
			case atom.Th:
				flush()
			case atom.Br:
				if inCell {
					current.WriteByte('\n')
				}
			case atom.Script, atom.Style:
				if tt == html.StartTagToken {
					skip++
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Td, atom.Tr, atom.Table:
				flush()
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if inCell && skip == 0 {
				current.WriteString(blankRun.ReplaceAllString(string(z.Text()), " "))
			}
		}
	}
}

func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = breakMarker.ReplaceAllString(s, "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
