package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/supportbot/internal/domain"
)

// NoMatchMarker replaces the knowledge block when no section matched.
const NoMatchMarker = "NO MATCHING SECTION"

const (
	defaultBrandName        = "FortusPay"
	defaultFallbackSentence = "Jag hittade ingen specifik info i vår kunskapsbas."
	defaultContactText      = "Kontakta support@fortuspay.com eller ring 010-222 15 20 för hjälp."
)

// PromptConfig holds the wording injected into the system message.
type PromptConfig struct {
	BrandName        string
	FallbackSentence string
	ContactText      string
}

func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		BrandName:        defaultBrandName,
		FallbackSentence: defaultFallbackSentence,
		ContactText:      defaultContactText,
	}
}

// PromptComposer builds the message list sent to the completion provider.
// Composition is pure: the same input always yields the same messages.
type PromptComposer struct {
	cfg PromptConfig
}

func NewPromptComposer(cfg PromptConfig) *PromptComposer {
	defaults := DefaultPromptConfig()
	if cfg.BrandName == "" {
		cfg.BrandName = defaults.BrandName
	}
	if cfg.FallbackSentence == "" {
		cfg.FallbackSentence = defaults.FallbackSentence
	}
	if cfg.ContactText == "" {
		cfg.ContactText = defaults.ContactText
	}
	return &PromptComposer{cfg: cfg}
}

// Compose returns one system message, then the prior turns, then the question.
func (c *PromptComposer) Compose(query string, ranked []domain.KnowledgeChunk, history []domain.ConversationTurn) []domain.Message {
	return c.ComposeFromText(query, RenderChunks(ranked), history)
}

// ComposeFromText is Compose with a pre-rendered knowledge block. An empty
// block is replaced by NoMatchMarker.
func (c *PromptComposer) ComposeFromText(query, knowledge string, history []domain.ConversationTurn) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: c.systemPrompt(knowledge),
	})
	for _, turn := range history {
		messages = append(messages, domain.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: query})
	return messages
}

func (c *PromptComposer) systemPrompt(knowledge string) string {
	if strings.TrimSpace(knowledge) == "" {
		knowledge = NoMatchMarker
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the customer support assistant for %s.\n\n", c.cfg.BrandName)
	b.WriteString("Rules:\n")
	b.WriteString("- Reply in the same language the user writes in.\n")
	b.WriteString("- Use only the knowledge base sections below. Do not use general knowledge.\n")
	b.WriteString("- Never invent steps, settings, IDs or menu names that are not in the sections.\n")
	b.WriteString("- If the question is ambiguous, or no section clearly matches it, ask one short clarifying question.\n")
	fmt.Fprintf(&b, "- If the knowledge base says %s, reply exactly: %q\n", NoMatchMarker, c.cfg.FallbackSentence+" "+c.cfg.ContactText)
	b.WriteString("- Structure answers as **Question:** (short summary), **Answer:** (exact details from the knowledge base), **Source:** (section title).\n\n")
	b.WriteString("Knowledge base:\n")
	b.WriteString(knowledge)
	return b.String()
}

// RenderChunks joins the rendered chunks with blank lines.
func RenderChunks(chunks []domain.KnowledgeChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.RenderedText()
	}
	return strings.Join(parts, "\n\n")
}

// KnowledgePrefix renders every chunk and cuts the result to maxRunes.
func KnowledgePrefix(chunks []domain.KnowledgeChunk, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	text := []rune(RenderChunks(chunks))
	if len(text) > maxRunes {
		text = text[:maxRunes]
	}
	return strings.TrimSpace(string(text))
}
