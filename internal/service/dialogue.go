package service

import (
	"context"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/cloo-solutions/supportbot/internal/domain"
	"github.com/cloo-solutions/supportbot/internal/logging"
	"github.com/cloo-solutions/supportbot/internal/metrics"
	"github.com/cloo-solutions/supportbot/internal/telemetry"
)

const (
	DefaultSessionID         = "default"
	DefaultTopK              = 3
	DefaultCompletionTimeout = 12 * time.Second
	DefaultPrefixChars       = 2000
)

// FallbackMode selects the degraded context used when ranking finds nothing.
type FallbackMode string

const (
	FallbackMarker   FallbackMode = "marker"
	FallbackPrefix   FallbackMode = "prefix"
	FallbackKeywords FallbackMode = "keywords"
)

// ParseFallbackMode maps a config value to a mode, defaulting to the marker.
func ParseFallbackMode(value string) FallbackMode {
	switch FallbackMode(strings.ToLower(strings.TrimSpace(value))) {
	case FallbackPrefix:
		return FallbackPrefix
	case FallbackKeywords:
		return FallbackKeywords
	default:
		return FallbackMarker
	}
}

// Grounding reports which tier produced the prompt's knowledge block.
type Grounding string

const (
	GroundingRanked   Grounding = "ranked"
	GroundingPrefix   Grounding = "prefix"
	GroundingKeywords Grounding = "keywords"
	GroundingNone     Grounding = "marker"
)

// ChunkSource provides the current knowledge chunks.
type ChunkSource interface {
	GetChunks(ctx context.Context) ([]domain.KnowledgeChunk, error)
}

// HistoryStore is the per-session conversation log.
type HistoryStore interface {
	Append(sessionID string, turn domain.ConversationTurn)
	Get(sessionID string) []domain.ConversationTurn
}

// CompletionProvider generates text from a prompt.
type CompletionProvider interface {
	Complete(ctx context.Context, messages []domain.Message, params domain.GenerationParams) (string, error)
}

// DialogueConfig holds the tunables of the answering pipeline.
type DialogueConfig struct {
	TopK                int
	Params              domain.GenerationParams
	CompletionTimeout   time.Duration
	ContactFooter       string
	DefaultSessionID    string
	FallbackMode        FallbackMode
	FallbackPrefixChars int
	FallbackKeywords    []string
}

func (c DialogueConfig) withDefaults() DialogueConfig {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = DefaultCompletionTimeout
	}
	if c.DefaultSessionID == "" {
		c.DefaultSessionID = DefaultSessionID
	}
	if c.FallbackMode == "" {
		c.FallbackMode = FallbackMarker
	}
	if c.FallbackPrefixChars <= 0 {
		c.FallbackPrefixChars = DefaultPrefixChars
	}
	return c
}

// Answer is the orchestrator's result.
type Answer struct {
	Text      string
	Grounding Grounding
	Sections  []string
}

// DialogueService answers one question per call against shared cache and history.
type DialogueService struct {
	chunks   ChunkSource
	ranker   Retriever
	composer *PromptComposer
	history  HistoryStore
	provider CompletionProvider
	cfg      DialogueConfig
	logger   *charmlog.Logger
	metrics  *metrics.Metrics
}

type DialogueOption func(*DialogueService)

func WithDialogueLogger(logger *charmlog.Logger) DialogueOption {
	return func(s *DialogueService) {
		s.logger = logger
	}
}

func WithDialogueMetrics(m *metrics.Metrics) DialogueOption {
	return func(s *DialogueService) {
		s.metrics = m
	}
}

func NewDialogueService(
	chunks ChunkSource,
	ranker Retriever,
	composer *PromptComposer,
	history HistoryStore,
	provider CompletionProvider,
	cfg DialogueConfig,
	opts ...DialogueOption,
) *DialogueService {
	s := &DialogueService{
		chunks:   chunks,
		ranker:   ranker,
		composer: composer,
		history:  history,
		provider: provider,
		cfg:      cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Answer grounds question in the knowledge source and asks the provider.
// An empty question fails before any I/O. A provider failure keeps the user
// turn in history but records no assistant turn.
func (s *DialogueService) Answer(ctx context.Context, sessionID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = s.cfg.DefaultSessionID
	}

	ctx, span := telemetry.StartSpan(ctx, "DialogueService.Answer", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "answer",
	})
	defer span.End()

	chunks, err := s.chunks.GetChunks(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	ranked := s.ranker.Rank(question, chunks, s.cfg.TopK)
	history := s.history.Get(sessionID)
	messages, grounding, sections := s.buildPrompt(question, ranked, chunks, history)

	span.SetTag("grounding", string(grounding))
	s.metrics.GroundingTier(string(grounding))
	if grounding != GroundingRanked {
		s.logger.Info("no section matched, using fallback tier",
			"session_id", sessionID,
			"tier", grounding,
			"chunks", len(chunks))
	}

	s.history.Append(sessionID, domain.NewUserTurn(question))

	text, err := s.complete(ctx, messages)
	if err != nil {
		span.SetError(err)
		s.logger.Error("completion failed", "session_id", sessionID, "error", err)
		return nil, domain.NewUpstreamError(err)
	}

	s.history.Append(sessionID, domain.NewAssistantTurn(text))

	return &Answer{
		Text:      appendFooter(text, s.cfg.ContactFooter),
		Grounding: grounding,
		Sections:  sections,
	}, nil
}

func (s *DialogueService) complete(ctx context.Context, messages []domain.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CompletionTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.provider.Complete(callCtx, messages, s.cfg.Params)
	if err == nil && strings.TrimSpace(text) == "" {
		err = domain.ErrEmptyCompletion
	}

	outcome := "ok"
	switch {
	case err != nil && callCtx.Err() == context.DeadlineExceeded:
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	s.metrics.CompletionObserved(outcome, time.Since(start))

	return text, err
}

// buildPrompt picks the grounding tier. Ranked chunks always win; otherwise
// the configured fallback is tried and the no-match marker is the last resort.
func (s *DialogueService) buildPrompt(
	question string,
	ranked, all []domain.KnowledgeChunk,
	history []domain.ConversationTurn,
) ([]domain.Message, Grounding, []string) {
	if len(ranked) > 0 {
		return s.composer.Compose(question, ranked, history), GroundingRanked, titles(ranked)
	}

	switch s.cfg.FallbackMode {
	case FallbackPrefix:
		if prefix := KnowledgePrefix(all, s.cfg.FallbackPrefixChars); prefix != "" {
			return s.composer.ComposeFromText(question, prefix, history), GroundingPrefix, nil
		}
	case FallbackKeywords:
		if len(s.cfg.FallbackKeywords) > 0 {
			curated := s.ranker.Rank(strings.Join(s.cfg.FallbackKeywords, " "), all, s.cfg.TopK)
			if len(curated) > 0 {
				return s.composer.Compose(question, curated, history), GroundingKeywords, titles(curated)
			}
		}
	}

	return s.composer.Compose(question, nil, history), GroundingNone, nil
}

func titles(chunks []domain.KnowledgeChunk) []string {
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.Title
	}
	return out
}

func appendFooter(text, footer string) string {
	footer = strings.TrimSpace(footer)
	if footer == "" || strings.Contains(text, footer) {
		return text
	}
	return strings.TrimRight(text, " \n\t") + "\n\n" + footer
}
