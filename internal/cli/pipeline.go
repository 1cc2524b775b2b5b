package cli

import (
	"errors"
	"net/http"

	charmlog "github.com/charmbracelet/log"
	"github.com/cloo-solutions/supportbot/internal/api/handlers"
	"github.com/cloo-solutions/supportbot/internal/config"
	"github.com/cloo-solutions/supportbot/internal/domain"
	"github.com/cloo-solutions/supportbot/internal/metrics"
	"github.com/cloo-solutions/supportbot/internal/openai"
	"github.com/cloo-solutions/supportbot/internal/repository"
	"github.com/cloo-solutions/supportbot/internal/server"
	"github.com/cloo-solutions/supportbot/internal/service"
	"github.com/cloo-solutions/supportbot/internal/source"
)

// ErrNoCompletionKey is returned when a command needs the completion provider
// but SUPPORTBOT_COMPLETION_API_KEY is unset.
var ErrNoCompletionKey = errors.New("SUPPORTBOT_COMPLETION_API_KEY is required")

// Pipeline holds the shared, process-wide components of the support bot.
type Pipeline struct {
	Config   *config.Config
	Logger   *charmlog.Logger
	Metrics  *metrics.Metrics
	Cache    *service.KnowledgeCache
	Ranker   *service.KeywordRanker
	History  *repository.HistoryStore
	Dialogue *service.DialogueService
}

// NewKnowledgePipeline wires the fetch, parse and rank stages only.
func NewKnowledgePipeline(cfg *config.Config, logger *charmlog.Logger, m *metrics.Metrics) (*Pipeline, error) {
	fetcher, err := source.NewHTTPFetcher(source.Config{
		URL:     cfg.KnowledgeURL,
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
	})
	if err != nil {
		return nil, err
	}

	cache := service.NewKnowledgeCache(fetcher, cfg.CacheTTL,
		service.WithRefreshTimeout(fetcher.MaxDuration()),
		service.WithCacheLogger(logger),
		service.WithCacheMetrics(m))

	return &Pipeline{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Cache:   cache,
		Ranker:  service.NewKeywordRanker(),
	}, nil
}

// NewPipeline wires the full answering pipeline. A nil provider is built
// from the completion settings in cfg.
func NewPipeline(cfg *config.Config, logger *charmlog.Logger, m *metrics.Metrics, provider service.CompletionProvider) (*Pipeline, error) {
	p, err := NewKnowledgePipeline(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	if provider == nil {
		if !cfg.HasCompletion() {
			return nil, ErrNoCompletionKey
		}
		provider = openai.NewClientWithConfig(openai.Config{
			APIKey:  cfg.CompletionAPIKey,
			BaseURL: cfg.CompletionBaseURL,
			Model:   cfg.CompletionModel,
		})
	}

	p.History = repository.NewHistoryStore(repository.HistoryConfig{
		Cap:         cfg.HistoryCap,
		MaxSessions: cfg.MaxSessions,
		SessionTTL:  cfg.SessionTTL,
	})

	composer := service.NewPromptComposer(service.PromptConfig{
		BrandName:   cfg.BrandName,
		ContactText: cfg.ContactFooter,
	})

	p.Dialogue = service.NewDialogueService(p.Cache, p.Ranker, composer, p.History, provider,
		service.DialogueConfig{
			TopK: cfg.TopK,
			Params: domain.GenerationParams{
				Model:       cfg.CompletionModel,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			},
			CompletionTimeout:   cfg.CompletionTimeout,
			ContactFooter:       cfg.ContactFooter,
			FallbackMode:        service.ParseFallbackMode(cfg.FallbackMode),
			FallbackPrefixChars: cfg.FallbackPrefixChars,
			FallbackKeywords:    cfg.FallbackKeywords,
		},
		service.WithDialogueLogger(logger),
		service.WithDialogueMetrics(m))

	return p, nil
}

// Router builds the HTTP surface over the pipeline.
func (p *Pipeline) Router() http.Handler {
	return server.NewRouter(server.RouterConfig{
		Logger:      p.Logger,
		Metrics:     p.Metrics,
		ChatHandler: handlers.NewChatHandler(p.Dialogue, p.Metrics),
	})
}
