package jobs

import (
	"context"
	"fmt"
)

// KnowledgeRefresher forces a reload of the knowledge snapshot
type KnowledgeRefresher interface {
	Refresh(ctx context.Context) error
}

// RefreshProcessor keeps the knowledge cache warm between requests. A failed
// run leaves the previous snapshot in place.
type RefreshProcessor struct {
	cache KnowledgeRefresher
}

func NewRefreshProcessor(cache KnowledgeRefresher) *RefreshProcessor {
	return &RefreshProcessor{cache: cache}
}

func (p *RefreshProcessor) ProcessJobs(ctx context.Context) error {
	if err := p.cache.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh knowledge: %w", err)
	}
	return nil
}
