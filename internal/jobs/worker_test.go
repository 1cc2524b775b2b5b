package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type countingProcessor struct {
	runs atomic.Int32
	err  error
}

func (p *countingProcessor) ProcessJobs(ctx context.Context) error {
	p.runs.Add(1)
	return p.err
}

// MockKnowledgeRefresher is a mock implementation of KnowledgeRefresher
type MockKnowledgeRefresher struct {
	mock.Mock
}

func (m *MockKnowledgeRefresher) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestWorker_StartStop(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker("test", processor, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return processor.runs.Load() > 0
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
	worker.Stop()
	wg.Wait()
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Start(ctx)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_KeepsRunningAfterError(t *testing.T) {
	processor := &countingProcessor{err: errors.New("upstream down")}
	worker := NewWorker("test", processor, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	assert.Eventually(t, func() bool {
		return processor.runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
}

func TestRefreshProcessor_ProcessJobs(t *testing.T) {
	refresher := new(MockKnowledgeRefresher)
	refresher.On("Refresh", mock.Anything).Return(nil).Once()

	err := NewRefreshProcessor(refresher).ProcessJobs(context.Background())

	assert.NoError(t, err)
	refresher.AssertExpectations(t)
}

func TestRefreshProcessor_WrapsError(t *testing.T) {
	refresher := new(MockKnowledgeRefresher)
	cause := errors.New("status 503")
	refresher.On("Refresh", mock.Anything).Return(cause)

	err := NewRefreshProcessor(refresher).ProcessJobs(context.Background())

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to refresh knowledge")
}
