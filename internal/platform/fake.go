package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/maheshrc27/crosspost/internal/models"
)

// FakeAdapter is an in-process Adapter for tests and local runs. Unset funcs
// succeed with a generated external id and zero metrics.
type FakeAdapter struct {
	ID            string
	Reqs          Requirements
	PublishFunc   func(ctx context.Context, req PublishRequest) (*PublishResult, error)
	AnalyticsFunc func(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error)

	mu             sync.Mutex
	publishes      []PublishRequest
	analyticsCalls int
}

func NewFakeAdapter(id string) *FakeAdapter {
	return &FakeAdapter{ID: id}
}

func (f *FakeAdapter) Platform() string { return f.ID }

func (f *FakeAdapter) Requirements() Requirements { return f.Reqs }

func (f *FakeAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	f.mu.Lock()
	f.publishes = append(f.publishes, req)
	n := len(f.publishes)
	f.mu.Unlock()

	if f.PublishFunc != nil {
		return f.PublishFunc(ctx, req)
	}
	return &PublishResult{ExternalID: fmt.Sprintf("%s-%d", f.ID, n)}, nil
}

func (f *FakeAdapter) FetchAnalytics(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error) {
	f.mu.Lock()
	f.analyticsCalls++
	f.mu.Unlock()

	if f.AnalyticsFunc != nil {
		return f.AnalyticsFunc(ctx, externalID, creds)
	}
	return &models.Metrics{}, nil
}

func (f *FakeAdapter) PublishCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.publishes)
}

func (f *FakeAdapter) PublishRequests() []PublishRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PublishRequest(nil), f.publishes...)
}

func (f *FakeAdapter) AnalyticsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyticsCalls
}
