package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/kanka-search/internal/kanka"
)

// fakeAPI serves canned listings keyed by "campaignID/category".
type fakeAPI struct {
	campaigns    []kanka.Entity
	campaignsErr error
	listings     map[string][]kanka.Entity
	failures     map[string]error
	delay        time.Duration

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeAPI) ListCampaigns(_ context.Context) ([]kanka.Entity, error) {
	f.record("campaigns")
	if f.campaignsErr != nil {
		return nil, f.campaignsErr
	}
	return f.campaigns, nil
}

func (f *fakeAPI) ListCategory(ctx context.Context, campaignID, category string) ([]kanka.Entity, error) {
	key := campaignID + "/" + category
	f.record(key)

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	return f.listings[key], nil
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
