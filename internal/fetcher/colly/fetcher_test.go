package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/kanka-search/internal/kanka"
)

func TestFetcherBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", Timeout: time.Second})
	req := kanka.FetchRequest{
		URL:     "https://api.kanka.io/1.0/campaigns",
		Headers: http.Header{"Authorization": {"Bearer t"}},
	}

	collector := f.buildCollector(req, time.Unix(0, 0), &kanka.FetchResponse{}, new(error))
	if collector.UserAgent != "coverage-agent" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if !collector.IgnoreRobotsTxt {
		t.Fatal("expected robots.txt to be ignored for API calls")
	}
	if !collector.AllowURLRevisit {
		t.Fatal("expected URL revisits to be allowed")
	}
	if !collector.ParseHTTPErrorResponse {
		t.Fatal("expected error responses to be parsed")
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	req := kanka.FetchRequest{
		URL:     "https://api.kanka.io/1.0/campaigns",
		Headers: http.Header{"Authorization": {"Bearer t"}},
	}
	var result kanka.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &fetchErr)
	if hooks.onRequest == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	collyReq := &colly.Request{Headers: &http.Header{"Authorization": {"stale"}}}
	hooks.onRequest(collyReq)
	if got := collyReq.Headers.Values("Authorization"); len(got) != 1 || got[0] != "Bearer t" {
		t.Fatalf("expected header replacement, got %+v", got)
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       []byte("slow down"),
		Headers:    &http.Header{"Retry-After": {"60"}},
		Request: &colly.Request{
			URL: mustParseURL(t, "https://api.kanka.io/1.0/campaigns"),
		},
	})
	if result.StatusCode != http.StatusTooManyRequests || string(result.Body) != "slow down" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Headers.Get("Retry-After") != "60" {
		t.Fatalf("expected headers copied, got %+v", result.Headers)
	}

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	collyReq := &colly.Request{Headers: &http.Header{}}
	f.copyHeaders(kanka.FetchRequest{}, collyReq)
	if len(*collyReq.Headers) != 0 {
		t.Fatalf("expected no headers to be copied, got %+v", *collyReq.Headers)
	}
}

func TestFetchAgainstServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/campaigns/1/items" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Test Realm"}]}`))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{UserAgent: "kanka-search-test", Timeout: 2 * time.Second})
	headers := http.Header{"Authorization": {"Bearer token"}}

	for i := 0; i < 2; i++ {
		resp, err := f.Fetch(context.Background(), kanka.FetchRequest{URL: srv.URL + "/campaigns", Headers: headers})
		if err != nil {
			t.Fatalf("Fetch() attempt %d error = %v", i, err)
		}
		if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"data":[{"id":1,"name":"Test Realm"}]}` {
			t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Body)
		}
	}

	resp, err := f.Fetch(context.Background(), kanka.FetchRequest{URL: srv.URL + "/campaigns/1/items", Headers: headers})
	if err != nil {
		t.Fatalf("expected error status to be returned as a response, got %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFetchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	f := New(Config{Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, kanka.FetchRequest{URL: srv.URL})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
