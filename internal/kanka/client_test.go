package kanka

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(FetchResponse), args.Error(1)
}

type recordingWaiter struct {
	urls []string
	err  error
}

func (w *recordingWaiter) Wait(_ context.Context, url string) error {
	w.urls = append(w.urls, url)
	return w.err
}

func newTestClient(t *testing.T, fetcher Fetcher, limiter Waiter) *Client {
	t.Helper()
	headers, err := NewTokenHeaders("secret")
	require.NoError(t, err)
	client, err := NewClient(Config{APIURL: "https://api.test/1.0/", RequestTimeout: time.Second}, headers, fetcher, limiter, nil)
	require.NoError(t, err)
	return client
}

func TestClientListCampaigns(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	waiter := &recordingWaiter{}
	client := newTestClient(t, fetcher, waiter)

	fetcher.On("Fetch", mock.Anything, mock.MatchedBy(func(r FetchRequest) bool {
		return r.URL == "https://api.test/1.0/campaigns" &&
			r.Headers.Get("Authorization") == "Bearer secret" &&
			r.Headers.Get("Accept") == "application/json"
	})).Return(FetchResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"data":[{"id":1,"name":"Test Realm"},{"id":2,"name":"Other"}]}`),
	}, nil)

	campaigns, err := client.ListCampaigns(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Entity{{ID: 1, Name: "Test Realm"}, {ID: 2, Name: "Other"}}, campaigns)
	assert.Equal(t, []string{"https://api.test/1.0/campaigns"}, waiter.urls)
	fetcher.AssertExpectations(t)
}

func TestClientListCategory(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	client := newTestClient(t, fetcher, nil)

	fetcher.On("Fetch", mock.Anything, mock.MatchedBy(func(r FetchRequest) bool {
		return r.URL == "https://api.test/1.0/campaigns/7/characters"
	})).Return(FetchResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"data":[{"id":5,"name":"ünïcode hero","is_private":false}],"meta":{}}`),
	}, nil)

	entities, err := client.ListCategory(context.Background(), "7", "characters")

	require.NoError(t, err)
	assert.Equal(t, []Entity{{ID: 5, Name: "ünïcode hero"}}, entities)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		resp  FetchResponse
		err   error
		check func(t *testing.T, err error)
	}{
		{
			name: "non success status",
			resp: FetchResponse{StatusCode: http.StatusForbidden},
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
				assert.Contains(t, statusErr.Error(), "403 Forbidden")
			},
		},
		{
			name: "transport error",
			resp: FetchResponse{},
			err:  errors.New("connection reset"),
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "connection reset")
			},
		},
		{
			name: "invalid json",
			resp: FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{`)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name: "missing data",
			resp: FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"message":"nope"}`)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fetcher := new(mockFetcher)
			fetcher.On("Fetch", mock.Anything, mock.Anything).Return(tc.resp, tc.err)
			client := newTestClient(t, fetcher, nil)

			_, err := client.ListCategory(context.Background(), "1", "items")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestClientRateLimitError(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	client := newTestClient(t, fetcher, &recordingWaiter{err: context.Canceled})

	_, err := client.ListCampaigns(context.Background())

	require.ErrorIs(t, err, context.Canceled)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestClientAppliesRequestTimeout(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	client := newTestClient(t, fetcher, nil)
	fetcher.On("Fetch", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"data":[]}`)}, nil)

	entities, err := client.ListCampaigns(context.Background())

	require.NoError(t, err)
	assert.Empty(t, entities)
	fetcher.AssertExpectations(t)
}

// stepRetrier retries retryable errors up to max attempts after a fixed delay.
type stepRetrier struct {
	max   int
	delay time.Duration
}

func (r stepRetrier) ShouldRetry(err error, attempt int) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && !statusErr.Retryable() {
		return false
	}
	return attempt < r.max
}

func (r stepRetrier) Backoff(int) time.Duration { return r.delay }

func newRetryingClient(t *testing.T, fetcher Fetcher, r Retrier) *Client {
	t.Helper()
	headers, err := NewTokenHeaders("secret")
	require.NoError(t, err)
	client, err := NewClient(Config{APIURL: "https://api.test/1.0"}, headers, fetcher, nil, nil, WithRetry(r))
	require.NoError(t, err)
	return client
}

func TestClientRetriesThrottledCall(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(FetchResponse{StatusCode: http.StatusTooManyRequests}, nil).Once()
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"data":[{"id":1,"name":"Realm"}]}`)}, nil).Once()
	client := newRetryingClient(t, fetcher, stepRetrier{max: 3})

	entities, err := client.ListCampaigns(context.Background())

	require.NoError(t, err)
	require.Len(t, entities, 1)
	fetcher.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(FetchResponse{StatusCode: http.StatusForbidden}, nil)
	client := newRetryingClient(t, fetcher, stepRetrier{max: 3})

	_, err := client.ListCampaigns(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(FetchResponse{StatusCode: http.StatusBadGateway}, nil)
	client := newRetryingClient(t, fetcher, stepRetrier{max: 3})

	_, err := client.ListCategory(context.Background(), "1", "items")

	require.Error(t, err)
	fetcher.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestClientRetryHonorsRetryAfterAndCancel(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(FetchResponse{
		StatusCode: http.StatusTooManyRequests,
		Headers:    http.Header{"Retry-After": []string{"60"}},
	}, nil)
	client := newRetryingClient(t, fetcher, stepRetrier{max: 5})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := client.ListCampaigns(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, time.Minute, statusErr.RetryAfter)
	assert.Less(t, time.Since(start), 5*time.Second)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestClientRetriesPerCallTimeout(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(FetchResponse{}, context.DeadlineExceeded).Once()
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"data":[{"id":2,"name":"Sword"}]}`)}, nil).Once()

	headers, err := NewTokenHeaders("secret")
	require.NoError(t, err)
	client, err := NewClient(Config{APIURL: "https://api.test/1.0", RequestTimeout: 20 * time.Millisecond},
		headers, fetcher, nil, nil, WithRetry(stepRetrier{max: 2}))
	require.NoError(t, err)

	entities, err := client.ListCategory(context.Background(), "1", "items")

	require.NoError(t, err)
	require.Len(t, entities, 1)
	fetcher.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestClientCallTimeoutWhenRunCanceled(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(FetchResponse{}, context.Canceled)
	client := newRetryingClient(t, fetcher, stepRetrier{max: 3})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err := client.ListCampaigns(ctx)

	require.ErrorIs(t, err, context.Canceled)
	var timeoutErr *CallTimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestClientDoesNotRetryMalformedBody(t *testing.T) {
	t.Parallel()

	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return(FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"meta":{}}`)}, nil)
	client := newRetryingClient(t, fetcher, stepRetrier{max: 3})

	_, err := client.ListCampaigns(context.Background())

	require.ErrorIs(t, err, ErrMalformedResponse)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	headers, err := NewTokenHeaders("t")
	require.NoError(t, err)

	_, err = NewClient(Config{}, nil, new(mockFetcher), nil, nil)
	assert.Error(t, err)
	_, err = NewClient(Config{}, headers, nil, nil, nil)
	assert.Error(t, err)

	client, err := NewClient(Config{}, headers, new(mockFetcher), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, client.apiURL)
	assert.Equal(t, 15*time.Second, client.timeout)
}
