package kanka

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultCategories lists the entity endpoints crawled for every campaign,
// in the order they are fetched.
var DefaultCategories = []string{
	"abilities",
	"calendars",
	"conversations",
	"characters",
	"dice_rolls",
	"events",
	"families",
	"items",
	"journals",
	"locations",
	"notes",
	"organisations",
	"quests",
	"races",
	"tags",
}

// Entity is one record of a listing; campaigns share the same shape.
type Entity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type listResponse struct {
	Data *[]Entity `json:"data"`
}

// FetchRequest captures everything needed to fetch an API URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the raw result of a fetch. Non-2xx statuses are reported
// here rather than as errors.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ErrMalformedResponse marks a listing body without a data array.
var ErrMalformedResponse = errors.New("kanka: malformed listing response")

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
	// RetryAfter is the server's requested pause, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kanka: GET %s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the status is throttling or a server fault.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// CallTimeoutError reports a call that outlived the per-call timeout while
// the surrounding run was still live.
type CallTimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *CallTimeoutError) Error() string {
	return fmt.Sprintf("kanka: GET %s timed out after %s: %v", e.URL, e.Timeout, e.Err)
}

func (e *CallTimeoutError) Unwrap() error { return e.Err }

// Retryable is always true: the next attempt gets a fresh timeout.
func (e *CallTimeoutError) Retryable() bool { return true }

// retryAfter reads a delay-seconds Retry-After header.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
