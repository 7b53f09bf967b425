package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// Default retry configuration. Retries stay off unless configured so that
	// each provider is called at most once per resolution.
	defaultRetryCount       = 0
	defaultRetryWaitTime    = 200 * time.Millisecond
	defaultRetryMaxWaitTime = 2 * time.Second

	defaultTimeout = 5 * time.Second
)

// ClientOptions tunes the HTTP client shared by a provider
type ClientOptions struct {
	// Timeout bounds every request end to end
	Timeout time.Duration
	// RetryCount is the number of extra attempts on retryable failures
	RetryCount int
	// UserAgent overrides resty's default when set
	UserAgent string
	// Headers are added to every request
	Headers map[string]string
}

// NewHTTPClient creates a new HTTP client with a bounded timeout and optional
// retry logic with exponential backoff
func NewHTTPClient(baseURL string, opts ClientOptions) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := opts.RetryCount
	if retries < 0 {
		retries = defaultRetryCount
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	for k, v := range opts.Headers {
		client.SetHeader(k, v)
	}

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	switch code := r.StatusCode(); {
	case code >= 500:
		return true
	case code == 429, code == 408:
		return true
	default:
		return false
	}
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}
