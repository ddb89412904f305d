// Package providers implements the weather.Source contract for the two
// supported Open-Meteo API flavors: the forecast API (current + hourly
// blocks) and the archive API (hourly only).
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-etl/internal/weather"
)

var (
	errRetryableStatus = errors.New("retryable status from API")
	errCircuitOpen     = errors.New("circuit breaker open")
)

// Statuses the upstream APIs return for rate limiting and transient server
// trouble. Anything else outside 2xx is treated as fatal.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusNotFound:            true,
	http.StatusMethodNotAllowed:    true,
	http.StatusRequestTimeout:      true,
	http.StatusConflict:            true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// fetchPayload performs a resilient GET against url: each attempt runs
// through the circuit breaker and failures classified as transient are
// retried per the policy. On success the body is decoded into a Payload with
// the raw bytes preserved for optional archival.
func fetchPayload(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, policy weather.RetryPolicy, name, url string) (*weather.Payload, error) {
	var body []byte

	err := policy.Do(ctx, name, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &weather.FatalFetchError{Err: err}
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, &weather.TransientFetchError{Err: execErr}
			}
			defer resp.Body.Close()

			if retryableStatuses[resp.StatusCode] {
				return nil, &weather.TransientFetchError{Status: resp.StatusCode, Err: errRetryableStatus}
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, &weather.FatalFetchError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status code")}
			}

			b, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, &weather.TransientFetchError{Err: readErr}
			}
			return b, nil
		})
		if err != nil {
			// An open circuit aborts immediately rather than burning the
			// remaining attempts against a tripped upstream.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return &weather.FatalFetchError{Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
			}
			return err
		}

		b, ok := result.([]byte)
		if !ok {
			return &weather.FatalFetchError{Err: fmt.Errorf("unexpected result type from circuit breaker")}
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	var payload weather.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &weather.FatalFetchError{Err: fmt.Errorf("malformed response: %w", err)}
	}
	payload.Raw = body

	return &payload, nil
}
