package weather

import "fmt"

// TransientFetchError marks a fetch failure that is worth retrying: a network
// or timeout error, or one of the retryable HTTP statuses. Status is 0 when
// the request never produced a response.
type TransientFetchError struct {
	Status int
	Err    error
}

func (e *TransientFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient fetch error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// FatalFetchError marks a fetch failure that must not be retried: an
// unexpected HTTP status, a malformed response body, or an open circuit.
type FatalFetchError struct {
	Status int
	Err    error
}

func (e *FatalFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fatal fetch error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fatal fetch error: %v", e.Err)
}

func (e *FatalFetchError) Unwrap() error { return e.Err }

// NormalizationError marks a payload that could not be turned into
// observation records: no recognized current or hourly block, or a timestamp
// that does not parse. Records yielded before the failure stand.
type NormalizationError struct {
	SiteID int
	Err    error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize site %d: %v", e.SiteID, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }
