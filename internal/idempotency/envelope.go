package idempotency

import "time"

// Response is the outcome of a guarded operation as seen by the interceptor:
// a status code plus an opaque, already-serialized payload.
type Response struct {
	StatusCode int
	Body       []byte
}

// Envelope is the captured, replayable representation of an outcome.
// CapturedAt is set exactly once, when the first execution is stored.
// FromCache is true only on the replay path; it is never persisted and never
// true for a freshly computed response.
type Envelope struct {
	StatusCode int       `json:"status_code"`
	Body       []byte    `json:"body"`
	CapturedAt time.Time `json:"captured_at"`
	FromCache  bool      `json:"-"`
}

func newEnvelope(resp *Response, capturedAt time.Time) Envelope {
	return Envelope{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		CapturedAt: capturedAt,
	}
}
