// Package types holds the wire envelopes shared by every HTTP handler.
package types

// SuccessEnvelope wraps successful payloads under a single data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error body. Details only appear for codes
// whose metadata allows them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under a single error key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
