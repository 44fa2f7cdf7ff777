package cashfreewebhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"
)

// ComputeSignature returns the base64 HMAC-SHA256 of message under secret.
func ComputeSignature(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// CanonicalPayload builds the provider's signing string from the event's
// data object: keys sorted lexicographically, values stringified and
// concatenated with no separator.
func CanonicalPayload(data json.RawMessage) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", false
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(stringifyValue(fields[k]))
	}
	return sb.String(), true
}

// stringifyValue renders a JSON value for canonicalization: strings are used
// raw (unquoted), numbers and booleans as their literals, null as the empty
// string, and objects or arrays as their compact JSON encoding.
func stringifyValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
		return string(trimmed)
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
		return string(trimmed)
	}
	return string(trimmed)
}

// VerifySignature checks the received header against the canonical
// sorted-values signature of the data object, falling back to a signature
// over the raw request body. Comparison is constant-time.
func VerifySignature(secret string, rawBody []byte, data json.RawMessage, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	if canonical, ok := CanonicalPayload(data); ok {
		if signaturesEqual(ComputeSignature(secret, []byte(canonical)), header) {
			return true
		}
	}
	return signaturesEqual(ComputeSignature(secret, rawBody), header)
}

// signaturesEqual compares in constant time. When lengths differ the direct
// comparison would leak length, so equality is decided on fixed-size digests.
func signaturesEqual(computed, received string) bool {
	if len(computed) == len(received) {
		return subtle.ConstantTimeCompare([]byte(computed), []byte(received)) == 1
	}
	a := sha256.Sum256([]byte(computed))
	b := sha256.Sum256([]byte(received))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
