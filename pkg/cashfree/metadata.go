package cashfree

import (
	"encoding/json"
	"strconv"
	"strings"
)

// OrderMetadata is the fulfillment metadata attached to every checkout
// order. It rides in order_note and again in order_meta.custom_data so that
// at least one copy survives whichever payload shape the provider echoes
// back.
type OrderMetadata struct {
	CreditsToPurchase json.Number `json:"creditsToPurchase"`
	UserID            string      `json:"userId"`
}

// Credits returns the credit count as an integer, or 0 when the field is
// absent or not a whole number.
func (m OrderMetadata) Credits() int64 {
	raw := strings.TrimSpace(m.CreditsToPurchase.String())
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Tolerate a float-typed echo like "50.0".
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0
		}
		return int64(f)
	}
	return n
}

// EncodeOrderMetadata serializes the metadata for order_note / custom_data.
func EncodeOrderMetadata(credits int64, userID string) (string, error) {
	payload, err := json.Marshal(OrderMetadata{
		CreditsToPurchase: json.Number(strconv.FormatInt(credits, 10)),
		UserID:            userID,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// ParseOrderMetadata decodes a metadata string. Empty or non-JSON input
// yields a zero-valued metadata rather than an error, so callers can fall
// back to their secondary source.
func ParseOrderMetadata(raw string) OrderMetadata {
	var meta OrderMetadata
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(trimmed), &meta); err != nil {
		return OrderMetadata{}
	}
	return meta
}
