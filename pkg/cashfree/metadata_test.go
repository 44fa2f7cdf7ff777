package cashfree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeOrderMetadata(t *testing.T) {
	raw, err := EncodeOrderMetadata(50, "user_abc")
	require.NoError(t, err)
	require.JSONEq(t, `{"creditsToPurchase": 50, "userId": "user_abc"}`, raw)

	meta := ParseOrderMetadata(raw)
	require.Equal(t, int64(50), meta.Credits())
	require.Equal(t, "user_abc", meta.UserID)
}

func TestParseOrderMetadata_Lenient(t *testing.T) {
	require.Equal(t, OrderMetadata{}, ParseOrderMetadata(""))
	require.Equal(t, OrderMetadata{}, ParseOrderMetadata("   "))
	require.Equal(t, OrderMetadata{}, ParseOrderMetadata("plain text note"))
	require.Equal(t, OrderMetadata{}, ParseOrderMetadata(`{"creditsToPurchase": [1]}`))
}

func TestOrderMetadataCredits(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int64
	}{
		{"integer", `{"creditsToPurchase": 50, "userId": "u"}`, 50},
		{"string integer", `{"creditsToPurchase": "25", "userId": "u"}`, 25},
		{"float echo", `{"creditsToPurchase": 50.0, "userId": "u"}`, 50},
		{"fractional", `{"creditsToPurchase": 50.5, "userId": "u"}`, 0},
		{"absent", `{"userId": "u"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ParseOrderMetadata(tc.raw).Credits())
		})
	}
}
