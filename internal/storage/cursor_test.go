package storage

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPageToken_RoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 4, 5, 6, 7, 891, time.UTC)
	id := uuid.New()

	gotTS, gotID, err := DecodePageToken(EncodePageToken(ts, id))
	require.NoError(t, err)
	require.True(t, ts.Equal(gotTS))
	require.Equal(t, id, gotID)
}

func TestDecodePageToken_Invalid(t *testing.T) {
	t.Parallel()

	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
	}{
		{name: "not_base64", token: "***"},
		{name: "no_separator", token: enc("12345")},
		{name: "bad_time", token: enc("abc|" + uuid.NewString())},
		{name: "bad_uuid", token: enc("12345|not-a-uuid")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := DecodePageToken(tt.token)
			require.Error(t, err)
		})
	}
}
