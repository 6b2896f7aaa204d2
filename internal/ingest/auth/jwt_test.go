package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/camlink/internal/shared"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("3", secret, time.Minute)
	require.NoError(t, err)

	sensorID, err := GetSensorIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "3", sensorID)
}

func TestExpiredTokenRejected(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("3", secret, -time.Minute)
	require.NoError(t, err)

	_, err = GetSensorIDFromToken(token, secret)
	require.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := GenerateToken("3", []byte("right"), time.Minute)
	require.NoError(t, err)

	_, err = GetSensorIDFromToken(token, []byte("wrong"))
	require.Error(t, err)
}

func TestFromAuthHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "ok", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer tok", want: "tok"},
		{name: "missing token", header: "Bearer ", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "empty", header: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAuthHeader(tt.header)
			if tt.wantErr {
				require.ErrorIs(t, err, shared.ErrorInvalidAuthheaderFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
