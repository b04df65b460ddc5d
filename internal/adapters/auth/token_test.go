package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_Issue(t *testing.T) {
	secret := "test-secret"
	expiry := 24 * time.Hour
	issuer := NewJWT(secret)

	token, err := issuer.Issue("staff-123", "programs@example.org", []string{"staff"}, expiry)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "staff-123", claims.Subject)
	assert.Equal(t, "eventroster", claims.Issuer)
	assert.Equal(t, "programs@example.org", claims.Email)
	assert.Equal(t, []string{"staff"}, claims.Roles)

	_, err = issuer.Issue("", "x@example.org", nil, expiry)
	require.Error(t, err)
}

func TestJWT_Verify(t *testing.T) {
	signer := NewJWT("test-secret")
	good, err := signer.Issue("staff-123", "programs@example.org", nil, time.Hour)
	require.NoError(t, err)

	past := NewJWT("test-secret")
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := past.Issue("staff-123", "programs@example.org", nil, time.Hour)
	require.NoError(t, err)

	other, err := NewJWT("other-secret").Issue("staff-123", "programs@example.org", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr bool
	}{
		{name: "valid", token: good, wantID: "staff-123"},
		{name: "expired", token: expired, wantErr: true},
		{name: "wrong secret", token: other, wantErr: true},
		{name: "garbage", token: "not-a-token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := signer.Verify(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
