// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestTokenService_RoundTrip verifies an issued token grants its key.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := NewTokenService("secret", "manhwaty.assets")
	require.NoError(t, err)

	token, expiresAt, err := service.Issue("img-123", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

	key, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "img-123", key)
}

/*
TestTokenService_Rejects covers expiry, forgery and garbage.
*/
func TestTokenService_Rejects(t *testing.T) {
	service, err := NewTokenService("secret", "manhwaty.assets")
	require.NoError(t, err)

	// Expired
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issuedAt }
	expired, _, err := service.Issue("img-1", time.Minute)
	require.NoError(t, err)
	service.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = service.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Signed with another secret
	service.now = time.Now
	other, err := NewTokenService("other", "manhwaty.assets")
	require.NoError(t, err)
	forged, _, err := other.Issue("img-1", time.Minute)
	require.NoError(t, err)
	_, err = service.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Garbage
	_, err = service.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

/*
TestNewTokenService_EmptySecret verifies the constructor guard.
*/
func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := NewTokenService("", "issuer")
	assert.Error(t, err)
}

/*
TestDigest is stable and content-sensitive.
*/
func TestDigest(t *testing.T) {
	assert.Equal(t, Digest([]byte("cover")), Digest([]byte("cover")))
	assert.NotEqual(t, Digest([]byte("cover")), Digest([]byte("cover2")))
	assert.Len(t, Digest(nil), 32)
}
