package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("owner-1", "owner-1/classXMarksheet_1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	subject, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "owner-1", subject)
	require.Equal(t, "owner-1/classXMarksheet_1.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	signer := newSigner("secret", time.Minute, func() time.Time { return now })
	token, _, err := signer.Generate("owner-1", "owner-1/classXMarksheet_1.pdf")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	subject, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "owner-1", subject)
	require.Equal(t, "owner-1/classXMarksheet_1.pdf", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("owner-1", "owner-1/classXMarksheet_1.pdf")
	require.NoError(t, err)

	forged := "owner-2" + strings.TrimPrefix(token, "owner-1")
	_, _, _, err = signer.Parse(forged, false)
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.Error(t, err)

	_, _, err = signer.Generate("owner.1", "x.pdf")
	require.Error(t, err)
}
