package storage

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "rosters/cohort-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	jobID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "rosters/cohort-1.csv", path)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLExpiredTokenStillParsableForCleanup(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("job-1", "receipts/pay-1.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	jobID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "receipts/pay-1.pdf", path)
}

func TestSignedURLRejectsTamperedPath(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "rosters/cohort-1.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[2] = base64.RawURLEncoding.EncodeToString([]byte("../../etc/passwd"))

	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	minted := NewSignedURLSigner("secret-a", time.Hour)
	token, _, err := minted.Generate("job-1", "rosters/cohort-1.csv")
	require.NoError(t, err)

	verifier := NewSignedURLSigner("secret-b", time.Hour)
	_, _, _, err = verifier.Parse(token, false)
	require.Error(t, err)
}
