package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventwise/eventauth/pkg/cryptox"
)

func newEdDSATestSigner(t *testing.T, kid string) Signer {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	s, err := NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	return s
}

func TestEdDSASignAndVerify(t *testing.T) {
	t.Parallel()

	signer := newEdDSATestSigner(t, "test-key-1")

	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	claims := NewAccessClaims(
		"123", "resourceownerclient",
		[]string{"dataEventRecords"},
		time.Minute,
		"https://auth.local",
		[]string{"dataEventRecords"},
		time.Now().UTC(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := NewCommonEdDSA(keys, "https://auth.local", []string{"dataEventRecords"})
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "123", got.Subject)
	require.Equal(t, []string{"dataEventRecords"}, got.Scopes)
}

func TestEdDSAVerifyRejectsUnknownKID(t *testing.T) {
	t.Parallel()

	signer := newEdDSATestSigner(t, "key-a")
	other := newEdDSATestSigner(t, "key-b")

	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(other))

	token, err := signer.Sign(NewAccessClaims(
		"123", "c", nil, time.Minute, "iss", nil, time.Now().UTC(),
	))
	require.NoError(t, err)

	verifier := NewCommonEdDSA(keys, "iss", nil)
	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestEdDSAVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	signer := newEdDSATestSigner(t, "key-exp")

	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	token, err := signer.Sign(NewAccessClaims(
		"123", "c", nil, -time.Minute, "iss", nil, time.Now().UTC().Add(-time.Hour),
	))
	require.NoError(t, err)

	verifier := NewCommonEdDSA(keys, "iss", nil)
	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestEdDSAVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	signer := newEdDSATestSigner(t, "key-tamper")

	keys := NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	token, err := signer.Sign(NewAccessClaims(
		"123", "c", nil, time.Minute, "iss", nil, time.Now().UTC(),
	))
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"

	verifier := NewCommonEdDSA(keys, "iss", nil)
	_, err = verifier.Verify(tampered)
	require.Error(t, err)
}
