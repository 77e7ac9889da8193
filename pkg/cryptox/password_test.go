package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("damienbod")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifySecret("damienbod", hash))
	require.ErrorIs(t, VerifySecret("Damienbod", hash), ErrPasswordMismatch)
	require.ErrorIs(t, VerifySecret("", hash), ErrPasswordMismatch)
}

func TestHashSecretSaltsDiffer(t *testing.T) {
	t.Parallel()

	a, err := HashSecret("same-password")
	require.NoError(t, err)
	b, err := HashSecret("same-password")
	require.NoError(t, err)

	// Fresh salt per call means identical inputs never collide.
	require.NotEqual(t, a, b)
	require.NoError(t, VerifySecret("same-password", a))
	require.NoError(t, VerifySecret("same-password", b))
}

func TestVerifySecretMalformedHash(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":         "",
		"wrong format":  "not-a-phc-string",
		"wrong variant": "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"bad version":   "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"bad salt":      "$argon2id$v=19$m=19456,t=2,p=1$!!$aGFzaA",
	}

	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			err := VerifySecret("whatever", encoded)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}
