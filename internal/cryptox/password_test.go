package cryptox

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap params keep the suite fast
var testParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	h := NewArgon2Hasher(testParams)
	ctx := context.Background()

	encoded, err := h.Hash(ctx, "s3cret!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"), encoded)

	ok, err := h.Verify(ctx, "s3cret!", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_SaltedPerCall(t *testing.T) {
	h := NewArgon2Hasher(testParams)
	a, err := h.Hash(context.Background(), "same")
	require.NoError(t, err)
	b, err := h.Hash(context.Background(), "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_VerifyUsesEncodedParams(t *testing.T) {
	encoded, err := NewArgon2Hasher(testParams).Hash(context.Background(), "pw")
	require.NoError(t, err)

	// a hasher configured differently must still verify older hashes
	ok, err := NewArgon2Hasher(Params{Memory: 2048, Iterations: 2, Parallelism: 1, SaltLength: 8, KeyLength: 16}).
		Verify(context.Background(), "pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2Hasher_ZeroParamsUseDefaults(t *testing.T) {
	h := NewArgon2Hasher(Params{})
	assert.Equal(t, DefaultParams, h.params)
}

func TestArgon2Hasher_InvalidHash(t *testing.T) {
	h := NewArgon2Hasher(testParams)
	cases := []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	}
	for _, c := range cases {
		ok, err := h.Verify(context.Background(), "pw", c)
		assert.ErrorIs(t, err, ErrInvalidHash, c)
		assert.False(t, ok)
	}
}

func TestEqualSecret(t *testing.T) {
	assert.True(t, EqualSecret("123456", "123456"))
	assert.False(t, EqualSecret("123456", "123457"))
	assert.False(t, EqualSecret("123456", "12345"))
	assert.False(t, EqualSecret("", "1"))
}
