package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters keep the suite fast
var testParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewHasher(testParams)

	for _, password := range []string{"secret1", "correct horse battery staple", "пароль123", "x"} {
		digest, err := h.Hash(password)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(digest), "$argon2id$v=19$m=8192,t=1,p=1$"))

		ok, err := h.Verify(password, digest)
		require.NoError(t, err)
		assert.True(t, ok, "password %q", password)

		ok, err = h.Verify(password+"!", digest)
		require.NoError(t, err)
		assert.False(t, ok, "password %q with suffix", password)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := NewHasher(testParams)

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyEmptyDigest(t *testing.T) {
	h := NewHasher(testParams)

	ok, err := h.Verify("secret1", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := NewHasher(testParams)

	_, err := h.Verify("secret1", []byte("$argon2id$garbage"))
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	h := NewHasher(testParams)
	digest, err := bcrypt.GenerateFromPassword([]byte("secret1"), 5)
	require.NoError(t, err)

	ok, err := h.Verify("secret1", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("secret2", digest)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, h.NeedsRehash(digest))
}

func TestNeedsRehash(t *testing.T) {
	h := NewHasher(testParams)
	digest, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.False(t, h.NeedsRehash(digest))

	stronger := NewHasher(Argon2Params{Time: 2, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	assert.True(t, stronger.NeedsRehash(digest))

	ok, err := stronger.Verify("secret1", digest)
	require.NoError(t, err)
	assert.True(t, ok, "digests carry their own parameters")
}

func TestNewHasherFallsBackToDefaults(t *testing.T) {
	h := NewHasher(Argon2Params{})
	assert.Equal(t, DefaultArgon2Params, h.params)
}
