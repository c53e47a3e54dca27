package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.NoError(t, CheckHash(hash))

	assert.NoError(t, h.Compare(hash, "s3cret"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrMismatch)
	assert.Error(t, h.Compare("not-a-hash", "s3cret"))

	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestCostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestCheckHash(t *testing.T) {
	assert.Error(t, CheckHash("plain-text"))
	assert.Error(t, CheckHash(""))
}
