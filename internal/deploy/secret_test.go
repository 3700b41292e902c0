package deploy

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecret(t *testing.T) {
	secret := NewSecret()

	require.Len(t, secret, 32)
	_, err := hex.DecodeString(secret)
	assert.NoError(t, err)

	assert.NotEqual(t, secret, NewSecret(), "consecutive secrets must differ")
}

func TestNewSecret_FallbackWhenCryptoFails(t *testing.T) {
	original := randRead
	defer func() { randRead = original }()

	randRead = func(b []byte) (int, error) {
		return 0, errors.New("entropy pool exhausted")
	}

	secret := NewSecret()

	require.Len(t, secret, 32)
	_, err := hex.DecodeString(secret)
	assert.NoError(t, err)
}
