package encfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveVolumeKey(t *testing.T) {
	label := []byte("disk-1")
	secret := []byte("application secret")

	key := DeriveVolumeKey(label, secret)
	assert.Len(t, key, 32)

	// Deterministic for the same inputs.
	assert.Equal(t, key, DeriveVolumeKey(label, secret))

	// Any input change produces a different key.
	assert.NotEqual(t, key, DeriveVolumeKey([]byte("disk-2"), secret))
	assert.NotEqual(t, key, DeriveVolumeKey(label, []byte("other secret")))
}
