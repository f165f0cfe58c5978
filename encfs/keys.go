package encfs

import "golang.org/x/crypto/argon2"

// DeriveVolumeKey creates a deterministic 32-byte volume key from a label
// and secret using the Argon2id KDF. The same inputs always produce the same
// key, so an image can later be re-created or re-opened from the original
// secret.
func DeriveVolumeKey(label, secret []byte) []byte {
	salt := append([]byte("ENCFS-VOLUME-KEY-"), label...)

	// Parameters: time=1, memory=64*1024, threads=4, keyLen=32
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}
