package security

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes. A derived key is only ever used for its own purpose.
const (
	PurposeOAuthStateHash  = "aurenix/oauth-state/hash"
	PurposeOAuthStateBlock = "aurenix/oauth-state/block"
)

// DeriveKey expands secret into a size-byte key bound to purpose.
func DeriveKey(secret, purpose string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
