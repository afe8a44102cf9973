package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Vault stores JSON values AES-256-GCM encrypted on top of a KV. Each value is stored
// as nonce||ciphertext.
type Vault struct {
	kv  KV
	gcm cipher.AEAD
}

// DeriveKey accepts a base64 encoded 32-byte key, or hashes any other secret to 32 bytes.
func DeriveKey(secret string) []byte {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if k, err := enc.DecodeString(secret); err == nil && len(k) == 32 {
			return k
		}
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// NewVault creates a vault with a 32-byte key.
func NewVault(kv KV, key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, errors.New("key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{kv: kv, gcm: gcm}, nil
}

// Put encrypts v and stores it under key.
func (v *Vault) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	plain, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	nonce := make([]byte, v.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	// key is bound as additional data so a value cannot be replayed under another key.
	sealed := v.gcm.Seal(nonce, nonce, plain, []byte(key))
	return v.kv.Set(ctx, key, sealed, ttl)
}

// Get decrypts the value under key into out.
func (v *Vault) Get(ctx context.Context, key string, out any) (bool, error) {
	sealed, ok, err := v.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	ns := v.gcm.NonceSize()
	if len(sealed) < ns {
		return false, fmt.Errorf("decrypt %s: value too short", key)
	}
	plain, err := v.gcm.Open(nil, sealed[:ns], sealed[ns:], []byte(key))
	if err != nil {
		return false, fmt.Errorf("decrypt %s: %w", key, err)
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key.
func (v *Vault) Delete(ctx context.Context, key string) error {
	return v.kv.Delete(ctx, key)
}
