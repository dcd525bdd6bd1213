package vault

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"trustdocs/internal/config"
	"trustdocs/internal/repository"
	"trustdocs/internal/storage"
)

// Package vault implements the encrypted document store. Content is sealed
// with a fresh 256-bit data key per document (AES-GCM, nonce prepended to the
// ciphertext); the data key itself is wrapped by the master key and persisted
// in the key table under the returned key id. Deleting the wrapped key
// crypto-shreds the ciphertext even if the blob outlives it.

var (
	ErrMasterKey = errors.New("vault master key must be 32 bytes, base64-encoded")
)

// StoredObject describes a sealed blob at rest.
type StoredObject struct {
	Location  string
	KeyID     string
	SizeBytes int64
}

// Vault seals, opens, and destroys encrypted blobs.
type Vault interface {
	// Store seals plaintext under a freshly generated data key and writes the
	// ciphertext to object storage at the given location.
	Store(ctx context.Context, location string, plaintext []byte) (StoredObject, error)

	// Open retrieves and decrypts the blob at location using the key id.
	Open(ctx context.Context, location, keyID string) ([]byte, error)

	// Destroy removes the ciphertext and deletes the wrapped key.
	Destroy(ctx context.Context, location, keyID string) error
}

type envelopeVault struct {
	store   storage.Storage
	keys    repository.KeyRepository
	master  []byte
	backups bool
	log     *slog.Logger
}

// New builds a Vault from configuration. The master key is base64-encoded and
// must decode to exactly 32 bytes.
func New(cfg config.VaultConfig, store storage.Storage, keys repository.KeyRepository, log *slog.Logger) (Vault, error) {
	master, err := base64.StdEncoding.DecodeString(cfg.MasterKey)
	if err != nil || len(master) != 32 {
		return nil, ErrMasterKey
	}
	return &envelopeVault{
		store:   store,
		keys:    keys,
		master:  master,
		backups: cfg.BackupCopies,
		log:     log,
	}, nil
}

func (v *envelopeVault) Store(ctx context.Context, location string, plaintext []byte) (StoredObject, error) {
	dataKey := make([]byte, 32)
	if _, err := rand.Read(dataKey); err != nil {
		return StoredObject{}, fmt.Errorf("generate data key: %w", err)
	}

	sealed, err := seal(dataKey, plaintext)
	if err != nil {
		return StoredObject{}, fmt.Errorf("seal content: %w", err)
	}
	wrapped, err := seal(v.master, dataKey)
	if err != nil {
		return StoredObject{}, fmt.Errorf("wrap data key: %w", err)
	}

	_, err = v.store.Put(ctx, location, bytes.NewReader(sealed), storage.PutObjectOptions{
		Size:        int64(len(sealed)),
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("store ciphertext: %w", err)
	}

	keyID := uuid.NewString()
	if err := v.keys.Insert(ctx, keyID, wrapped); err != nil {
		// Without the key row the blob is unreadable; remove it again.
		if delErr := v.store.Delete(ctx, location); delErr != nil {
			v.log.ErrorContext(ctx, "orphaned ciphertext after key insert failure",
				"location", location, "error", delErr)
		}
		return StoredObject{}, fmt.Errorf("persist wrapped key: %w", err)
	}

	if v.backups {
		if err := v.store.Copy(ctx, location, backupLocation(location)); err != nil {
			v.log.WarnContext(ctx, "backup copy failed", "location", location, "error", err)
		}
	}

	return StoredObject{Location: location, KeyID: keyID, SizeBytes: int64(len(sealed))}, nil
}

func (v *envelopeVault) Open(ctx context.Context, location, keyID string) ([]byte, error) {
	wrapped, err := v.keys.Find(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("load wrapped key: %w", err)
	}
	dataKey, err := open(v.master, wrapped)
	if err != nil {
		return nil, fmt.Errorf("unwrap data key: %w", err)
	}

	rc, _, err := v.store.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("fetch ciphertext: %w", err)
	}
	defer rc.Close()

	sealed, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read ciphertext: %w", err)
	}
	plaintext, err := open(dataKey, sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt content: %w", err)
	}
	return plaintext, nil
}

func (v *envelopeVault) Destroy(ctx context.Context, location, keyID string) error {
	var errs []error
	if err := v.store.Delete(ctx, location); err != nil {
		errs = append(errs, fmt.Errorf("delete ciphertext: %w", err))
	}
	if v.backups {
		if err := v.store.Delete(ctx, backupLocation(location)); err != nil {
			v.log.WarnContext(ctx, "backup delete failed", "location", location, "error", err)
		}
	}
	if err := v.keys.Delete(ctx, keyID); err != nil {
		errs = append(errs, fmt.Errorf("delete wrapped key: %w", err))
	}
	return errors.Join(errs...)
}

func backupLocation(location string) string {
	return "backup/" + location
}

// seal encrypts plaintext with AES-256-GCM and prepends the nonce.
func seal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// open reverses seal.
func open(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, nil)
}
