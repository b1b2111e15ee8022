package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// envelopeKey marks a payload as an encrypted envelope.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new events.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.EventChannel
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts event payloads
// at rest using AES-GCM. Event type, node and timestamp stay visible so the
// backing store can still be monitored; the payload content is hidden.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.EventChannel) ports.EventChannel {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Create(ctx context.Context, sessionID string) error {
	return m.next.Create(ctx, sessionID)
}

func (m *encryptionMiddleware) Enqueue(ctx context.Context, sessionID string, event domain.Event) error {
	// Events without a payload carry nothing worth hiding.
	if event.Payload == nil {
		return m.next.Enqueue(ctx, sessionID, event)
	}

	// 1. Serialize real payload
	plainText, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// 2. Encrypt
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	// 3. Create envelope
	envelope := event
	envelope.Payload = map[string]any{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}

	return m.next.Enqueue(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) DequeueBatch(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	events, err := m.next.DequeueBatch(ctx, sessionID, max)
	if err != nil {
		return nil, err
	}

	for i, event := range events {
		if event.Payload == nil {
			continue
		}

		// 1. Extract ciphertext. If encryption is configured, every stored
		// payload must be an envelope; anything else fails secure.
		payload, ok := event.Payload.(map[string]any)
		if !ok {
			return nil, errors.New("event payload is missing encrypted data envelope")
		}
		encryptedStr, ok := payload[envelopeKey].(string)
		if !ok {
			return nil, errors.New("event payload is missing encrypted data envelope")
		}

		ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}

		// 2. Decrypt (Try Active, then Fallback)
		plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt payload: %w", err)
		}

		// 3. Deserialize. Payloads come back as maps, exactly like a JSON
		// round trip through a remote-backed channel; Patch and Metrics
		// decode them.
		var realPayload any
		if err := json.Unmarshal(plainText, &realPayload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decrypted payload: %w", err)
		}
		events[i].Payload = realPayload
	}

	return events, nil
}

func (m *encryptionMiddleware) Exists(ctx context.Context, sessionID string) (bool, error) {
	return m.next.Exists(ctx, sessionID)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
