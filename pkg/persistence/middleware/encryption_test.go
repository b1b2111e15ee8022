package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	// Setup
	underlying := NewMockChannel()
	key := generateKey(t)
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	secureChannel := mw(underlying)

	ctx := context.Background()
	sessionID := "test-session"
	if err := secureChannel.Create(ctx, sessionID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	original := domain.NewStatePatch("calc", domain.StatePatch{
		Status: domain.StatusDone,
		Result: "my-secret-sauce",
	})

	// 1. Enqueue
	if err := secureChannel.Enqueue(ctx, sessionID, original); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// 2. Verify underlying channel directly (should be encrypted)
	stored := underlying.peek(sessionID)
	if len(stored) != 1 {
		t.Fatalf("Expected 1 stored event, got %d", len(stored))
	}
	payload, ok := stored[0].Payload.(map[string]any)
	if !ok {
		t.Fatalf("Expected envelope payload, got %T", stored[0].Payload)
	}
	if _, ok := payload["__encrypted__"]; !ok {
		t.Fatal("Expected __encrypted__ field in payload")
	}
	if _, ok := payload["result"]; ok {
		t.Fatal("Expected result to be hidden in the stored payload")
	}
	if stored[0].Type != domain.EventStatePatch || stored[0].Node != "calc" {
		t.Errorf("Envelope should keep type and node visible, got %s/%s", stored[0].Type, stored[0].Node)
	}

	// 3. Dequeue via middleware (should be decrypted)
	events, err := secureChannel.DequeueBatch(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("DequeueBatch via middleware failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	patch, err := events[0].Patch()
	if err != nil {
		t.Fatalf("Patch decode failed: %v", err)
	}
	if patch.Result != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", patch.Result)
	}
	if patch.Status != domain.StatusDone {
		t.Errorf("Expected status %s, got %s", domain.StatusDone, patch.Status)
	}
}

func TestEncryptionMiddleware_NilPayloadPassthrough(t *testing.T) {
	underlying := NewMockChannel()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureChannel := mw(underlying)

	ctx := context.Background()
	sessionID := "nil-session"
	if err := secureChannel.Create(ctx, sessionID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := secureChannel.Enqueue(ctx, sessionID, domain.Event{Type: domain.EventNodeEnter, Node: "ask"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if stored := underlying.peek(sessionID); stored[0].Payload != nil {
		t.Fatalf("Expected nil payload to pass through unwrapped, got %v", stored[0].Payload)
	}

	events, err := secureChannel.DequeueBatch(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("DequeueBatch failed: %v", err)
	}
	if events[0].Payload != nil {
		t.Errorf("Expected nil payload after dequeue, got %v", events[0].Payload)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	// Setup
	underlying := NewMockChannel()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	// Create middleware with OLD key to enqueue the initial event
	mwOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	secureChannelOld := mwOld(underlying)

	ctx := context.Background()
	sessionID := "rotation-session"
	if err := secureChannelOld.Create(ctx, sessionID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 1. Enqueue with OLD key
	err := secureChannelOld.Enqueue(ctx, sessionID, domain.NewStatePatch("a", domain.StatePatch{
		Status: domain.StatusDone,
		Result: "encrypted-with-old-key",
	}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// 2. Dequeue with NEW key (Active) + OLD key (Fallback)
	mwNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	secureChannelNew := mwNew(underlying)

	events, err := secureChannelNew.DequeueBatch(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("Dequeue with rotated key failed: %v", err)
	}
	patch, err := events[0].Patch()
	if err != nil {
		t.Fatalf("Patch decode failed: %v", err)
	}
	if patch.Result != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed, got %v", patch.Result)
	}

	// 3. Enqueue again (should now encrypt with NEW key)
	err = secureChannelNew.Enqueue(ctx, sessionID, domain.NewStatePatch("a", domain.StatePatch{
		Status: domain.StatusDone,
		Result: "encrypted-with-new-key",
	}))
	if err != nil {
		t.Fatalf("Enqueue with new key failed: %v", err)
	}

	// 4. Verify we CANNOT dequeue with just the OLD key anymore
	if _, err := secureChannelOld.DequeueBatch(ctx, sessionID, 10); err == nil {
		t.Error("Expected failure when dequeuing new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_FailsOnPlainPayload(t *testing.T) {
	underlying := NewMockChannel()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureChannel := mw(underlying)

	ctx := context.Background()
	sessionID := "plain-session"
	if err := secureChannel.Create(ctx, sessionID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Sneak an unencrypted event past the middleware.
	if err := underlying.Enqueue(ctx, sessionID, domain.NewNodeEnter("ask", "hello")); err != nil {
		t.Fatalf("Direct enqueue failed: %v", err)
	}

	if _, err := secureChannel.DequeueBatch(ctx, sessionID, 10); err == nil {
		t.Error("Expected fail-secure error for a payload without an envelope")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}
