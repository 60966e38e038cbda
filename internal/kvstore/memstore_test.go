package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMemStore_GetMissingKey(t *testing.T) {
	store := NewMemStore()

	_, err := store.Get(context.Background(), "user_missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemStore_PutGetRoundTrip(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	if err := store.Put(ctx, "user_1", map[string]any{"email": "a@x.com"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	raw, err := store.Get(ctx, "user_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["email"] != "a@x.com" {
		t.Errorf("expected email a@x.com, got %v", got["email"])
	}
}

func TestMemStore_LastWriteWins(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	if err := store.Put(ctx, "user_1", map[string]any{"v": float64(1)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "user_1", map[string]any{"v": float64(2)}); err != nil {
		t.Fatalf("put: %v", err)
	}

	raw, err := store.Get(ctx, "user_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["v"] != float64(2) {
		t.Errorf("expected last write to win, got %v", got["v"])
	}
}

func TestMemStore_ScanPrefix(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	entries := map[string]string{
		"user_1":         "alice",
		"user_2":         "bob",
		"analysis_1_aaa": "first",
		"analysis_2_bbb": "other user",
	}
	for k, v := range entries {
		if err := store.Put(ctx, k, v); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	users, err := store.ScanPrefix(ctx, "user_")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 user entries, got %d", len(users))
	}

	analyses, err := store.ScanPrefix(ctx, "analysis_1_")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(analyses) != 1 {
		t.Fatalf("expected 1 analysis entry, got %d", len(analyses))
	}
	var val string
	if err := json.Unmarshal(analyses[0], &val); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if val != "first" {
		t.Errorf("expected %q, got %q", "first", val)
	}

	empty, err := store.ScanPrefix(ctx, "nothing_")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty scan result, got %d entries", len(empty))
	}
}
