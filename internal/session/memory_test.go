package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_StateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	state, err := store.State(ctx, "u1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != "" {
		t.Errorf("State = %q, want empty", state)
	}

	if err := store.SetState(ctx, "u1", "awaiting_client_name"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	state, _ = store.State(ctx, "u1")
	if state != "awaiting_client_name" {
		t.Errorf("State = %q, want awaiting_client_name", state)
	}
}

func TestMemoryStore_UpdateMerges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	store.Update(ctx, "u1", Bag{"client_name": "Aliyev Vali"})
	store.Update(ctx, "u1", Bag{"phone_number": "+998901234567"})

	bag, err := store.Data(ctx, "u1")
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if bag["client_name"] != "Aliyev Vali" {
		t.Errorf("client_name = %q, want Aliyev Vali", bag["client_name"])
	}
	if bag["phone_number"] != "+998901234567" {
		t.Errorf("phone_number = %q, want +998901234567", bag["phone_number"])
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	store.SetState(ctx, "u1", "awaiting_phone")
	store.Update(ctx, "u1", Bag{"client_name": "X"})
	if err := store.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	state, _ := store.State(ctx, "u1")
	if state != "" {
		t.Errorf("State after Clear = %q, want empty", state)
	}
	bag, _ := store.Data(ctx, "u1")
	if len(bag) != 0 {
		t.Errorf("Data after Clear has %d keys, want 0", len(bag))
	}

	// Clearing again is a safe no-op.
	if err := store.Clear(ctx, "u1"); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	store.Update(ctx, "u1", Bag{"client_name": "First"})
	store.Update(ctx, "u2", Bag{"client_name": "Second"})

	bag1, _ := store.Data(ctx, "u1")
	bag2, _ := store.Data(ctx, "u2")
	if bag1["client_name"] != "First" {
		t.Errorf("u1 client_name = %q, want First", bag1["client_name"])
	}
	if bag2["client_name"] != "Second" {
		t.Errorf("u2 client_name = %q, want Second", bag2["client_name"])
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }

	store.SetState(ctx, "u1", "awaiting_phone")
	store.Update(ctx, "u1", Bag{"client_name": "X"})

	// Just before the deadline the session is still live.
	now = now.Add(9 * time.Minute)
	state, _ := store.State(ctx, "u1")
	if state != "awaiting_phone" {
		t.Errorf("State = %q, want awaiting_phone", state)
	}

	// Past the refreshed deadline it is gone.
	now = now.Add(11 * time.Minute)
	state, _ = store.State(ctx, "u1")
	if state != "" {
		t.Errorf("State after expiry = %q, want empty", state)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }

	store.SetState(ctx, "u1", "awaiting_phone")
	store.SetState(ctx, "u2", "awaiting_image")

	now = now.Add(11 * time.Minute)
	if removed := store.Sweep(); removed != 2 {
		t.Errorf("Sweep removed %d, want 2", removed)
	}
	if removed := store.Sweep(); removed != 0 {
		t.Errorf("second Sweep removed %d, want 0", removed)
	}
}
