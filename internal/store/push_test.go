package store

import "testing"

func TestPushSubscribeAndList(t *testing.T) {
	db := openTestDB(t)
	ps := NewPushStore(db)
	customer := createTestCustomer(t, db, "customer@example.com")

	sub, err := ps.Subscribe(customer.ID, "https://push.example.com/sub/1", "p256dh-key", "auth-key", "Pixel 8")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero id")
	}
	if sub.DeviceName != "Pixel 8" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Pixel 8")
	}

	subs, err := ps.ListByUser(customer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1", len(subs))
	}
}

func TestPushResubscribeRefreshesKeys(t *testing.T) {
	db := openTestDB(t)
	ps := NewPushStore(db)
	customer := createTestCustomer(t, db, "customer@example.com")

	first, err := ps.Subscribe(customer.ID, "https://push.example.com/sub/1", "old-p256dh", "old-auth", "")
	if err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	second, err := ps.Subscribe(customer.ID, "https://push.example.com/sub/1", "new-p256dh", "new-auth", "")
	if err != nil {
		t.Fatalf("second subscribe: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("re-subscribe created a new row: id %d vs %d", second.ID, first.ID)
	}
	if second.P256dhKey != "new-p256dh" {
		t.Errorf("p256dh_key = %q, want %q", second.P256dhKey, "new-p256dh")
	}

	subs, err := ps.ListByUser(customer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1", len(subs))
	}
}

func TestPushDeleteScopedToUser(t *testing.T) {
	db := openTestDB(t)
	ps := NewPushStore(db)
	customer := createTestCustomer(t, db, "customer@example.com")
	other := createTestCustomer(t, db, "other@example.com")

	sub, err := ps.Subscribe(customer.ID, "https://push.example.com/sub/1", "k", "a", "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Another user cannot delete it
	if err := ps.Delete(sub.ID, other.ID); err != nil {
		t.Fatalf("delete as other user: %v", err)
	}
	subs, err := ps.ListByUser(customer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1 after foreign delete", len(subs))
	}

	// The owner can
	if err := ps.Delete(sub.ID, customer.ID); err != nil {
		t.Fatalf("delete as owner: %v", err)
	}
	subs, err = ps.ListByUser(customer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("subscriptions = %d, want 0 after owner delete", len(subs))
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	db := openTestDB(t)
	ps := NewPushStore(db)
	customer := createTestCustomer(t, db, "customer@example.com")

	if _, err := ps.Subscribe(customer.ID, "https://push.example.com/sub/gone", "k", "a", ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := ps.DeleteByEndpoint("https://push.example.com/sub/gone"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	subs, err := ps.ListByUser(customer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("subscriptions = %d, want 0", len(subs))
	}
}
