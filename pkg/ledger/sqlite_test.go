package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_GroupRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	missing, err := store.GetGroup(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("got %+v for absent group, want nil", missing)
	}

	now := time.Now().Truncate(time.Second)
	group := &Group{
		ChatID: 100, Name: "lunch",
		TotalAmount: dec(t, "123.45"),
		CreatedAt:   now, UpdatedAt: now,
	}
	if err := store.SaveGroup(ctx, group); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.GetGroup(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "lunch" {
		t.Errorf("name = %q, want lunch", loaded.Name)
	}
	if !loaded.TotalAmount.Equal(dec(t, "123.45")) {
		t.Errorf("total = %s, want 123.45", loaded.TotalAmount)
	}

	// Upsert updates in place.
	group.TotalAmount = dec(t, "200")
	if err := store.SaveGroup(ctx, group); err != nil {
		t.Fatal(err)
	}
	loaded, err = store.GetGroup(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.TotalAmount.Equal(dec(t, "200")) {
		t.Errorf("total after upsert = %s, want 200", loaded.TotalAmount)
	}
}

func TestSQLiteStore_RecentOrdersNewestFirst(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		order := &Order{
			ID: id, ChatID: 100, UserID: 1,
			Amount:    dec(t, "10"),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AddOrder(ctx, order); err != nil {
			t.Fatal(err)
		}
	}

	orders, err := store.RecentOrders(ctx, 100, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("len = %d, want 2", len(orders))
	}
	if orders[0].ID != "c" || orders[1].ID != "b" {
		t.Errorf("order = [%s %s], want [c b]", orders[0].ID, orders[1].ID)
	}

	count, err := store.OrderCount(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestSQLiteStore_ClearGroup(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now()
	if err := store.SaveGroup(ctx, &Group{
		ChatID: 100, TotalAmount: dec(t, "50"), CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddOrder(ctx, &Order{ID: "a", ChatID: 100, Amount: dec(t, "50"), CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddTransaction(ctx, &Transaction{
		ID: "t1", ChatID: 100, Type: TypeOrder, Amount: dec(t, "50"), CreatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	// A second chat must survive the clear untouched.
	if err := store.AddOrder(ctx, &Order{ID: "b", ChatID: 200, Amount: dec(t, "9"), CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	if err := store.ClearGroup(ctx, 100); err != nil {
		t.Fatal(err)
	}

	group, err := store.GetGroup(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !group.TotalAmount.IsZero() {
		t.Errorf("total = %s, want 0", group.TotalAmount)
	}
	count, err := store.OrderCount(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("orders in cleared chat = %d, want 0", count)
	}
	count, err = store.OrderCount(ctx, 200)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("orders in other chat = %d, want 1", count)
	}
}

func TestSQLiteStore_Cleanup(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now()
	old := now.Add(-72 * time.Hour)
	if err := store.AddOrder(ctx, &Order{ID: "old", ChatID: 1, Amount: dec(t, "1"), CreatedAt: old}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddTransaction(ctx, &Transaction{
		ID: "t-old", ChatID: 1, Type: TypeOrder, Amount: dec(t, "1"), CreatedAt: old,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddOrder(ctx, &Order{ID: "new", ChatID: 1, Amount: dec(t, "2"), CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Cleanup(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	orders, err := store.RecentOrders(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || orders[0].ID != "new" {
		t.Errorf("surviving orders = %+v, want only \"new\"", orders)
	}
}

func TestSQLiteStore_Admins(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := store.GrantAdmin(ctx, 7, 100, false); err != nil {
		t.Fatal(err)
	}
	if err := store.GrantAdmin(ctx, 9, 0, true); err != nil {
		t.Fatal(err)
	}

	admin, err := store.IsGroupAdmin(ctx, 7, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !admin {
		t.Error("group admin not found")
	}
	admin, err = store.IsGroupAdmin(ctx, 7, 200)
	if err != nil {
		t.Fatal(err)
	}
	if admin {
		t.Error("group admin leaked into other chat")
	}

	super, err := store.IsSuperAdmin(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if !super {
		t.Error("super admin not found")
	}
	super, err = store.IsSuperAdmin(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if super {
		t.Error("plain group admin reported as super")
	}
}

func TestSQLiteStore_UserRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	seen := time.Now().Truncate(time.Second)
	user := &User{
		ID: 1, Username: "alice", FirstName: "Alice",
		LanguageCode: "zh", IsPremium: true, LastSeen: seen,
	}
	if err := store.SaveUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.GetUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Username != "alice" || !loaded.IsPremium {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.LastSeen.Equal(seen) {
		t.Errorf("last seen = %v, want %v", loaded.LastSeen, seen)
	}
}
