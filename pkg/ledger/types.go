package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger movement.
type TransactionType string

const (
	// TypeOrder is an amount extracted from a chat message.
	TypeOrder TransactionType = "order"

	// TypeAdd is a manual upward adjustment by an admin.
	TypeAdd TransactionType = "add"

	// TypeReduce is a manual downward adjustment by an admin.
	TypeReduce TransactionType = "reduce"

	// TypeClear marks a ledger reset.
	TypeClear TransactionType = "clear"
)

// Group is the running ledger for one chat.
type Group struct {
	ChatID      int64
	Name        string
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is a single recorded purchase.
type Order struct {
	ID         string
	ChatID     int64
	UserID     int64
	UserName   string
	Amount     decimal.Decimal
	RawText    string
	Expression string
	CreatedAt  time.Time
}

// Transaction is one movement in a group's ledger history.
type Transaction struct {
	ID        string
	ChatID    int64
	UserID    int64
	UserName  string
	Type      TransactionType
	Amount    decimal.Decimal
	Note      string
	CreatedAt time.Time
}

// User is a registered chat participant.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
	IsBot        bool
	LastSeen     time.Time
}

// Store is the persistence interface for ledger state. Implementations must
// be safe for concurrent use; write serialization against constrained
// backends is the admission controller's job, not the store's.
type Store interface {
	// GetUser returns the user or (nil, nil) when absent.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// SaveUser inserts or replaces a user record.
	SaveUser(ctx context.Context, user *User) error

	// GetGroup returns the group or (nil, nil) when absent.
	GetGroup(ctx context.Context, chatID int64) (*Group, error)

	// SaveGroup inserts or replaces a group record.
	SaveGroup(ctx context.Context, group *Group) error

	// AddOrder appends an order record.
	AddOrder(ctx context.Context, order *Order) error

	// AddTransaction appends a transaction record.
	AddTransaction(ctx context.Context, tx *Transaction) error

	// RecentOrders returns up to limit orders for a chat, newest first.
	RecentOrders(ctx context.Context, chatID int64, limit int) ([]*Order, error)

	// RecentTransactions returns up to limit transactions, newest first.
	RecentTransactions(ctx context.Context, chatID int64, limit int) ([]*Transaction, error)

	// OrderCount returns the number of orders recorded for a chat.
	OrderCount(ctx context.Context, chatID int64) (int, error)

	// ClearGroup deletes a chat's orders and transactions and zeroes its
	// total. No-op when the group does not exist.
	ClearGroup(ctx context.Context, chatID int64) error

	// IsSuperAdmin reports whether the user is a stored super admin.
	IsSuperAdmin(ctx context.Context, userID int64) (bool, error)

	// IsGroupAdmin reports whether the user administers the given chat.
	IsGroupAdmin(ctx context.Context, userID, chatID int64) (bool, error)

	// GrantAdmin records an admin role. chatID 0 with super=true grants a
	// global role.
	GrantAdmin(ctx context.Context, userID, chatID int64, super bool) error

	// Cleanup deletes orders and transactions older than the given time and
	// returns how many rows were removed. Group totals are unaffected.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
