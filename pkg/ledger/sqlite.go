package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists ledger state in a single-file SQLite database.
// The database is opened in WAL mode with a busy timeout; the connection
// pool is pinned to one connection because SQLite supports a single writer.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteStore opens (or creates) the database at path with defaults.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteStoreWithConfig opens the database with custom settings and
// initializes the schema.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS groups (
		chat_id      INTEGER PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		total_amount TEXT NOT NULL DEFAULT '0',
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		chat_id    INTEGER NOT NULL,
		user_id    INTEGER NOT NULL,
		user_name  TEXT NOT NULL DEFAULT '',
		amount     TEXT NOT NULL,
		raw_text   TEXT NOT NULL DEFAULT '',
		expression TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_chat ON orders(chat_id, created_at);

	CREATE TABLE IF NOT EXISTS transactions (
		id         TEXT PRIMARY KEY,
		chat_id    INTEGER NOT NULL,
		user_id    INTEGER NOT NULL,
		user_name  TEXT NOT NULL DEFAULT '',
		type       TEXT NOT NULL,
		amount     TEXT NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_chat ON transactions(chat_id, created_at);

	CREATE TABLE IF NOT EXISTS users (
		user_id       INTEGER PRIMARY KEY,
		username      TEXT NOT NULL DEFAULT '',
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		language_code TEXT NOT NULL DEFAULT '',
		is_premium    INTEGER NOT NULL DEFAULT 0,
		is_bot        INTEGER NOT NULL DEFAULT 0,
		last_seen     INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS admins (
		user_id  INTEGER NOT NULL,
		chat_id  INTEGER NOT NULL DEFAULT 0,
		is_super INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, chat_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, last_name, language_code,
		       is_premium, is_bot, last_seen
		FROM users WHERE user_id = ?`, userID)

	var u User
	var lastSeen int64
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName,
		&u.LanguageCode, &u.IsPremium, &u.IsBot, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	u.LastSeen = time.Unix(lastSeen, 0)
	return &u, nil
}

func (s *SQLiteStore) SaveUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name,
		                   language_code, is_premium, is_bot, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			language_code = excluded.language_code,
			is_premium = excluded.is_premium,
			is_bot = excluded.is_bot,
			last_seen = excluded.last_seen`,
		user.ID, user.Username, user.FirstName, user.LastName,
		user.LanguageCode, user.IsPremium, user.IsBot, user.LastSeen.Unix())
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", user.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, chatID int64) (*Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chat_id, name, total_amount, created_at, updated_at
		FROM groups WHERE chat_id = ?`, chatID)

	var g Group
	var total string
	var createdAt, updatedAt int64
	err := row.Scan(&g.ChatID, &g.Name, &total, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", chatID, err)
	}

	g.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("corrupt total for group %d: %w", chatID, err)
	}
	g.CreatedAt = time.Unix(createdAt, 0)
	g.UpdatedAt = time.Unix(updatedAt, 0)
	return &g, nil
}

func (s *SQLiteStore) SaveGroup(ctx context.Context, group *Group) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (chat_id, name, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			name = excluded.name,
			total_amount = excluded.total_amount,
			updated_at = excluded.updated_at`,
		group.ChatID, group.Name, group.TotalAmount.String(),
		group.CreatedAt.Unix(), group.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save group %d: %w", group.ChatID, err)
	}
	return nil
}

func (s *SQLiteStore) AddOrder(ctx context.Context, order *Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, chat_id, user_id, user_name, amount,
		                    raw_text, expression, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.ChatID, order.UserID, order.UserName,
		order.Amount.String(), order.RawText, order.Expression,
		order.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddTransaction(ctx context.Context, tx *Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, chat_id, user_id, user_name, type,
		                          amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.ChatID, tx.UserID, tx.UserName, string(tx.Type),
		tx.Amount.String(), tx.Note, tx.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentOrders(ctx context.Context, chatID int64, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, user_name, amount, raw_text, expression, created_at
		FROM orders WHERE chat_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		var amount string
		var createdAt int64
		if err := rows.Scan(&o.ID, &o.ChatID, &o.UserID, &o.UserName,
			&amount, &o.RawText, &o.Expression, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount in order %s: %w", o.ID, err)
		}
		o.CreatedAt = time.Unix(createdAt, 0)
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

func (s *SQLiteStore) RecentTransactions(ctx context.Context, chatID int64, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, user_name, type, amount, note, created_at
		FROM transactions WHERE chat_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		var t Transaction
		var typ, amount string
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.ChatID, &t.UserID, &t.UserName,
			&typ, &amount, &t.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Type = TransactionType(typ)
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount in transaction %s: %w", t.ID, err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		transactions = append(transactions, &t)
	}
	return transactions, rows.Err()
}

func (s *SQLiteStore) OrderCount(ctx context.Context, chatID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE chat_id = ?`, chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) ClearGroup(ctx context.Context, chatID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete orders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE groups SET total_amount = '0', updated_at = ? WHERE chat_id = ?`,
		time.Now().Unix(), chatID); err != nil {
		return fmt.Errorf("failed to zero group total: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) IsSuperAdmin(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE user_id = ? AND is_super = 1`, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check super admin: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) IsGroupAdmin(ctx context.Context, userID, chatID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE user_id = ? AND chat_id = ?`, userID, chatID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check group admin: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) GrantAdmin(ctx context.Context, userID, chatID int64, super bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, chat_id, is_super) VALUES (?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET is_super = excluded.is_super`,
		userID, chatID, super)
	if err != nil {
		return fmt.Errorf("failed to grant admin: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	cutoff := olderThan.Unix()

	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune orders: %w", err)
	}
	orderRows, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE created_at < ?`, cutoff)
	if err != nil {
		return int(orderRows), fmt.Errorf("failed to prune transactions: %w", err)
	}
	txRows, _ := res.RowsAffected()

	return int(orderRows + txRows), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
