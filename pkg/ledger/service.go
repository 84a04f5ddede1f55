package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally-hq/tally/pkg/limits/admission"
)

// maxRawTextLen bounds the message text stored with an order.
const maxRawTextLen = 500

// Service applies ledger operations on top of a Store. Every mutation runs
// under the admission controller so the constrained backend never sees more
// writers than it can handle.
type Service struct {
	store       Store
	gate        *admission.Controller
	logger      *slog.Logger
	superAdmins map[int64]struct{}
}

// AddOrderParams carries everything needed to record one order.
type AddOrderParams struct {
	ChatID     int64
	UserID     int64
	UserName   string
	Amount     decimal.Decimal
	RawText    string
	Expression string
	GroupName  string
}

// NewService creates a ledger service. superAdminIDs come from static
// configuration and are checked before the store.
func NewService(store Store, gate *admission.Controller, logger *slog.Logger, superAdminIDs []int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	supers := make(map[int64]struct{}, len(superAdminIDs))
	for _, id := range superAdminIDs {
		supers[id] = struct{}{}
	}
	return &Service{
		store:       store,
		gate:        gate,
		logger:      logger,
		superAdmins: supers,
	}
}

// Store exposes the underlying store, mainly for health checks.
func (s *Service) Store() Store {
	return s.store
}

// RegisterUser inserts or refreshes a user record, keeping existing fields
// when the update carries empty ones.
func (s *Service) RegisterUser(ctx context.Context, user User) error {
	return s.gate.Do(ctx, func() error {
		existing, err := s.store.GetUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if user.Username == "" {
				user.Username = existing.Username
			}
			if user.FirstName == "" {
				user.FirstName = existing.FirstName
			}
			if user.LastName == "" {
				user.LastName = existing.LastName
			}
			if user.LanguageCode == "" {
				user.LanguageCode = existing.LanguageCode
			}
		}
		user.LastSeen = time.Now()
		return s.store.SaveUser(ctx, &user)
	})
}

// AddOrder records an order, adds its amount to the group total, and writes
// the matching ledger transaction. It returns the stored order and the
// updated group.
func (s *Service) AddOrder(ctx context.Context, params AddOrderParams) (*Order, *Group, error) {
	if params.Amount.IsNegative() {
		return nil, nil, fmt.Errorf("order amount must not be negative: %s", params.Amount)
	}

	var order *Order
	var group *Group

	err := s.gate.Do(ctx, func() error {
		var err error
		group, err = s.getOrCreateGroupLocked(ctx, params.ChatID, params.GroupName)
		if err != nil {
			return err
		}

		now := time.Now()
		order = &Order{
			ID:         uuid.NewString(),
			ChatID:     params.ChatID,
			UserID:     params.UserID,
			UserName:   params.UserName,
			Amount:     params.Amount,
			RawText:    truncate(params.RawText, maxRawTextLen),
			Expression: params.Expression,
			CreatedAt:  now,
		}
		if err := s.store.AddOrder(ctx, order); err != nil {
			return err
		}

		group.TotalAmount = group.TotalAmount.Add(params.Amount)
		group.UpdatedAt = now
		if err := s.store.SaveGroup(ctx, group); err != nil {
			return err
		}

		return s.store.AddTransaction(ctx, &Transaction{
			ID:        uuid.NewString(),
			ChatID:    params.ChatID,
			UserID:    params.UserID,
			UserName:  params.UserName,
			Type:      TypeOrder,
			Amount:    params.Amount,
			Note:      fmt.Sprintf("order by %s", params.UserName),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("order recorded",
		slog.Int64("chat_id", params.ChatID),
		slog.Int64("user_id", params.UserID),
		slog.String("amount", params.Amount.StringFixed(2)),
		slog.String("total", group.TotalAmount.StringFixed(2)),
	)
	return order, group, nil
}

// Adjust applies a manual adjustment to a group total. TypeAdd increases
// the total, TypeReduce decreases it; the absolute amount is used either
// way. Returns the updated group.
func (s *Service) Adjust(ctx context.Context, chatID, userID int64, userName string,
	typ TransactionType, amount decimal.Decimal, note string) (*Group, error) {

	if typ != TypeAdd && typ != TypeReduce {
		return nil, fmt.Errorf("unsupported adjustment type %q", typ)
	}

	var group *Group
	err := s.gate.Do(ctx, func() error {
		var err error
		group, err = s.getOrCreateGroupLocked(ctx, chatID, "")
		if err != nil {
			return err
		}

		now := time.Now()
		delta := amount.Abs()
		if typ == TypeReduce {
			group.TotalAmount = group.TotalAmount.Sub(delta)
		} else {
			group.TotalAmount = group.TotalAmount.Add(delta)
		}
		group.UpdatedAt = now
		if err := s.store.SaveGroup(ctx, group); err != nil {
			return err
		}

		return s.store.AddTransaction(ctx, &Transaction{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			UserID:    userID,
			UserName:  userName,
			Type:      typ,
			Amount:    delta,
			Note:      note,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ledger adjusted",
		slog.Int64("chat_id", chatID),
		slog.String("type", string(typ)),
		slog.String("amount", amount.Abs().StringFixed(2)),
		slog.String("total", group.TotalAmount.StringFixed(2)),
	)
	return group, nil
}

// ClearGroup wipes a chat's orders and transactions and zeroes its total.
// It returns the total as it stood before the clear.
func (s *Service) ClearGroup(ctx context.Context, chatID int64, groupName string) (decimal.Decimal, error) {
	var previous decimal.Decimal

	err := s.gate.Do(ctx, func() error {
		group, err := s.getOrCreateGroupLocked(ctx, chatID, groupName)
		if err != nil {
			return err
		}
		previous = group.TotalAmount
		return s.store.ClearGroup(ctx, chatID)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("ledger cleared",
		slog.Int64("chat_id", chatID),
		slog.String("previous_total", previous.StringFixed(2)),
	)
	return previous, nil
}

// Group returns the group for a chat, or (nil, nil) when it does not exist.
func (s *Service) Group(ctx context.Context, chatID int64) (*Group, error) {
	var group *Group
	err := s.gate.Do(ctx, func() error {
		var err error
		group, err = s.store.GetGroup(ctx, chatID)
		return err
	})
	return group, err
}

// GetOrCreateGroup returns the group for a chat, creating it when missing
// and refreshing its name when a non-empty one is supplied.
func (s *Service) GetOrCreateGroup(ctx context.Context, chatID int64, name string) (*Group, error) {
	var group *Group
	err := s.gate.Do(ctx, func() error {
		var err error
		group, err = s.getOrCreateGroupLocked(ctx, chatID, name)
		return err
	})
	return group, err
}

// RecentOrders returns up to limit orders for a chat, newest first.
func (s *Service) RecentOrders(ctx context.Context, chatID int64, limit int) ([]*Order, error) {
	var orders []*Order
	err := s.gate.Do(ctx, func() error {
		var err error
		orders, err = s.store.RecentOrders(ctx, chatID, limit)
		return err
	})
	return orders, err
}

// RecentTransactions returns up to limit transactions, newest first.
func (s *Service) RecentTransactions(ctx context.Context, chatID int64, limit int) ([]*Transaction, error) {
	var transactions []*Transaction
	err := s.gate.Do(ctx, func() error {
		var err error
		transactions, err = s.store.RecentTransactions(ctx, chatID, limit)
		return err
	})
	return transactions, err
}

// IsSuperAdmin reports whether the user is a super admin, checking static
// configuration first and then the store.
func (s *Service) IsSuperAdmin(ctx context.Context, userID int64) (bool, error) {
	if _, ok := s.superAdmins[userID]; ok {
		return true, nil
	}
	var super bool
	err := s.gate.Do(ctx, func() error {
		var err error
		super, err = s.store.IsSuperAdmin(ctx, userID)
		return err
	})
	return super, err
}

// IsAdmin reports whether the user may administer the chat: super admins
// everywhere, group admins in their own chat.
func (s *Service) IsAdmin(ctx context.Context, userID, chatID int64) (bool, error) {
	super, err := s.IsSuperAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if super {
		return true, nil
	}

	var admin bool
	err = s.gate.Do(ctx, func() error {
		var err error
		admin, err = s.store.IsGroupAdmin(ctx, userID, chatID)
		return err
	})
	return admin, err
}

// GrantAdmin records an admin role for a user.
func (s *Service) GrantAdmin(ctx context.Context, userID, chatID int64, super bool) error {
	return s.gate.Do(ctx, func() error {
		return s.store.GrantAdmin(ctx, userID, chatID, super)
	})
}

// getOrCreateGroupLocked must run inside a gate.Do section.
func (s *Service) getOrCreateGroupLocked(ctx context.Context, chatID int64, name string) (*Group, error) {
	group, err := s.store.GetGroup(ctx, chatID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	if group == nil {
		group = &Group{
			ChatID:      chatID,
			Name:        name,
			TotalAmount: decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.SaveGroup(ctx, group); err != nil {
			return nil, err
		}
		return group, nil
	}

	if name != "" && name != group.Name {
		group.Name = name
		group.UpdatedAt = now
		if err := s.store.SaveGroup(ctx, group); err != nil {
			return nil, err
		}
	}
	return group, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
