package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tally-hq/tally/pkg/ledger"
	"tally-hq/tally/pkg/limits/ratelimit"
	"tally-hq/tally/pkg/parse"
	"tally-hq/tally/pkg/queue"
)

// OutcomeKind labels what the pipeline did with an update.
type OutcomeKind string

const (
	// OutcomeIgnored: not actionable (wrong kind, bot sender, no keyword).
	OutcomeIgnored OutcomeKind = "ignored"

	// OutcomeThrottledChat: rejected at intake by the per-chat limiter.
	OutcomeThrottledChat OutcomeKind = "throttled_chat"

	// OutcomeThrottledUser: parse attempt rejected by the per-user limiter.
	OutcomeThrottledUser OutcomeKind = "throttled_user"

	// OutcomeNoAmount: extraction ran but found no valid amount.
	OutcomeNoAmount OutcomeKind = "no_amount"

	// OutcomeOrderRecorded: an amount was extracted and written.
	OutcomeOrderRecorded OutcomeKind = "order_recorded"

	// OutcomeAdjusted: an admin adjustment was applied.
	OutcomeAdjusted OutcomeKind = "adjusted"

	// OutcomeCleared: the group ledger was reset.
	OutcomeCleared OutcomeKind = "cleared"

	// OutcomeDenied: a command required admin rights the sender lacks.
	OutcomeDenied OutcomeKind = "denied"

	// OutcomeUserRegistered: a private-chat message registered its sender.
	OutcomeUserRegistered OutcomeKind = "user_registered"

	// OutcomeError: a ledger operation failed.
	OutcomeError OutcomeKind = "error"
)

// Outcome reports the result of handling one update. Amount and Total are
// meaningful for order and adjustment outcomes.
type Outcome struct {
	Kind           OutcomeKind
	ChatID         int64
	UserID         int64
	Amount         decimal.Decimal
	Total          decimal.Decimal
	StatedMismatch bool
	Err            error
}

// Sink observes outcomes, typically to send chat replies. Called from worker
// goroutines; implementations must be safe for concurrent use.
type Sink func(Outcome)

// Monitor receives pipeline events for metrics. All methods are called from
// hot paths and must not block.
type Monitor interface {
	MessageSeen()
	RateLimited(scope string)
	ParseObserved(duration time.Duration, ok bool)
	OutcomeSeen(kind string)
}

type nopMonitor struct{}

func (nopMonitor) MessageSeen()                      {}
func (nopMonitor) RateLimited(string)                {}
func (nopMonitor) ParseObserved(time.Duration, bool) {}
func (nopMonitor) OutcomeSeen(string)                {}

// PipelineConfig wires a Pipeline. Ledger and Extractor are required; both
// limiters, the sink, and the monitor are optional.
type PipelineConfig struct {
	Ledger      *ledger.Service
	Extractor   *parse.Extractor
	ChatLimiter *ratelimit.Limiter
	UserLimiter *ratelimit.Limiter

	// QueueCapacity and Workers size the internal work queue.
	// Defaults: 1000 and 4.
	QueueCapacity int
	Workers       int

	Logger  *slog.Logger
	Sink    Sink
	Monitor Monitor
}

// Pipeline runs updates through intake throttling, a bounded queue, and the
// extraction-to-ledger path.
type Pipeline struct {
	ledger      *ledger.Service
	extractor   *parse.Extractor
	chatLimiter *ratelimit.Limiter
	userLimiter *ratelimit.Limiter
	queue       *queue.Queue[Update]
	logger      *slog.Logger
	sink        Sink
	monitor     Monitor
}

// NewPipeline builds a pipeline from the config. It does not start workers;
// call Start.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("pipeline requires a ledger service")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = parse.NewExtractor()
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Monitor == nil {
		cfg.Monitor = nopMonitor{}
	}

	return &Pipeline{
		ledger:      cfg.Ledger,
		extractor:   cfg.Extractor,
		chatLimiter: cfg.ChatLimiter,
		userLimiter: cfg.UserLimiter,
		queue:       queue.New[Update](cfg.QueueCapacity, cfg.Workers, cfg.Logger),
		logger:      cfg.Logger,
		sink:        cfg.Sink,
		monitor:     cfg.Monitor,
	}, nil
}

// Start launches the queue workers.
func (p *Pipeline) Start() error {
	return p.queue.Start(p.process)
}

// Stop drains the workers and blocks until they exit.
func (p *Pipeline) Stop() {
	p.queue.Stop()
}

// QueueStats exposes the internal queue's counters.
func (p *Pipeline) QueueStats() queue.Stats {
	return p.queue.Stats()
}

// Submit offers an update to the pipeline. Message updates pass the per-chat
// limiter and enter the queue; other kinds are acknowledged and dropped at
// the boundary. Returns true when the update was accepted for processing.
func (p *Pipeline) Submit(update Update) bool {
	msg, ok := update.Message()
	if !ok {
		from, _ := update.From()
		p.emit(Outcome{Kind: OutcomeIgnored, UserID: from.ID})
		return false
	}

	p.monitor.MessageSeen()

	if p.chatLimiter != nil && !p.chatLimiter.Allow(msg.ChatID) {
		p.monitor.RateLimited("chat")
		p.logger.Debug("chat throttled at intake",
			slog.Int64("chat_id", msg.ChatID))
		p.emit(Outcome{Kind: OutcomeThrottledChat, ChatID: msg.ChatID, UserID: msg.From.ID})
		return false
	}

	p.queue.Put(update)
	return true
}

// process handles one queued update. Errors are returned so the queue can
// count them; each path also emits an outcome.
func (p *Pipeline) process(ctx context.Context, update Update) error {
	msg, ok := update.Message()
	if !ok {
		return nil
	}
	if msg.From.IsBot {
		p.emit(Outcome{Kind: OutcomeIgnored, ChatID: msg.ChatID, UserID: msg.From.ID})
		return nil
	}

	// Private chats register the sender, then fall through to the same
	// command and price handling as group chats.
	if msg.ChatKind == ChatPrivate {
		if err := p.registerUser(ctx, msg); err != nil {
			return err
		}
	}

	if typ, amount, ok := ParseAdjustCommand(msg.Text); ok {
		return p.adjust(ctx, msg, typ, amount)
	}
	if IsClearCommand(msg.Text) {
		return p.clear(ctx, msg)
	}

	if !p.extractor.ContainsKeyword(msg.Text) {
		p.emit(Outcome{Kind: OutcomeIgnored, ChatID: msg.ChatID, UserID: msg.From.ID})
		return nil
	}

	if p.userLimiter != nil && !p.userLimiter.Allow(msg.From.ID) {
		p.monitor.RateLimited("user")
		p.logger.Debug("user parse throttled",
			slog.Int64("user_id", msg.From.ID),
			slog.Int64("chat_id", msg.ChatID))
		p.emit(Outcome{Kind: OutcomeThrottledUser, ChatID: msg.ChatID, UserID: msg.From.ID})
		return nil
	}

	start := time.Now()
	result := p.extractor.Extract(msg.Text)
	p.monitor.ParseObserved(time.Since(start), result.OK)

	if !result.OK {
		p.emit(Outcome{
			Kind: OutcomeNoAmount, ChatID: msg.ChatID, UserID: msg.From.ID,
			Err: fmt.Errorf("%s", result.Err),
		})
		return nil
	}

	if result.StatedMismatch {
		p.logger.Warn("stated total disagrees with its expression",
			slog.Int64("chat_id", msg.ChatID),
			slog.String("expression", result.Expression),
			slog.String("stated", result.Amount.StringFixed(2)))
	}

	_, group, err := p.ledger.AddOrder(ctx, ledger.AddOrderParams{
		ChatID:     msg.ChatID,
		UserID:     msg.From.ID,
		UserName:   msg.From.DisplayName(),
		Amount:     result.Amount,
		RawText:    msg.Text,
		Expression: result.Expression,
		GroupName:  msg.ChatTitle,
	})
	if err != nil {
		p.emit(Outcome{Kind: OutcomeError, ChatID: msg.ChatID, UserID: msg.From.ID, Err: err})
		return fmt.Errorf("record order: %w", err)
	}

	p.emit(Outcome{
		Kind:           OutcomeOrderRecorded,
		ChatID:         msg.ChatID,
		UserID:         msg.From.ID,
		Amount:         result.Amount,
		Total:          group.TotalAmount,
		StatedMismatch: result.StatedMismatch,
	})
	return nil
}

func (p *Pipeline) registerUser(ctx context.Context, msg MessageContext) error {
	err := p.ledger.RegisterUser(ctx, ledger.User{
		ID:           msg.From.ID,
		Username:     msg.From.Username,
		FirstName:    msg.From.FirstName,
		LastName:     msg.From.LastName,
		LanguageCode: msg.From.LanguageCode,
		IsPremium:    msg.From.IsPremium,
	})
	if err != nil {
		p.emit(Outcome{Kind: OutcomeError, ChatID: msg.ChatID, UserID: msg.From.ID, Err: err})
		return fmt.Errorf("register user: %w", err)
	}
	p.emit(Outcome{Kind: OutcomeUserRegistered, ChatID: msg.ChatID, UserID: msg.From.ID})
	return nil
}

func (p *Pipeline) adjust(ctx context.Context, msg MessageContext,
	typ ledger.TransactionType, amount decimal.Decimal) error {

	admin, err := p.ledger.IsAdmin(ctx, msg.From.ID, msg.ChatID)
	if err != nil {
		p.emit(Outcome{Kind: OutcomeError, ChatID: msg.ChatID, UserID: msg.From.ID, Err: err})
		return fmt.Errorf("admin check: %w", err)
	}
	if !admin {
		p.emit(Outcome{Kind: OutcomeDenied, ChatID: msg.ChatID, UserID: msg.From.ID})
		return nil
	}

	group, err := p.ledger.Adjust(ctx, msg.ChatID, msg.From.ID,
		msg.From.DisplayName(), typ, amount, msg.Text)
	if err != nil {
		p.emit(Outcome{Kind: OutcomeError, ChatID: msg.ChatID, UserID: msg.From.ID, Err: err})
		return fmt.Errorf("apply adjustment: %w", err)
	}

	p.emit(Outcome{
		Kind:   OutcomeAdjusted,
		ChatID: msg.ChatID,
		UserID: msg.From.ID,
		Amount: amount,
		Total:  group.TotalAmount,
	})
	return nil
}

func (p *Pipeline) clear(ctx context.Context, msg MessageContext) error {
	admin, err := p.ledger.IsAdmin(ctx, msg.From.ID, msg.ChatID)
	if err != nil {
		p.emit(Outcome{Kind: OutcomeError, ChatID: msg.ChatID, UserID: msg.From.ID, Err: err})
		return fmt.Errorf("admin check: %w", err)
	}
	if !admin {
		p.emit(Outcome{Kind: OutcomeDenied, ChatID: msg.ChatID, UserID: msg.From.ID})
		return nil
	}

	previous, err := p.ledger.ClearGroup(ctx, msg.ChatID, msg.ChatTitle)
	if err != nil {
		p.emit(Outcome{Kind: OutcomeError, ChatID: msg.ChatID, UserID: msg.From.ID, Err: err})
		return fmt.Errorf("clear ledger: %w", err)
	}

	p.emit(Outcome{
		Kind:   OutcomeCleared,
		ChatID: msg.ChatID,
		UserID: msg.From.ID,
		Amount: previous,
		Total:  decimal.Zero,
	})
	return nil
}

func (p *Pipeline) emit(outcome Outcome) {
	p.monitor.OutcomeSeen(string(outcome.Kind))
	if p.sink != nil {
		p.sink(outcome)
	}
}
