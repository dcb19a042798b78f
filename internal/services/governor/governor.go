package governor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/billing"
	"github.com/frontdesk-ai/frontdesk/internal/services/telephony"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrBalanceExhausted is returned by Session.Run when the cutoff monitor
// force-closed the call.
var ErrBalanceExhausted = errors.New("session balance exhausted")

const (
	defaultSettlementInterval = 5 * time.Minute
	defaultCutoffPoll         = 100 * time.Millisecond
)

// BalanceStore reads and debits client balances. GetBalance fails closed to
// zero; Deduct errors are tolerated by the caller.
type BalanceStore interface {
	GetBalance(ctx context.Context, clientID string) int64
	Deduct(ctx context.Context, clientID string, seconds int64) error
}

// ConversationStore persists the finalized transcript and returns its id.
type ConversationStore interface {
	SaveConversation(ctx context.Context, conv *models.Conversation) (uint, error)
}

// LedgerWriter commits one session's metric rows.
type LedgerWriter interface {
	AppendBatch(ctx context.Context, entries []models.UsageLedgerEntry) error
}

// CostCalculator prices session metrics into ledger rows.
type CostCalculator interface {
	LedgerEntries(ctx context.Context, clientID string, conversationID *uint, modelID string, m billing.SessionMetrics) []models.UsageLedgerEntry
}

// Config tunes the governor's two loops.
type Config struct {
	SettlementInterval time.Duration
	CutoffPoll         time.Duration
}

// Service admits, meters, caps and bills sessions against prepaid balances.
type Service struct {
	balances      BalanceStore
	conversations ConversationStore
	ledger        LedgerWriter
	costs         CostCalculator
	registry      *Registry
	cfg           Config

	// now is replaceable in tests.
	now func() time.Time
}

func NewService(balances BalanceStore, conversations ConversationStore, ledger LedgerWriter, costs CostCalculator, registry *Registry, cfg Config) *Service {
	if cfg.SettlementInterval <= 0 {
		cfg.SettlementInterval = defaultSettlementInterval
	}
	if cfg.CutoffPoll <= 0 {
		cfg.CutoffPoll = defaultCutoffPoll
	}
	return &Service{
		balances:      balances,
		conversations: conversations,
		ledger:        ledger,
		costs:         costs,
		registry:      registry,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Registry exposes the active session registry to the operations surface.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Admit checks whether a new session may start and returns the balance
// snapshot the session's cutoff ceiling will use. A declined admission is a
// normal outcome, not an error; a failed balance read admits nobody.
func (s *Service) Admit(ctx context.Context, clientID string) (int64, bool) {
	balance := s.balances.GetBalance(ctx, clientID)
	return balance, balance > 0
}

// StartParams describes the session being started. AdmittedSeconds is the
// balance snapshot Admit returned.
type StartParams struct {
	SessionID       string
	ClientID        string
	ClientName      string
	ModelID         string
	CallerPhone     string
	OwnerID         string
	AdmittedSeconds int64
	Transport       telephony.Transport
}

// Session is one live metered call. Its two loops run inside Run; Finalize
// performs the exact final accounting and may be called from any
// termination path, exactly once taking effect.
//
// The cutoff ceiling compares elapsed time to the balance available at
// admission: an administrative credit applied mid-call protects future
// sessions, it does not extend this one.
type Session struct {
	svc       *Service
	id        string
	clientID  string
	modelID   string
	caller    string
	transport telephony.Transport
	admitted  int64
	startTime time.Time
	transfers <-chan models.TransferRequest

	mu            sync.Mutex
	lastDeduction time.Time
	accumulated   int64

	stop          chan struct{}
	stopOnce      sync.Once
	finalizeOnce  sync.Once
	ledgerWritten bool
}

// StartSession registers the admitted session and begins its accounting
// clock. The caller must invoke Finalize on every termination path.
func (s *Service) StartSession(params StartParams) *Session {
	if params.SessionID == "" {
		params.SessionID = uuid.New().String()
	}
	start := s.now()

	sess := &Session{
		svc:           s,
		id:            params.SessionID,
		clientID:      params.ClientID,
		modelID:       params.ModelID,
		caller:        params.CallerPhone,
		transport:     params.Transport,
		admitted:      params.AdmittedSeconds,
		startTime:     start,
		lastDeduction: start,
		stop:          make(chan struct{}),
	}

	sess.transfers = s.registry.Register(models.ActiveSession{
		SessionID:   params.SessionID,
		ClientID:    params.ClientID,
		ClientName:  params.ClientName,
		CallerPhone: params.CallerPhone,
		OwnerID:     params.OwnerID,
		StartTime:   start,
	})

	fiberlog.Infof("Governor: session %s started for client %s (%ds admitted)",
		sess.id, sess.clientID, sess.admitted)
	return sess
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Transfers is the channel out-of-band transfer requests arrive on.
func (s *Session) Transfers() <-chan models.TransferRequest { return s.transfers }

// Run drives the periodic settlement loop and the cutoff monitor until the
// caller hangs up, the balance ceiling is hit, Finalize stops the session,
// or ctx is cancelled. It returns ErrBalanceExhausted when the cutoff
// monitor closed the call.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.settlementLoop(gctx) })
	g.Go(func() error { return s.cutoffLoop(gctx) })
	return g.Wait()
}

// settlementLoop deducts elapsed time every interval so a session that
// never reaches normal termination costs at most one interval of unbilled
// time.
func (s *Session) settlementLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.svc.cfg.SettlementInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.settle(ctx, s.svc.now())
		case <-s.stop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// settle bills the whole seconds elapsed since the last deduction. The same
// elapsed second is never summed twice: the deduction mark advances by
// exactly the billed chunk, carrying any sub-second remainder forward.
func (s *Session) settle(ctx context.Context, now time.Time) {
	s.mu.Lock()
	chunk := int64(now.Sub(s.lastDeduction) / time.Second)
	if chunk <= 0 {
		s.mu.Unlock()
		return
	}
	s.lastDeduction = s.lastDeduction.Add(time.Duration(chunk) * time.Second)
	s.accumulated += chunk
	s.mu.Unlock()

	if err := s.svc.balances.Deduct(ctx, s.clientID, chunk); err != nil {
		// Metering failures never abort a live call; the client ends up
		// under-deducted.
		fiberlog.Errorf("Governor: session %s settlement deduct of %ds failed: %v", s.id, chunk, err)
	}
}

// cutoffLoop polls for disconnects and for the hard balance ceiling.
func (s *Session) cutoffLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.svc.cfg.CutoffPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.transport != nil && !s.transport.Connected() {
				// A nil errgroup return does not cancel the group, so the
				// settlement loop must be told to stop explicitly.
				s.stopOnce.Do(func() { close(s.stop) })
				return nil
			}
			if s.exhausted(s.svc.now()) {
				fiberlog.Infof("Governor: session %s exceeded admitted balance of %ds, cutting off",
					s.id, s.admitted)
				if s.transport != nil {
					if err := s.transport.Close(telephony.CloseReasonInsufficientFunds); err != nil {
						fiberlog.Errorf("Governor: session %s cutoff close failed: %v", s.id, err)
					}
				}
				return ErrBalanceExhausted
			}
		case <-s.stop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// exhausted reports whether elapsed time passed the admission-time balance.
func (s *Session) exhausted(now time.Time) bool {
	return now.Sub(s.startTime) > time.Duration(s.admitted)*time.Second
}

// Finalize runs the exact final accounting: stop the loops, deduct the
// unbilled remainder so the session's deductions sum to its true elapsed
// seconds, remove the session from the registry, persist the conversation
// and commit the priced ledger batch. It reports whether the ledger batch
// was written.
//
// Finalize must run on every termination path, including cancellation; it
// is safe to call more than once and never propagates metering failures.
func (s *Session) Finalize(ctx context.Context, transcript *models.Transcript, endReason string) bool {
	s.finalizeOnce.Do(func() {
		// Cleanup must complete even when the surrounding request context
		// is already cancelled.
		ctx = context.WithoutCancel(ctx)

		s.stopOnce.Do(func() { close(s.stop) })

		now := s.svc.now()
		s.mu.Lock()
		total := int64(now.Sub(s.startTime) / time.Second)
		remainder := total - s.accumulated
		s.mu.Unlock()

		if remainder > 0 {
			if err := s.svc.balances.Deduct(ctx, s.clientID, remainder); err != nil {
				fiberlog.Errorf("Governor: session %s final deduct of %ds failed: %v", s.id, remainder, err)
			}
		}

		s.svc.registry.Unregister(s.id)

		conv := &models.Conversation{
			ClientID:        s.clientID,
			SessionID:       s.id,
			CallerPhone:     s.caller,
			DurationSeconds: total,
			EndReason:       endReason,
		}
		if transcript != nil {
			conv.Transcript = *transcript
		}

		convID, err := s.svc.conversations.SaveConversation(ctx, conv)
		if err != nil {
			// Without a conversation id the batch would dangle; cost data is
			// lost and logged, never guessed.
			fiberlog.Errorf("Governor: session %s conversation persist failed, skipping ledger: %v", s.id, err)
			return
		}

		metrics := billing.FromTranscript(transcript, total)
		entries := s.svc.costs.LedgerEntries(ctx, s.clientID, &convID, s.modelID, metrics)
		if len(entries) == 0 {
			return
		}

		if err := s.svc.ledger.AppendBatch(ctx, entries); err != nil {
			fiberlog.Errorf("Governor: session %s ledger commit failed: %v", s.id, err)
			return
		}

		s.ledgerWritten = true
		fiberlog.Infof("Governor: session %s finalized, %ds billed, %d ledger rows", s.id, total, len(entries))
	})

	return s.ledgerWritten
}
