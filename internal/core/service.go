package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"buildledger/internal/events"
	"buildledger/pkg/domain"
)

// Service exposes the ledger command surface. Every command resolves the
// acting party's permission, applies its lifecycle transition inside a store
// transaction, and triggers write-through after commit. Permission failures
// never partially apply.
type Service struct {
	store       ServiceStore
	log         *zap.Logger
	events      events.Publisher
	afterCommit func(context.Context, []Change)
	nowFn       func() time.Time
	locks       *keyedMutex
}

// NewService constructs a service over the supplied store. A nil logger or
// publisher falls back to no-ops.
func NewService(store ServiceStore, log *zap.Logger, publisher events.Publisher) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		store:  store,
		log:    log,
		events: publisher,
		nowFn:  store.NowFunc(),
		locks:  newKeyedMutex(),
	}
}

// NewInMemoryService creates a service over a fresh store wired with the
// default rule set. Intended for tests and ephemeral environments.
func NewInMemoryService() *Service {
	return NewService(NewStore(), nil, nil)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() ServiceStore {
	return s.store
}

// SetAfterCommit registers a hook invoked with the applied change set after
// every committed command. The sync coordinator uses it for write-through.
func (s *Service) SetAfterCommit(fn func(context.Context, []Change)) {
	s.afterCommit = fn
}

// run executes a command transaction with metrics and logging attached. A
// non-empty lockKey serializes against other commands targeting the same
// entity; an empty key skips the keyed lock (creates with no parent yet).
func (s *Service) run(ctx context.Context, actor Actor, command, lockKey string, fn func(tx Transaction) error) (Result, error) {
	if lockKey != "" {
		s.locks.lock(lockKey)
		defer s.locks.unlock(lockKey)
	}
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	countViolations(res)
	if err != nil {
		observeCommand(command, "error", start)
		s.log.Warn("command rejected",
			zap.String("command", command),
			zap.String("actor_id", actor.ID),
			zap.String("actor_role", string(actor.Role)),
			zap.Error(err))
		return res, err
	}
	observeCommand(command, "ok", start)
	s.log.Info("command applied",
		zap.String("command", command),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)))
	if s.afterCommit != nil {
		s.afterCommit(ctx, res.Changes)
	}
	return res, nil
}

// emit publishes a committed event. Publish failures are logged, never
// surfaced: the local transaction already committed.
func (s *Service) emit(actor Actor, event events.Event) {
	event.ActorID = actor.ID
	event.OccurredAt = s.nowFn()
	if err := s.events.Publish(event); err != nil {
		s.log.Warn("event publish failed",
			zap.String("routing_key", event.RoutingKey),
			zap.Error(err))
	}
}

// Permission helpers ---------------------------------------------------------

func isAdmin(actor Actor) bool { return actor.Role == domain.RoleAdmin }

func isProjectOwner(actor Actor, project Project) bool {
	return actor.Role == domain.RoleOwner && actor.ID == project.OwnerID
}

func isProjectContractor(actor Actor, project Project) bool {
	return actor.Role == domain.RoleContractor && actor.ID == project.ContractorID
}

func isProjectParty(actor Actor, project Project) bool {
	return isProjectOwner(actor, project) || isProjectContractor(actor, project)
}

func requireOwner(actor Actor, project Project, command string) error {
	if isAdmin(actor) || isProjectOwner(actor, project) {
		return nil
	}
	return domain.UnauthorizedError{Actor: actor.ID, Command: command}
}

func requireContractor(actor Actor, project Project, command string) error {
	if isAdmin(actor) || isProjectContractor(actor, project) {
		return nil
	}
	return domain.UnauthorizedError{Actor: actor.ID, Command: command}
}

func requireParty(actor Actor, project Project, command string) error {
	if isAdmin(actor) || isProjectParty(actor, project) {
		return nil
	}
	return domain.UnauthorizedError{Actor: actor.ID, Command: command}
}

func requireAdmin(actor Actor, command string) error {
	if isAdmin(actor) {
		return nil
	}
	return domain.UnauthorizedError{Actor: actor.ID, Command: command}
}

// Ledger helpers -------------------------------------------------------------

// consumeEscrow draws amount from a project's escrow-held entries oldest
// first. Fully drained entries flip to released; a partially drained entry
// shrinks and stays held, so the escrow-held sum always tracks the balance.
func consumeEscrow(tx Transaction, projectID string, amount Amount, now time.Time) error {
	remaining := amount
	for _, entry := range tx.PaymentsByProject(projectID) {
		if remaining <= 0 {
			break
		}
		if !entry.EscrowHeld {
			continue
		}
		if entry.Amount <= remaining {
			take := entry.Amount
			if _, err := tx.UpdatePayment(entry.ID, func(p *Payment) error {
				p.EscrowHeld = false
				p.Status = domain.PaymentStatusCompleted
				released := now
				p.ReleasedAt = &released
				return nil
			}); err != nil {
				return err
			}
			remaining -= take
			continue
		}
		take := remaining
		if _, err := tx.UpdatePayment(entry.ID, func(p *Payment) error {
			var err error
			p.Amount, err = p.Amount.Sub(take)
			return err
		}); err != nil {
			return err
		}
		remaining = 0
	}
	if remaining > 0 {
		project, _ := tx.FindProject(projectID)
		return domain.InsufficientFundsError{ProjectID: projectID, Requested: amount, Available: project.EscrowBalance}
	}
	return nil
}

// completionPercent derives the project completion percentage from paid
// milestone value over total milestone value.
func completionPercent(tx Transaction, projectID string) int {
	milestones := tx.MilestonesByProject(projectID)
	var total, paid Amount
	for _, m := range milestones {
		total = total.Add(m.PaymentAmount)
		if m.Status == domain.MilestoneStatusPaid {
			paid = paid.Add(m.PaymentAmount)
		}
	}
	if total <= 0 {
		return 0
	}
	return int(paid * 100 / total)
}
