// Package core implements the ledger's command surface: transactional
// operations over projects, milestones, payments, change orders, disputes and
// supporting records, guarded by the rules engine.
package core

import (
	"buildledger/internal/infra/persistence/memory"
	"buildledger/pkg/domain"
)

type (
	// Project aliases domain.Project for core operations.
	Project = domain.Project
	// Milestone aliases domain.Milestone.
	Milestone = domain.Milestone
	// Payment aliases domain.Payment.
	Payment = domain.Payment
	// ChangeOrder aliases domain.ChangeOrder.
	ChangeOrder = domain.ChangeOrder
	// Dispute aliases domain.Dispute.
	Dispute = domain.Dispute
	// Evidence aliases domain.Evidence.
	Evidence = domain.Evidence
	// Contract aliases domain.Contract.
	Contract = domain.Contract
	// ScopeOfWork aliases domain.ScopeOfWork.
	ScopeOfWork = domain.ScopeOfWork
	// PunchListItem aliases domain.PunchListItem.
	PunchListItem = domain.PunchListItem
	// ProgressUpdate aliases domain.ProgressUpdate.
	ProgressUpdate = domain.ProgressUpdate
	// Actor aliases domain.Actor issuing commands.
	Actor = domain.Actor
	// Amount aliases domain.Amount.
	Amount = domain.Amount
	// Change aliases domain.Change.
	Change = domain.Change
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// Store aliases the in-memory transactional store.
	Store = memory.Store
	// Snapshot aliases the store snapshot exchanged with caches.
	Snapshot = memory.Snapshot
)

// NewStore constructs a store wired with the full ledger rule set.
func NewStore() *Store {
	return memory.NewStore(DefaultRulesEngine())
}

// DefaultRulesEngine registers every ledger invariant rule.
func DefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(BalanceRule())
	engine.Register(EscrowPaymentsRule())
	engine.Register(MilestonePayoutRule())
	engine.Register(LifecycleTransitionRule())
	engine.Register(ScopeVersionRule())
	return engine
}
