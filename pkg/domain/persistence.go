package domain

import "context"

// Transaction exposes the ledger operations that a persistence implementation
// must support within an atomic scope. Mutations apply to a cloned state and
// commit only when every registered rule passes.
type Transaction interface {
	Snapshot() TransactionView

	CreateProject(Project) (Project, error)
	UpdateProject(id string, mutator func(*Project) error) (Project, error)

	CreateMilestone(Milestone) (Milestone, error)
	UpdateMilestone(id string, mutator func(*Milestone) error) (Milestone, error)

	CreatePayment(Payment) (Payment, error)
	UpdatePayment(id string, mutator func(*Payment) error) (Payment, error)

	CreateChangeOrder(ChangeOrder) (ChangeOrder, error)
	UpdateChangeOrder(id string, mutator func(*ChangeOrder) error) (ChangeOrder, error)

	CreateDispute(Dispute) (Dispute, error)
	UpdateDispute(id string, mutator func(*Dispute) error) (Dispute, error)

	CreateContract(Contract) (Contract, error)
	UpdateContract(id string, mutator func(*Contract) error) (Contract, error)

	// Scope-of-work versions are append-only; there is no update.
	CreateScopeOfWork(ScopeOfWork) (ScopeOfWork, error)

	CreatePunchListItem(PunchListItem) (PunchListItem, error)
	UpdatePunchListItem(id string, mutator func(*PunchListItem) error) (PunchListItem, error)
	DeletePunchListItem(id string) error

	CreateProgressUpdate(ProgressUpdate) (ProgressUpdate, error)

	FindProject(id string) (Project, bool)
	FindMilestone(id string) (Milestone, bool)
	FindPayment(id string) (Payment, bool)
	FindChangeOrder(id string) (ChangeOrder, bool)
	FindDispute(id string) (Dispute, bool)
	FindContract(id string) (Contract, bool)
	FindPunchListItem(id string) (PunchListItem, bool)

	MilestonesByProject(projectID string) []Milestone
	PaymentsByProject(projectID string) []Payment
	DisputesByMilestone(milestoneID string) []Dispute
	ScopesByProject(projectID string) []ScopeOfWork
	ContractByProject(projectID string) (Contract, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// callers of View.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over the entity store. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProject(id string) (Project, bool)
	ListProjects() []Project
	ListMilestones() []Milestone
	ListPayments() []Payment
	ListChangeOrders() []ChangeOrder
	ListDisputes() []Dispute
	ListContracts() []Contract
	ListScopes() []ScopeOfWork
	ListPunchListItems() []PunchListItem
	ListProgressUpdates() []ProgressUpdate
}
