package core

import (
	"fmt"
	"time"

	"buildledger/internal/infra/persistence/memory"
	"buildledger/internal/infra/persistence/postgres"
	"buildledger/internal/infra/persistence/sqlite"
	"buildledger/pkg/domain"
)

// StorageDriver names a persistence backend for the entity store.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

type (
	// TransactionView aliases the read-only snapshot interface.
	TransactionView = domain.TransactionView
	// PersistentStore aliases the storage contract every backend satisfies.
	PersistentStore = domain.PersistentStore
)

// ServiceStore is the storage surface the service drives. Every backend
// embeds the in-memory store, so the read helpers are promoted methods.
type ServiceStore interface {
	PersistentStore
	NowFunc() func() time.Time
	ExportState() memory.Snapshot
	GetProject(id string) (Project, bool)
	ListProjects() []Project
	ListMilestones() []Milestone
	ListMilestonesByProject(projectID string) []Milestone
	ListPayments() []Payment
	ListChangeOrders() []ChangeOrder
	ListDisputes() []Dispute
	ListContracts() []Contract
	ListScopes() []ScopeOfWork
	ListPunchListItems() []PunchListItem
	ListProgressUpdates() []ProgressUpdate
	ReplaceProjects([]Project)
	ReplaceMilestones([]Milestone)
	ReplacePayments([]Payment)
	ReplaceChangeOrders([]ChangeOrder)
	ReplaceDisputes([]Dispute)
	ReplaceContracts([]Contract)
	ReplaceScopes([]ScopeOfWork)
	ReplacePunchListItems([]PunchListItem)
	ReplaceProgressUpdates([]ProgressUpdate)
}

// Compile-time contract assertions for every storage backend.
var (
	_ ServiceStore = (*memory.Store)(nil)
	_ ServiceStore = (*sqlite.Store)(nil)
	_ ServiceStore = (*postgres.Store)(nil)
)

// StorageOptions parameterizes OpenPersistentStore.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore selects a backend for the entity store. An empty driver
// selects memory; a nil engine gets the full ledger rule set.
func OpenPersistentStore(opts StorageOptions, engine *RulesEngine) (ServiceStore, error) {
	if engine == nil {
		engine = DefaultRulesEngine()
	}
	switch opts.Driver {
	case "", StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = "ledger.db"
		}
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		return postgres.NewStore(opts.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
