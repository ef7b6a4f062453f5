// Package memory provides the in-memory transactional implementation of the
// ledger entity store. All mutations run against a cloned state and commit
// only after the rules engine accepts the full change set.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"buildledger/pkg/domain"
)

// Compile-time contract assertions tying the store to the domain interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
)

type (
	// Project aliases domain.Project for in-memory persistence operations.
	Project = domain.Project
	// Milestone aliases domain.Milestone.
	Milestone = domain.Milestone
	// Payment aliases domain.Payment.
	Payment = domain.Payment
	// ChangeOrder aliases domain.ChangeOrder.
	ChangeOrder = domain.ChangeOrder
	// Dispute aliases domain.Dispute.
	Dispute = domain.Dispute
	// Contract aliases domain.Contract.
	Contract = domain.Contract
	// ScopeOfWork aliases domain.ScopeOfWork.
	ScopeOfWork = domain.ScopeOfWork
	// PunchListItem aliases domain.PunchListItem.
	PunchListItem = domain.PunchListItem
	// ProgressUpdate aliases domain.ProgressUpdate.
	ProgressUpdate = domain.ProgressUpdate
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	projects        map[string]Project
	milestones      map[string]Milestone
	payments        map[string]Payment
	changeOrders    map[string]ChangeOrder
	disputes        map[string]Dispute
	contracts       map[string]Contract
	scopes          map[string]ScopeOfWork
	punchListItems  map[string]PunchListItem
	progressUpdates map[string]ProgressUpdate
}

// Snapshot captures a point-in-time clone of the store state. It is the unit
// exchanged with cache backends and the sync coordinator.
type Snapshot struct {
	Projects        map[string]Project        `json:"projects"`
	Milestones      map[string]Milestone      `json:"milestones"`
	Payments        map[string]Payment        `json:"payments"`
	ChangeOrders    map[string]ChangeOrder    `json:"change_orders"`
	Disputes        map[string]Dispute        `json:"disputes"`
	Contracts       map[string]Contract       `json:"contracts"`
	Scopes          map[string]ScopeOfWork    `json:"scopes_of_work"`
	PunchListItems  map[string]PunchListItem  `json:"punch_list_items"`
	ProgressUpdates map[string]ProgressUpdate `json:"progress_updates"`
}

func newMemoryState() memoryState {
	return memoryState{
		projects:        make(map[string]Project),
		milestones:      make(map[string]Milestone),
		payments:        make(map[string]Payment),
		changeOrders:    make(map[string]ChangeOrder),
		disputes:        make(map[string]Dispute),
		contracts:       make(map[string]Contract),
		scopes:          make(map[string]ScopeOfWork),
		punchListItems:  make(map[string]PunchListItem),
		progressUpdates: make(map[string]ProgressUpdate),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Projects:        make(map[string]Project, len(state.projects)),
		Milestones:      make(map[string]Milestone, len(state.milestones)),
		Payments:        make(map[string]Payment, len(state.payments)),
		ChangeOrders:    make(map[string]ChangeOrder, len(state.changeOrders)),
		Disputes:        make(map[string]Dispute, len(state.disputes)),
		Contracts:       make(map[string]Contract, len(state.contracts)),
		Scopes:          make(map[string]ScopeOfWork, len(state.scopes)),
		PunchListItems:  make(map[string]PunchListItem, len(state.punchListItems)),
		ProgressUpdates: make(map[string]ProgressUpdate, len(state.progressUpdates)),
	}
	for k, v := range state.projects {
		s.Projects[k] = cloneProject(v)
	}
	for k, v := range state.milestones {
		s.Milestones[k] = cloneMilestone(v)
	}
	for k, v := range state.payments {
		s.Payments[k] = clonePayment(v)
	}
	for k, v := range state.changeOrders {
		s.ChangeOrders[k] = cloneChangeOrder(v)
	}
	for k, v := range state.disputes {
		s.Disputes[k] = cloneDispute(v)
	}
	for k, v := range state.contracts {
		s.Contracts[k] = cloneContract(v)
	}
	for k, v := range state.scopes {
		s.Scopes[k] = cloneScope(v)
	}
	for k, v := range state.punchListItems {
		s.PunchListItems[k] = clonePunchListItem(v)
	}
	for k, v := range state.progressUpdates {
		s.ProgressUpdates[k] = cloneProgressUpdate(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Projects {
		state.projects[k] = cloneProject(v)
	}
	for k, v := range s.Milestones {
		state.milestones[k] = cloneMilestone(v)
	}
	for k, v := range s.Payments {
		state.payments[k] = clonePayment(v)
	}
	for k, v := range s.ChangeOrders {
		state.changeOrders[k] = cloneChangeOrder(v)
	}
	for k, v := range s.Disputes {
		state.disputes[k] = cloneDispute(v)
	}
	for k, v := range s.Contracts {
		state.contracts[k] = cloneContract(v)
	}
	for k, v := range s.Scopes {
		state.scopes[k] = cloneScope(v)
	}
	for k, v := range s.PunchListItems {
		state.punchListItems[k] = clonePunchListItem(v)
	}
	for k, v := range s.ProgressUpdates {
		state.progressUpdates[k] = cloneProgressUpdate(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots produced by earlier builds or sourced
// from remote payloads: nil buckets become empty, records referencing missing
// projects are dropped, and optional fields receive their defaults.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Projects == nil {
		snapshot.Projects = map[string]Project{}
	}
	if snapshot.Milestones == nil {
		snapshot.Milestones = map[string]Milestone{}
	}
	if snapshot.Payments == nil {
		snapshot.Payments = map[string]Payment{}
	}
	if snapshot.ChangeOrders == nil {
		snapshot.ChangeOrders = map[string]ChangeOrder{}
	}
	if snapshot.Disputes == nil {
		snapshot.Disputes = map[string]Dispute{}
	}
	if snapshot.Contracts == nil {
		snapshot.Contracts = map[string]Contract{}
	}
	if snapshot.Scopes == nil {
		snapshot.Scopes = map[string]ScopeOfWork{}
	}
	if snapshot.PunchListItems == nil {
		snapshot.PunchListItems = map[string]PunchListItem{}
	}
	if snapshot.ProgressUpdates == nil {
		snapshot.ProgressUpdates = map[string]ProgressUpdate{}
	}

	projectExists := func(id string) bool {
		_, ok := snapshot.Projects[id]
		return ok
	}
	milestoneExists := func(id string) bool {
		_, ok := snapshot.Milestones[id]
		return ok
	}

	for id, m := range snapshot.Milestones {
		if m.ProjectID == "" || !projectExists(m.ProjectID) {
			delete(snapshot.Milestones, id)
			continue
		}
		if m.Status == "" {
			m.Status = domain.MilestoneStatusPending
		}
		snapshot.Milestones[id] = m
	}

	for id, p := range snapshot.Payments {
		if p.ProjectID == "" || !projectExists(p.ProjectID) {
			delete(snapshot.Payments, id)
			continue
		}
		if p.MilestoneID != "" && !milestoneExists(p.MilestoneID) {
			p.MilestoneID = ""
		}
		if p.Kind == "" {
			p.Kind = domain.PaymentKindDeposit
		}
		snapshot.Payments[id] = p
	}

	for id, co := range snapshot.ChangeOrders {
		if co.ProjectID == "" || !projectExists(co.ProjectID) {
			delete(snapshot.ChangeOrders, id)
		}
	}

	for id, d := range snapshot.Disputes {
		if d.ProjectID == "" || !projectExists(d.ProjectID) {
			delete(snapshot.Disputes, id)
			continue
		}
		if d.MilestoneID != "" && !milestoneExists(d.MilestoneID) {
			d.MilestoneID = ""
		}
		if d.Stage == "" {
			d.Stage = domain.DisputeStageInternal
		}
		snapshot.Disputes[id] = d
	}

	for id, c := range snapshot.Contracts {
		if c.ProjectID == "" || !projectExists(c.ProjectID) {
			delete(snapshot.Contracts, id)
		}
	}

	for id, sw := range snapshot.Scopes {
		if sw.ProjectID == "" || !projectExists(sw.ProjectID) {
			delete(snapshot.Scopes, id)
			continue
		}
		if sw.Version <= 0 {
			sw.Version = 1
		}
		snapshot.Scopes[id] = sw
	}

	for id, item := range snapshot.PunchListItems {
		if item.ProjectID == "" || !projectExists(item.ProjectID) {
			delete(snapshot.PunchListItems, id)
			continue
		}
		if item.Status == "" {
			item.Status = domain.PunchListStatusOpen
		}
		snapshot.PunchListItems[id] = item
	}

	for id, pu := range snapshot.ProgressUpdates {
		if pu.ProjectID == "" || !projectExists(pu.ProjectID) {
			delete(snapshot.ProgressUpdates, id)
		}
	}

	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.projects {
		cloned.projects[k] = cloneProject(v)
	}
	for k, v := range s.milestones {
		cloned.milestones[k] = cloneMilestone(v)
	}
	for k, v := range s.payments {
		cloned.payments[k] = clonePayment(v)
	}
	for k, v := range s.changeOrders {
		cloned.changeOrders[k] = cloneChangeOrder(v)
	}
	for k, v := range s.disputes {
		cloned.disputes[k] = cloneDispute(v)
	}
	for k, v := range s.contracts {
		cloned.contracts[k] = cloneContract(v)
	}
	for k, v := range s.scopes {
		cloned.scopes[k] = cloneScope(v)
	}
	for k, v := range s.punchListItems {
		cloned.punchListItems[k] = clonePunchListItem(v)
	}
	for k, v := range s.progressUpdates {
		cloned.progressUpdates[k] = cloneProgressUpdate(v)
	}
	return cloned
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneProject(p Project) Project {
	cp := p
	cp.StartDate = cloneTime(p.StartDate)
	cp.EndDate = cloneTime(p.EndDate)
	return cp
}

func cloneMilestone(m Milestone) Milestone {
	cp := m
	cp.DueDate = cloneTime(m.DueDate)
	return cp
}

func clonePayment(p Payment) Payment {
	cp := p
	cp.ReleasedAt = cloneTime(p.ReleasedAt)
	return cp
}

func cloneChangeOrder(co ChangeOrder) ChangeOrder {
	cp := co
	cp.ApprovedAt = cloneTime(co.ApprovedAt)
	return cp
}

func cloneDispute(d Dispute) Dispute {
	cp := d
	cp.Evidence.Photos = append([]string(nil), d.Evidence.Photos...)
	cp.Evidence.Documents = append([]string(nil), d.Evidence.Documents...)
	cp.Evidence.Messages = append([]string(nil), d.Evidence.Messages...)
	cp.ResolvedAt = cloneTime(d.ResolvedAt)
	return cp
}

func cloneContract(c Contract) Contract {
	cp := c
	cp.OwnerSignedAt = cloneTime(c.OwnerSignedAt)
	cp.ContractorSignedAt = cloneTime(c.ContractorSignedAt)
	cp.FullyExecutedAt = cloneTime(c.FullyExecutedAt)
	return cp
}

func cloneScope(s ScopeOfWork) ScopeOfWork { return s }

func clonePunchListItem(i PunchListItem) PunchListItem {
	cp := i
	cp.CompletedAt = cloneTime(i.CompletedAt)
	return cp
}

func cloneProgressUpdate(p ProgressUpdate) ProgressUpdate {
	cp := p
	cp.Photos = append([]string(nil), p.Photos...)
	return cp
}

// Store provides an in-memory transactional store for the ledger domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListProjects() []Project {
	out := make([]Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(p))
	}
	return out
}

func (v transactionView) ListMilestones() []Milestone {
	out := make([]Milestone, 0, len(v.state.milestones))
	for _, m := range v.state.milestones {
		out = append(out, cloneMilestone(m))
	}
	return out
}

func (v transactionView) ListPayments() []Payment {
	out := make([]Payment, 0, len(v.state.payments))
	for _, p := range v.state.payments {
		out = append(out, clonePayment(p))
	}
	return out
}

func (v transactionView) ListChangeOrders() []ChangeOrder {
	out := make([]ChangeOrder, 0, len(v.state.changeOrders))
	for _, co := range v.state.changeOrders {
		out = append(out, cloneChangeOrder(co))
	}
	return out
}

func (v transactionView) ListDisputes() []Dispute {
	out := make([]Dispute, 0, len(v.state.disputes))
	for _, d := range v.state.disputes {
		out = append(out, cloneDispute(d))
	}
	return out
}

func (v transactionView) ListContracts() []Contract {
	out := make([]Contract, 0, len(v.state.contracts))
	for _, c := range v.state.contracts {
		out = append(out, cloneContract(c))
	}
	return out
}

func (v transactionView) ListScopes() []ScopeOfWork {
	out := make([]ScopeOfWork, 0, len(v.state.scopes))
	for _, s := range v.state.scopes {
		out = append(out, cloneScope(s))
	}
	return out
}

func (v transactionView) ListPunchListItems() []PunchListItem {
	out := make([]PunchListItem, 0, len(v.state.punchListItems))
	for _, i := range v.state.punchListItems {
		out = append(out, clonePunchListItem(i))
	}
	return out
}

func (v transactionView) ListProgressUpdates() []ProgressUpdate {
	out := make([]ProgressUpdate, 0, len(v.state.progressUpdates))
	for _, p := range v.state.progressUpdates {
		out = append(out, cloneProgressUpdate(p))
	}
	return out
}

func (v transactionView) FindProject(id string) (Project, bool) {
	p, ok := v.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (v transactionView) FindMilestone(id string) (Milestone, bool) {
	m, ok := v.state.milestones[id]
	if !ok {
		return Milestone{}, false
	}
	return cloneMilestone(m), true
}

func (v transactionView) FindPayment(id string) (Payment, bool) {
	p, ok := v.state.payments[id]
	if !ok {
		return Payment{}, false
	}
	return clonePayment(p), true
}

func (v transactionView) FindChangeOrder(id string) (ChangeOrder, bool) {
	co, ok := v.state.changeOrders[id]
	if !ok {
		return ChangeOrder{}, false
	}
	return cloneChangeOrder(co), true
}

func (v transactionView) FindDispute(id string) (Dispute, bool) {
	d, ok := v.state.disputes[id]
	if !ok {
		return Dispute{}, false
	}
	return cloneDispute(d), true
}

func (v transactionView) FindContract(id string) (Contract, bool) {
	c, ok := v.state.contracts[id]
	if !ok {
		return Contract{}, false
	}
	return cloneContract(c), true
}

func (v transactionView) FindPunchListItem(id string) (PunchListItem, bool) {
	i, ok := v.state.punchListItems[id]
	if !ok {
		return PunchListItem{}, false
	}
	return clonePunchListItem(i), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// If fn errors or any rule reports a blocking violation, committed state is
// untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	result.Changes = append([]Change(nil), tx.changes...)
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindProject(id string) (Project, bool) {
	p, ok := tx.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (tx *transaction) FindMilestone(id string) (Milestone, bool) {
	m, ok := tx.state.milestones[id]
	if !ok {
		return Milestone{}, false
	}
	return cloneMilestone(m), true
}

func (tx *transaction) FindPayment(id string) (Payment, bool) {
	p, ok := tx.state.payments[id]
	if !ok {
		return Payment{}, false
	}
	return clonePayment(p), true
}

func (tx *transaction) FindChangeOrder(id string) (ChangeOrder, bool) {
	co, ok := tx.state.changeOrders[id]
	if !ok {
		return ChangeOrder{}, false
	}
	return cloneChangeOrder(co), true
}

func (tx *transaction) FindDispute(id string) (Dispute, bool) {
	d, ok := tx.state.disputes[id]
	if !ok {
		return Dispute{}, false
	}
	return cloneDispute(d), true
}

func (tx *transaction) FindContract(id string) (Contract, bool) {
	c, ok := tx.state.contracts[id]
	if !ok {
		return Contract{}, false
	}
	return cloneContract(c), true
}

func (tx *transaction) FindPunchListItem(id string) (PunchListItem, bool) {
	i, ok := tx.state.punchListItems[id]
	if !ok {
		return PunchListItem{}, false
	}
	return clonePunchListItem(i), true
}

// MilestonesByProject lists a project's milestones ordered by OrderNumber.
func (tx *transaction) MilestonesByProject(projectID string) []Milestone {
	var out []Milestone
	for _, m := range tx.state.milestones {
		if m.ProjectID == projectID {
			out = append(out, cloneMilestone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out
}

// PaymentsByProject lists a project's ledger entries ordered by creation time.
func (tx *transaction) PaymentsByProject(projectID string) []Payment {
	var out []Payment
	for _, p := range tx.state.payments {
		if p.ProjectID == projectID {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// DisputesByMilestone lists disputes referencing a milestone.
func (tx *transaction) DisputesByMilestone(milestoneID string) []Dispute {
	var out []Dispute
	for _, d := range tx.state.disputes {
		if d.MilestoneID == milestoneID {
			out = append(out, cloneDispute(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ScopesByProject lists scope-of-work versions ordered by version number.
func (tx *transaction) ScopesByProject(projectID string) []ScopeOfWork {
	var out []ScopeOfWork
	for _, s := range tx.state.scopes {
		if s.ProjectID == projectID {
			out = append(out, cloneScope(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// ContractByProject finds the contract bound to a project, if any.
func (tx *transaction) ContractByProject(projectID string) (Contract, bool) {
	for _, c := range tx.state.contracts {
		if c.ProjectID == projectID {
			return cloneContract(c), true
		}
	}
	return Contract{}, false
}

// CreateProject stores a new project within the transaction.
func (tx *transaction) CreateProject(p Project) (Project, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.projects[p.ID]; exists {
		return Project{}, fmt.Errorf("project %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.projects[p.ID] = cloneProject(p)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: cloneProject(p)})
	return cloneProject(p), nil
}

// UpdateProject mutates an existing project record.
func (tx *transaction) UpdateProject(id string, mutator func(*Project) error) (Project, error) {
	current, ok := tx.state.projects[id]
	if !ok {
		return Project{}, domain.NotFoundError{Entity: domain.EntityProject, ID: id}
	}
	before := cloneProject(current)
	if err := mutator(&current); err != nil {
		return Project{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.projects[id] = cloneProject(current)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(current)})
	return cloneProject(current), nil
}

// CreateMilestone stores a new milestone. The referenced project must exist.
func (tx *transaction) CreateMilestone(m Milestone) (Milestone, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if _, exists := tx.state.milestones[m.ID]; exists {
		return Milestone{}, fmt.Errorf("milestone %q already exists", m.ID)
	}
	if _, ok := tx.state.projects[m.ProjectID]; !ok {
		return Milestone{}, domain.NotFoundError{Entity: domain.EntityProject, ID: m.ProjectID}
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.milestones[m.ID] = cloneMilestone(m)
	tx.recordChange(Change{Entity: domain.EntityMilestone, Action: domain.ActionCreate, After: cloneMilestone(m)})
	return cloneMilestone(m), nil
}

// UpdateMilestone mutates an existing milestone.
func (tx *transaction) UpdateMilestone(id string, mutator func(*Milestone) error) (Milestone, error) {
	current, ok := tx.state.milestones[id]
	if !ok {
		return Milestone{}, domain.NotFoundError{Entity: domain.EntityMilestone, ID: id}
	}
	before := cloneMilestone(current)
	if err := mutator(&current); err != nil {
		return Milestone{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.milestones[id] = cloneMilestone(current)
	tx.recordChange(Change{Entity: domain.EntityMilestone, Action: domain.ActionUpdate, Before: before, After: cloneMilestone(current)})
	return cloneMilestone(current), nil
}

// CreatePayment stores a ledger entry. The referenced project must exist.
func (tx *transaction) CreatePayment(p Payment) (Payment, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.payments[p.ID]; exists {
		return Payment{}, fmt.Errorf("payment %q already exists", p.ID)
	}
	if _, ok := tx.state.projects[p.ProjectID]; !ok {
		return Payment{}, domain.NotFoundError{Entity: domain.EntityProject, ID: p.ProjectID}
	}
	if p.MilestoneID != "" {
		if _, ok := tx.state.milestones[p.MilestoneID]; !ok {
			return Payment{}, domain.NotFoundError{Entity: domain.EntityMilestone, ID: p.MilestoneID}
		}
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.payments[p.ID] = clonePayment(p)
	tx.recordChange(Change{Entity: domain.EntityPayment, Action: domain.ActionCreate, After: clonePayment(p)})
	return clonePayment(p), nil
}

// UpdatePayment mutates an existing ledger entry.
func (tx *transaction) UpdatePayment(id string, mutator func(*Payment) error) (Payment, error) {
	current, ok := tx.state.payments[id]
	if !ok {
		return Payment{}, domain.NotFoundError{Entity: domain.EntityPayment, ID: id}
	}
	before := clonePayment(current)
	if err := mutator(&current); err != nil {
		return Payment{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.payments[id] = clonePayment(current)
	tx.recordChange(Change{Entity: domain.EntityPayment, Action: domain.ActionUpdate, Before: before, After: clonePayment(current)})
	return clonePayment(current), nil
}

// CreateChangeOrder stores a change order proposal.
func (tx *transaction) CreateChangeOrder(co ChangeOrder) (ChangeOrder, error) {
	if co.ID == "" {
		co.ID = tx.store.newID()
	}
	if _, exists := tx.state.changeOrders[co.ID]; exists {
		return ChangeOrder{}, fmt.Errorf("change order %q already exists", co.ID)
	}
	if _, ok := tx.state.projects[co.ProjectID]; !ok {
		return ChangeOrder{}, domain.NotFoundError{Entity: domain.EntityProject, ID: co.ProjectID}
	}
	co.CreatedAt = tx.now
	co.UpdatedAt = tx.now
	tx.state.changeOrders[co.ID] = cloneChangeOrder(co)
	tx.recordChange(Change{Entity: domain.EntityChangeOrder, Action: domain.ActionCreate, After: cloneChangeOrder(co)})
	return cloneChangeOrder(co), nil
}

// UpdateChangeOrder mutates an existing change order.
func (tx *transaction) UpdateChangeOrder(id string, mutator func(*ChangeOrder) error) (ChangeOrder, error) {
	current, ok := tx.state.changeOrders[id]
	if !ok {
		return ChangeOrder{}, domain.NotFoundError{Entity: domain.EntityChangeOrder, ID: id}
	}
	before := cloneChangeOrder(current)
	if err := mutator(&current); err != nil {
		return ChangeOrder{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.changeOrders[id] = cloneChangeOrder(current)
	tx.recordChange(Change{Entity: domain.EntityChangeOrder, Action: domain.ActionUpdate, Before: before, After: cloneChangeOrder(current)})
	return cloneChangeOrder(current), nil
}

// CreateDispute stores a dispute record.
func (tx *transaction) CreateDispute(d Dispute) (Dispute, error) {
	if d.ID == "" {
		d.ID = tx.store.newID()
	}
	if _, exists := tx.state.disputes[d.ID]; exists {
		return Dispute{}, fmt.Errorf("dispute %q already exists", d.ID)
	}
	if _, ok := tx.state.projects[d.ProjectID]; !ok {
		return Dispute{}, domain.NotFoundError{Entity: domain.EntityProject, ID: d.ProjectID}
	}
	if d.MilestoneID != "" {
		if _, ok := tx.state.milestones[d.MilestoneID]; !ok {
			return Dispute{}, domain.NotFoundError{Entity: domain.EntityMilestone, ID: d.MilestoneID}
		}
	}
	if d.Stage == "" {
		d.Stage = domain.DisputeStageInternal
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.disputes[d.ID] = cloneDispute(d)
	tx.recordChange(Change{Entity: domain.EntityDispute, Action: domain.ActionCreate, After: cloneDispute(d)})
	return cloneDispute(d), nil
}

// UpdateDispute mutates an existing dispute.
func (tx *transaction) UpdateDispute(id string, mutator func(*Dispute) error) (Dispute, error) {
	current, ok := tx.state.disputes[id]
	if !ok {
		return Dispute{}, domain.NotFoundError{Entity: domain.EntityDispute, ID: id}
	}
	before := cloneDispute(current)
	if err := mutator(&current); err != nil {
		return Dispute{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.disputes[id] = cloneDispute(current)
	tx.recordChange(Change{Entity: domain.EntityDispute, Action: domain.ActionUpdate, Before: before, After: cloneDispute(current)})
	return cloneDispute(current), nil
}

// CreateContract stores a contract. A project carries at most one contract.
func (tx *transaction) CreateContract(c Contract) (Contract, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.contracts[c.ID]; exists {
		return Contract{}, fmt.Errorf("contract %q already exists", c.ID)
	}
	if _, ok := tx.state.projects[c.ProjectID]; !ok {
		return Contract{}, domain.NotFoundError{Entity: domain.EntityProject, ID: c.ProjectID}
	}
	for _, existing := range tx.state.contracts {
		if existing.ProjectID == c.ProjectID {
			return Contract{}, fmt.Errorf("project %q already has contract %q", c.ProjectID, existing.ID)
		}
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.contracts[c.ID] = cloneContract(c)
	tx.recordChange(Change{Entity: domain.EntityContract, Action: domain.ActionCreate, After: cloneContract(c)})
	return cloneContract(c), nil
}

// UpdateContract mutates an existing contract.
func (tx *transaction) UpdateContract(id string, mutator func(*Contract) error) (Contract, error) {
	current, ok := tx.state.contracts[id]
	if !ok {
		return Contract{}, domain.NotFoundError{Entity: domain.EntityContract, ID: id}
	}
	before := cloneContract(current)
	if err := mutator(&current); err != nil {
		return Contract{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.contracts[id] = cloneContract(current)
	tx.recordChange(Change{Entity: domain.EntityContract, Action: domain.ActionUpdate, Before: before, After: cloneContract(current)})
	return cloneContract(current), nil
}

// CreateScopeOfWork appends a new scope version.
func (tx *transaction) CreateScopeOfWork(s ScopeOfWork) (ScopeOfWork, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.scopes[s.ID]; exists {
		return ScopeOfWork{}, fmt.Errorf("scope of work %q already exists", s.ID)
	}
	if _, ok := tx.state.projects[s.ProjectID]; !ok {
		return ScopeOfWork{}, domain.NotFoundError{Entity: domain.EntityProject, ID: s.ProjectID}
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.scopes[s.ID] = cloneScope(s)
	tx.recordChange(Change{Entity: domain.EntityScopeOfWork, Action: domain.ActionCreate, After: cloneScope(s)})
	return cloneScope(s), nil
}

// CreatePunchListItem stores a punch-list item.
func (tx *transaction) CreatePunchListItem(i PunchListItem) (PunchListItem, error) {
	if i.ID == "" {
		i.ID = tx.store.newID()
	}
	if _, exists := tx.state.punchListItems[i.ID]; exists {
		return PunchListItem{}, fmt.Errorf("punch list item %q already exists", i.ID)
	}
	if _, ok := tx.state.projects[i.ProjectID]; !ok {
		return PunchListItem{}, domain.NotFoundError{Entity: domain.EntityProject, ID: i.ProjectID}
	}
	if i.Status == "" {
		i.Status = domain.PunchListStatusOpen
	}
	i.CreatedAt = tx.now
	i.UpdatedAt = tx.now
	tx.state.punchListItems[i.ID] = clonePunchListItem(i)
	tx.recordChange(Change{Entity: domain.EntityPunchListItem, Action: domain.ActionCreate, After: clonePunchListItem(i)})
	return clonePunchListItem(i), nil
}

// UpdatePunchListItem mutates an existing punch-list item.
func (tx *transaction) UpdatePunchListItem(id string, mutator func(*PunchListItem) error) (PunchListItem, error) {
	current, ok := tx.state.punchListItems[id]
	if !ok {
		return PunchListItem{}, domain.NotFoundError{Entity: domain.EntityPunchListItem, ID: id}
	}
	before := clonePunchListItem(current)
	if err := mutator(&current); err != nil {
		return PunchListItem{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.punchListItems[id] = clonePunchListItem(current)
	tx.recordChange(Change{Entity: domain.EntityPunchListItem, Action: domain.ActionUpdate, Before: before, After: clonePunchListItem(current)})
	return clonePunchListItem(current), nil
}

// DeletePunchListItem removes a punch-list item. Punch-list items are the only
// ledger records subject to physical deletion; financial history never is.
func (tx *transaction) DeletePunchListItem(id string) error {
	current, ok := tx.state.punchListItems[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityPunchListItem, ID: id}
	}
	delete(tx.state.punchListItems, id)
	tx.recordChange(Change{Entity: domain.EntityPunchListItem, Action: domain.ActionDelete, Before: clonePunchListItem(current)})
	return nil
}

// CreateProgressUpdate appends a progress update. Updates are append-only.
func (tx *transaction) CreateProgressUpdate(p ProgressUpdate) (ProgressUpdate, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.progressUpdates[p.ID]; exists {
		return ProgressUpdate{}, fmt.Errorf("progress update %q already exists", p.ID)
	}
	if _, ok := tx.state.projects[p.ProjectID]; !ok {
		return ProgressUpdate{}, domain.NotFoundError{Entity: domain.EntityProject, ID: p.ProjectID}
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.progressUpdates[p.ID] = cloneProgressUpdate(p)
	tx.recordChange(Change{Entity: domain.EntityProgressUpdate, Action: domain.ActionCreate, After: cloneProgressUpdate(p)})
	return cloneProgressUpdate(p), nil
}
