// Package domain defines the core ledger entities, monetary value types, and
// rule evaluation primitives used by buildledger.
package domain

import "time"

// EntityType identifies the type of record stored in the ledger.
type EntityType string

// Supported entity type identifiers used in Change records and cache buckets.
const (
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityMilestone identifies a milestone record.
	EntityMilestone EntityType = "milestone"
	// EntityPayment identifies a payment ledger entry.
	EntityPayment EntityType = "payment"
	// EntityChangeOrder identifies a change order record.
	EntityChangeOrder EntityType = "change_order"
	// EntityDispute identifies a dispute record.
	EntityDispute EntityType = "dispute"
	// EntityContract identifies a project contract record.
	EntityContract EntityType = "contract"
	// EntityScopeOfWork identifies a scope-of-work version record.
	EntityScopeOfWork EntityType = "scope_of_work"
	// EntityPunchListItem identifies a punch-list item record.
	EntityPunchListItem EntityType = "punch_list_item"
	// EntityProgressUpdate identifies a progress update record.
	EntityProgressUpdate EntityType = "progress_update"
)

// ProjectStatus enumerates canonical project workflow states.
type ProjectStatus string

// Canonical project statuses. Projects are never physically deleted; a project
// leaves the workflow only by transitioning to cancelled.
const (
	ProjectStatusProposed  ProjectStatus = "proposed"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// MilestoneStatus enumerates milestone workflow states. A rejected submission
// returns the milestone to pending and increments its revision count.
type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusSubmitted MilestoneStatus = "submitted"
	MilestoneStatusApproved  MilestoneStatus = "approved"
	MilestoneStatusPaid      MilestoneStatus = "paid"
)

// PaymentStatus enumerates payment ledger entry states.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// PaymentKind classifies how a ledger entry moves money for a project.
type PaymentKind string

const (
	// PaymentKindDeposit records owner funds entering escrow.
	PaymentKindDeposit PaymentKind = "deposit"
	// PaymentKindMilestone records an escrow release to the contractor for a milestone.
	PaymentKindMilestone PaymentKind = "milestone"
	// PaymentKindAdjustment records escrow funding created by an implemented change order.
	PaymentKindAdjustment PaymentKind = "adjustment"
	// PaymentKindRefund records escrow returned to the owner by a negative change order.
	PaymentKindRefund PaymentKind = "refund"
)

// ChangeOrderStatus enumerates change order workflow states.
type ChangeOrderStatus string

const (
	ChangeOrderStatusProposed    ChangeOrderStatus = "proposed"
	ChangeOrderStatusApproved    ChangeOrderStatus = "approved"
	ChangeOrderStatusRejected    ChangeOrderStatus = "rejected"
	ChangeOrderStatusImplemented ChangeOrderStatus = "implemented"
)

// DisputeStatus enumerates dispute workflow states.
type DisputeStatus string

const (
	DisputeStatusFiled       DisputeStatus = "filed"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)

// DisputeStage is the escalation tier a dispute has reached. Stages only ever
// move forward: internal review, escalated, external arbitration.
type DisputeStage string

const (
	DisputeStageInternal  DisputeStage = "internal"
	DisputeStageEscalated DisputeStage = "escalated"
	DisputeStageExternal  DisputeStage = "external"
)

var disputeStageRank = map[DisputeStage]int{
	DisputeStageInternal:  0,
	DisputeStageEscalated: 1,
	DisputeStageExternal:  2,
}

// StageRank returns the escalation ordinal of a stage, or -1 for unknown stages.
func StageRank(stage DisputeStage) int {
	if r, ok := disputeStageRank[stage]; ok {
		return r
	}
	return -1
}

// PunchListStatus enumerates punch-list item states.
type PunchListStatus string

const (
	PunchListStatusOpen      PunchListStatus = "open"
	PunchListStatusCompleted PunchListStatus = "completed"
)

// Role identifies the relationship of an actor to the system.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
)

// Actor is the authenticated party issuing a command. Commands receive the
// actor explicitly rather than reading ambient session state.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Base contains common fields for all ledger records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is a unit of work between an owner and a contractor. TotalAmount is
// mutable only through implemented change orders; PaidAmount and EscrowBalance
// move only through escrow deposits and payment release.
type Project struct {
	Base
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	OwnerID              string        `json:"owner_id"`
	ContractorID         string        `json:"contractor_id"`
	Status               ProjectStatus `json:"status"`
	TotalAmount          Amount        `json:"total_amount"`
	PaidAmount           Amount        `json:"paid_amount"`
	EscrowBalance        Amount        `json:"escrow_balance"`
	StartDate            *time.Time    `json:"start_date,omitempty"`
	EndDate              *time.Time    `json:"end_date,omitempty"`
	CompletionPercentage int           `json:"completion_percentage"`
}

// UnfundedAmount is the portion of TotalAmount not yet deposited into escrow
// nor released. The balance identity total == paid + escrow + unfunded holds
// by construction; the balance rule guards its non-negativity.
func (p Project) UnfundedAmount() Amount {
	return p.TotalAmount - p.PaidAmount - p.EscrowBalance
}

// Milestone is an ordered, payable unit of project work. OrderNumber is
// strictly increasing within a project and defines execution sequence; payout
// order is not enforced, so owners may approve non-sequentially.
type Milestone struct {
	Base
	ProjectID     string          `json:"project_id"`
	OrderNumber   int             `json:"order_number"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	PaymentAmount Amount          `json:"payment_amount"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Status        MilestoneStatus `json:"status"`
	RevisionCount int             `json:"revision_count"`
}

// Payment is a ledger entry recording money movement for a project. While
// EscrowHeld is true the funds sit in escrow; once released to the contractor
// the entry flips to EscrowHeld=false with ReleasedAt stamped.
type Payment struct {
	Base
	ProjectID   string        `json:"project_id"`
	MilestoneID string        `json:"milestone_id,omitempty"`
	Amount      Amount        `json:"amount"`
	Kind        PaymentKind   `json:"kind"`
	Status      PaymentStatus `json:"status"`
	EscrowHeld  bool          `json:"escrow_held"`
	ReleasedAt  *time.Time    `json:"released_at,omitempty"`
}

// ChangeOrder is a proposed modification to project scope and cost. CostImpact
// is a signed delta; it affects project balances only at implemented, never at
// approved.
type ChangeOrder struct {
	Base
	ProjectID   string            `json:"project_id"`
	ProposedBy  string            `json:"proposed_by"`
	Description string            `json:"description"`
	CostImpact  Amount            `json:"cost_impact"`
	Status      ChangeOrderStatus `json:"status"`
	ApprovedAt  *time.Time        `json:"approved_at,omitempty"`
}

// Evidence bundles references supporting a dispute. Entries are keys into the
// attachment store or message identifiers; upload mechanics live outside the core.
type Evidence struct {
	Photos    []string `json:"photos"`
	Documents []string `json:"documents"`
	Messages  []string `json:"messages"`
}

// Dispute is an escalation raised by either party over a project or a specific
// milestone. A dispute never moves money itself; resolution may trigger a
// separate payment or change-order command issued by an administrator.
type Dispute struct {
	Base
	ProjectID         string        `json:"project_id"`
	MilestoneID       string        `json:"milestone_id,omitempty"`
	FiledBy           string        `json:"filed_by"`
	FiledByName       string        `json:"filed_by_name,omitempty"`
	DisputeType       string        `json:"dispute_type"`
	Description       string        `json:"description"`
	Evidence          Evidence      `json:"evidence"`
	AmountDisputed    Amount        `json:"amount_disputed"`
	DesiredResolution string        `json:"desired_resolution,omitempty"`
	Status            DisputeStatus `json:"status"`
	Stage             DisputeStage  `json:"resolution_stage"`
	AdminAssigned     string        `json:"admin_assigned,omitempty"`
	Resolution        string        `json:"resolution,omitempty"`
	ResolvedAt        *time.Time    `json:"resolved_at,omitempty"`
}

// Unresolved reports whether the dispute still blocks milestone approval.
func (d Dispute) Unresolved() bool {
	return d.Status != DisputeStatusResolved && d.Status != DisputeStatusClosed
}

// Contract tracks dual-signature state for a project. FullyExecutedAt is
// stamped exactly once, when both parties have signed.
type Contract struct {
	Base
	ProjectID           string     `json:"project_id"`
	Terms               string     `json:"terms"`
	OwnerSigned         bool       `json:"owner_signed"`
	OwnerSignature      string     `json:"owner_signature,omitempty"`
	OwnerSignedAt       *time.Time `json:"owner_signed_at,omitempty"`
	ContractorSigned    bool       `json:"contractor_signed"`
	ContractorSignature string     `json:"contractor_signature,omitempty"`
	ContractorSignedAt  *time.Time `json:"contractor_signed_at,omitempty"`
	FullyExecutedAt     *time.Time `json:"fully_executed_at,omitempty"`
}

// ScopeOfWork is one immutable version of a project's scope document. New
// versions append with an incremented counter; prior versions never mutate.
type ScopeOfWork struct {
	Base
	ProjectID string `json:"project_id"`
	Version   int    `json:"version"`
	Summary   string `json:"summary"`
	Details   string `json:"details"`
}

// PunchListItem is a completable checklist item scoped to a project.
// CompletedAt is stamped exactly once when the item transitions to completed.
type PunchListItem struct {
	Base
	ProjectID   string          `json:"project_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      PunchListStatus `json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ProgressUpdate is an append-only note a contractor posts against a project.
type ProgressUpdate struct {
	Base
	ProjectID string   `json:"project_id"`
	AuthorID  string   `json:"author_id"`
	Note      string   `json:"note"`
	Photos    []string `json:"photos,omitempty"`
}
