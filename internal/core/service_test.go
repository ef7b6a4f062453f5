package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"buildledger/pkg/domain"
)

var (
	owner      = Actor{ID: "owner-1", Role: domain.RoleOwner}
	contractor = Actor{ID: "contractor-1", Role: domain.RoleContractor}
	admin      = Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewInMemoryService()
}

// seedFundedProject creates an active project with the given total fully
// deposited into escrow.
func seedFundedProject(t *testing.T, s *Service, total Amount) Project {
	t.Helper()
	ctx := context.Background()
	project, _, err := s.CreateProject(ctx, owner, Project{
		Title:        "Kitchen remodel",
		OwnerID:      owner.ID,
		ContractorID: contractor.ID,
		TotalAmount:  total,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, _, err := s.ActivateProject(ctx, owner, project.ID); err != nil {
		t.Fatalf("activate project: %v", err)
	}
	project, _, err = s.DepositEscrow(ctx, owner, project.ID, total)
	if err != nil {
		t.Fatalf("deposit escrow: %v", err)
	}
	return project
}

// submitMilestone creates a milestone and moves it to submitted.
func submitMilestone(t *testing.T, s *Service, projectID string, amount Amount) Milestone {
	t.Helper()
	ctx := context.Background()
	milestone, _, err := s.CreateMilestone(ctx, contractor, Milestone{
		ProjectID:     projectID,
		Title:         "Framing",
		PaymentAmount: amount,
	})
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}
	milestone, _, err = s.SubmitMilestone(ctx, contractor, milestone.ID)
	if err != nil {
		t.Fatalf("submit milestone: %v", err)
	}
	return milestone
}

func assertBalanceIdentity(t *testing.T, s *Service, projectID string) {
	t.Helper()
	project, ok := s.Store().GetProject(projectID)
	if !ok {
		t.Fatalf("project %s missing", projectID)
	}
	if !project.UnfundedAmount().IsNonNegative() {
		t.Fatalf("balance identity broken: total=%s paid=%s escrow=%s", project.TotalAmount, project.PaidAmount, project.EscrowBalance)
	}
	var held Amount
	for _, payment := range s.Store().ListPayments() {
		if payment.ProjectID == projectID && payment.EscrowHeld {
			held = held.Add(payment.Amount)
		}
	}
	if held != project.EscrowBalance {
		t.Fatalf("escrow ledger drift: held entries sum %s, balance %s", held, project.EscrowBalance)
	}
}

func TestApproveMilestoneReleasesPaymentAtomically(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)
	milestone := submitMilestone(t, s, project.ID, 4_000)

	updated, _, err := s.ApproveMilestone(ctx, owner, milestone.ID)
	if err != nil {
		t.Fatalf("approve milestone: %v", err)
	}
	if updated.Status != domain.MilestoneStatusPaid {
		t.Fatalf("expected paid milestone, got %s", updated.Status)
	}

	project, _ = s.Store().GetProject(project.ID)
	if project.PaidAmount != 4_000 || project.EscrowBalance != 6_000 {
		t.Fatalf("expected paid=4000 escrow=6000, got paid=%d escrow=%d", project.PaidAmount, project.EscrowBalance)
	}

	var releases []Payment
	for _, payment := range s.Store().ListPayments() {
		if payment.MilestoneID == milestone.ID && !payment.EscrowHeld {
			releases = append(releases, payment)
		}
	}
	if len(releases) != 1 || releases[0].Amount != 4_000 {
		t.Fatalf("expected exactly one released payment of 4000, got %+v", releases)
	}
	if releases[0].ReleasedAt == nil || releases[0].Status != domain.PaymentStatusCompleted {
		t.Fatalf("released payment not finalized: %+v", releases[0])
	}
	assertBalanceIdentity(t, s, project.ID)
}

func TestApproveMilestoneRequiresSubmittedState(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)
	milestone, _, err := s.CreateMilestone(ctx, contractor, Milestone{ProjectID: project.ID, Title: "Pending", PaymentAmount: 1_000})
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}

	_, _, err = s.ApproveMilestone(ctx, owner, milestone.ID)
	var transition domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transition.From != string(domain.MilestoneStatusPending) {
		t.Fatalf("expected pending origin, got %s", transition.From)
	}
}

func TestNoDoublePaymentOnRepeatedApprove(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)
	milestone := submitMilestone(t, s, project.ID, 4_000)

	if _, _, err := s.ApproveMilestone(ctx, owner, milestone.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	_, _, err := s.ApproveMilestone(ctx, owner, milestone.ID)
	var transition domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("second approve must fail with InvalidTransitionError, got %v", err)
	}

	released := 0
	for _, payment := range s.Store().ListPayments() {
		if payment.MilestoneID == milestone.ID && !payment.EscrowHeld {
			released++
		}
	}
	if released != 1 {
		t.Fatalf("expected exactly one released payment, got %d", released)
	}
}

func TestConcurrentApprovesYieldOneRelease(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)
	milestone := submitMilestone(t, s, project.ID, 4_000)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = s.ApproveMilestone(ctx, owner, milestone.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var transition domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("losing approve must fail with InvalidTransitionError, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winning approve, got %d", succeeded)
	}

	released := 0
	for _, payment := range s.Store().ListPayments() {
		if payment.MilestoneID == milestone.ID && !payment.EscrowHeld {
			released++
		}
	}
	if released != 1 {
		t.Fatalf("expected exactly one released payment, got %d", released)
	}
	assertBalanceIdentity(t, s, project.ID)
}

func TestApproveBlockedByUnresolvedDispute(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)
	milestone := submitMilestone(t, s, project.ID, 4_000)

	dispute, _, err := s.FileDispute(ctx, contractor, Dispute{
		ProjectID:   project.ID,
		MilestoneID: milestone.ID,
		DisputeType: "workmanship",
		Description: "substandard framing materials",
	})
	if err != nil {
		t.Fatalf("file dispute: %v", err)
	}

	_, _, err = s.ApproveMilestone(ctx, owner, milestone.ID)
	var blocked domain.DisputeBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected DisputeBlockedError, got %v", err)
	}
	current, _ := s.Store().GetProject(project.ID)
	if current.PaidAmount != 0 {
		t.Fatalf("blocked approval moved money: paid=%d", current.PaidAmount)
	}

	// Resolving and closing the dispute unblocks approval.
	if _, _, err := s.ReviewDispute(ctx, admin, dispute.ID); err != nil {
		t.Fatalf("review dispute: %v", err)
	}
	if _, _, err := s.ResolveDispute(ctx, admin, dispute.ID, "materials replaced"); err != nil {
		t.Fatalf("resolve dispute: %v", err)
	}
	if _, _, err := s.ApproveMilestone(ctx, owner, milestone.ID); err != nil {
		t.Fatalf("approve after resolution: %v", err)
	}
}

func TestRejectReturnsMilestoneToPendingWithRevisionBump(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)
	milestone := submitMilestone(t, s, project.ID, 4_000)

	updated, _, err := s.RejectMilestone(ctx, owner, milestone.ID)
	if err != nil {
		t.Fatalf("reject milestone: %v", err)
	}
	if updated.Status != domain.MilestoneStatusPending || updated.RevisionCount != 1 {
		t.Fatalf("expected pending with revision 1, got %s revision %d", updated.Status, updated.RevisionCount)
	}

	// Resubmission and a second rejection keep counting.
	if _, _, err := s.SubmitMilestone(ctx, contractor, milestone.ID); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	updated, _, err = s.RejectMilestone(ctx, owner, milestone.ID)
	if err != nil {
		t.Fatalf("second reject: %v", err)
	}
	if updated.RevisionCount != 2 {
		t.Fatalf("expected revision 2, got %d", updated.RevisionCount)
	}
}

func TestImplementNegativeChangeOrderFailsClosed(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	project, _, err := s.CreateProject(ctx, owner, Project{
		OwnerID:      owner.ID,
		ContractorID: contractor.ID,
		Title:        "Thin escrow",
		TotalAmount:  10_000,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, _, err := s.ActivateProject(ctx, owner, project.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, _, err := s.DepositEscrow(ctx, owner, project.ID, 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	order, _, err := s.CreateChangeOrder(ctx, contractor, ChangeOrder{ProjectID: project.ID, Description: "remove island", CostImpact: -2_000})
	if err != nil {
		t.Fatalf("create change order: %v", err)
	}
	if _, _, err := s.ApproveChangeOrder(ctx, owner, order.ID); err != nil {
		t.Fatalf("approve change order: %v", err)
	}

	_, _, err = s.ImplementChangeOrder(ctx, owner, order.ID)
	var insufficient domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}

	current, _ := s.Store().GetProject(project.ID)
	if current.TotalAmount != 10_000 || current.EscrowBalance != 1_000 {
		t.Fatalf("failed implement mutated project: total=%d escrow=%d", current.TotalAmount, current.EscrowBalance)
	}
	orderAfter := findChangeOrder(t, s, order.ID)
	if orderAfter.Status != domain.ChangeOrderStatusApproved {
		t.Fatalf("order must stay approved for retry, got %s", orderAfter.Status)
	}

	// Depositing the shortfall allows the retry to succeed.
	if _, _, err := s.DepositEscrow(ctx, owner, project.ID, 1_000); err != nil {
		t.Fatalf("top-up deposit: %v", err)
	}
	if _, _, err := s.ImplementChangeOrder(ctx, owner, order.ID); err != nil {
		t.Fatalf("retry implement: %v", err)
	}
	current, _ = s.Store().GetProject(project.ID)
	if current.TotalAmount != 8_000 || current.EscrowBalance != 0 {
		t.Fatalf("expected total=8000 escrow=0 after implement, got total=%d escrow=%d", current.TotalAmount, current.EscrowBalance)
	}
	assertBalanceIdentity(t, s, project.ID)
}

func findChangeOrder(t *testing.T, s *Service, id string) ChangeOrder {
	t.Helper()
	for _, order := range s.Store().ListChangeOrders() {
		if order.ID == id {
			return order
		}
	}
	t.Fatalf("change order %s not found", id)
	return ChangeOrder{}
}

func TestImplementPositiveChangeOrderMovesBothBalances(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	order, _, err := s.CreateChangeOrder(ctx, owner, ChangeOrder{ProjectID: project.ID, Description: "add pantry", CostImpact: 3_000})
	if err != nil {
		t.Fatalf("create change order: %v", err)
	}
	if _, _, err := s.ApproveChangeOrder(ctx, contractor, order.ID); err != nil {
		t.Fatalf("approve by counterparty: %v", err)
	}
	if _, _, err := s.ImplementChangeOrder(ctx, owner, order.ID); err != nil {
		t.Fatalf("implement: %v", err)
	}

	current, _ := s.Store().GetProject(project.ID)
	if current.TotalAmount != 13_000 || current.EscrowBalance != 13_000 {
		t.Fatalf("expected total=13000 escrow=13000, got total=%d escrow=%d", current.TotalAmount, current.EscrowBalance)
	}
	assertBalanceIdentity(t, s, project.ID)
}

func TestChangeOrderApprovalDoesNotMoveMoney(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	order, _, err := s.CreateChangeOrder(ctx, contractor, ChangeOrder{ProjectID: project.ID, Description: "tile upgrade", CostImpact: 2_000})
	if err != nil {
		t.Fatalf("create change order: %v", err)
	}
	if _, _, err := s.ApproveChangeOrder(ctx, owner, order.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	current, _ := s.Store().GetProject(project.ID)
	if current.TotalAmount != 10_000 || current.EscrowBalance != 10_000 {
		t.Fatalf("approval moved balances: total=%d escrow=%d", current.TotalAmount, current.EscrowBalance)
	}
}

func TestDisputeStageNeverRegresses(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	dispute, _, err := s.FileDispute(ctx, owner, Dispute{ProjectID: project.ID, DisputeType: "payment", Description: "late invoices"})
	if err != nil {
		t.Fatalf("file dispute: %v", err)
	}
	if dispute.Stage != domain.DisputeStageInternal {
		t.Fatalf("expected internal stage at filing, got %s", dispute.Stage)
	}

	dispute, _, err = s.EscalateDispute(ctx, admin, dispute.ID)
	if err != nil || dispute.Stage != domain.DisputeStageEscalated {
		t.Fatalf("first escalate: stage=%s err=%v", dispute.Stage, err)
	}
	dispute, _, err = s.EscalateDispute(ctx, admin, dispute.ID)
	if err != nil || dispute.Stage != domain.DisputeStageExternal {
		t.Fatalf("second escalate: stage=%s err=%v", dispute.Stage, err)
	}
	_, _, err = s.EscalateDispute(ctx, admin, dispute.ID)
	var transition domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("external stage must not escalate further, got %v", err)
	}
}

func TestUnauthorizedActorsNeverPartiallyApply(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)
	milestone := submitMilestone(t, s, project.ID, 4_000)

	// The contractor cannot approve their own milestone.
	_, _, err := s.ApproveMilestone(ctx, contractor, milestone.ID)
	var unauthorized domain.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
	// A stranger owner cannot cancel someone else's project.
	stranger := Actor{ID: "owner-2", Role: domain.RoleOwner}
	_, _, err = s.CancelProject(ctx, stranger, project.ID)
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError for stranger, got %v", err)
	}
	current, _ := s.Store().GetProject(project.ID)
	if current.Status != domain.ProjectStatusActive || current.PaidAmount != 0 {
		t.Fatalf("unauthorized command mutated state: %+v", current)
	}
}

func TestContractSignatureGatesActivation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	project, _, err := s.CreateProject(ctx, owner, Project{OwnerID: owner.ID, ContractorID: contractor.ID, Title: "Addition", TotalAmount: 50_000})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	contract, _, err := s.CreateContract(ctx, owner, Contract{ProjectID: project.ID, Terms: "net 30, weekly draws"})
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	if _, _, err := s.ActivateProject(ctx, owner, project.ID); err == nil {
		t.Fatal("activation must fail before both signatures")
	}

	contract, _, err = s.SignContract(ctx, owner, contract.ID, "sig-owner")
	if err != nil {
		t.Fatalf("owner sign: %v", err)
	}
	if contract.FullyExecutedAt != nil {
		t.Fatal("contract must not be fully executed with one signature")
	}
	contract, _, err = s.SignContract(ctx, contractor, contract.ID, "sig-contractor")
	if err != nil {
		t.Fatalf("contractor sign: %v", err)
	}
	if contract.FullyExecutedAt == nil {
		t.Fatal("expected fully executed stamp after both signatures")
	}
	executedAt := *contract.FullyExecutedAt

	// A duplicate signature attempt fails and never restamps.
	if _, _, err := s.SignContract(ctx, owner, contract.ID, "sig-owner-2"); err == nil {
		t.Fatal("duplicate signature must fail")
	}
	after := findContract(t, s, contract.ID)
	if after.FullyExecutedAt == nil || !after.FullyExecutedAt.Equal(executedAt) {
		t.Fatal("fully executed stamp must be set exactly once")
	}

	if _, _, err := s.ActivateProject(ctx, owner, project.ID); err != nil {
		t.Fatalf("activation after execution: %v", err)
	}
}

func findContract(t *testing.T, s *Service, id string) Contract {
	t.Helper()
	for _, contract := range s.Store().ListContracts() {
		if contract.ID == id {
			return contract
		}
	}
	t.Fatalf("contract %s not found", id)
	return Contract{}
}

func TestScopeOfWorkVersionsAppendOnly(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	first, _, err := s.CreateScopeOfWork(ctx, owner, ScopeOfWork{ProjectID: project.ID, Summary: "initial scope"})
	if err != nil {
		t.Fatalf("first scope: %v", err)
	}
	second, _, err := s.CreateScopeOfWork(ctx, contractor, ScopeOfWork{ProjectID: project.ID, Summary: "revised scope"})
	if err != nil {
		t.Fatalf("second scope: %v", err)
	}
	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("expected versions 1 and 2, got %d and %d", first.Version, second.Version)
	}
}

func TestPunchListItemCompletesOnce(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	item, _, err := s.AddPunchListItem(ctx, owner, PunchListItem{ProjectID: project.ID, Title: "Touch up paint"})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	item, _, err = s.CompletePunchListItem(ctx, contractor, item.ID)
	if err != nil {
		t.Fatalf("complete item: %v", err)
	}
	if item.CompletedAt == nil {
		t.Fatal("expected completion stamp")
	}
	_, _, err = s.CompletePunchListItem(ctx, contractor, item.ID)
	var transition domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("second completion must fail, got %v", err)
	}
}

func TestCancelProjectRefundsRemainingEscrow(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	cancelled, _, err := s.CancelProject(ctx, owner, project.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.ProjectStatusCancelled || cancelled.EscrowBalance != 0 {
		t.Fatalf("expected cancelled with zero escrow, got %s escrow=%d", cancelled.Status, cancelled.EscrowBalance)
	}
	refunds := 0
	for _, payment := range s.Store().ListPayments() {
		if payment.ProjectID == project.ID && payment.Kind == domain.PaymentKindRefund {
			refunds++
			if payment.Amount != 10_000 {
				t.Fatalf("expected full refund entry, got %d", payment.Amount)
			}
		}
	}
	if refunds != 1 {
		t.Fatalf("expected one refund entry, got %d", refunds)
	}
	assertBalanceIdentity(t, s, project.ID)
}

func TestBalanceInvariantHoldsAcrossCommandSequence(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 20_000)
	assertBalanceIdentity(t, s, project.ID)

	first := submitMilestone(t, s, project.ID, 8_000)
	if _, _, err := s.ApproveMilestone(ctx, owner, first.ID); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	assertBalanceIdentity(t, s, project.ID)

	order, _, err := s.CreateChangeOrder(ctx, contractor, ChangeOrder{ProjectID: project.ID, Description: "extra insulation", CostImpact: 5_000})
	if err != nil {
		t.Fatalf("change order: %v", err)
	}
	if _, _, err := s.ApproveChangeOrder(ctx, owner, order.ID); err != nil {
		t.Fatalf("approve order: %v", err)
	}
	if _, _, err := s.ImplementChangeOrder(ctx, owner, order.ID); err != nil {
		t.Fatalf("implement order: %v", err)
	}
	assertBalanceIdentity(t, s, project.ID)

	second := submitMilestone(t, s, project.ID, 12_000)
	if _, _, err := s.ApproveMilestone(ctx, owner, second.ID); err != nil {
		t.Fatalf("approve second: %v", err)
	}
	assertBalanceIdentity(t, s, project.ID)

	current, _ := s.Store().GetProject(project.ID)
	if current.PaidAmount != 20_000 || current.TotalAmount != 25_000 || current.EscrowBalance != 5_000 {
		t.Fatalf("unexpected final balances: %+v", current)
	}
}

func TestAdminAdjustBalanceStaysWithinGuards(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	// Only admins may adjust.
	_, _, err := s.AdminAdjustBalance(ctx, owner, project.ID, 0, 0, -1_000, "not allowed")
	var unauthorized domain.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}

	// A correction that would leave escrow above total is blocked by rules.
	_, _, err = s.AdminAdjustBalance(ctx, admin, project.ID, -5_000, 0, 0, "writedown below escrow")
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}

	// A consistent correction commits.
	adjusted, _, err := s.AdminAdjustBalance(ctx, admin, project.ID, 0, 0, -2_000, "dispute settlement refund")
	if err != nil {
		t.Fatalf("admin adjust: %v", err)
	}
	if adjusted.EscrowBalance != 8_000 {
		t.Fatalf("expected escrow 8000, got %d", adjusted.EscrowBalance)
	}
	assertBalanceIdentity(t, s, project.ID)
}

func TestDepositBeyondTotalIsBlocked(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	project := seedFundedProject(t, s, 10_000)

	_, _, err := s.DepositEscrow(ctx, owner, project.ID, 1)
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError for overfunded escrow, got %v", err)
	}
	current, _ := s.Store().GetProject(project.ID)
	if current.EscrowBalance != 10_000 {
		t.Fatalf("blocked deposit mutated escrow: %d", current.EscrowBalance)
	}
}
