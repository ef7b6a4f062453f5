package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"buildledger/pkg/domain"
)

func TestRunInTransactionCommitsAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var projectID, milestoneID string
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		project, err := tx.CreateProject(Project{Title: "Kitchen remodel", OwnerID: "owner-1", ContractorID: "contractor-1", Status: domain.ProjectStatusProposed, TotalAmount: 500_000})
		if err != nil {
			return err
		}
		projectID = project.ID
		milestone, err := tx.CreateMilestone(Milestone{ProjectID: project.ID, OrderNumber: 1, Title: "Demolition", PaymentAmount: 100_000, Status: domain.MilestoneStatusPending})
		if err != nil {
			return err
		}
		milestoneID = milestone.ID
		view := tx.Snapshot()
		if got := len(view.ListMilestones()); got != 1 {
			t.Fatalf("expected 1 milestone in snapshot, got %d", got)
		}
		return nil
	}); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	if projectID == "" || milestoneID == "" {
		t.Fatal("expected generated ids")
	}
	if _, ok := store.GetProject(projectID); !ok {
		t.Fatalf("project %s not committed", projectID)
	}

	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if got := len(store.ListProjects()); got != 0 {
		t.Fatalf("expected empty store after import of empty snapshot, got %d projects", got)
	}
	store.ImportState(snapshot)
	if got := len(store.ListMilestonesByProject(projectID)); got != 1 {
		t.Fatalf("expected 1 milestone after re-import, got %d", got)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateProject(Project{Title: "Doomed"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if got := len(store.ListProjects()); got != 0 {
		t.Fatalf("expected rollback, found %d projects", got)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "always-block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "always-block",
		Severity: domain.SeverityBlock,
		Message:  "blocked",
	}}}, nil
}

func TestBlockingViolationDiscardsTransaction(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateProject(Project{Title: "Blocked"})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if got := len(store.ListProjects()); got != 0 {
		t.Fatalf("blocked transaction leaked %d projects", got)
	}
}

func TestCreateValidatesReferences(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateMilestone(Milestone{ProjectID: "missing", Title: "Orphan"})
		return err
	})
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Entity != domain.EntityProject {
		t.Fatalf("expected project not-found, got %s", notFound.Entity)
	}
}

func TestContractUniquePerProject(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var projectID string
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		project, err := tx.CreateProject(Project{Title: "Deck build"})
		if err != nil {
			return err
		}
		projectID = project.ID
		_, err = tx.CreateContract(Contract{ProjectID: project.ID, Terms: "net 30"})
		return err
	}); err != nil {
		t.Fatalf("seed transaction failed: %v", err)
	}

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateContract(Contract{ProjectID: projectID, Terms: "duplicate"})
		return err
	})
	if err == nil {
		t.Fatal("expected duplicate contract rejection")
	}
}

func TestUpdateMutatorErrorLeavesRecordUntouched(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var projectID string
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		project, err := tx.CreateProject(Project{Title: "Garage", TotalAmount: 100_000})
		projectID = project.ID
		return err
	}); err != nil {
		t.Fatalf("seed transaction failed: %v", err)
	}

	boom := errors.New("mutator boom")
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateProject(projectID, func(p *Project) error {
			p.TotalAmount = 0
			return boom
		})
		return err
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	project, _ := store.GetProject(projectID)
	if project.TotalAmount != 100_000 {
		t.Fatalf("mutator error leaked: total %d", project.TotalAmount)
	}
}

func TestMigrateSnapshotDropsOrphansAndDefaults(t *testing.T) {
	now := time.Now().UTC()
	snapshot := Snapshot{
		Projects: map[string]Project{
			"p1": {Base: domain.Base{ID: "p1", CreatedAt: now}, Title: "Bathroom"},
		},
		Milestones: map[string]Milestone{
			"m1": {Base: domain.Base{ID: "m1"}, ProjectID: "p1"},
			"m2": {Base: domain.Base{ID: "m2"}, ProjectID: "ghost"},
		},
		Payments: map[string]Payment{
			"pay1": {Base: domain.Base{ID: "pay1"}, ProjectID: "p1", MilestoneID: "gone", Amount: 50},
		},
		Disputes: map[string]Dispute{
			"d1": {Base: domain.Base{ID: "d1"}, ProjectID: "p1", Status: domain.DisputeStatusFiled},
		},
	}

	store := NewStore(nil)
	store.ImportState(snapshot)

	milestones := store.ListMilestonesByProject("p1")
	if len(milestones) != 1 {
		t.Fatalf("expected orphan milestone dropped, got %d", len(milestones))
	}
	if milestones[0].Status != domain.MilestoneStatusPending {
		t.Fatalf("expected defaulted status, got %s", milestones[0].Status)
	}
	payments := store.ListPayments()
	if len(payments) != 1 || payments[0].MilestoneID != "" {
		t.Fatalf("expected dangling milestone reference cleared, got %+v", payments)
	}
	disputes := store.ListDisputes()
	if len(disputes) != 1 || disputes[0].Stage != domain.DisputeStageInternal {
		t.Fatalf("expected defaulted dispute stage, got %+v", disputes)
	}
}

func TestReplaceCollectionSwapsOneBucketOnly(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		project, err := tx.CreateProject(Project{Title: "Fence"})
		if err != nil {
			return err
		}
		_, err = tx.CreateMilestone(Milestone{ProjectID: project.ID, OrderNumber: 1, Title: "Posts"})
		return err
	}); err != nil {
		t.Fatalf("seed transaction failed: %v", err)
	}

	store.ReplaceMilestones([]Milestone{
		{Base: domain.Base{ID: "remote-m1"}, ProjectID: "remote-p1", OrderNumber: 1, Title: "Remote posts"},
		{Base: domain.Base{ID: "remote-m2"}, ProjectID: "remote-p1", OrderNumber: 2, Title: "Remote rails"},
	})

	if got := len(store.ListMilestones()); got != 2 {
		t.Fatalf("expected replaced milestone bucket of 2, got %d", got)
	}
	if got := len(store.ListProjects()); got != 1 {
		t.Fatalf("project bucket should be untouched, got %d", got)
	}
}

func TestDeletePunchListItemRecordsChange(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var itemID string
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		project, err := tx.CreateProject(Project{Title: "Paint"})
		if err != nil {
			return err
		}
		item, err := tx.CreatePunchListItem(PunchListItem{ProjectID: project.ID, Title: "Touch up trim"})
		itemID = item.ID
		return err
	}); err != nil {
		t.Fatalf("seed transaction failed: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeletePunchListItem(itemID)
	}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := len(store.ListPunchListItems()); got != 0 {
		t.Fatalf("expected item removed, got %d", got)
	}
}
