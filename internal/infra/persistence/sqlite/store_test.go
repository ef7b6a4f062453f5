package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"buildledger/pkg/domain"
)

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	var projectID string
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		project, err := tx.CreateProject(domain.Project{Title: "Garage build", OwnerID: "owner-1", ContractorID: "contractor-1", TotalAmount: 5_000})
		if err != nil {
			return err
		}
		projectID = project.ID
		_, err = tx.CreateMilestone(domain.Milestone{ProjectID: projectID, Title: "Slab", PaymentAmount: 2_000, OrderNumber: 1, Status: domain.MilestoneStatusPending})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	project, ok := reopened.GetProject(projectID)
	if !ok {
		t.Fatalf("project %s not restored", projectID)
	}
	if project.Title != "Garage build" || project.TotalAmount != 5_000 {
		t.Fatalf("restored project mismatch: %+v", project)
	}
	milestones := reopened.ListMilestonesByProject(projectID)
	if len(milestones) != 1 || milestones[0].Title != "Slab" {
		t.Fatalf("restored milestones mismatch: %+v", milestones)
	}
}

func TestFreshDatabaseStartsEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "fresh.db"), domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if got := len(store.ListProjects()); got != 0 {
		t.Fatalf("expected empty store, got %d projects", got)
	}
}

func TestFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateProject(domain.Project{Title: "Doomed", OwnerID: "o", ContractorID: "c"}); err != nil {
			return err
		}
		return context.Canceled
	})
	if err == nil {
		t.Fatal("expected transaction failure")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := len(reopened.ListProjects()); got != 0 {
		t.Fatalf("rolled-back state leaked to disk: %d projects", got)
	}
}
