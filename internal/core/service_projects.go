package core

import (
	"context"
	"fmt"

	"buildledger/internal/events"
	"buildledger/pkg/domain"
)

// CreateProject persists a new project in the proposed state with zeroed
// balances. Owners create their own projects; admins may create on behalf.
func (s *Service) CreateProject(ctx context.Context, actor Actor, project Project) (Project, Result, error) {
	if project.OwnerID == "" {
		project.OwnerID = actor.ID
	}
	if !isAdmin(actor) && !(actor.Role == domain.RoleOwner && actor.ID == project.OwnerID) {
		return Project{}, Result{}, domain.UnauthorizedError{Actor: actor.ID, Command: "create_project"}
	}
	if !project.TotalAmount.IsNonNegative() {
		return Project{}, Result{}, domain.InvalidAmountError{Op: "create project", Amount: project.TotalAmount}
	}

	project.Status = domain.ProjectStatusProposed
	project.PaidAmount = 0
	project.EscrowBalance = 0
	project.CompletionPercentage = 0

	var created Project
	res, err := s.run(ctx, actor, "create_project", "", func(tx Transaction) error {
		var err error
		created, err = tx.CreateProject(project)
		return err
	})
	if err != nil {
		return Project{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "project.created",
		Entity:     string(domain.EntityProject),
		EntityID:   created.ID,
		ProjectID:  created.ID,
	})
	return created, res, nil
}

// ActivateProject moves a proposed project to active. If the project carries
// a contract, both signatures must be in place first.
func (s *Service) ActivateProject(ctx context.Context, actor Actor, projectID string) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, actor, "activate_project", projectID, func(tx Transaction) error {
		project, ok := tx.FindProject(projectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: projectID}
		}
		if err := requireOwner(actor, project, "activate_project"); err != nil {
			return err
		}
		if !canTransitionProject(project.Status, domain.ProjectStatusActive) {
			return domain.InvalidTransitionError{Entity: domain.EntityProject, ID: projectID, From: string(project.Status), Event: "activate"}
		}
		if contract, ok := tx.ContractByProject(projectID); ok && contract.FullyExecutedAt == nil {
			return fmt.Errorf("project %s: contract %s is not fully executed", projectID, contract.ID)
		}
		now := s.nowFn()
		var err error
		updated, err = tx.UpdateProject(projectID, func(p *Project) error {
			p.Status = domain.ProjectStatusActive
			if p.StartDate == nil {
				p.StartDate = &now
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Project{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "project.activated",
		Entity:     string(domain.EntityProject),
		EntityID:   projectID,
		ProjectID:  projectID,
	})
	return updated, res, nil
}

// CompleteProject moves an active project to its completed terminal state.
func (s *Service) CompleteProject(ctx context.Context, actor Actor, projectID string) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, actor, "complete_project", projectID, func(tx Transaction) error {
		project, ok := tx.FindProject(projectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: projectID}
		}
		if err := requireOwner(actor, project, "complete_project"); err != nil {
			return err
		}
		if !canTransitionProject(project.Status, domain.ProjectStatusCompleted) {
			return domain.InvalidTransitionError{Entity: domain.EntityProject, ID: projectID, From: string(project.Status), Event: "complete"}
		}
		now := s.nowFn()
		var err error
		updated, err = tx.UpdateProject(projectID, func(p *Project) error {
			p.Status = domain.ProjectStatusCompleted
			if p.EndDate == nil {
				p.EndDate = &now
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Project{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "project.completed",
		Entity:     string(domain.EntityProject),
		EntityID:   projectID,
		ProjectID:  projectID,
	})
	return updated, res, nil
}

// CancelProject cancels a project and returns any remaining escrow to the
// owner as a refund entry.
func (s *Service) CancelProject(ctx context.Context, actor Actor, projectID string) (Project, Result, error) {
	var updated Project
	var refunded Amount
	res, err := s.run(ctx, actor, "cancel_project", projectID, func(tx Transaction) error {
		project, ok := tx.FindProject(projectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: projectID}
		}
		if err := requireOwner(actor, project, "cancel_project"); err != nil {
			return err
		}
		if !canTransitionProject(project.Status, domain.ProjectStatusCancelled) {
			return domain.InvalidTransitionError{Entity: domain.EntityProject, ID: projectID, From: string(project.Status), Event: "cancel"}
		}
		now := s.nowFn()
		refunded = project.EscrowBalance
		if refunded > 0 {
			if err := consumeEscrow(tx, projectID, refunded, now); err != nil {
				return err
			}
			released := now
			if _, err := tx.CreatePayment(Payment{
				ProjectID:  projectID,
				Amount:     refunded,
				Kind:       domain.PaymentKindRefund,
				Status:     domain.PaymentStatusCompleted,
				EscrowHeld: false,
				ReleasedAt: &released,
			}); err != nil {
				return err
			}
		}
		var err error
		updated, err = tx.UpdateProject(projectID, func(p *Project) error {
			p.Status = domain.ProjectStatusCancelled
			p.EscrowBalance = 0
			if p.EndDate == nil {
				p.EndDate = &now
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Project{}, res, err
	}
	recordEscrowMoved("refund", refunded)
	s.emit(actor, events.Event{
		RoutingKey: "project.cancelled",
		Entity:     string(domain.EntityProject),
		EntityID:   projectID,
		ProjectID:  projectID,
		Fields:     map[string]any{"refunded": refunded},
	})
	return updated, res, nil
}

// DepositEscrow moves owner funds into project escrow, recording a held
// deposit entry. Deposits beyond the unfunded remainder are blocked by the
// balance rule.
func (s *Service) DepositEscrow(ctx context.Context, actor Actor, projectID string, amount Amount) (Project, Result, error) {
	if amount <= 0 {
		return Project{}, Result{}, domain.InvalidAmountError{Op: "deposit escrow", Amount: amount}
	}
	var updated Project
	res, err := s.run(ctx, actor, "deposit_escrow", projectID, func(tx Transaction) error {
		project, ok := tx.FindProject(projectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: projectID}
		}
		if err := requireOwner(actor, project, "deposit_escrow"); err != nil {
			return err
		}
		if project.Status == domain.ProjectStatusCompleted || project.Status == domain.ProjectStatusCancelled {
			return domain.InvalidTransitionError{Entity: domain.EntityProject, ID: projectID, From: string(project.Status), Event: "deposit"}
		}
		if _, err := tx.CreatePayment(Payment{
			ProjectID:  projectID,
			Amount:     amount,
			Kind:       domain.PaymentKindDeposit,
			Status:     domain.PaymentStatusPending,
			EscrowHeld: true,
		}); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateProject(projectID, func(p *Project) error {
			p.EscrowBalance = p.EscrowBalance.Add(amount)
			return nil
		})
		return err
	})
	if err != nil {
		return Project{}, res, err
	}
	recordEscrowMoved("deposit", amount)
	s.emit(actor, events.Event{
		RoutingKey: "escrow.deposited",
		Entity:     string(domain.EntityProject),
		EntityID:   projectID,
		ProjectID:  projectID,
		Fields:     map[string]any{"amount": amount},
	})
	return updated, res, nil
}

// AdminAdjustBalance applies a signed correction to a project's balances.
// This is the administrative override path for dispute-driven corrections;
// the balance rules still reject any final state that goes negative or
// exceeds the total.
func (s *Service) AdminAdjustBalance(ctx context.Context, actor Actor, projectID string, deltaTotal, deltaPaid, deltaEscrow Amount, reason string) (Project, Result, error) {
	if err := requireAdmin(actor, "admin_adjust_balance"); err != nil {
		return Project{}, Result{}, err
	}
	var updated Project
	res, err := s.run(ctx, actor, "admin_adjust_balance", projectID, func(tx Transaction) error {
		if _, ok := tx.FindProject(projectID); !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: projectID}
		}
		now := s.nowFn()
		if deltaEscrow > 0 {
			if _, err := tx.CreatePayment(Payment{
				ProjectID:  projectID,
				Amount:     deltaEscrow,
				Kind:       domain.PaymentKindAdjustment,
				Status:     domain.PaymentStatusPending,
				EscrowHeld: true,
			}); err != nil {
				return err
			}
		}
		if deltaEscrow < 0 {
			if err := consumeEscrow(tx, projectID, -deltaEscrow, now); err != nil {
				return err
			}
			released := now
			if _, err := tx.CreatePayment(Payment{
				ProjectID:  projectID,
				Amount:     -deltaEscrow,
				Kind:       domain.PaymentKindAdjustment,
				Status:     domain.PaymentStatusCompleted,
				EscrowHeld: false,
				ReleasedAt: &released,
			}); err != nil {
				return err
			}
		}
		var err error
		updated, err = tx.UpdateProject(projectID, func(p *Project) error {
			p.TotalAmount = p.TotalAmount.Add(deltaTotal)
			p.PaidAmount = p.PaidAmount.Add(deltaPaid)
			p.EscrowBalance = p.EscrowBalance.SubAllowNegative(-deltaEscrow)
			return nil
		})
		return err
	})
	if err != nil {
		return Project{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "project.adjusted",
		Entity:     string(domain.EntityProject),
		EntityID:   projectID,
		ProjectID:  projectID,
		Fields: map[string]any{
			"delta_total":  deltaTotal,
			"delta_paid":   deltaPaid,
			"delta_escrow": deltaEscrow,
			"reason":       reason,
		},
	})
	return updated, res, nil
}
