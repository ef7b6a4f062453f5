package core

import (
	"context"
	"fmt"

	"buildledger/internal/events"
	"buildledger/pkg/domain"
)

// CreateMilestone adds a pending milestone to a project. Order numbers are
// strictly increasing within a project; a zero order number is assigned the
// next slot automatically.
func (s *Service) CreateMilestone(ctx context.Context, actor Actor, milestone Milestone) (Milestone, Result, error) {
	if milestone.PaymentAmount <= 0 {
		return Milestone{}, Result{}, domain.InvalidAmountError{Op: "create milestone", Amount: milestone.PaymentAmount}
	}
	var created Milestone
	res, err := s.run(ctx, actor, "create_milestone", milestone.ProjectID, func(tx Transaction) error {
		project, ok := tx.FindProject(milestone.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: milestone.ProjectID}
		}
		if err := requireParty(actor, project, "create_milestone"); err != nil {
			return err
		}
		maxOrder := 0
		for _, existing := range tx.MilestonesByProject(milestone.ProjectID) {
			if existing.OrderNumber > maxOrder {
				maxOrder = existing.OrderNumber
			}
		}
		if milestone.OrderNumber == 0 {
			milestone.OrderNumber = maxOrder + 1
		} else if milestone.OrderNumber <= maxOrder {
			return fmt.Errorf("milestone order %d must exceed current max %d for project %s", milestone.OrderNumber, maxOrder, milestone.ProjectID)
		}
		milestone.Status = domain.MilestoneStatusPending
		milestone.RevisionCount = 0
		var err error
		created, err = tx.CreateMilestone(milestone)
		return err
	})
	if err != nil {
		return Milestone{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "milestone.created",
		Entity:     string(domain.EntityMilestone),
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
	})
	return created, res, nil
}

// SubmitMilestone lets the contractor claim completion of a pending milestone.
func (s *Service) SubmitMilestone(ctx context.Context, actor Actor, milestoneID string) (Milestone, Result, error) {
	var updated Milestone
	res, err := s.run(ctx, actor, "submit_milestone", milestoneID, func(tx Transaction) error {
		milestone, ok := tx.FindMilestone(milestoneID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityMilestone, ID: milestoneID}
		}
		project, ok := tx.FindProject(milestone.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: milestone.ProjectID}
		}
		if err := requireContractor(actor, project, "submit_milestone"); err != nil {
			return err
		}
		if !canTransitionMilestone(milestone.Status, domain.MilestoneStatusSubmitted) {
			return domain.InvalidTransitionError{Entity: domain.EntityMilestone, ID: milestoneID, From: string(milestone.Status), Event: "submit"}
		}
		var err error
		updated, err = tx.UpdateMilestone(milestoneID, func(m *Milestone) error {
			m.Status = domain.MilestoneStatusSubmitted
			return nil
		})
		return err
	})
	if err != nil {
		return Milestone{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "milestone.submitted",
		Entity:     string(domain.EntityMilestone),
		EntityID:   milestoneID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}

// RejectMilestone returns a submitted milestone to pending and increments its
// revision count.
func (s *Service) RejectMilestone(ctx context.Context, actor Actor, milestoneID string) (Milestone, Result, error) {
	var updated Milestone
	res, err := s.run(ctx, actor, "reject_milestone", milestoneID, func(tx Transaction) error {
		milestone, ok := tx.FindMilestone(milestoneID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityMilestone, ID: milestoneID}
		}
		project, ok := tx.FindProject(milestone.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: milestone.ProjectID}
		}
		if err := requireOwner(actor, project, "reject_milestone"); err != nil {
			return err
		}
		if milestone.Status != domain.MilestoneStatusSubmitted {
			return domain.InvalidTransitionError{Entity: domain.EntityMilestone, ID: milestoneID, From: string(milestone.Status), Event: "reject"}
		}
		var err error
		updated, err = tx.UpdateMilestone(milestoneID, func(m *Milestone) error {
			m.Status = domain.MilestoneStatusPending
			m.RevisionCount++
			return nil
		})
		return err
	})
	if err != nil {
		return Milestone{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "milestone.rejected",
		Entity:     string(domain.EntityMilestone),
		EntityID:   milestoneID,
		ProjectID:  updated.ProjectID,
		Fields:     map[string]any{"revision_count": updated.RevisionCount},
	})
	return updated, res, nil
}

// ApproveMilestone accepts a submitted milestone and releases its payment in
// the same transaction: escrow decreases, paid increases, a released payment
// entry appears, and the milestone lands in its paid terminal state. The pair
// of balance moves is atomic; neither happens without the other.
func (s *Service) ApproveMilestone(ctx context.Context, actor Actor, milestoneID string) (Milestone, Result, error) {
	var updated Milestone
	var released Amount
	res, err := s.run(ctx, actor, "approve_milestone", milestoneID, func(tx Transaction) error {
		milestone, ok := tx.FindMilestone(milestoneID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityMilestone, ID: milestoneID}
		}
		project, ok := tx.FindProject(milestone.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: milestone.ProjectID}
		}
		if err := requireOwner(actor, project, "approve_milestone"); err != nil {
			return err
		}
		if milestone.Status != domain.MilestoneStatusSubmitted {
			return domain.InvalidTransitionError{Entity: domain.EntityMilestone, ID: milestoneID, From: string(milestone.Status), Event: "approve"}
		}
		for _, dispute := range tx.DisputesByMilestone(milestoneID) {
			if dispute.Unresolved() {
				return domain.DisputeBlockedError{MilestoneID: milestoneID, DisputeID: dispute.ID}
			}
		}
		for _, payment := range tx.PaymentsByProject(milestone.ProjectID) {
			if payment.MilestoneID == milestoneID && !payment.EscrowHeld {
				return fmt.Errorf("milestone %s already has released payment %s", milestoneID, payment.ID)
			}
		}
		amount := milestone.PaymentAmount
		if project.EscrowBalance < amount {
			return domain.InsufficientFundsError{ProjectID: project.ID, Requested: amount, Available: project.EscrowBalance}
		}

		now := s.nowFn()
		if err := consumeEscrow(tx, milestone.ProjectID, amount, now); err != nil {
			return err
		}
		releasedAt := now
		if _, err := tx.CreatePayment(Payment{
			ProjectID:   milestone.ProjectID,
			MilestoneID: milestoneID,
			Amount:      amount,
			Kind:        domain.PaymentKindMilestone,
			Status:      domain.PaymentStatusCompleted,
			EscrowHeld:  false,
			ReleasedAt:  &releasedAt,
		}); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateMilestone(milestoneID, func(m *Milestone) error {
			m.Status = domain.MilestoneStatusPaid
			return nil
		})
		if err != nil {
			return err
		}
		released = amount
		_, err = tx.UpdateProject(milestone.ProjectID, func(p *Project) error {
			var subErr error
			p.EscrowBalance, subErr = p.EscrowBalance.Sub(amount)
			if subErr != nil {
				return subErr
			}
			p.PaidAmount = p.PaidAmount.Add(amount)
			p.CompletionPercentage = completionPercent(tx, p.ID)
			return nil
		})
		return err
	})
	if err != nil {
		return Milestone{}, res, err
	}
	recordEscrowMoved("release", released)
	s.emit(actor, events.Event{
		RoutingKey: "milestone.approved",
		Entity:     string(domain.EntityMilestone),
		EntityID:   milestoneID,
		ProjectID:  updated.ProjectID,
		Fields:     map[string]any{"released": released},
	})
	return updated, res, nil
}
