package core

import (
	"context"

	"buildledger/internal/events"
	"buildledger/pkg/domain"
)

// FileDispute raises a dispute over a project or one of its milestones.
// Filing never freezes the project, but approval of a referenced milestone is
// blocked while the dispute stays unresolved.
func (s *Service) FileDispute(ctx context.Context, actor Actor, dispute Dispute) (Dispute, Result, error) {
	if !dispute.AmountDisputed.IsNonNegative() {
		return Dispute{}, Result{}, domain.InvalidAmountError{Op: "file dispute", Amount: dispute.AmountDisputed}
	}
	var created Dispute
	res, err := s.run(ctx, actor, "file_dispute", dispute.ProjectID, func(tx Transaction) error {
		project, ok := tx.FindProject(dispute.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: dispute.ProjectID}
		}
		if err := requireParty(actor, project, "file_dispute"); err != nil {
			return err
		}
		dispute.FiledBy = actor.ID
		dispute.Status = domain.DisputeStatusFiled
		dispute.Stage = domain.DisputeStageInternal
		dispute.Resolution = ""
		dispute.ResolvedAt = nil
		var err error
		created, err = tx.CreateDispute(dispute)
		return err
	})
	if err != nil {
		return Dispute{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "dispute.filed",
		Entity:     string(domain.EntityDispute),
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
		Fields:     map[string]any{"milestone_id": created.MilestoneID, "amount_disputed": created.AmountDisputed},
	})
	return created, res, nil
}

// ReviewDispute moves a filed dispute into administrative review.
func (s *Service) ReviewDispute(ctx context.Context, actor Actor, disputeID string) (Dispute, Result, error) {
	if err := requireAdmin(actor, "review_dispute"); err != nil {
		return Dispute{}, Result{}, err
	}
	var updated Dispute
	res, err := s.run(ctx, actor, "review_dispute", disputeID, func(tx Transaction) error {
		dispute, ok := tx.FindDispute(disputeID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDispute, ID: disputeID}
		}
		if !canTransitionDispute(dispute.Status, domain.DisputeStatusUnderReview) {
			return domain.InvalidTransitionError{Entity: domain.EntityDispute, ID: disputeID, From: string(dispute.Status), Event: "review"}
		}
		var err error
		updated, err = tx.UpdateDispute(disputeID, func(d *Dispute) error {
			d.Status = domain.DisputeStatusUnderReview
			d.AdminAssigned = actor.ID
			return nil
		})
		return err
	})
	if err != nil {
		return Dispute{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "dispute.under_review",
		Entity:     string(domain.EntityDispute),
		EntityID:   disputeID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}

// EscalateDispute advances the resolution stage one tier. Stages only move
// forward; an external-stage dispute has nowhere left to go.
func (s *Service) EscalateDispute(ctx context.Context, actor Actor, disputeID string) (Dispute, Result, error) {
	if err := requireAdmin(actor, "escalate_dispute"); err != nil {
		return Dispute{}, Result{}, err
	}
	var updated Dispute
	res, err := s.run(ctx, actor, "escalate_dispute", disputeID, func(tx Transaction) error {
		dispute, ok := tx.FindDispute(disputeID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDispute, ID: disputeID}
		}
		if !dispute.Unresolved() {
			return domain.InvalidTransitionError{Entity: domain.EntityDispute, ID: disputeID, From: string(dispute.Status), Event: "escalate"}
		}
		var next domain.DisputeStage
		switch dispute.Stage {
		case domain.DisputeStageInternal:
			next = domain.DisputeStageEscalated
		case domain.DisputeStageEscalated:
			next = domain.DisputeStageExternal
		default:
			return domain.InvalidTransitionError{Entity: domain.EntityDispute, ID: disputeID, From: string(dispute.Stage), Event: "escalate"}
		}
		var err error
		updated, err = tx.UpdateDispute(disputeID, func(d *Dispute) error {
			d.Stage = next
			return nil
		})
		return err
	})
	if err != nil {
		return Dispute{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "dispute.escalated",
		Entity:     string(domain.EntityDispute),
		EntityID:   disputeID,
		ProjectID:  updated.ProjectID,
		Fields:     map[string]any{"stage": updated.Stage},
	})
	return updated, res, nil
}

// ResolveDispute records the resolution outcome. A resolution never moves
// money itself; any correction is a separate administrative command.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, disputeID, resolution string) (Dispute, Result, error) {
	if err := requireAdmin(actor, "resolve_dispute"); err != nil {
		return Dispute{}, Result{}, err
	}
	var updated Dispute
	res, err := s.run(ctx, actor, "resolve_dispute", disputeID, func(tx Transaction) error {
		dispute, ok := tx.FindDispute(disputeID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDispute, ID: disputeID}
		}
		if dispute.Status != domain.DisputeStatusFiled && dispute.Status != domain.DisputeStatusUnderReview {
			return domain.InvalidTransitionError{Entity: domain.EntityDispute, ID: disputeID, From: string(dispute.Status), Event: "resolve"}
		}
		now := s.nowFn()
		var err error
		updated, err = tx.UpdateDispute(disputeID, func(d *Dispute) error {
			d.Status = domain.DisputeStatusResolved
			d.Resolution = resolution
			d.ResolvedAt = &now
			return nil
		})
		return err
	})
	if err != nil {
		return Dispute{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "dispute.resolved",
		Entity:     string(domain.EntityDispute),
		EntityID:   disputeID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}

// CloseDispute archives a resolved dispute. Closed is terminal.
func (s *Service) CloseDispute(ctx context.Context, actor Actor, disputeID string) (Dispute, Result, error) {
	if err := requireAdmin(actor, "close_dispute"); err != nil {
		return Dispute{}, Result{}, err
	}
	var updated Dispute
	res, err := s.run(ctx, actor, "close_dispute", disputeID, func(tx Transaction) error {
		dispute, ok := tx.FindDispute(disputeID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDispute, ID: disputeID}
		}
		if !canTransitionDispute(dispute.Status, domain.DisputeStatusClosed) {
			return domain.InvalidTransitionError{Entity: domain.EntityDispute, ID: disputeID, From: string(dispute.Status), Event: "close"}
		}
		var err error
		updated, err = tx.UpdateDispute(disputeID, func(d *Dispute) error {
			d.Status = domain.DisputeStatusClosed
			return nil
		})
		return err
	})
	if err != nil {
		return Dispute{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "dispute.closed",
		Entity:     string(domain.EntityDispute),
		EntityID:   disputeID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}

// AddDisputeEvidence appends evidence references to an unresolved dispute.
func (s *Service) AddDisputeEvidence(ctx context.Context, actor Actor, disputeID string, evidence Evidence) (Dispute, Result, error) {
	var updated Dispute
	res, err := s.run(ctx, actor, "add_dispute_evidence", disputeID, func(tx Transaction) error {
		dispute, ok := tx.FindDispute(disputeID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDispute, ID: disputeID}
		}
		project, ok := tx.FindProject(dispute.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: dispute.ProjectID}
		}
		if err := requireParty(actor, project, "add_dispute_evidence"); err != nil {
			return err
		}
		if !dispute.Unresolved() {
			return domain.InvalidTransitionError{Entity: domain.EntityDispute, ID: disputeID, From: string(dispute.Status), Event: "add_evidence"}
		}
		var err error
		updated, err = tx.UpdateDispute(disputeID, func(d *Dispute) error {
			d.Evidence.Photos = append(d.Evidence.Photos, evidence.Photos...)
			d.Evidence.Documents = append(d.Evidence.Documents, evidence.Documents...)
			d.Evidence.Messages = append(d.Evidence.Messages, evidence.Messages...)
			return nil
		})
		return err
	})
	if err != nil {
		return Dispute{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "dispute.evidence_added",
		Entity:     string(domain.EntityDispute),
		EntityID:   disputeID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}
