package core

import (
	"context"

	"buildledger/internal/events"
	"buildledger/pkg/domain"
)

// CreateChangeOrder proposes a scope and cost modification. Either party may
// propose; the cost impact is a signed delta and must be nonzero.
func (s *Service) CreateChangeOrder(ctx context.Context, actor Actor, order ChangeOrder) (ChangeOrder, Result, error) {
	if order.CostImpact == 0 {
		return ChangeOrder{}, Result{}, domain.InvalidAmountError{Op: "create change order", Amount: order.CostImpact}
	}
	var created ChangeOrder
	res, err := s.run(ctx, actor, "create_change_order", order.ProjectID, func(tx Transaction) error {
		project, ok := tx.FindProject(order.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: order.ProjectID}
		}
		if err := requireParty(actor, project, "create_change_order"); err != nil {
			return err
		}
		order.ProposedBy = actor.ID
		order.Status = domain.ChangeOrderStatusProposed
		order.ApprovedAt = nil
		var err error
		created, err = tx.CreateChangeOrder(order)
		return err
	})
	if err != nil {
		return ChangeOrder{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "change_order.created",
		Entity:     string(domain.EntityChangeOrder),
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
		Fields:     map[string]any{"cost_impact": created.CostImpact},
	})
	return created, res, nil
}

// counterpartyOf checks that the actor is the project party who did not
// propose the change order. Admins always pass.
func counterpartyOf(actor Actor, project Project, order ChangeOrder, command string) error {
	if isAdmin(actor) {
		return nil
	}
	if isProjectParty(actor, project) && actor.ID != order.ProposedBy {
		return nil
	}
	return domain.UnauthorizedError{Actor: actor.ID, Command: command}
}

// ApproveChangeOrder records counterparty acceptance. Balances do not move
// until implementation.
func (s *Service) ApproveChangeOrder(ctx context.Context, actor Actor, orderID string) (ChangeOrder, Result, error) {
	var updated ChangeOrder
	res, err := s.run(ctx, actor, "approve_change_order", orderID, func(tx Transaction) error {
		order, ok := tx.FindChangeOrder(orderID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityChangeOrder, ID: orderID}
		}
		project, ok := tx.FindProject(order.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: order.ProjectID}
		}
		if err := counterpartyOf(actor, project, order, "approve_change_order"); err != nil {
			return err
		}
		if !canTransitionChangeOrder(order.Status, domain.ChangeOrderStatusApproved) {
			return domain.InvalidTransitionError{Entity: domain.EntityChangeOrder, ID: orderID, From: string(order.Status), Event: "approve"}
		}
		now := s.nowFn()
		var err error
		updated, err = tx.UpdateChangeOrder(orderID, func(co *ChangeOrder) error {
			co.Status = domain.ChangeOrderStatusApproved
			co.ApprovedAt = &now
			return nil
		})
		return err
	})
	if err != nil {
		return ChangeOrder{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "change_order.approved",
		Entity:     string(domain.EntityChangeOrder),
		EntityID:   orderID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}

// RejectChangeOrder declines a proposal. Rejected is terminal.
func (s *Service) RejectChangeOrder(ctx context.Context, actor Actor, orderID string) (ChangeOrder, Result, error) {
	var updated ChangeOrder
	res, err := s.run(ctx, actor, "reject_change_order", orderID, func(tx Transaction) error {
		order, ok := tx.FindChangeOrder(orderID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityChangeOrder, ID: orderID}
		}
		project, ok := tx.FindProject(order.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: order.ProjectID}
		}
		if err := counterpartyOf(actor, project, order, "reject_change_order"); err != nil {
			return err
		}
		if !canTransitionChangeOrder(order.Status, domain.ChangeOrderStatusRejected) {
			return domain.InvalidTransitionError{Entity: domain.EntityChangeOrder, ID: orderID, From: string(order.Status), Event: "reject"}
		}
		var err error
		updated, err = tx.UpdateChangeOrder(orderID, func(co *ChangeOrder) error {
			co.Status = domain.ChangeOrderStatusRejected
			return nil
		})
		return err
	})
	if err != nil {
		return ChangeOrder{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "change_order.rejected",
		Entity:     string(domain.EntityChangeOrder),
		EntityID:   orderID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}

// ImplementChangeOrder applies an approved change order to the project
// balances: total and escrow move by the cost impact together or not at all.
// A negative impact that escrow cannot absorb fails with InsufficientFunds
// and leaves the order approved for retry after more funds are deposited.
func (s *Service) ImplementChangeOrder(ctx context.Context, actor Actor, orderID string) (ChangeOrder, Result, error) {
	var updated ChangeOrder
	res, err := s.run(ctx, actor, "implement_change_order", orderID, func(tx Transaction) error {
		order, ok := tx.FindChangeOrder(orderID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityChangeOrder, ID: orderID}
		}
		project, ok := tx.FindProject(order.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: order.ProjectID}
		}
		if err := requireOwner(actor, project, "implement_change_order"); err != nil {
			return err
		}
		if !canTransitionChangeOrder(order.Status, domain.ChangeOrderStatusImplemented) {
			return domain.InvalidTransitionError{Entity: domain.EntityChangeOrder, ID: orderID, From: string(order.Status), Event: "implement"}
		}

		now := s.nowFn()
		delta := order.CostImpact
		if delta > 0 {
			if _, err := tx.CreatePayment(Payment{
				ProjectID:  order.ProjectID,
				Amount:     delta,
				Kind:       domain.PaymentKindAdjustment,
				Status:     domain.PaymentStatusPending,
				EscrowHeld: true,
			}); err != nil {
				return err
			}
		} else {
			reduction := -delta
			if project.EscrowBalance < reduction {
				return domain.InsufficientFundsError{ProjectID: project.ID, Requested: reduction, Available: project.EscrowBalance}
			}
			if err := consumeEscrow(tx, order.ProjectID, reduction, now); err != nil {
				return err
			}
			released := now
			if _, err := tx.CreatePayment(Payment{
				ProjectID:  order.ProjectID,
				Amount:     reduction,
				Kind:       domain.PaymentKindRefund,
				Status:     domain.PaymentStatusCompleted,
				EscrowHeld: false,
				ReleasedAt: &released,
			}); err != nil {
				return err
			}
		}

		if _, err := tx.UpdateProject(order.ProjectID, func(p *Project) error {
			p.TotalAmount = p.TotalAmount.Add(delta)
			p.EscrowBalance = p.EscrowBalance.Add(delta)
			return nil
		}); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateChangeOrder(orderID, func(co *ChangeOrder) error {
			co.Status = domain.ChangeOrderStatusImplemented
			return nil
		})
		return err
	})
	if err != nil {
		return ChangeOrder{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "change_order.implemented",
		Entity:     string(domain.EntityChangeOrder),
		EntityID:   orderID,
		ProjectID:  updated.ProjectID,
		Fields:     map[string]any{"cost_impact": updated.CostImpact},
	})
	return updated, res, nil
}
