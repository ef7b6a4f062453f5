package core

import (
	"context"
	"fmt"

	"buildledger/pkg/domain"
)

// MilestonePayoutRule requires every paid milestone to be backed by released
// milestone entries summing to its payment amount. Approval can never mark a
// milestone paid without the corresponding ledger movement.
func MilestonePayoutRule() domain.Rule {
	return milestonePayoutRule{}
}

type milestonePayoutRule struct{}

func (milestonePayoutRule) Name() string { return "milestone_payout" }

func (milestonePayoutRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if !touchesMoney(changes) {
		return domain.Result{}, nil
	}

	released := make(map[string]domain.Amount)
	for _, payment := range view.ListPayments() {
		if payment.Kind == domain.PaymentKindMilestone && !payment.EscrowHeld && payment.MilestoneID != "" {
			released[payment.MilestoneID] = released[payment.MilestoneID].Add(payment.Amount)
		}
	}

	res := domain.Result{}
	for _, milestone := range view.ListMilestones() {
		if milestone.Status != domain.MilestoneStatusPaid {
			continue
		}
		if got := released[milestone.ID]; got != milestone.PaymentAmount {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "milestone_payout",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("milestone is paid but released entries sum to %s of %s", got, milestone.PaymentAmount),
				Entity:   domain.EntityMilestone,
				EntityID: milestone.ID,
			})
		}
	}
	return res, nil
}
