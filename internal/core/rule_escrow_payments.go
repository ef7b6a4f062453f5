package core

import (
	"context"
	"fmt"

	"buildledger/pkg/domain"
)

// EscrowPaymentsRule cross-checks the payment ledger against project escrow
// balances: the sum of escrow-held entries for a project must equal its
// EscrowBalance exactly. A mismatch means a command moved money without the
// matching ledger entry.
func EscrowPaymentsRule() domain.Rule {
	return escrowPaymentsRule{}
}

type escrowPaymentsRule struct{}

func (escrowPaymentsRule) Name() string { return "escrow_ledger" }

func (escrowPaymentsRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if !touchesMoney(changes) {
		return domain.Result{}, nil
	}

	held := make(map[string]domain.Amount)
	for _, payment := range view.ListPayments() {
		if payment.EscrowHeld {
			held[payment.ProjectID] = held[payment.ProjectID].Add(payment.Amount)
		}
	}

	res := domain.Result{}
	for _, project := range view.ListProjects() {
		sum := held[project.ID]
		if sum != project.EscrowBalance {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "escrow_ledger",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("escrow-held entries sum to %s but escrow balance is %s", sum, project.EscrowBalance),
				Entity:   domain.EntityProject,
				EntityID: project.ID,
			})
		}
	}
	return res, nil
}
