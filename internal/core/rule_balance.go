package core

import (
	"context"
	"fmt"

	"buildledger/pkg/domain"
)

// BalanceRule blocks any transaction that leaves a project's money fields
// inconsistent: negative balances, or paid plus escrow exceeding the total
// contract value.
func BalanceRule() domain.Rule {
	return balanceRule{}
}

type balanceRule struct{}

func (balanceRule) Name() string { return "project_balance" }

func (balanceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if !touchesMoney(changes) {
		return domain.Result{}, nil
	}
	res := domain.Result{}
	for _, project := range view.ListProjects() {
		if !project.TotalAmount.IsNonNegative() {
			res.Violations = append(res.Violations, balanceViolation(project.ID, fmt.Sprintf("total amount is negative (%s)", project.TotalAmount)))
		}
		if !project.PaidAmount.IsNonNegative() {
			res.Violations = append(res.Violations, balanceViolation(project.ID, fmt.Sprintf("paid amount is negative (%s)", project.PaidAmount)))
		}
		if !project.EscrowBalance.IsNonNegative() {
			res.Violations = append(res.Violations, balanceViolation(project.ID, fmt.Sprintf("escrow balance is negative (%s)", project.EscrowBalance)))
		}
		if !project.UnfundedAmount().IsNonNegative() {
			res.Violations = append(res.Violations, balanceViolation(project.ID, fmt.Sprintf("paid %s plus escrow %s exceeds total %s", project.PaidAmount, project.EscrowBalance, project.TotalAmount)))
		}
	}
	return res, nil
}

func balanceViolation(projectID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "project_balance",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityProject,
		EntityID: projectID,
	}
}

// touchesMoney reports whether the change set can affect project balances.
func touchesMoney(changes []domain.Change) bool {
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityProject, domain.EntityPayment, domain.EntityChangeOrder, domain.EntityMilestone:
			return true
		}
	}
	return false
}
