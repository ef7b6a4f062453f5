package core

import "buildledger/pkg/domain"

// Explicit transition tables consumed by commands. Commands reject an event
// whose from-state is not listed; the lifecycle rule backstops anything that
// slips through a direct store mutation.

var projectTransitions = map[domain.ProjectStatus][]domain.ProjectStatus{
	domain.ProjectStatusProposed: {domain.ProjectStatusActive, domain.ProjectStatusCancelled},
	domain.ProjectStatusActive:   {domain.ProjectStatusCompleted, domain.ProjectStatusCancelled},
}

var milestoneTransitions = map[domain.MilestoneStatus][]domain.MilestoneStatus{
	domain.MilestoneStatusPending:   {domain.MilestoneStatusSubmitted},
	domain.MilestoneStatusSubmitted: {domain.MilestoneStatusApproved, domain.MilestoneStatusPending},
	domain.MilestoneStatusApproved:  {domain.MilestoneStatusPaid},
}

var changeOrderTransitions = map[domain.ChangeOrderStatus][]domain.ChangeOrderStatus{
	domain.ChangeOrderStatusProposed: {domain.ChangeOrderStatusApproved, domain.ChangeOrderStatusRejected},
	domain.ChangeOrderStatusApproved: {domain.ChangeOrderStatusImplemented},
}

var disputeTransitions = map[domain.DisputeStatus][]domain.DisputeStatus{
	domain.DisputeStatusFiled:       {domain.DisputeStatusUnderReview},
	domain.DisputeStatusUnderReview: {domain.DisputeStatusResolved},
	domain.DisputeStatusResolved:    {domain.DisputeStatusClosed},
}

func contains[S ~string](values []S, v S) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func canTransitionProject(from, to domain.ProjectStatus) bool {
	return contains(projectTransitions[from], to)
}

func canTransitionMilestone(from, to domain.MilestoneStatus) bool {
	return contains(milestoneTransitions[from], to)
}

func canTransitionChangeOrder(from, to domain.ChangeOrderStatus) bool {
	return contains(changeOrderTransitions[from], to)
}

func canTransitionDispute(from, to domain.DisputeStatus) bool {
	return contains(disputeTransitions[from], to)
}
