package core

import (
	"context"
	"fmt"

	"buildledger/pkg/domain"
)

// LifecycleTransitionRule blocks illegal state transitions on stateful ledger
// entities: unknown states, exits from terminal states, and dispute stages
// moving backward.
func LifecycleTransitionRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

type lifecycleMachine struct {
	entity    domain.EntityType
	label     string
	terminal  map[string]struct{}
	valid     map[string]struct{}
	extractor func(payload any) (id string, state string, ok bool)
}

func changeRecord[T any](payload any) (T, bool) {
	v, ok := payload.(T)
	return v, ok
}

var lifecycleMachines = map[domain.EntityType]lifecycleMachine{
	domain.EntityProject: {
		entity:   domain.EntityProject,
		label:    "project",
		terminal: toSet(string(domain.ProjectStatusCompleted), string(domain.ProjectStatusCancelled)),
		valid: toSet(
			string(domain.ProjectStatusProposed),
			string(domain.ProjectStatusActive),
			string(domain.ProjectStatusCompleted),
			string(domain.ProjectStatusCancelled),
		),
		extractor: func(payload any) (string, string, bool) {
			project, ok := changeRecord[domain.Project](payload)
			if !ok {
				return "", "", false
			}
			return project.ID, string(project.Status), true
		},
	},
	domain.EntityMilestone: {
		entity:   domain.EntityMilestone,
		label:    "milestone",
		terminal: toSet(string(domain.MilestoneStatusPaid)),
		valid: toSet(
			string(domain.MilestoneStatusPending),
			string(domain.MilestoneStatusSubmitted),
			string(domain.MilestoneStatusApproved),
			string(domain.MilestoneStatusPaid),
		),
		extractor: func(payload any) (string, string, bool) {
			milestone, ok := changeRecord[domain.Milestone](payload)
			if !ok {
				return "", "", false
			}
			return milestone.ID, string(milestone.Status), true
		},
	},
	domain.EntityChangeOrder: {
		entity:   domain.EntityChangeOrder,
		label:    "change order",
		terminal: toSet(string(domain.ChangeOrderStatusRejected), string(domain.ChangeOrderStatusImplemented)),
		valid: toSet(
			string(domain.ChangeOrderStatusProposed),
			string(domain.ChangeOrderStatusApproved),
			string(domain.ChangeOrderStatusRejected),
			string(domain.ChangeOrderStatusImplemented),
		),
		extractor: func(payload any) (string, string, bool) {
			order, ok := changeRecord[domain.ChangeOrder](payload)
			if !ok {
				return "", "", false
			}
			return order.ID, string(order.Status), true
		},
	},
	domain.EntityDispute: {
		entity:   domain.EntityDispute,
		label:    "dispute",
		terminal: toSet(string(domain.DisputeStatusClosed)),
		valid: toSet(
			string(domain.DisputeStatusFiled),
			string(domain.DisputeStatusUnderReview),
			string(domain.DisputeStatusResolved),
			string(domain.DisputeStatusClosed),
		),
		extractor: func(payload any) (string, string, bool) {
			dispute, ok := changeRecord[domain.Dispute](payload)
			if !ok {
				return "", "", false
			}
			return dispute.ID, string(dispute.Status), true
		},
	},
	domain.EntityPunchListItem: {
		entity:   domain.EntityPunchListItem,
		label:    "punch list item",
		terminal: toSet(string(domain.PunchListStatusCompleted)),
		valid: toSet(
			string(domain.PunchListStatusOpen),
			string(domain.PunchListStatusCompleted),
		),
		extractor: func(payload any) (string, string, bool) {
			item, ok := changeRecord[domain.PunchListItem](payload)
			if !ok {
				return "", "", false
			}
			return item.ID, string(item.Status), true
		},
	},
}

func (lifecycleTransitionRule) Name() string { return "lifecycle_transition" }

func (lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity == domain.EntityDispute {
			res.Violations = append(res.Violations, disputeStageViolations(change)...)
		}

		machine, ok := lifecycleMachines[change.Entity]
		if !ok {
			continue
		}

		afterID, newState, ok := machine.extractor(change.After)
		if ok {
			if _, valid := machine.valid[newState]; !valid {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "lifecycle_transition",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("%s %s is set to invalid state %s", machine.label, afterID, newState),
					Entity:   machine.entity,
					EntityID: afterID,
				})
				continue
			}
		}

		beforeID, beforeState, ok := machine.extractor(change.Before)
		if !ok {
			continue
		}
		if _, ok := machine.terminal[beforeState]; !ok {
			continue
		}
		afterID, afterState, ok := machine.extractor(change.After)
		if !ok {
			continue
		}
		if afterState != beforeState {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "lifecycle_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("cannot move %s %s from terminal state %s to %s", machine.label, beforeID, beforeState, afterState),
				Entity:   machine.entity,
				EntityID: afterID,
			})
		}
	}
	return res, nil
}

// disputeStageViolations enforces that an escalation stage never moves
// backward once a dispute is updated.
func disputeStageViolations(change domain.Change) []domain.Violation {
	before, okBefore := changeRecord[domain.Dispute](change.Before)
	after, okAfter := changeRecord[domain.Dispute](change.After)
	if !okBefore || !okAfter {
		return nil
	}
	if domain.StageRank(after.Stage) < domain.StageRank(before.Stage) {
		return []domain.Violation{{
			Rule:     "lifecycle_transition",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("dispute %s stage cannot move back from %s to %s", after.ID, before.Stage, after.Stage),
			Entity:   domain.EntityDispute,
			EntityID: after.ID,
		}}
	}
	return nil
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
