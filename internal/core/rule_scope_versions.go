package core

import (
	"context"
	"fmt"

	"buildledger/pkg/domain"
)

// ScopeVersionRule keeps scope-of-work history append-only and well formed:
// versions within a project are positive and unique.
func ScopeVersionRule() domain.Rule {
	return scopeVersionRule{}
}

type scopeVersionRule struct{}

func (scopeVersionRule) Name() string { return "scope_versions" }

func (scopeVersionRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	relevant := false
	for _, change := range changes {
		if change.Entity == domain.EntityScopeOfWork {
			relevant = true
			break
		}
	}
	if !relevant {
		return domain.Result{}, nil
	}

	res := domain.Result{}
	seen := make(map[string]map[int]string)
	for _, scope := range view.ListScopes() {
		if scope.Version <= 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "scope_versions",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("scope version %d must be positive", scope.Version),
				Entity:   domain.EntityScopeOfWork,
				EntityID: scope.ID,
			})
			continue
		}
		byVersion, ok := seen[scope.ProjectID]
		if !ok {
			byVersion = make(map[int]string)
			seen[scope.ProjectID] = byVersion
		}
		if otherID, dup := byVersion[scope.Version]; dup {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "scope_versions",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("scope version %d duplicates %s", scope.Version, otherID),
				Entity:   domain.EntityScopeOfWork,
				EntityID: scope.ID,
			})
			continue
		}
		byVersion[scope.Version] = scope.ID
	}
	return res, nil
}
