package domain

import (
	"context"
	"testing"
)

type stubView struct{ RuleView }

type namedRule struct {
	name   string
	result Result
}

func (r namedRule) Name() string { return r.name }

func (r namedRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return r.result, nil
}

func TestRulesEngineMergesResults(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(namedRule{name: "warns", result: Result{Violations: []Violation{{Rule: "warns", Severity: SeverityWarn}}}})
	engine.Register(namedRule{name: "clean"})
	engine.Register(namedRule{name: "blocks", result: Result{Violations: []Violation{{Rule: "blocks", Severity: SeverityBlock}}}})

	res, err := engine.Evaluate(context.Background(), stubView{}, []Change{{Entity: EntityProject, Action: ActionCreate}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(res.Violations))
	}
	if !res.HasBlocking() {
		t.Fatal("expected blocking result")
	}
}

func TestResultHasBlockingIgnoresWarnings(t *testing.T) {
	res := Result{Violations: []Violation{
		{Rule: "a", Severity: SeverityWarn},
		{Rule: "b", Severity: SeverityLog},
	}}
	if res.HasBlocking() {
		t.Fatal("warn and log severities must not block")
	}
}

func TestDisputeUnresolved(t *testing.T) {
	for status, want := range map[DisputeStatus]bool{
		DisputeStatusFiled:       true,
		DisputeStatusUnderReview: true,
		DisputeStatusResolved:    false,
		DisputeStatusClosed:      false,
	} {
		d := Dispute{Status: status}
		if d.Unresolved() != want {
			t.Errorf("Unresolved() for %s = %v, want %v", status, !want, want)
		}
	}
}

func TestStageRank(t *testing.T) {
	if StageRank(DisputeStageInternal) >= StageRank(DisputeStageEscalated) {
		t.Fatal("internal must rank below escalated")
	}
	if StageRank(DisputeStageEscalated) >= StageRank(DisputeStageExternal) {
		t.Fatal("escalated must rank below external")
	}
	if StageRank("bogus") != -1 {
		t.Fatal("unknown stage must rank -1")
	}
}
