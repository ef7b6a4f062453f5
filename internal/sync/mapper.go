package sync

import (
	"encoding/json"
	"fmt"

	"buildledger/pkg/domain"
)

// The remote service predates the canonical field names, so several
// collections arrive with variant keys. Each mapper decodes the canonical
// shape plus the known variants and normalizes into the domain type. Records
// without an id are rejected.

type remoteProject struct {
	domain.Project
	Name   string         `json:"name"`
	Budget *domain.Amount `json:"budget"`
}

func mapProject(raw json.RawMessage) (domain.Project, error) {
	var rp remoteProject
	if err := json.Unmarshal(raw, &rp); err != nil {
		return domain.Project{}, err
	}
	p := rp.Project
	if p.ID == "" {
		return domain.Project{}, fmt.Errorf("project record missing id")
	}
	if p.Title == "" {
		p.Title = rp.Name
	}
	if p.TotalAmount == 0 && rp.Budget != nil {
		p.TotalAmount = *rp.Budget
	}
	if p.Status == "" {
		p.Status = domain.ProjectStatusProposed
	}
	return p, nil
}

type remoteMilestone struct {
	domain.Milestone
	Name       string         `json:"name"`
	OrderIndex *int           `json:"order_index"`
	Amount     *domain.Amount `json:"amount"`
}

func mapMilestone(raw json.RawMessage) (domain.Milestone, error) {
	var rm remoteMilestone
	if err := json.Unmarshal(raw, &rm); err != nil {
		return domain.Milestone{}, err
	}
	m := rm.Milestone
	if m.ID == "" {
		return domain.Milestone{}, fmt.Errorf("milestone record missing id")
	}
	if m.Title == "" {
		m.Title = rm.Name
	}
	if m.OrderNumber == 0 && rm.OrderIndex != nil {
		m.OrderNumber = *rm.OrderIndex
	}
	if m.PaymentAmount == 0 && rm.Amount != nil {
		m.PaymentAmount = *rm.Amount
	}
	if m.Status == "" {
		m.Status = domain.MilestoneStatusPending
	}
	return m, nil
}

func mapPayment(raw json.RawMessage) (domain.Payment, error) {
	var p domain.Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Payment{}, err
	}
	if p.ID == "" {
		return domain.Payment{}, fmt.Errorf("payment record missing id")
	}
	if p.Kind == "" {
		p.Kind = domain.PaymentKindDeposit
	}
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	return p, nil
}

func mapChangeOrder(raw json.RawMessage) (domain.ChangeOrder, error) {
	var co domain.ChangeOrder
	if err := json.Unmarshal(raw, &co); err != nil {
		return domain.ChangeOrder{}, err
	}
	if co.ID == "" {
		return domain.ChangeOrder{}, fmt.Errorf("change order record missing id")
	}
	if co.Status == "" {
		co.Status = domain.ChangeOrderStatusProposed
	}
	return co, nil
}

type remoteDispute struct {
	domain.Dispute
	RaisedBy string `json:"raised_by"`
}

func mapDispute(raw json.RawMessage) (domain.Dispute, error) {
	var rd remoteDispute
	if err := json.Unmarshal(raw, &rd); err != nil {
		return domain.Dispute{}, err
	}
	d := rd.Dispute
	if d.ID == "" {
		return domain.Dispute{}, fmt.Errorf("dispute record missing id")
	}
	if d.FiledBy == "" {
		d.FiledBy = rd.RaisedBy
	}
	if d.Status == "" {
		d.Status = domain.DisputeStatusFiled
	}
	if d.Stage == "" {
		d.Stage = domain.DisputeStageInternal
	}
	return d, nil
}

func mapContract(raw json.RawMessage) (domain.Contract, error) {
	var c domain.Contract
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Contract{}, err
	}
	if c.ID == "" {
		return domain.Contract{}, fmt.Errorf("contract record missing id")
	}
	return c, nil
}

func mapScope(raw json.RawMessage) (domain.ScopeOfWork, error) {
	var s domain.ScopeOfWork
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.ScopeOfWork{}, err
	}
	if s.ID == "" {
		return domain.ScopeOfWork{}, fmt.Errorf("scope record missing id")
	}
	if s.Version <= 0 {
		s.Version = 1
	}
	return s, nil
}

func mapPunchListItem(raw json.RawMessage) (domain.PunchListItem, error) {
	var i domain.PunchListItem
	if err := json.Unmarshal(raw, &i); err != nil {
		return domain.PunchListItem{}, err
	}
	if i.ID == "" {
		return domain.PunchListItem{}, fmt.Errorf("punch list record missing id")
	}
	if i.Status == "" {
		i.Status = domain.PunchListStatusOpen
	}
	return i, nil
}

func mapProgressUpdate(raw json.RawMessage) (domain.ProgressUpdate, error) {
	var u domain.ProgressUpdate
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.ProgressUpdate{}, err
	}
	if u.ID == "" {
		return domain.ProgressUpdate{}, fmt.Errorf("progress update record missing id")
	}
	return u, nil
}
