package memory

import "sort"

// Read helpers over committed state ------------------------------------------

// GetProject retrieves a project by ID from committed state.
func (s *Store) GetProject(id string) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

// ListProjects returns all projects from committed state.
func (s *Store) ListProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.state.projects))
	for _, p := range s.state.projects {
		out = append(out, cloneProject(p))
	}
	return out
}

// ListMilestones returns all milestones.
func (s *Store) ListMilestones() []Milestone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Milestone, 0, len(s.state.milestones))
	for _, m := range s.state.milestones {
		out = append(out, cloneMilestone(m))
	}
	return out
}

// ListMilestonesByProject returns a project's milestones ordered by OrderNumber.
func (s *Store) ListMilestonesByProject(projectID string) []Milestone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Milestone
	for _, m := range s.state.milestones {
		if m.ProjectID == projectID {
			out = append(out, cloneMilestone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out
}

// ListPayments returns all ledger entries.
func (s *Store) ListPayments() []Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Payment, 0, len(s.state.payments))
	for _, p := range s.state.payments {
		out = append(out, clonePayment(p))
	}
	return out
}

// ListChangeOrders returns all change orders.
func (s *Store) ListChangeOrders() []ChangeOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChangeOrder, 0, len(s.state.changeOrders))
	for _, co := range s.state.changeOrders {
		out = append(out, cloneChangeOrder(co))
	}
	return out
}

// ListDisputes returns all disputes.
func (s *Store) ListDisputes() []Dispute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Dispute, 0, len(s.state.disputes))
	for _, d := range s.state.disputes {
		out = append(out, cloneDispute(d))
	}
	return out
}

// ListContracts returns all contracts.
func (s *Store) ListContracts() []Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Contract, 0, len(s.state.contracts))
	for _, c := range s.state.contracts {
		out = append(out, cloneContract(c))
	}
	return out
}

// ListScopes returns all scope-of-work versions.
func (s *Store) ListScopes() []ScopeOfWork {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ScopeOfWork, 0, len(s.state.scopes))
	for _, sw := range s.state.scopes {
		out = append(out, cloneScope(sw))
	}
	return out
}

// ListPunchListItems returns all punch-list items.
func (s *Store) ListPunchListItems() []PunchListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PunchListItem, 0, len(s.state.punchListItems))
	for _, i := range s.state.punchListItems {
		out = append(out, clonePunchListItem(i))
	}
	return out
}

// ListProgressUpdates returns all progress updates.
func (s *Store) ListProgressUpdates() []ProgressUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ProgressUpdate, 0, len(s.state.progressUpdates))
	for _, p := range s.state.progressUpdates {
		out = append(out, cloneProgressUpdate(p))
	}
	return out
}

// Collection replacement -----------------------------------------------------
//
// The sync coordinator treats remote data as authoritative per collection.
// Replace methods swap an entire bucket in one locked step so that a refresh
// of one collection never tears the rest of the state. Replacement bypasses
// the rules engine: remote state is already committed truth.

// ReplaceProjects swaps the project bucket.
func (s *Store) ReplaceProjects(records []Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]Project, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = cloneProject(r)
	}
	s.state.projects = bucket
}

// ReplaceMilestones swaps the milestone bucket.
func (s *Store) ReplaceMilestones(records []Milestone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]Milestone, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = cloneMilestone(r)
	}
	s.state.milestones = bucket
}

// ReplacePayments swaps the payment bucket.
func (s *Store) ReplacePayments(records []Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]Payment, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = clonePayment(r)
	}
	s.state.payments = bucket
}

// ReplaceChangeOrders swaps the change-order bucket.
func (s *Store) ReplaceChangeOrders(records []ChangeOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]ChangeOrder, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = cloneChangeOrder(r)
	}
	s.state.changeOrders = bucket
}

// ReplaceDisputes swaps the dispute bucket.
func (s *Store) ReplaceDisputes(records []Dispute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]Dispute, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = cloneDispute(r)
	}
	s.state.disputes = bucket
}

// ReplaceContracts swaps the contract bucket.
func (s *Store) ReplaceContracts(records []Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]Contract, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = cloneContract(r)
	}
	s.state.contracts = bucket
}

// ReplaceScopes swaps the scope-of-work bucket.
func (s *Store) ReplaceScopes(records []ScopeOfWork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]ScopeOfWork, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = cloneScope(r)
	}
	s.state.scopes = bucket
}

// ReplacePunchListItems swaps the punch-list bucket.
func (s *Store) ReplacePunchListItems(records []PunchListItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]PunchListItem, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = clonePunchListItem(r)
	}
	s.state.punchListItems = bucket
}

// ReplaceProgressUpdates swaps the progress-update bucket.
func (s *Store) ReplaceProgressUpdates(records []ProgressUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]ProgressUpdate, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		bucket[r.ID] = cloneProgressUpdate(r)
	}
	s.state.progressUpdates = bucket
}
