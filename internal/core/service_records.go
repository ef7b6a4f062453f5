package core

import (
	"context"
	"fmt"

	"buildledger/internal/events"
	"buildledger/pkg/domain"
)

// CreateContract attaches an unsigned contract to a project. One per project.
func (s *Service) CreateContract(ctx context.Context, actor Actor, contract Contract) (Contract, Result, error) {
	var created Contract
	res, err := s.run(ctx, actor, "create_contract", contract.ProjectID, func(tx Transaction) error {
		project, ok := tx.FindProject(contract.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: contract.ProjectID}
		}
		if err := requireParty(actor, project, "create_contract"); err != nil {
			return err
		}
		contract.OwnerSigned = false
		contract.ContractorSigned = false
		contract.OwnerSignedAt = nil
		contract.ContractorSignedAt = nil
		contract.FullyExecutedAt = nil
		var err error
		created, err = tx.CreateContract(contract)
		return err
	})
	if err != nil {
		return Contract{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "contract.created",
		Entity:     string(domain.EntityContract),
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
	})
	return created, res, nil
}

// SignContract records the acting party's signature. FullyExecutedAt is
// stamped exactly once, when the second signature lands.
func (s *Service) SignContract(ctx context.Context, actor Actor, contractID, signature string) (Contract, Result, error) {
	var updated Contract
	res, err := s.run(ctx, actor, "sign_contract", contractID, func(tx Transaction) error {
		contract, ok := tx.FindContract(contractID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityContract, ID: contractID}
		}
		project, ok := tx.FindProject(contract.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: contract.ProjectID}
		}
		asOwner := isProjectOwner(actor, project)
		asContractor := isProjectContractor(actor, project)
		if !asOwner && !asContractor {
			return domain.UnauthorizedError{Actor: actor.ID, Command: "sign_contract"}
		}
		if (asOwner && contract.OwnerSigned) || (asContractor && contract.ContractorSigned) {
			return fmt.Errorf("contract %s already signed by %s", contractID, actor.ID)
		}
		now := s.nowFn()
		var err error
		updated, err = tx.UpdateContract(contractID, func(c *Contract) error {
			if asOwner {
				c.OwnerSigned = true
				c.OwnerSignature = signature
				c.OwnerSignedAt = &now
			} else {
				c.ContractorSigned = true
				c.ContractorSignature = signature
				c.ContractorSignedAt = &now
			}
			if c.OwnerSigned && c.ContractorSigned && c.FullyExecutedAt == nil {
				c.FullyExecutedAt = &now
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Contract{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "contract.signed",
		Entity:     string(domain.EntityContract),
		EntityID:   contractID,
		ProjectID:  updated.ProjectID,
		Fields:     map[string]any{"fully_executed": updated.FullyExecutedAt != nil},
	})
	return updated, res, nil
}

// CreateScopeOfWork appends a new scope version for a project. Prior versions
// never mutate; the version counter increments per project.
func (s *Service) CreateScopeOfWork(ctx context.Context, actor Actor, scope ScopeOfWork) (ScopeOfWork, Result, error) {
	var created ScopeOfWork
	res, err := s.run(ctx, actor, "create_scope_of_work", scope.ProjectID, func(tx Transaction) error {
		project, ok := tx.FindProject(scope.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: scope.ProjectID}
		}
		if err := requireParty(actor, project, "create_scope_of_work"); err != nil {
			return err
		}
		maxVersion := 0
		for _, existing := range tx.ScopesByProject(scope.ProjectID) {
			if existing.Version > maxVersion {
				maxVersion = existing.Version
			}
		}
		scope.Version = maxVersion + 1
		var err error
		created, err = tx.CreateScopeOfWork(scope)
		return err
	})
	if err != nil {
		return ScopeOfWork{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "scope_of_work.created",
		Entity:     string(domain.EntityScopeOfWork),
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
		Fields:     map[string]any{"version": created.Version},
	})
	return created, res, nil
}

// AddPunchListItem records an open checklist item against a project.
func (s *Service) AddPunchListItem(ctx context.Context, actor Actor, item PunchListItem) (PunchListItem, Result, error) {
	var created PunchListItem
	res, err := s.run(ctx, actor, "add_punch_list_item", item.ProjectID, func(tx Transaction) error {
		project, ok := tx.FindProject(item.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: item.ProjectID}
		}
		if err := requireParty(actor, project, "add_punch_list_item"); err != nil {
			return err
		}
		item.Status = domain.PunchListStatusOpen
		item.CompletedAt = nil
		var err error
		created, err = tx.CreatePunchListItem(item)
		return err
	})
	if err != nil {
		return PunchListItem{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "punch_list_item.created",
		Entity:     string(domain.EntityPunchListItem),
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
	})
	return created, res, nil
}

// CompletePunchListItem closes an open item, stamping CompletedAt once.
func (s *Service) CompletePunchListItem(ctx context.Context, actor Actor, itemID string) (PunchListItem, Result, error) {
	var updated PunchListItem
	res, err := s.run(ctx, actor, "complete_punch_list_item", itemID, func(tx Transaction) error {
		item, ok := tx.FindPunchListItem(itemID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityPunchListItem, ID: itemID}
		}
		project, ok := tx.FindProject(item.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: item.ProjectID}
		}
		if err := requireParty(actor, project, "complete_punch_list_item"); err != nil {
			return err
		}
		if item.Status != domain.PunchListStatusOpen {
			return domain.InvalidTransitionError{Entity: domain.EntityPunchListItem, ID: itemID, From: string(item.Status), Event: "complete"}
		}
		now := s.nowFn()
		var err error
		updated, err = tx.UpdatePunchListItem(itemID, func(i *PunchListItem) error {
			i.Status = domain.PunchListStatusCompleted
			i.CompletedAt = &now
			return nil
		})
		return err
	})
	if err != nil {
		return PunchListItem{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "punch_list_item.completed",
		Entity:     string(domain.EntityPunchListItem),
		EntityID:   itemID,
		ProjectID:  updated.ProjectID,
	})
	return updated, res, nil
}

// AddProgressUpdate appends a contractor progress note to a project.
func (s *Service) AddProgressUpdate(ctx context.Context, actor Actor, update ProgressUpdate) (ProgressUpdate, Result, error) {
	var created ProgressUpdate
	res, err := s.run(ctx, actor, "add_progress_update", update.ProjectID, func(tx Transaction) error {
		project, ok := tx.FindProject(update.ProjectID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProject, ID: update.ProjectID}
		}
		if err := requireContractor(actor, project, "add_progress_update"); err != nil {
			return err
		}
		update.AuthorID = actor.ID
		var err error
		created, err = tx.CreateProgressUpdate(update)
		return err
	})
	if err != nil {
		return ProgressUpdate{}, res, err
	}
	s.emit(actor, events.Event{
		RoutingKey: "progress_update.created",
		Entity:     string(domain.EntityProgressUpdate),
		EntityID:   created.ID,
		ProjectID:  created.ProjectID,
	})
	return created, res, nil
}
