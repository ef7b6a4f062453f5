// Package sync reconciles the local entity store against the remote
// authoritative service. Remote reads replace whole collections; remote
// failures degrade to the durable cache with a stale flag; local commits are
// written through via an at-least-once outbox.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	stdsync "sync"

	"go.uber.org/zap"

	"buildledger/internal/infra/cache"
	"buildledger/internal/infra/persistence/memory"
	"buildledger/pkg/domain"
)

// Collection names, matching the store's snapshot buckets and the remote
// service's route segments.
const (
	CollectionProjects        = "projects"
	CollectionMilestones      = "milestones"
	CollectionPayments        = "payments"
	CollectionChangeOrders    = "change_orders"
	CollectionDisputes        = "disputes"
	CollectionContracts       = "contracts"
	CollectionScopes          = "scopes_of_work"
	CollectionPunchListItems  = "punch_list_items"
	CollectionProgressUpdates = "progress_updates"
)

// Collections returns every collection in load order. Projects come first so
// referencing records land after their parent.
func Collections() []string {
	return []string{
		CollectionProjects,
		CollectionMilestones,
		CollectionPayments,
		CollectionChangeOrders,
		CollectionDisputes,
		CollectionContracts,
		CollectionScopes,
		CollectionPunchListItems,
		CollectionProgressUpdates,
	}
}

var entityCollections = map[domain.EntityType]string{
	domain.EntityProject:        CollectionProjects,
	domain.EntityMilestone:      CollectionMilestones,
	domain.EntityPayment:        CollectionPayments,
	domain.EntityChangeOrder:    CollectionChangeOrders,
	domain.EntityDispute:        CollectionDisputes,
	domain.EntityContract:       CollectionContracts,
	domain.EntityScopeOfWork:    CollectionScopes,
	domain.EntityPunchListItem:  CollectionPunchListItems,
	domain.EntityProgressUpdate: CollectionProgressUpdates,
}

// Store is the slice of the entity store the coordinator drives: full-state
// export for cache write-through and collection replacement for remote loads.
type Store interface {
	ExportState() memory.Snapshot
	ReplaceProjects([]domain.Project)
	ReplaceMilestones([]domain.Milestone)
	ReplacePayments([]domain.Payment)
	ReplaceChangeOrders([]domain.ChangeOrder)
	ReplaceDisputes([]domain.Dispute)
	ReplaceContracts([]domain.Contract)
	ReplaceScopes([]domain.ScopeOfWork)
	ReplacePunchListItems([]domain.PunchListItem)
	ReplaceProgressUpdates([]domain.ProgressUpdate)
}

// RemoteClient is the remote service surface the coordinator consumes.
type RemoteClient interface {
	ListCollection(ctx context.Context, collection string) ([]json.RawMessage, error)
	CreateRecord(ctx context.Context, collection string, payload any) error
	UpdateRecord(ctx context.Context, collection, id string, payload any) error
	DeleteRecord(ctx context.Context, collection, id string) error
}

// Coordinator owns the remote/cache/store reconciliation state.
type Coordinator struct {
	store  Store
	remote RemoteClient
	cache  cache.CollectionCache
	log    *zap.Logger
	outbox *Outbox

	mu    stdsync.Mutex
	stale map[string]bool
}

// NewCoordinator wires a coordinator. A nil logger falls back to a no-op.
func NewCoordinator(store Store, remote RemoteClient, c cache.CollectionCache, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = cache.NewMemory()
	}
	return &Coordinator{
		store:  store,
		remote: remote,
		cache:  c,
		log:    log,
		outbox: NewOutbox(),
		stale:  make(map[string]bool),
	}
}

// Outbox exposes the retry queue, mainly for tests and health reporting.
func (c *Coordinator) Outbox() *Outbox { return c.outbox }

// Stale reports whether a collection is currently served from cache.
func (c *Coordinator) Stale(collection string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale[collection]
}

// StaleCollections returns the sorted names of all stale collections.
func (c *Coordinator) StaleCollections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for name, isStale := range c.stale {
		if isStale {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Coordinator) setStale(collection string, v bool) {
	c.mu.Lock()
	c.stale[collection] = v
	c.mu.Unlock()
}

// LoadAll refreshes every collection. Remote failures degrade per collection
// and never abort the pass.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	for _, name := range Collections() {
		if err := c.LoadCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// LoadCollection refreshes one collection from the remote, or falls back to
// the cached snapshot with the stale flag set. The returned error is only for
// unknown collection names; remote unavailability is advisory.
func (c *Coordinator) LoadCollection(ctx context.Context, name string) error {
	switch name {
	case CollectionProjects:
		return loadCollection(c, ctx, name, mapProject, c.store.ReplaceProjects)
	case CollectionMilestones:
		return loadCollection(c, ctx, name, mapMilestone, c.store.ReplaceMilestones)
	case CollectionPayments:
		return loadCollection(c, ctx, name, mapPayment, c.store.ReplacePayments)
	case CollectionChangeOrders:
		return loadCollection(c, ctx, name, mapChangeOrder, c.store.ReplaceChangeOrders)
	case CollectionDisputes:
		return loadCollection(c, ctx, name, mapDispute, c.store.ReplaceDisputes)
	case CollectionContracts:
		return loadCollection(c, ctx, name, mapContract, c.store.ReplaceContracts)
	case CollectionScopes:
		return loadCollection(c, ctx, name, mapScope, c.store.ReplaceScopes)
	case CollectionPunchListItems:
		return loadCollection(c, ctx, name, mapPunchListItem, c.store.ReplacePunchListItems)
	case CollectionProgressUpdates:
		return loadCollection(c, ctx, name, mapProgressUpdate, c.store.ReplaceProgressUpdates)
	default:
		return fmt.Errorf("unknown collection %q", name)
	}
}

func loadCollection[T any](c *Coordinator, ctx context.Context, name string, mapFn func(json.RawMessage) (T, error), replace func([]T)) error {
	records, err := c.remote.ListCollection(ctx, name)
	if err != nil {
		recordRemoteFallback(name)
		c.log.Warn("remote unavailable, serving cached collection",
			zap.String("collection", name),
			zap.Error(err))
		payload, ok, cacheErr := c.cache.Read(ctx, name)
		if cacheErr != nil {
			c.log.Warn("cache read failed", zap.String("collection", name), zap.Error(cacheErr))
		} else if ok {
			var items []T
			if decodeErr := json.Unmarshal(payload, &items); decodeErr != nil {
				c.log.Warn("cached snapshot corrupt", zap.String("collection", name), zap.Error(decodeErr))
			} else {
				replace(items)
			}
		}
		c.setStale(name, true)
		return nil
	}

	items := make([]T, 0, len(records))
	for _, raw := range records {
		item, mapErr := mapFn(raw)
		if mapErr != nil {
			c.log.Warn("skipping malformed remote record",
				zap.String("collection", name),
				zap.Error(mapErr))
			continue
		}
		items = append(items, item)
	}
	replace(items)
	if payload, encErr := json.Marshal(items); encErr == nil {
		if writeErr := c.cache.Write(ctx, name, payload); writeErr != nil {
			c.log.Warn("cache write failed", zap.String("collection", name), zap.Error(writeErr))
		}
	}
	c.setStale(name, false)
	return nil
}

// Flush performs write-through for a committed change set: each change is
// pushed to the remote (or queued in the outbox on failure) and the touched
// collections are re-snapshotted into the cache. Local state is already
// committed; nothing here can roll it back.
func (c *Coordinator) Flush(ctx context.Context, changes []domain.Change) {
	touched := make(map[string]struct{})
	for _, change := range changes {
		name, ok := entityCollections[change.Entity]
		if !ok {
			continue
		}
		touched[name] = struct{}{}
		entry, ok := entryForChange(name, change)
		if !ok {
			continue
		}
		if err := c.push(ctx, entry); err != nil {
			entry.Attempts = 1
			c.outbox.Enqueue(entry)
			recordOutboxQueued(name)
			c.log.Warn("remote write deferred to outbox",
				zap.String("collection", name),
				zap.String("record_id", entry.RecordID),
				zap.Error(err))
		}
	}

	snapshot := c.store.ExportState()
	for name := range touched {
		payload, err := encodeSnapshotCollection(name, snapshot)
		if err != nil {
			c.log.Warn("snapshot encode failed", zap.String("collection", name), zap.Error(err))
			continue
		}
		if err := c.cache.Write(ctx, name, payload); err != nil {
			c.log.Warn("cache write failed", zap.String("collection", name), zap.Error(err))
		}
	}
}

// Reconcile drains the outbox and refreshes any stale collections. Scheduled
// periodically by the daemon.
func (c *Coordinator) Reconcile(ctx context.Context) {
	c.outbox.Drain(func(e Entry) error {
		return c.push(ctx, e)
	})
	for _, name := range c.StaleCollections() {
		if err := c.LoadCollection(ctx, name); err != nil {
			c.log.Warn("reconcile load failed", zap.String("collection", name), zap.Error(err))
		}
	}
}

func (c *Coordinator) push(ctx context.Context, e Entry) error {
	switch e.Action {
	case domain.ActionCreate:
		return c.remote.CreateRecord(ctx, e.Collection, e.Payload)
	case domain.ActionUpdate:
		return c.remote.UpdateRecord(ctx, e.Collection, e.RecordID, e.Payload)
	case domain.ActionDelete:
		return c.remote.DeleteRecord(ctx, e.Collection, e.RecordID)
	default:
		return fmt.Errorf("unknown outbox action %q", e.Action)
	}
}

// entryForChange builds the outbox entry for one committed change. Deletes
// carry no payload; creates and updates serialize the post-commit record.
func entryForChange(collection string, change domain.Change) (Entry, bool) {
	if change.Action == domain.ActionDelete {
		id := recordID(change.Before)
		if id == "" {
			return Entry{}, false
		}
		return Entry{Collection: collection, Action: change.Action, RecordID: id}, true
	}
	id := recordID(change.After)
	if id == "" {
		return Entry{}, false
	}
	payload, err := json.Marshal(change.After)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Collection: collection, Action: change.Action, RecordID: id, Payload: payload}, true
}

func recordID(payload any) string {
	switch v := payload.(type) {
	case domain.Project:
		return v.ID
	case domain.Milestone:
		return v.ID
	case domain.Payment:
		return v.ID
	case domain.ChangeOrder:
		return v.ID
	case domain.Dispute:
		return v.ID
	case domain.Contract:
		return v.ID
	case domain.ScopeOfWork:
		return v.ID
	case domain.PunchListItem:
		return v.ID
	case domain.ProgressUpdate:
		return v.ID
	default:
		return ""
	}
}

// encodeSnapshotCollection marshals one committed collection as the sorted
// slice format shared with remote loads and cache fallbacks.
func encodeSnapshotCollection(name string, snapshot memory.Snapshot) ([]byte, error) {
	switch name {
	case CollectionProjects:
		return json.Marshal(sortedValues(snapshot.Projects, func(v domain.Project) string { return v.ID }))
	case CollectionMilestones:
		return json.Marshal(sortedValues(snapshot.Milestones, func(v domain.Milestone) string { return v.ID }))
	case CollectionPayments:
		return json.Marshal(sortedValues(snapshot.Payments, func(v domain.Payment) string { return v.ID }))
	case CollectionChangeOrders:
		return json.Marshal(sortedValues(snapshot.ChangeOrders, func(v domain.ChangeOrder) string { return v.ID }))
	case CollectionDisputes:
		return json.Marshal(sortedValues(snapshot.Disputes, func(v domain.Dispute) string { return v.ID }))
	case CollectionContracts:
		return json.Marshal(sortedValues(snapshot.Contracts, func(v domain.Contract) string { return v.ID }))
	case CollectionScopes:
		return json.Marshal(sortedValues(snapshot.Scopes, func(v domain.ScopeOfWork) string { return v.ID }))
	case CollectionPunchListItems:
		return json.Marshal(sortedValues(snapshot.PunchListItems, func(v domain.PunchListItem) string { return v.ID }))
	case CollectionProgressUpdates:
		return json.Marshal(sortedValues(snapshot.ProgressUpdates, func(v domain.ProgressUpdate) string { return v.ID }))
	default:
		return nil, fmt.Errorf("unknown collection %q", name)
	}
}

func sortedValues[T any](m map[string]T, id func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}
