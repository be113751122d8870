package dealersync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motorlot/dealersync/internal/remote"
	"github.com/motorlot/dealersync/internal/wire"
)

// upsertProcedures maps entity types to their per-table sync procedures.
var upsertProcedures = map[EntityType]string{
	EntityUser:               "sync_users",
	EntityFinancialAccount:   "sync_accounts",
	EntityVehicle:            "sync_vehicles",
	EntityClient:             "sync_clients",
	EntityExpenseTemplate:    "sync_templates",
	EntityExpense:            "sync_expenses",
	EntitySale:               "sync_sales",
	EntityDebt:               "sync_debts",
	EntityDebtPayment:        "sync_debt_payments",
	EntityAccountTransaction: "sync_account_transactions",
}

// deleteProcedures maps entity types to their delete procedures. The
// backend's naming is irregular for historical reasons; these four
// "dealer"/"crm" variants are what it actually exposes.
var deleteProcedures = map[EntityType]string{
	EntityUser:               "delete_crm_dealer_users",
	EntityFinancialAccount:   "delete_crm_financial_accounts",
	EntityVehicle:            "delete_crm_vehicles",
	EntityClient:             "delete_crm_dealer_clients",
	EntityExpenseTemplate:    "delete_crm_expense_templates",
	EntityExpense:            "delete_crm_expenses",
	EntitySale:               "delete_crm_sales",
	EntityDebt:               "delete_crm_debts",
	EntityDebtPayment:        "delete_crm_debt_payments",
	EntityAccountTransaction: "delete_crm_account_transactions",
}

// clockDriftWindow is subtracted from the checkpoint on fetch so rows
// written by a peer with a slightly slow clock are not missed. Re-fetching
// a few minutes of rows is harmless: the merge is idempotent.
const clockDriftWindow = 5 * time.Minute

// Orchestrator runs sync passes: drain the outbound queue, fetch the delta
// snapshot, merge it, advance the checkpoint.
type Orchestrator struct {
	store    *Store
	client   remote.Client
	dealerID uuid.UUID
	log      *zap.Logger

	mu      sync.Mutex
	syncing bool
	state   SyncState
	subs    []chan SyncState
}

// NewOrchestrator creates a sync orchestrator for one dealer. client may be
// nil for offline mode; Sync then fails with ErrOffline.
func NewOrchestrator(store *Store, client remote.Client, dealerID uuid.UUID, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		client:   client,
		dealerID: dealerID,
		log:      log,
		state:    SyncState{Phase: PhaseIdle},
	}
}

// State returns the current sync state.
func (o *Orchestrator) State() SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe returns a channel that receives every state transition. The
// channel is buffered; a slow receiver drops transitions rather than
// blocking the sync pass.
func (o *Orchestrator) Subscribe() <-chan SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch := make(chan SyncState, 8)
	o.subs = append(o.subs, ch)
	return ch
}

func (o *Orchestrator) setState(state SyncState) {
	o.mu.Lock()
	o.state = state
	subs := o.subs
	o.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- state:
		default:
		}
	}
}

// Sync runs one full pass. A pass already in flight makes this a no-op
// returning nil: triggers are cheap and the running pass covers the caller.
func (o *Orchestrator) Sync(ctx context.Context) error {
	return o.run(ctx, false)
}

// Resync runs a pass that refetches the full history, for recovery after
// local corruption or a restored database file.
func (o *Orchestrator) Resync(ctx context.Context) error {
	return o.run(ctx, true)
}

func (o *Orchestrator) run(ctx context.Context, full bool) error {
	o.mu.Lock()
	if o.syncing {
		o.mu.Unlock()
		o.log.Debug("sync already running, trigger dropped")
		return nil
	}
	o.syncing = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.syncing = false
		outcome := o.state
		o.mu.Unlock()
		// The phase settles back to Idle but the pass result stays
		// readable for pollers.
		o.setState(SyncState{Phase: PhaseIdle, Outcome: outcome.Outcome, Message: outcome.Message})
	}()

	o.setState(SyncState{Phase: PhaseSyncing})

	err := o.pass(ctx, full)
	if err != nil {
		o.log.Warn("sync pass failed", zap.Error(err))
		o.setState(SyncState{Phase: PhaseFailure, Outcome: PhaseFailure, Message: err.Error()})
		return err
	}
	o.setState(SyncState{Phase: PhaseSuccess, Outcome: PhaseSuccess})
	return nil
}

func (o *Orchestrator) pass(ctx context.Context, full bool) error {
	if o.client == nil {
		return ErrOffline
	}

	// The checkpoint candidate is captured before the fetch so rows written
	// remotely during the pass land in the next window.
	passStart := time.Now().UTC()

	if err := o.drainQueue(ctx); err != nil {
		return err
	}

	// Rows with queued local deletes stay shielded through the merge. The
	// failed delete will retry next pass; resurrecting the row meanwhile
	// would undo the user's intent.
	shielded, err := o.store.PendingDeleteIDs(o.dealerID)
	if err != nil {
		return err
	}

	since := wire.Epoch
	if !full {
		checkpoint, err := o.store.Checkpoint()
		if err != nil {
			return err
		}
		if !checkpoint.IsZero() {
			since = checkpoint.Add(-clockDriftWindow)
		}
	}

	snap, err := o.client.FetchChanges(ctx, o.dealerID, since)
	if err != nil {
		return &FetchError{Err: err}
	}

	if snap.Empty() {
		o.log.Debug("no remote changes", zap.Time("since", since))
		return o.store.SetCheckpoint(passStart)
	}

	if err := o.store.ApplySnapshot(snap, o.dealerID, shielded); err != nil {
		return err
	}

	o.log.Info("snapshot merged",
		zap.Time("since", since),
		zap.Int("shielded_types", len(shielded)))
	return o.store.SetCheckpoint(passStart)
}

// drainQueue replays pending mutations oldest first. A failed item is
// logged and retained for the next pass; later items still go out, so one
// poisoned payload cannot dam the whole queue.
func (o *Orchestrator) drainQueue(ctx context.Context) error {
	items, err := o.store.Pending()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	delivered := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Items from another dealer are left untouched, not treated as
		// failures: the warn log stays meaningful for real rejections.
		if item.DealerID != o.dealerID {
			o.log.Debug("queue item for another dealer, left untouched",
				zap.String("item_id", item.ID),
				zap.String("entity", string(item.EntityType)))
			continue
		}
		if err := o.deliver(ctx, item); err != nil {
			o.log.Warn("queue item delivery failed, retained",
				zap.String("item_id", item.ID),
				zap.String("entity", string(item.EntityType)),
				zap.String("operation", string(item.Operation)),
				zap.Error(err))
			continue
		}
		if err := o.store.RemoveQueued(item.ID); err != nil {
			return err
		}
		delivered++
	}

	o.log.Info("queue drained",
		zap.Int("delivered", delivered),
		zap.Int("retained", len(items)-delivered))
	return nil
}

func (o *Orchestrator) deliver(ctx context.Context, item QueueItem) error {
	switch item.Operation {
	case OpUpsert:
		procedure, ok := upsertProcedures[item.EntityType]
		if !ok {
			return &ApplyError{ItemID: item.ID, EntityType: item.EntityType, Operation: item.Operation, Err: ErrUnknownEntityType}
		}
		if err := o.client.Upsert(ctx, procedure, item.Payload); err != nil {
			return &ApplyError{ItemID: item.ID, EntityType: item.EntityType, Operation: item.Operation, Err: err}
		}
	case OpDelete:
		procedure, ok := deleteProcedures[item.EntityType]
		if !ok {
			return &ApplyError{ItemID: item.ID, EntityType: item.EntityType, Operation: item.Operation, Err: ErrUnknownEntityType}
		}
		id, err := uuid.Parse(string(item.Payload))
		if err != nil {
			return &ApplyError{ItemID: item.ID, EntityType: item.EntityType, Operation: item.Operation, Err: err}
		}
		if err := o.client.Delete(ctx, procedure, id, item.DealerID); err != nil {
			return &ApplyError{ItemID: item.ID, EntityType: item.EntityType, Operation: item.Operation, Err: err}
		}
	default:
		return &ApplyError{ItemID: item.ID, EntityType: item.EntityType, Operation: item.Operation, Err: ErrUnknownEntityType}
	}
	return nil
}

// Diagnostics compares local live-row counts against the backend, without
// mutating anything. The remote side is counted from a full-history fetch;
// when that fails the local half of the report still comes back.
func (o *Orchestrator) Diagnostics(ctx context.Context) (*DiagnosticsReport, error) {
	report := &DiagnosticsReport{GeneratedAt: time.Now()}

	checkpoint, err := o.store.Checkpoint()
	if err != nil {
		return nil, err
	}
	if !checkpoint.IsZero() {
		report.LastSyncAt = &checkpoint
	}

	o.mu.Lock()
	report.Syncing = o.syncing
	o.mu.Unlock()

	summary, err := o.store.QueueSummary()
	if err != nil {
		return nil, err
	}
	report.QueueSummary = *summary

	var snap *wire.Snapshot
	if o.client == nil {
		report.RemoteFetchError = ErrOffline.Error()
	} else if snap, err = o.client.FetchChanges(ctx, o.dealerID, wire.Epoch); err != nil {
		report.RemoteFetchError = err.Error()
		snap = nil
	}

	remoteCounts := countSnapshotLive(snap)
	for _, entity := range EntityTypes() {
		local, err := o.store.CountLive(entity, o.dealerID)
		if err != nil {
			return nil, err
		}
		count := EntityCount{Entity: entity, LocalCount: local}
		if snap != nil {
			n := remoteCounts[entity]
			count.RemoteCount = &n
		}
		report.EntityCounts = append(report.EntityCounts, count)
	}
	return report, nil
}

func countSnapshotLive(snap *wire.Snapshot) map[EntityType]int {
	counts := make(map[EntityType]int)
	if snap == nil {
		return counts
	}
	for _, r := range snap.Users {
		if r.DeletedAt == nil {
			counts[EntityUser]++
		}
	}
	for _, r := range snap.Accounts {
		if r.DeletedAt == nil {
			counts[EntityFinancialAccount]++
		}
	}
	for _, r := range snap.Vehicles {
		if r.DeletedAt == nil {
			counts[EntityVehicle]++
		}
	}
	for _, r := range snap.Clients {
		if r.DeletedAt == nil {
			counts[EntityClient]++
		}
	}
	for _, r := range snap.Templates {
		if r.DeletedAt == nil {
			counts[EntityExpenseTemplate]++
		}
	}
	for _, r := range snap.Expenses {
		if r.DeletedAt == nil {
			counts[EntityExpense]++
		}
	}
	for _, r := range snap.Sales {
		if r.DeletedAt == nil {
			counts[EntitySale]++
		}
	}
	for _, r := range snap.Debts {
		if r.DeletedAt == nil {
			counts[EntityDebt]++
		}
	}
	for _, r := range snap.DebtPayments {
		if r.DeletedAt == nil {
			counts[EntityDebtPayment]++
		}
	}
	for _, r := range snap.AccountTransactions {
		if r.DeletedAt == nil {
			counts[EntityAccountTransaction]++
		}
	}
	return counts
}
