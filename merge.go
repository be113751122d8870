package dealersync

import (
	"time"

	"github.com/google/uuid"

	"github.com/motorlot/dealersync/internal/wire"
)

// rowMeta is the merge-relevant header of one remote row.
type rowMeta struct {
	id       uuid.UUID
	dealerID uuid.UUID
	updated  time.Time
	deleted  bool
}

func inShield(set map[uuid.UUID]struct{}, id *uuid.UUID) bool {
	if id == nil || set == nil {
		return false
	}
	_, ok := set[*id]
	return ok
}

// mergeRows folds one entity type's remote rows into its table.
//
// Per row: rows from another dealer are ignored, rows shielded by a queued
// local delete (their own or their parent's) are skipped, tombstoned rows
// are physically deleted, and live rows win only when strictly newer than
// the local copy. Ties keep the local row, so a just-pushed local write is
// never clobbered by its own echo.
func mergeRows[R, E any](
	tx dbtx,
	ts tableSpec[E],
	rows []R,
	meta func(R) rowMeta,
	shielded func(R, rowMeta) bool,
	build func(R, *E, time.Time, refSets) E,
	dealerID uuid.UUID,
	refs refSets,
	now time.Time,
) error {
	for _, r := range rows {
		m := meta(r)
		if m.dealerID != dealerID {
			continue
		}
		if shielded(r, m) {
			continue
		}
		if m.deleted {
			if err := deleteRow(tx, ts.table, m.id); err != nil {
				return err
			}
			continue
		}

		local, err := getByID(tx, ts, m.id)
		if err != nil && err != ErrNotFound {
			return err
		}
		if local != nil && !ts.updated(*local).Before(m.updated) {
			continue
		}
		if err := upsertRow(tx, ts, build(r, local, now, refs)); err != nil {
			return err
		}
	}
	return nil
}

// ApplySnapshot merges one remote delta snapshot into the local store in a
// single transaction, walking entity types in dependency order so foreign
// keys resolve against already-merged parents. shielded carries the ids of
// rows with queued local deletes, per entity type.
func (s *Store) ApplySnapshot(snap *wire.Snapshot, dealerID uuid.UUID, shielded map[EntityType]map[uuid.UUID]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return &MergeError{Err: err}
	}
	defer tx.Rollback()

	now := time.Now()
	var refs refSets

	shieldOnly := func(entity EntityType) map[uuid.UUID]struct{} { return shielded[entity] }

	userMeta := func(r wire.User) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, userSpec, snap.Users, userMeta,
		func(_ wire.User, m rowMeta) bool { return inShield(shieldOnly(EntityUser), &m.id) },
		buildUser, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityUser, Err: err}
	}

	accountMeta := func(r wire.FinancialAccount) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, accountSpec, snap.Accounts, accountMeta,
		func(_ wire.FinancialAccount, m rowMeta) bool {
			return inShield(shieldOnly(EntityFinancialAccount), &m.id)
		},
		buildAccount, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityFinancialAccount, Err: err}
	}

	vehicleMeta := func(r wire.Vehicle) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, vehicleSpec, snap.Vehicles, vehicleMeta,
		func(_ wire.Vehicle, m rowMeta) bool { return inShield(shieldOnly(EntityVehicle), &m.id) },
		buildVehicle, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityVehicle, Err: err}
	}

	// Parents are in place; load the id sets the dependent types scrub
	// their foreign keys against.
	if refs.users, err = idSet(tx, "users", dealerID); err != nil {
		return &MergeError{Entity: EntityUser, Err: err}
	}
	if refs.accounts, err = idSet(tx, "financial_accounts", dealerID); err != nil {
		return &MergeError{Entity: EntityFinancialAccount, Err: err}
	}
	if refs.vehicles, err = idSet(tx, "vehicles", dealerID); err != nil {
		return &MergeError{Entity: EntityVehicle, Err: err}
	}

	clientMeta := func(r wire.Client) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, clientSpec, snap.Clients, clientMeta,
		func(r wire.Client, m rowMeta) bool {
			return inShield(shieldOnly(EntityClient), &m.id) ||
				inShield(shieldOnly(EntityVehicle), parseIDPtr(r.VehicleID))
		},
		buildClient, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityClient, Err: err}
	}

	templateMeta := func(r wire.ExpenseTemplate) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, templateSpec, snap.Templates, templateMeta,
		func(_ wire.ExpenseTemplate, m rowMeta) bool {
			return inShield(shieldOnly(EntityExpenseTemplate), &m.id)
		},
		buildTemplate, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityExpenseTemplate, Err: err}
	}

	expenseMeta := func(r wire.Expense) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, expenseSpec, snap.Expenses, expenseMeta,
		func(r wire.Expense, m rowMeta) bool {
			return inShield(shieldOnly(EntityExpense), &m.id) ||
				inShield(shieldOnly(EntityVehicle), parseIDPtr(r.VehicleID))
		},
		buildExpense, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityExpense, Err: err}
	}

	saleMeta := func(r wire.Sale) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, saleSpec, snap.Sales, saleMeta,
		func(r wire.Sale, m rowMeta) bool {
			return inShield(shieldOnly(EntitySale), &m.id) ||
				inShield(shieldOnly(EntityVehicle), requiredIDPtr(r.VehicleID))
		},
		buildSale, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntitySale, Err: err}
	}

	debtMeta := func(r wire.Debt) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, debtSpec, snap.Debts, debtMeta,
		func(_ wire.Debt, m rowMeta) bool { return inShield(shieldOnly(EntityDebt), &m.id) },
		buildDebt, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityDebt, Err: err}
	}

	if refs.debts, err = idSet(tx, "debts", dealerID); err != nil {
		return &MergeError{Entity: EntityDebt, Err: err}
	}

	paymentMeta := func(r wire.DebtPayment) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, debtPaymentSpec, snap.DebtPayments, paymentMeta,
		func(r wire.DebtPayment, m rowMeta) bool {
			return inShield(shieldOnly(EntityDebtPayment), &m.id) ||
				inShield(shieldOnly(EntityDebt), requiredIDPtr(r.DebtID))
		},
		buildDebtPayment, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityDebtPayment, Err: err}
	}

	txMeta := func(r wire.AccountTransaction) rowMeta {
		return rowMeta{parseID(r.ID), parseID(r.DealerID), wire.TimestampOr(r.UpdatedAt, now), r.DeletedAt != nil}
	}
	if err := mergeRows(tx, accountTxSpec, snap.AccountTransactions, txMeta,
		func(r wire.AccountTransaction, m rowMeta) bool {
			return inShield(shieldOnly(EntityAccountTransaction), &m.id) ||
				inShield(shieldOnly(EntityFinancialAccount), requiredIDPtr(r.AccountID))
		},
		buildAccountTx, dealerID, refs, now); err != nil {
		return &MergeError{Entity: EntityAccountTransaction, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &MergeError{Err: err}
	}
	return nil
}
