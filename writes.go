package dealersync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// saveEntity writes the row and its outbound upsert in one transaction, so
// a crash never leaves a local change the backend will not hear about.
func saveEntity[E any](s *Store, ts tableSpec[E], entity EntityType, e E, dealerID uuid.UUID, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertRow(tx, ts, e); err != nil {
		return fmt.Errorf("save %s: %w", entity, err)
	}
	item := QueueItem{
		ID:         newQueueID(),
		EntityType: entity,
		Operation:  OpUpsert,
		Payload:    payload,
		DealerID:   dealerID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := enqueueTx(tx, item); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteEntity tombstones the row and enqueues the outbound delete
// atomically. The row stays visible as tombstoned until the next merge
// physically removes it.
func (s *Store) deleteEntity(entity EntityType, id, dealerID uuid.UUID) error {
	table, ok := entityTables[entity]
	if !ok {
		return ErrUnknownEntityType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.Exec(
		fmt.Sprintf("UPDATE %s SET deleted_at = ?, updated_at = ? WHERE id = ? AND dealer_id = ?", table),
		encTime(now), encTime(now), id.String(), dealerID.String(),
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	item := QueueItem{
		ID:         newQueueID(),
		EntityType: entity,
		Operation:  OpDelete,
		Payload:    []byte(id.String()),
		DealerID:   dealerID,
		CreatedAt:  now,
	}
	if err := enqueueTx(tx, item); err != nil {
		return err
	}
	return tx.Commit()
}

func validateIDs(id, dealerID uuid.UUID) error {
	if id == uuid.Nil {
		return &ValidationError{Field: "id", Message: "must be set"}
	}
	if dealerID == uuid.Nil {
		return &ValidationError{Field: "dealer_id", Message: "must be set"}
	}
	return nil
}

// SaveUser upserts a user locally and queues it for delivery.
func (s *Store) SaveUser(u User) error {
	if err := validateIDs(u.ID, u.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	payload, err := json.Marshal(wireUser(u))
	if err != nil {
		return err
	}
	return saveEntity(s, userSpec, EntityUser, u, u.DealerID, payload)
}

// DeleteUser tombstones a user and queues the remote delete.
func (s *Store) DeleteUser(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityUser, id, dealerID)
}

// SaveAccount upserts a financial account locally and queues it for delivery.
func (s *Store) SaveAccount(a FinancialAccount) error {
	if err := validateIDs(a.ID, a.DealerID); err != nil {
		return err
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	payload, err := json.Marshal(wireAccount(a))
	if err != nil {
		return err
	}
	return saveEntity(s, accountSpec, EntityFinancialAccount, a, a.DealerID, payload)
}

// DeleteAccount tombstones a financial account and queues the remote delete.
func (s *Store) DeleteAccount(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityFinancialAccount, id, dealerID)
}

// SaveVehicle upserts a vehicle locally and queues it for delivery.
// Buyer details stay local; the outbound payload does not carry them.
func (s *Store) SaveVehicle(v Vehicle) error {
	if err := validateIDs(v.ID, v.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}
	payload, err := json.Marshal(wireVehicle(v))
	if err != nil {
		return err
	}
	return saveEntity(s, vehicleSpec, EntityVehicle, v, v.DealerID, payload)
}

// DeleteVehicle tombstones a vehicle and queues the remote delete.
func (s *Store) DeleteVehicle(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityVehicle, id, dealerID)
}

// SaveClient upserts a client locally and queues it for delivery.
func (s *Store) SaveClient(c Client) error {
	if err := validateIDs(c.ID, c.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	payload, err := json.Marshal(wireClient(c))
	if err != nil {
		return err
	}
	return saveEntity(s, clientSpec, EntityClient, c, c.DealerID, payload)
}

// DeleteClient tombstones a client and queues the remote delete.
func (s *Store) DeleteClient(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityClient, id, dealerID)
}

// SaveTemplate upserts an expense template locally and queues it for
// delivery. Template attributions (vehicle, user, account) stay local.
func (s *Store) SaveTemplate(t ExpenseTemplate) error {
	if err := validateIDs(t.ID, t.DealerID); err != nil {
		return err
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	payload, err := json.Marshal(wireTemplate(t))
	if err != nil {
		return err
	}
	return saveEntity(s, templateSpec, EntityExpenseTemplate, t, t.DealerID, payload)
}

// DeleteTemplate tombstones an expense template and queues the remote delete.
func (s *Store) DeleteTemplate(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityExpenseTemplate, id, dealerID)
}

// SaveExpense upserts an expense locally and queues it for delivery.
func (s *Store) SaveExpense(e Expense) error {
	if err := validateIDs(e.ID, e.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	payload, err := json.Marshal(wireExpense(e))
	if err != nil {
		return err
	}
	return saveEntity(s, expenseSpec, EntityExpense, e, e.DealerID, payload)
}

// DeleteExpense tombstones an expense and queues the remote delete.
func (s *Store) DeleteExpense(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityExpense, id, dealerID)
}

// SaveSale upserts a sale locally and queues it for delivery.
func (s *Store) SaveSale(sale Sale) error {
	if err := validateIDs(sale.ID, sale.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	if sale.UpdatedAt.IsZero() {
		sale.UpdatedAt = now
	}
	payload, err := json.Marshal(wireSale(sale))
	if err != nil {
		return err
	}
	return saveEntity(s, saleSpec, EntitySale, sale, sale.DealerID, payload)
}

// DeleteSale tombstones a sale and queues the remote delete.
func (s *Store) DeleteSale(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntitySale, id, dealerID)
}

// SaveDebt upserts a debt locally and queues it for delivery.
func (s *Store) SaveDebt(d Debt) error {
	if err := validateIDs(d.ID, d.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}
	payload, err := json.Marshal(wireDebt(d))
	if err != nil {
		return err
	}
	return saveEntity(s, debtSpec, EntityDebt, d, d.DealerID, payload)
}

// DeleteDebt tombstones a debt and queues the remote delete.
func (s *Store) DeleteDebt(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityDebt, id, dealerID)
}

// SaveDebtPayment upserts a debt payment locally and queues it for delivery.
func (s *Store) SaveDebtPayment(p DebtPayment) error {
	if err := validateIDs(p.ID, p.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	payload, err := json.Marshal(wireDebtPayment(p))
	if err != nil {
		return err
	}
	return saveEntity(s, debtPaymentSpec, EntityDebtPayment, p, p.DealerID, payload)
}

// DeleteDebtPayment tombstones a debt payment and queues the remote delete.
func (s *Store) DeleteDebtPayment(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityDebtPayment, id, dealerID)
}

// SaveAccountTransaction upserts an account transaction locally and queues
// it for delivery.
func (s *Store) SaveAccountTransaction(t AccountTransaction) error {
	if err := validateIDs(t.ID, t.DealerID); err != nil {
		return err
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	payload, err := json.Marshal(wireAccountTx(t))
	if err != nil {
		return err
	}
	return saveEntity(s, accountTxSpec, EntityAccountTransaction, t, t.DealerID, payload)
}

// DeleteAccountTransaction tombstones an account transaction and queues the
// remote delete.
func (s *Store) DeleteAccountTransaction(id, dealerID uuid.UUID) error {
	return s.deleteEntity(EntityAccountTransaction, id, dealerID)
}
