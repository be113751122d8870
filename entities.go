package dealersync

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dbtx abstracts *sql.DB and *sql.Tx so entity access works both inside
// and outside the merge transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// scanner abstracts the Scan method shared by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// tableSpec describes how one entity type maps onto its table. The merge
// procedure and the store glue are generic over these specs, so per-type
// behavior differences live here as data.
type tableSpec[E any] struct {
	table   string
	columns []string
	scan    func(scanner) (E, error)
	args    func(E) []any
	id      func(E) uuid.UUID
	updated func(E) time.Time
}

// entityTables maps entity types to their table names.
var entityTables = map[EntityType]string{
	EntityUser:               "users",
	EntityFinancialAccount:   "financial_accounts",
	EntityVehicle:            "vehicles",
	EntityClient:             "clients",
	EntityExpenseTemplate:    "expense_templates",
	EntityExpense:            "expenses",
	EntitySale:               "sales",
	EntityDebt:               "debts",
	EntityDebtPayment:        "debt_payments",
	EntityAccountTransaction: "account_transactions",
}

// --- column codec helpers -------------------------------------------------

const storedTimeLayout = time.RFC3339Nano

func encTime(t time.Time) string { return t.UTC().Format(storedTimeLayout) }

func encTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encTime(*t)
}

func decTime(s string) time.Time {
	t, _ := time.Parse(storedTimeLayout, s)
	return t
}

func decTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := decTime(ns.String)
	return &t
}

func encUUIDPtr(u *uuid.UUID) any {
	if u == nil {
		return nil
	}
	return u.String()
}

func decUUID(s string) uuid.UUID {
	u, _ := uuid.Parse(s)
	return u
}

func decUUIDPtr(ns sql.NullString) *uuid.UUID {
	if !ns.Valid {
		return nil
	}
	u, err := uuid.Parse(ns.String)
	if err != nil {
		return nil
	}
	return &u
}

func encDecimal(d decimal.Decimal) string { return d.String() }

func encDecimalPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decDecimalPtr(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d := decDecimal(ns.String)
	return &d
}

func encStrPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func decStrPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func encIntPtr(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func decIntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

// --- generic row operations ----------------------------------------------

func getByID[E any](q dbtx, ts tableSpec[E], id uuid.UUID) (*E, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?",
		strings.Join(ts.columns, ", "), ts.table)
	e, err := ts.scan(q.QueryRow(query, id.String()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func listAll[E any](q dbtx, ts tableSpec[E], dealerID uuid.UUID) ([]E, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE dealer_id = ?",
		strings.Join(ts.columns, ", "), ts.table)
	rows, err := q.Query(query, dealerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []E
	for rows.Next() {
		e, err := ts.scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func upsertRow[E any](q dbtx, ts tableSpec[E], e E) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ts.columns)), ", ")
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		ts.table, strings.Join(ts.columns, ", "), placeholders)
	_, err := q.Exec(query, ts.args(e)...)
	return err
}

func deleteRow(q dbtx, table string, id uuid.UUID) error {
	_, err := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id.String())
	return err
}

// idSet collects the ids present in a table for one dealer, used for
// foreign-key scrubbing during merge.
func idSet(q dbtx, table string, dealerID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := q.Query(fmt.Sprintf("SELECT id FROM %s WHERE dealer_id = ?", table), dealerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if u, err := uuid.Parse(raw); err == nil {
			ids[u] = struct{}{}
		}
	}
	return ids, rows.Err()
}

func countLive(q dbtx, table string, dealerID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE dealer_id = ? AND deleted_at IS NULL", table),
		dealerID.String(),
	).Scan(&n)
	return n, err
}

// --- per-entity table specs ----------------------------------------------

var userSpec = tableSpec[User]{
	table: "users",
	columns: []string{
		"id", "dealer_id", "name", "created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (User, error) {
		var (
			u                  User
			id, dealer         string
			created, updated   string
			deleted            sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &u.Name, &created, &updated, &deleted); err != nil {
			return u, err
		}
		u.ID = decUUID(id)
		u.DealerID = decUUID(dealer)
		u.CreatedAt = decTime(created)
		u.UpdatedAt = decTime(updated)
		u.DeletedAt = decTimePtr(deleted)
		return u, nil
	},
	args: func(u User) []any {
		return []any{
			u.ID.String(), u.DealerID.String(), u.Name,
			encTime(u.CreatedAt), encTime(u.UpdatedAt), encTimePtr(u.DeletedAt),
		}
	},
	id:      func(u User) uuid.UUID { return u.ID },
	updated: func(u User) time.Time { return u.UpdatedAt },
}

var accountSpec = tableSpec[FinancialAccount]{
	table: "financial_accounts",
	columns: []string{
		"id", "dealer_id", "account_type", "balance", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (FinancialAccount, error) {
		var (
			a          FinancialAccount
			id, dealer string
			balance    string
			updated    string
			deleted    sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &a.AccountType, &balance, &updated, &deleted); err != nil {
			return a, err
		}
		a.ID = decUUID(id)
		a.DealerID = decUUID(dealer)
		a.Balance = decDecimal(balance)
		a.UpdatedAt = decTime(updated)
		a.DeletedAt = decTimePtr(deleted)
		return a, nil
	},
	args: func(a FinancialAccount) []any {
		return []any{
			a.ID.String(), a.DealerID.String(), a.AccountType,
			encDecimal(a.Balance), encTime(a.UpdatedAt), encTimePtr(a.DeletedAt),
		}
	},
	id:      func(a FinancialAccount) uuid.UUID { return a.ID },
	updated: func(a FinancialAccount) time.Time { return a.UpdatedAt },
}

var vehicleSpec = tableSpec[Vehicle]{
	table: "vehicles",
	columns: []string{
		"id", "dealer_id", "vin", "make", "model", "year",
		"purchase_price", "purchase_date", "status", "notes",
		"sale_price", "asking_price", "sale_date", "photo_url", "report_url",
		"buyer_name", "buyer_phone", "payment_method",
		"created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (Vehicle, error) {
		var (
			v                             Vehicle
			id, dealer                    string
			mk, model                     sql.NullString
			year                          sql.NullInt64
			price, purchaseDate           string
			notes                         sql.NullString
			salePrice, askingPrice        sql.NullString
			saleDate, photoURL, reportURL sql.NullString
			buyerName, buyerPhone, paym   sql.NullString
			created, updated              string
			deleted                       sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &v.VIN, &mk, &model, &year,
			&price, &purchaseDate, &v.Status, &notes,
			&salePrice, &askingPrice, &saleDate, &photoURL, &reportURL,
			&buyerName, &buyerPhone, &paym,
			&created, &updated, &deleted); err != nil {
			return v, err
		}
		v.ID = decUUID(id)
		v.DealerID = decUUID(dealer)
		v.Make = decStrPtr(mk)
		v.Model = decStrPtr(model)
		v.Year = decIntPtr(year)
		v.PurchasePrice = decDecimal(price)
		v.PurchaseDate = decTime(purchaseDate)
		v.Notes = decStrPtr(notes)
		v.SalePrice = decDecimalPtr(salePrice)
		v.AskingPrice = decDecimalPtr(askingPrice)
		v.SaleDate = decTimePtr(saleDate)
		v.PhotoURL = decStrPtr(photoURL)
		v.ReportURL = decStrPtr(reportURL)
		v.BuyerName = decStrPtr(buyerName)
		v.BuyerPhone = decStrPtr(buyerPhone)
		v.PaymentMethod = decStrPtr(paym)
		v.CreatedAt = decTime(created)
		v.UpdatedAt = decTime(updated)
		v.DeletedAt = decTimePtr(deleted)
		return v, nil
	},
	args: func(v Vehicle) []any {
		return []any{
			v.ID.String(), v.DealerID.String(), v.VIN,
			encStrPtr(v.Make), encStrPtr(v.Model), encIntPtr(v.Year),
			encDecimal(v.PurchasePrice), encTime(v.PurchaseDate), v.Status, encStrPtr(v.Notes),
			encDecimalPtr(v.SalePrice), encDecimalPtr(v.AskingPrice), encTimePtr(v.SaleDate),
			encStrPtr(v.PhotoURL), encStrPtr(v.ReportURL),
			encStrPtr(v.BuyerName), encStrPtr(v.BuyerPhone), encStrPtr(v.PaymentMethod),
			encTime(v.CreatedAt), encTime(v.UpdatedAt), encTimePtr(v.DeletedAt),
		}
	},
	id:      func(v Vehicle) uuid.UUID { return v.ID },
	updated: func(v Vehicle) time.Time { return v.UpdatedAt },
}

var clientSpec = tableSpec[Client]{
	table: "clients",
	columns: []string{
		"id", "dealer_id", "name", "phone", "email", "notes",
		"request_details", "preferred_date", "status", "vehicle_id",
		"created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (Client, error) {
		var (
			c                    Client
			id, dealer           string
			phone, email, notes  sql.NullString
			reqDetails, prefDate sql.NullString
			vehicleID            sql.NullString
			created, updated     string
			deleted              sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &c.Name, &phone, &email, &notes,
			&reqDetails, &prefDate, &c.Status, &vehicleID,
			&created, &updated, &deleted); err != nil {
			return c, err
		}
		c.ID = decUUID(id)
		c.DealerID = decUUID(dealer)
		c.Phone = decStrPtr(phone)
		c.Email = decStrPtr(email)
		c.Notes = decStrPtr(notes)
		c.RequestDetails = decStrPtr(reqDetails)
		c.PreferredDate = decTimePtr(prefDate)
		c.VehicleID = decUUIDPtr(vehicleID)
		c.CreatedAt = decTime(created)
		c.UpdatedAt = decTime(updated)
		c.DeletedAt = decTimePtr(deleted)
		return c, nil
	},
	args: func(c Client) []any {
		return []any{
			c.ID.String(), c.DealerID.String(), c.Name,
			encStrPtr(c.Phone), encStrPtr(c.Email), encStrPtr(c.Notes),
			encStrPtr(c.RequestDetails), encTimePtr(c.PreferredDate), c.Status,
			encUUIDPtr(c.VehicleID),
			encTime(c.CreatedAt), encTime(c.UpdatedAt), encTimePtr(c.DeletedAt),
		}
	},
	id:      func(c Client) uuid.UUID { return c.ID },
	updated: func(c Client) time.Time { return c.UpdatedAt },
}

var templateSpec = tableSpec[ExpenseTemplate]{
	table: "expense_templates",
	columns: []string{
		"id", "dealer_id", "name", "category", "default_description",
		"default_amount", "vehicle_id", "user_id", "account_id",
		"updated_at", "deleted_at",
	},
	scan: func(sc scanner) (ExpenseTemplate, error) {
		var (
			t                       ExpenseTemplate
			id, dealer              string
			defDesc, defAmount      sql.NullString
			vehID, userID, acctID   sql.NullString
			updated                 string
			deleted                 sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &t.Name, &t.Category, &defDesc,
			&defAmount, &vehID, &userID, &acctID,
			&updated, &deleted); err != nil {
			return t, err
		}
		t.ID = decUUID(id)
		t.DealerID = decUUID(dealer)
		t.DefaultDescription = decStrPtr(defDesc)
		t.DefaultAmount = decDecimalPtr(defAmount)
		t.VehicleID = decUUIDPtr(vehID)
		t.UserID = decUUIDPtr(userID)
		t.AccountID = decUUIDPtr(acctID)
		t.UpdatedAt = decTime(updated)
		t.DeletedAt = decTimePtr(deleted)
		return t, nil
	},
	args: func(t ExpenseTemplate) []any {
		return []any{
			t.ID.String(), t.DealerID.String(), t.Name, t.Category,
			encStrPtr(t.DefaultDescription), encDecimalPtr(t.DefaultAmount),
			encUUIDPtr(t.VehicleID), encUUIDPtr(t.UserID), encUUIDPtr(t.AccountID),
			encTime(t.UpdatedAt), encTimePtr(t.DeletedAt),
		}
	},
	id:      func(t ExpenseTemplate) uuid.UUID { return t.ID },
	updated: func(t ExpenseTemplate) time.Time { return t.UpdatedAt },
}

var expenseSpec = tableSpec[Expense]{
	table: "expenses",
	columns: []string{
		"id", "dealer_id", "amount", "date", "description", "category",
		"vehicle_id", "user_id", "account_id",
		"created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (Expense, error) {
		var (
			e                     Expense
			id, dealer            string
			amount, date          string
			desc                  sql.NullString
			vehID, userID, acctID sql.NullString
			created, updated      string
			deleted               sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &amount, &date, &desc, &e.Category,
			&vehID, &userID, &acctID,
			&created, &updated, &deleted); err != nil {
			return e, err
		}
		e.ID = decUUID(id)
		e.DealerID = decUUID(dealer)
		e.Amount = decDecimal(amount)
		e.Date = decTime(date)
		e.Description = decStrPtr(desc)
		e.VehicleID = decUUIDPtr(vehID)
		e.UserID = decUUIDPtr(userID)
		e.AccountID = decUUIDPtr(acctID)
		e.CreatedAt = decTime(created)
		e.UpdatedAt = decTime(updated)
		e.DeletedAt = decTimePtr(deleted)
		return e, nil
	},
	args: func(e Expense) []any {
		return []any{
			e.ID.String(), e.DealerID.String(), encDecimal(e.Amount), encTime(e.Date),
			encStrPtr(e.Description), e.Category,
			encUUIDPtr(e.VehicleID), encUUIDPtr(e.UserID), encUUIDPtr(e.AccountID),
			encTime(e.CreatedAt), encTime(e.UpdatedAt), encTimePtr(e.DeletedAt),
		}
	},
	id:      func(e Expense) uuid.UUID { return e.ID },
	updated: func(e Expense) time.Time { return e.UpdatedAt },
}

var saleSpec = tableSpec[Sale]{
	table: "sales",
	columns: []string{
		"id", "dealer_id", "vehicle_id", "amount", "sale_price", "profit",
		"date", "buyer_name", "buyer_phone", "payment_method", "account_id",
		"notes", "created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (Sale, error) {
		var (
			s                 Sale
			id, dealer        string
			vehID             sql.NullString
			amount            string
			salePrice, profit sql.NullString
			date              string
			bName, bPhone     sql.NullString
			paym, acctID      sql.NullString
			notes             sql.NullString
			created, updated  string
			deleted           sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &vehID, &amount, &salePrice, &profit,
			&date, &bName, &bPhone, &paym, &acctID,
			&notes, &created, &updated, &deleted); err != nil {
			return s, err
		}
		s.ID = decUUID(id)
		s.DealerID = decUUID(dealer)
		s.VehicleID = decUUIDPtr(vehID)
		s.Amount = decDecimal(amount)
		s.SalePrice = decDecimalPtr(salePrice)
		s.Profit = decDecimalPtr(profit)
		s.Date = decTime(date)
		s.BuyerName = decStrPtr(bName)
		s.BuyerPhone = decStrPtr(bPhone)
		s.PaymentMethod = decStrPtr(paym)
		s.AccountID = decUUIDPtr(acctID)
		s.Notes = decStrPtr(notes)
		s.CreatedAt = decTime(created)
		s.UpdatedAt = decTime(updated)
		s.DeletedAt = decTimePtr(deleted)
		return s, nil
	},
	args: func(s Sale) []any {
		return []any{
			s.ID.String(), s.DealerID.String(), encUUIDPtr(s.VehicleID),
			encDecimal(s.Amount), encDecimalPtr(s.SalePrice), encDecimalPtr(s.Profit),
			encTime(s.Date), encStrPtr(s.BuyerName), encStrPtr(s.BuyerPhone),
			encStrPtr(s.PaymentMethod), encUUIDPtr(s.AccountID), encStrPtr(s.Notes),
			encTime(s.CreatedAt), encTime(s.UpdatedAt), encTimePtr(s.DeletedAt),
		}
	},
	id:      func(s Sale) uuid.UUID { return s.ID },
	updated: func(s Sale) time.Time { return s.UpdatedAt },
}

var debtSpec = tableSpec[Debt]{
	table: "debts",
	columns: []string{
		"id", "dealer_id", "counterparty_name", "counterparty_phone",
		"direction", "amount", "notes", "due_date",
		"created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (Debt, error) {
		var (
			d                Debt
			id, dealer       string
			cPhone           sql.NullString
			amount           string
			notes, dueDate   sql.NullString
			created, updated string
			deleted          sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &d.CounterpartyName, &cPhone,
			&d.Direction, &amount, &notes, &dueDate,
			&created, &updated, &deleted); err != nil {
			return d, err
		}
		d.ID = decUUID(id)
		d.DealerID = decUUID(dealer)
		d.CounterpartyPhone = decStrPtr(cPhone)
		d.Amount = decDecimal(amount)
		d.Notes = decStrPtr(notes)
		d.DueDate = decTimePtr(dueDate)
		d.CreatedAt = decTime(created)
		d.UpdatedAt = decTime(updated)
		d.DeletedAt = decTimePtr(deleted)
		return d, nil
	},
	args: func(d Debt) []any {
		return []any{
			d.ID.String(), d.DealerID.String(), d.CounterpartyName,
			encStrPtr(d.CounterpartyPhone), d.Direction, encDecimal(d.Amount),
			encStrPtr(d.Notes), encTimePtr(d.DueDate),
			encTime(d.CreatedAt), encTime(d.UpdatedAt), encTimePtr(d.DeletedAt),
		}
	},
	id:      func(d Debt) uuid.UUID { return d.ID },
	updated: func(d Debt) time.Time { return d.UpdatedAt },
}

var debtPaymentSpec = tableSpec[DebtPayment]{
	table: "debt_payments",
	columns: []string{
		"id", "dealer_id", "debt_id", "amount", "date", "note",
		"payment_method", "account_id",
		"created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (DebtPayment, error) {
		var (
			p                DebtPayment
			id, dealer       string
			debtID           sql.NullString
			amount, date     string
			note, paym       sql.NullString
			acctID           sql.NullString
			created, updated string
			deleted          sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &debtID, &amount, &date, &note,
			&paym, &acctID,
			&created, &updated, &deleted); err != nil {
			return p, err
		}
		p.ID = decUUID(id)
		p.DealerID = decUUID(dealer)
		p.DebtID = decUUIDPtr(debtID)
		p.Amount = decDecimal(amount)
		p.Date = decTime(date)
		p.Note = decStrPtr(note)
		p.PaymentMethod = decStrPtr(paym)
		p.AccountID = decUUIDPtr(acctID)
		p.CreatedAt = decTime(created)
		p.UpdatedAt = decTime(updated)
		p.DeletedAt = decTimePtr(deleted)
		return p, nil
	},
	args: func(p DebtPayment) []any {
		return []any{
			p.ID.String(), p.DealerID.String(), encUUIDPtr(p.DebtID),
			encDecimal(p.Amount), encTime(p.Date), encStrPtr(p.Note),
			encStrPtr(p.PaymentMethod), encUUIDPtr(p.AccountID),
			encTime(p.CreatedAt), encTime(p.UpdatedAt), encTimePtr(p.DeletedAt),
		}
	},
	id:      func(p DebtPayment) uuid.UUID { return p.ID },
	updated: func(p DebtPayment) time.Time { return p.UpdatedAt },
}

var accountTxSpec = tableSpec[AccountTransaction]{
	table: "account_transactions",
	columns: []string{
		"id", "dealer_id", "account_id", "transaction_type", "amount",
		"date", "note", "created_at", "updated_at", "deleted_at",
	},
	scan: func(sc scanner) (AccountTransaction, error) {
		var (
			t                AccountTransaction
			id, dealer       string
			acctID           sql.NullString
			amount, date     string
			note             sql.NullString
			created, updated string
			deleted          sql.NullString
		)
		if err := sc.Scan(&id, &dealer, &acctID, &t.TransactionType, &amount,
			&date, &note, &created, &updated, &deleted); err != nil {
			return t, err
		}
		t.ID = decUUID(id)
		t.DealerID = decUUID(dealer)
		t.AccountID = decUUIDPtr(acctID)
		t.Amount = decDecimal(amount)
		t.Date = decTime(date)
		t.Note = decStrPtr(note)
		t.CreatedAt = decTime(created)
		t.UpdatedAt = decTime(updated)
		t.DeletedAt = decTimePtr(deleted)
		return t, nil
	},
	args: func(t AccountTransaction) []any {
		return []any{
			t.ID.String(), t.DealerID.String(), encUUIDPtr(t.AccountID),
			t.TransactionType, encDecimal(t.Amount), encTime(t.Date),
			encStrPtr(t.Note), encTime(t.CreatedAt), encTime(t.UpdatedAt),
			encTimePtr(t.DeletedAt),
		}
	},
	id:      func(t AccountTransaction) uuid.UUID { return t.ID },
	updated: func(t AccountTransaction) time.Time { return t.UpdatedAt },
}

// --- public typed accessors ----------------------------------------------

func storeGet[E any](s *Store, ts tableSpec[E], id uuid.UUID) (*E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return getByID(s.db, ts, id)
}

func storeList[E any](s *Store, ts tableSpec[E], dealerID uuid.UUID) ([]E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return listAll(s.db, ts, dealerID)
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(id uuid.UUID) (*User, error) { return storeGet(s, userSpec, id) }

// ListUsers returns all of a dealer's users, tombstoned rows included.
func (s *Store) ListUsers(dealerID uuid.UUID) ([]User, error) {
	return storeList(s, userSpec, dealerID)
}

// GetAccount retrieves a financial account by id.
func (s *Store) GetAccount(id uuid.UUID) (*FinancialAccount, error) {
	return storeGet(s, accountSpec, id)
}

// ListAccounts returns all of a dealer's financial accounts.
func (s *Store) ListAccounts(dealerID uuid.UUID) ([]FinancialAccount, error) {
	return storeList(s, accountSpec, dealerID)
}

// GetVehicle retrieves a vehicle by id.
func (s *Store) GetVehicle(id uuid.UUID) (*Vehicle, error) { return storeGet(s, vehicleSpec, id) }

// ListVehicles returns all of a dealer's vehicles.
func (s *Store) ListVehicles(dealerID uuid.UUID) ([]Vehicle, error) {
	return storeList(s, vehicleSpec, dealerID)
}

// GetClient retrieves a client by id.
func (s *Store) GetClient(id uuid.UUID) (*Client, error) { return storeGet(s, clientSpec, id) }

// ListClients returns all of a dealer's clients.
func (s *Store) ListClients(dealerID uuid.UUID) ([]Client, error) {
	return storeList(s, clientSpec, dealerID)
}

// GetTemplate retrieves an expense template by id.
func (s *Store) GetTemplate(id uuid.UUID) (*ExpenseTemplate, error) {
	return storeGet(s, templateSpec, id)
}

// ListTemplates returns all of a dealer's expense templates.
func (s *Store) ListTemplates(dealerID uuid.UUID) ([]ExpenseTemplate, error) {
	return storeList(s, templateSpec, dealerID)
}

// GetExpense retrieves an expense by id.
func (s *Store) GetExpense(id uuid.UUID) (*Expense, error) { return storeGet(s, expenseSpec, id) }

// ListExpenses returns all of a dealer's expenses.
func (s *Store) ListExpenses(dealerID uuid.UUID) ([]Expense, error) {
	return storeList(s, expenseSpec, dealerID)
}

// GetSale retrieves a sale by id.
func (s *Store) GetSale(id uuid.UUID) (*Sale, error) { return storeGet(s, saleSpec, id) }

// ListSales returns all of a dealer's sales.
func (s *Store) ListSales(dealerID uuid.UUID) ([]Sale, error) {
	return storeList(s, saleSpec, dealerID)
}

// GetDebt retrieves a debt by id.
func (s *Store) GetDebt(id uuid.UUID) (*Debt, error) { return storeGet(s, debtSpec, id) }

// ListDebts returns all of a dealer's debts.
func (s *Store) ListDebts(dealerID uuid.UUID) ([]Debt, error) {
	return storeList(s, debtSpec, dealerID)
}

// GetDebtPayment retrieves a debt payment by id.
func (s *Store) GetDebtPayment(id uuid.UUID) (*DebtPayment, error) {
	return storeGet(s, debtPaymentSpec, id)
}

// ListDebtPayments returns all of a dealer's debt payments.
func (s *Store) ListDebtPayments(dealerID uuid.UUID) ([]DebtPayment, error) {
	return storeList(s, debtPaymentSpec, dealerID)
}

// GetAccountTransaction retrieves an account transaction by id.
func (s *Store) GetAccountTransaction(id uuid.UUID) (*AccountTransaction, error) {
	return storeGet(s, accountTxSpec, id)
}

// ListAccountTransactions returns all of a dealer's account transactions.
func (s *Store) ListAccountTransactions(dealerID uuid.UUID) ([]AccountTransaction, error) {
	return storeList(s, accountTxSpec, dealerID)
}

// CountLive returns the number of non-tombstoned rows of one entity type.
func (s *Store) CountLive(entity EntityType, dealerID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	table, ok := entityTables[entity]
	if !ok {
		return 0, ErrUnknownEntityType
	}
	return countLive(s.db, table, dealerID)
}
