package dealersync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorlot/dealersync/internal/wire"
)

// refSets holds the ids present locally for each referenced entity type.
// Merge uses them to null out foreign keys that point at rows this client
// has never seen (and will not see in this snapshot).
type refSets struct {
	users    map[uuid.UUID]struct{}
	accounts map[uuid.UUID]struct{}
	vehicles map[uuid.UUID]struct{}
	debts    map[uuid.UUID]struct{}
}

func scrubRef(id *uuid.UUID, set map[uuid.UUID]struct{}) *uuid.UUID {
	if id == nil {
		return nil
	}
	if _, ok := set[*id]; !ok {
		return nil
	}
	return id
}

func parseID(s string) uuid.UUID {
	u, _ := uuid.Parse(s)
	return u
}

func parseIDPtr(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	u, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &u
}

// requiredIDPtr handles wire fields that are required strings but map onto
// optional local foreign keys.
func requiredIDPtr(s string) *uuid.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &u
}

func idPtrStr(u *uuid.UUID) *string {
	if u == nil {
		return nil
	}
	s := u.String()
	return &s
}

func dateOr(s string, fallback time.Time) time.Time {
	if t := wire.ParseDateOnly(s); t != nil {
		return *t
	}
	return fallback
}

func decimalPtrWire(d *decimal.Decimal) *wire.Decimal {
	if d == nil {
		return nil
	}
	w := wire.NewDecimal(*d)
	return &w
}

func decimalPtrLocal(d *wire.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := d.Decimal
	return &v
}

// --- entity to wire (outbound queue payloads) ----------------------------

func wireUser(u User) wire.User {
	return wire.User{
		ID:        u.ID.String(),
		DealerID:  u.DealerID.String(),
		Name:      u.Name,
		CreatedAt: wire.FormatTimestamp(u.CreatedAt),
		UpdatedAt: wire.FormatTimestamp(u.UpdatedAt),
		DeletedAt: wire.FormatTimestampPtr(u.DeletedAt),
	}
}

func wireAccount(a FinancialAccount) wire.FinancialAccount {
	return wire.FinancialAccount{
		ID:          a.ID.String(),
		DealerID:    a.DealerID.String(),
		AccountType: a.AccountType,
		Balance:     wire.NewDecimal(a.Balance),
		UpdatedAt:   wire.FormatTimestamp(a.UpdatedAt),
		DeletedAt:   wire.FormatTimestampPtr(a.DeletedAt),
	}
}

func wireVehicle(v Vehicle) wire.Vehicle {
	return wire.Vehicle{
		ID:            v.ID.String(),
		DealerID:      v.DealerID.String(),
		VIN:           v.VIN,
		Make:          v.Make,
		Model:         v.Model,
		Year:          v.Year,
		PurchasePrice: wire.NewDecimal(v.PurchasePrice),
		PurchaseDate:  wire.FormatDateOnly(v.PurchaseDate),
		Status:        v.Status,
		Notes:         v.Notes,
		CreatedAt:     wire.FormatTimestamp(v.CreatedAt),
		SalePrice:     decimalPtrWire(v.SalePrice),
		SaleDate:      wire.FormatDateOnlyPtr(v.SaleDate),
		PhotoURL:      v.PhotoURL,
		AskingPrice:   decimalPtrWire(v.AskingPrice),
		ReportURL:     v.ReportURL,
		UpdatedAt:     wire.FormatTimestamp(v.UpdatedAt),
		DeletedAt:     wire.FormatTimestampPtr(v.DeletedAt),
	}
}

func wireClient(c Client) wire.Client {
	return wire.Client{
		ID:             c.ID.String(),
		DealerID:       c.DealerID.String(),
		Name:           c.Name,
		Phone:          c.Phone,
		Email:          c.Email,
		Notes:          c.Notes,
		RequestDetails: c.RequestDetails,
		PreferredDate:  wire.FormatDateOnlyPtr(c.PreferredDate),
		CreatedAt:      wire.FormatTimestamp(c.CreatedAt),
		Status:         c.Status,
		VehicleID:      idPtrStr(c.VehicleID),
		UpdatedAt:      wire.FormatTimestamp(c.UpdatedAt),
		DeletedAt:      wire.FormatTimestampPtr(c.DeletedAt),
	}
}

func wireTemplate(t ExpenseTemplate) wire.ExpenseTemplate {
	return wire.ExpenseTemplate{
		ID:                 t.ID.String(),
		DealerID:           t.DealerID.String(),
		Name:               t.Name,
		Category:           t.Category,
		DefaultDescription: t.DefaultDescription,
		DefaultAmount:      decimalPtrWire(t.DefaultAmount),
		UpdatedAt:          wire.FormatTimestamp(t.UpdatedAt),
		DeletedAt:          wire.FormatTimestampPtr(t.DeletedAt),
	}
}

func wireExpense(e Expense) wire.Expense {
	return wire.Expense{
		ID:          e.ID.String(),
		DealerID:    e.DealerID.String(),
		Amount:      wire.NewDecimal(e.Amount),
		Date:        wire.FormatDateOnly(e.Date),
		Description: e.Description,
		Category:    e.Category,
		CreatedAt:   wire.FormatTimestamp(e.CreatedAt),
		VehicleID:   idPtrStr(e.VehicleID),
		UserID:      idPtrStr(e.UserID),
		AccountID:   idPtrStr(e.AccountID),
		UpdatedAt:   wire.FormatTimestamp(e.UpdatedAt),
		DeletedAt:   wire.FormatTimestampPtr(e.DeletedAt),
	}
}

func wireSale(s Sale) wire.Sale {
	var vehicleID string
	if s.VehicleID != nil {
		vehicleID = s.VehicleID.String()
	}
	return wire.Sale{
		ID:            s.ID.String(),
		DealerID:      s.DealerID.String(),
		VehicleID:     vehicleID,
		Amount:        wire.NewDecimal(s.Amount),
		SalePrice:     decimalPtrWire(s.SalePrice),
		Profit:        decimalPtrWire(s.Profit),
		Date:          wire.FormatDateOnly(s.Date),
		BuyerName:     s.BuyerName,
		BuyerPhone:    s.BuyerPhone,
		PaymentMethod: s.PaymentMethod,
		AccountID:     idPtrStr(s.AccountID),
		Notes:         s.Notes,
		CreatedAt:     wire.FormatTimestamp(s.CreatedAt),
		UpdatedAt:     wire.FormatTimestamp(s.UpdatedAt),
		DeletedAt:     wire.FormatTimestampPtr(s.DeletedAt),
	}
}

func wireDebt(d Debt) wire.Debt {
	return wire.Debt{
		ID:                d.ID.String(),
		DealerID:          d.DealerID.String(),
		CounterpartyName:  d.CounterpartyName,
		CounterpartyPhone: d.CounterpartyPhone,
		Direction:         d.Direction,
		Amount:            wire.NewDecimal(d.Amount),
		Notes:             d.Notes,
		DueDate:           wire.FormatDateOnlyPtr(d.DueDate),
		CreatedAt:         wire.FormatTimestamp(d.CreatedAt),
		UpdatedAt:         wire.FormatTimestamp(d.UpdatedAt),
		DeletedAt:         wire.FormatTimestampPtr(d.DeletedAt),
	}
}

func wireDebtPayment(p DebtPayment) wire.DebtPayment {
	var debtID string
	if p.DebtID != nil {
		debtID = p.DebtID.String()
	}
	return wire.DebtPayment{
		ID:            p.ID.String(),
		DealerID:      p.DealerID.String(),
		DebtID:        debtID,
		Amount:        wire.NewDecimal(p.Amount),
		Date:          wire.FormatDateOnly(p.Date),
		Note:          p.Note,
		PaymentMethod: p.PaymentMethod,
		AccountID:     idPtrStr(p.AccountID),
		CreatedAt:     wire.FormatTimestamp(p.CreatedAt),
		UpdatedAt:     wire.FormatTimestamp(p.UpdatedAt),
		DeletedAt:     wire.FormatTimestampPtr(p.DeletedAt),
	}
}

func wireAccountTx(t AccountTransaction) wire.AccountTransaction {
	var accountID string
	if t.AccountID != nil {
		accountID = t.AccountID.String()
	}
	return wire.AccountTransaction{
		ID:              t.ID.String(),
		DealerID:        t.DealerID.String(),
		AccountID:       accountID,
		TransactionType: t.TransactionType,
		Amount:          wire.NewDecimal(t.Amount),
		Date:            wire.FormatDateOnly(t.Date),
		Note:            t.Note,
		CreatedAt:       wire.FormatTimestamp(t.CreatedAt),
		UpdatedAt:       wire.FormatTimestamp(t.UpdatedAt),
		DeletedAt:       wire.FormatTimestampPtr(t.DeletedAt),
	}
}

// --- wire to entity (merge build step) -----------------------------------
//
// Each build function receives the prior local row (nil when the id is new
// here) so fields the wire schema does not carry survive the merge, and the
// refSets so dangling foreign keys get nulled instead of breaking joins.

func buildUser(r wire.User, _ *User, now time.Time, _ refSets) User {
	return User{
		ID:        parseID(r.ID),
		DealerID:  parseID(r.DealerID),
		Name:      r.Name,
		CreatedAt: wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt: wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt: wire.ParseTimestampPtr(r.DeletedAt),
	}
}

func buildAccount(r wire.FinancialAccount, _ *FinancialAccount, now time.Time, _ refSets) FinancialAccount {
	return FinancialAccount{
		ID:          parseID(r.ID),
		DealerID:    parseID(r.DealerID),
		AccountType: r.AccountType,
		Balance:     r.Balance.Decimal,
		UpdatedAt:   wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:   wire.ParseTimestampPtr(r.DeletedAt),
	}
}

func buildVehicle(r wire.Vehicle, local *Vehicle, now time.Time, _ refSets) Vehicle {
	v := Vehicle{
		ID:            parseID(r.ID),
		DealerID:      parseID(r.DealerID),
		VIN:           r.VIN,
		Make:          r.Make,
		Model:         r.Model,
		Year:          r.Year,
		PurchasePrice: r.PurchasePrice.Decimal,
		PurchaseDate:  dateOr(r.PurchaseDate, now),
		Status:        r.Status,
		Notes:         r.Notes,
		SalePrice:     decimalPtrLocal(r.SalePrice),
		AskingPrice:   decimalPtrLocal(r.AskingPrice),
		SaleDate:      wire.ParseDateOnlyPtr(r.SaleDate),
		PhotoURL:      r.PhotoURL,
		ReportURL:     r.ReportURL,
		CreatedAt:     wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt:     wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:     wire.ParseTimestampPtr(r.DeletedAt),
	}
	if local != nil {
		v.BuyerName = local.BuyerName
		v.BuyerPhone = local.BuyerPhone
		v.PaymentMethod = local.PaymentMethod
	}
	return v
}

func buildClient(r wire.Client, _ *Client, now time.Time, refs refSets) Client {
	return Client{
		ID:             parseID(r.ID),
		DealerID:       parseID(r.DealerID),
		Name:           r.Name,
		Phone:          r.Phone,
		Email:          r.Email,
		Notes:          r.Notes,
		RequestDetails: r.RequestDetails,
		PreferredDate:  wire.ParseDateOnlyPtr(r.PreferredDate),
		Status:         r.Status,
		VehicleID:      scrubRef(parseIDPtr(r.VehicleID), refs.vehicles),
		CreatedAt:      wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt:      wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:      wire.ParseTimestampPtr(r.DeletedAt),
	}
}

func buildTemplate(r wire.ExpenseTemplate, local *ExpenseTemplate, now time.Time, _ refSets) ExpenseTemplate {
	t := ExpenseTemplate{
		ID:                 parseID(r.ID),
		DealerID:           parseID(r.DealerID),
		Name:               r.Name,
		Category:           r.Category,
		DefaultDescription: r.DefaultDescription,
		DefaultAmount:      decimalPtrLocal(r.DefaultAmount),
		UpdatedAt:          wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:          wire.ParseTimestampPtr(r.DeletedAt),
	}
	if local != nil {
		t.VehicleID = local.VehicleID
		t.UserID = local.UserID
		t.AccountID = local.AccountID
	}
	return t
}

func buildExpense(r wire.Expense, _ *Expense, now time.Time, refs refSets) Expense {
	return Expense{
		ID:          parseID(r.ID),
		DealerID:    parseID(r.DealerID),
		Amount:      r.Amount.Decimal,
		Date:        dateOr(r.Date, now),
		Description: r.Description,
		Category:    r.Category,
		VehicleID:   scrubRef(parseIDPtr(r.VehicleID), refs.vehicles),
		UserID:      scrubRef(parseIDPtr(r.UserID), refs.users),
		AccountID:   scrubRef(parseIDPtr(r.AccountID), refs.accounts),
		CreatedAt:   wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt:   wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:   wire.ParseTimestampPtr(r.DeletedAt),
	}
}

func buildSale(r wire.Sale, _ *Sale, now time.Time, refs refSets) Sale {
	return Sale{
		ID:            parseID(r.ID),
		DealerID:      parseID(r.DealerID),
		VehicleID:     scrubRef(requiredIDPtr(r.VehicleID), refs.vehicles),
		Amount:        r.Amount.Decimal,
		SalePrice:     decimalPtrLocal(r.SalePrice),
		Profit:        decimalPtrLocal(r.Profit),
		Date:          dateOr(r.Date, now),
		BuyerName:     r.BuyerName,
		BuyerPhone:    r.BuyerPhone,
		PaymentMethod: r.PaymentMethod,
		AccountID:     scrubRef(parseIDPtr(r.AccountID), refs.accounts),
		Notes:         r.Notes,
		CreatedAt:     wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt:     wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:     wire.ParseTimestampPtr(r.DeletedAt),
	}
}

func buildDebt(r wire.Debt, _ *Debt, now time.Time, _ refSets) Debt {
	return Debt{
		ID:                parseID(r.ID),
		DealerID:          parseID(r.DealerID),
		CounterpartyName:  r.CounterpartyName,
		CounterpartyPhone: r.CounterpartyPhone,
		Direction:         r.Direction,
		Amount:            r.Amount.Decimal,
		Notes:             r.Notes,
		DueDate:           wire.ParseDateOnlyPtr(r.DueDate),
		CreatedAt:         wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt:         wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:         wire.ParseTimestampPtr(r.DeletedAt),
	}
}

func buildDebtPayment(r wire.DebtPayment, _ *DebtPayment, now time.Time, refs refSets) DebtPayment {
	return DebtPayment{
		ID:            parseID(r.ID),
		DealerID:      parseID(r.DealerID),
		DebtID:        scrubRef(requiredIDPtr(r.DebtID), refs.debts),
		Amount:        r.Amount.Decimal,
		Date:          dateOr(r.Date, now),
		Note:          r.Note,
		PaymentMethod: r.PaymentMethod,
		AccountID:     scrubRef(parseIDPtr(r.AccountID), refs.accounts),
		CreatedAt:     wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt:     wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:     wire.ParseTimestampPtr(r.DeletedAt),
	}
}

func buildAccountTx(r wire.AccountTransaction, _ *AccountTransaction, now time.Time, refs refSets) AccountTransaction {
	return AccountTransaction{
		ID:              parseID(r.ID),
		DealerID:        parseID(r.DealerID),
		AccountID:       scrubRef(requiredIDPtr(r.AccountID), refs.accounts),
		TransactionType: r.TransactionType,
		Amount:          r.Amount.Decimal,
		Date:            dateOr(r.Date, now),
		Note:            r.Note,
		CreatedAt:       wire.TimestampOr(r.CreatedAt, now),
		UpdatedAt:       wire.TimestampOr(r.UpdatedAt, now),
		DeletedAt:       wire.ParseTimestampPtr(r.DeletedAt),
	}
}
