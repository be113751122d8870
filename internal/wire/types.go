// Package wire defines the remote snapshot schema and the codec rules for
// the backend's heterogeneous field encodings: money as base-10 decimal
// strings, audit timestamps as ISO-8601, business dates as date-only.
package wire

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Decimal wraps decimal.Decimal with the wire codec rules: it decodes from
// a JSON string or bare number and never fails — an unparsable value
// becomes zero. It encodes as a canonical decimal string.
type Decimal struct {
	decimal.Decimal
}

// NewDecimal wraps a decimal.Decimal for wire encoding.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{d}
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		d.Decimal = decimal.Zero
		return nil
	}
	raw := data
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			d.Decimal = decimal.Zero
			return nil
		}
		raw = []byte(s)
	}
	parsed, err := decimal.NewFromString(string(raw))
	if err != nil {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = parsed
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Decimal.String())
}

// Snapshot is one batched delta response from the get_changes procedure:
// every row changed since the requested checkpoint, grouped by entity type.
type Snapshot struct {
	Users               []User               `json:"users"`
	Accounts            []FinancialAccount   `json:"accounts"`
	AccountTransactions []AccountTransaction `json:"account_transactions"`
	Vehicles            []Vehicle            `json:"vehicles"`
	Templates           []ExpenseTemplate    `json:"templates"`
	Expenses            []Expense            `json:"expenses"`
	Sales               []Sale               `json:"sales"`
	Debts               []Debt               `json:"debts"`
	DebtPayments        []DebtPayment        `json:"debt_payments"`
	Clients             []Client             `json:"clients"`
}

// Empty reports whether the snapshot carries no changed rows at all.
func (s *Snapshot) Empty() bool {
	return len(s.Users) == 0 &&
		len(s.Accounts) == 0 &&
		len(s.AccountTransactions) == 0 &&
		len(s.Vehicles) == 0 &&
		len(s.Templates) == 0 &&
		len(s.Expenses) == 0 &&
		len(s.Sales) == 0 &&
		len(s.Debts) == 0 &&
		len(s.DebtPayments) == 0 &&
		len(s.Clients) == 0
}

// User is a dealer staff member row.
type User struct {
	ID        string  `json:"id"`
	DealerID  string  `json:"dealer_id"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"deleted_at,omitempty"`
}

// FinancialAccount is a money account row. The wire shape carries no
// created_at for accounts.
type FinancialAccount struct {
	ID          string  `json:"id"`
	DealerID    string  `json:"dealer_id"`
	AccountType string  `json:"account_type"`
	Balance     Decimal `json:"balance"`
	UpdatedAt   string  `json:"updated_at"`
	DeletedAt   *string `json:"deleted_at,omitempty"`
}

// Vehicle is an inventory row. purchase_date and sale_date are business
// dates (date-only, with timestamp fallbacks on decode).
type Vehicle struct {
	ID            string   `json:"id"`
	DealerID      string   `json:"dealer_id"`
	VIN           string   `json:"vin"`
	Make          *string  `json:"make,omitempty"`
	Model         *string  `json:"model,omitempty"`
	Year          *int     `json:"year,omitempty"`
	PurchasePrice Decimal  `json:"purchase_price"`
	PurchaseDate  string   `json:"purchase_date"`
	Status        string   `json:"status"`
	Notes         *string  `json:"notes,omitempty"`
	CreatedAt     string   `json:"created_at"`
	SalePrice     *Decimal `json:"sale_price,omitempty"`
	SaleDate      *string  `json:"sale_date,omitempty"`
	PhotoURL      *string  `json:"photo_url,omitempty"`
	AskingPrice   *Decimal `json:"asking_price,omitempty"`
	ReportURL     *string  `json:"report_url,omitempty"`
	UpdatedAt     string   `json:"updated_at"`
	DeletedAt     *string  `json:"deleted_at,omitempty"`
}

// Expense is an expense row.
type Expense struct {
	ID          string  `json:"id"`
	DealerID    string  `json:"dealer_id"`
	Amount      Decimal `json:"amount"`
	Date        string  `json:"date"`
	Description *string `json:"description,omitempty"`
	Category    string  `json:"category"`
	CreatedAt   string  `json:"created_at"`
	VehicleID   *string `json:"vehicle_id,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
	AccountID   *string `json:"account_id,omitempty"`
	UpdatedAt   string  `json:"updated_at"`
	DeletedAt   *string `json:"deleted_at,omitempty"`
}

// Sale is a vehicle sale row.
type Sale struct {
	ID            string   `json:"id"`
	DealerID      string   `json:"dealer_id"`
	VehicleID     string   `json:"vehicle_id"`
	Amount        Decimal  `json:"amount"`
	SalePrice     *Decimal `json:"sale_price,omitempty"`
	Profit        *Decimal `json:"profit,omitempty"`
	Date          string   `json:"date"`
	BuyerName     *string  `json:"buyer_name,omitempty"`
	BuyerPhone    *string  `json:"buyer_phone,omitempty"`
	PaymentMethod *string  `json:"payment_method,omitempty"`
	AccountID     *string  `json:"account_id,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	DeletedAt     *string  `json:"deleted_at,omitempty"`
}

// Client is a buyer/lead row.
type Client struct {
	ID             string  `json:"id"`
	DealerID       string  `json:"dealer_id"`
	Name           string  `json:"name"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	RequestDetails *string `json:"request_details,omitempty"`
	PreferredDate  *string `json:"preferred_date,omitempty"`
	CreatedAt      string  `json:"created_at"`
	Status         string  `json:"status"`
	VehicleID      *string `json:"vehicle_id,omitempty"`
	UpdatedAt      string  `json:"updated_at"`
	DeletedAt      *string `json:"deleted_at,omitempty"`
}

// Debt is a debt row.
type Debt struct {
	ID                string  `json:"id"`
	DealerID          string  `json:"dealer_id"`
	CounterpartyName  string  `json:"counterparty_name"`
	CounterpartyPhone *string `json:"counterparty_phone,omitempty"`
	Direction         string  `json:"direction"`
	Amount            Decimal `json:"amount"`
	Notes             *string `json:"notes,omitempty"`
	DueDate           *string `json:"due_date,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
	DeletedAt         *string `json:"deleted_at,omitempty"`
}

// DebtPayment is a debt settlement row.
type DebtPayment struct {
	ID            string  `json:"id"`
	DealerID      string  `json:"dealer_id"`
	DebtID        string  `json:"debt_id"`
	Amount        Decimal `json:"amount"`
	Date          string  `json:"date"`
	Note          *string `json:"note,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	AccountID     *string `json:"account_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	DeletedAt     *string `json:"deleted_at,omitempty"`
}

// AccountTransaction is a manual account movement row.
type AccountTransaction struct {
	ID              string  `json:"id"`
	DealerID        string  `json:"dealer_id"`
	AccountID       string  `json:"account_id"`
	TransactionType string  `json:"transaction_type"`
	Amount          Decimal `json:"amount"`
	Date            string  `json:"date"`
	Note            *string `json:"note,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	DeletedAt       *string `json:"deleted_at,omitempty"`
}

// ExpenseTemplate is a recurring-expense template row. The wire shape
// carries no created_at for templates.
type ExpenseTemplate struct {
	ID                 string   `json:"id"`
	DealerID           string   `json:"dealer_id"`
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	DefaultDescription *string  `json:"default_description,omitempty"`
	DefaultAmount      *Decimal `json:"default_amount,omitempty"`
	UpdatedAt          string   `json:"updated_at"`
	DeletedAt          *string  `json:"deleted_at,omitempty"`
}
