package dealersync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityType identifies one of the synchronized business tables.
type EntityType string

const (
	EntityUser               EntityType = "user"
	EntityFinancialAccount   EntityType = "financial_account"
	EntityVehicle            EntityType = "vehicle"
	EntityClient             EntityType = "client"
	EntityExpenseTemplate    EntityType = "expense_template"
	EntityExpense            EntityType = "expense"
	EntitySale               EntityType = "sale"
	EntityDebt               EntityType = "debt"
	EntityDebtPayment        EntityType = "debt_payment"
	EntityAccountTransaction EntityType = "account_transaction"
)

// EntityTypes returns all entity types in merge dependency order:
// a referencing type never appears before the types it references.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityUser,
		EntityFinancialAccount,
		EntityVehicle,
		EntityClient,
		EntityExpenseTemplate,
		EntityExpense,
		EntitySale,
		EntityDebt,
		EntityDebtPayment,
		EntityAccountTransaction,
	}
}

// IsValid checks if the entity type is known.
func (t EntityType) IsValid() bool {
	for _, valid := range EntityTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Operation classifies an outbound mutation.
type Operation string

const (
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// SyncPhase enumerates the orchestrator state machine.
type SyncPhase string

const (
	PhaseIdle    SyncPhase = "idle"
	PhaseSyncing SyncPhase = "syncing"
	PhaseSuccess SyncPhase = "success"
	PhaseFailure SyncPhase = "failure"
)

// SyncState represents the current state of a sync pass. Outcome carries
// the result of the most recently finished pass, so a polling caller still
// sees Success or Failure after the phase has settled back to Idle.
type SyncState struct {
	Phase   SyncPhase
	Outcome SyncPhase // PhaseSuccess or PhaseFailure; empty before the first pass
	Message string    // failure detail, set with a failure Outcome
}

// QueueItem is one durable outbound mutation awaiting delivery.
// The ID is a ULID, so lexicographic order is creation order.
type QueueItem struct {
	ID         string
	EntityType EntityType
	Operation  Operation
	Payload    []byte // wire-shape JSON for upserts, bare UUID string for deletes
	DealerID   uuid.UUID
	CreatedAt  time.Time
}

// User is a dealer staff member who can be attributed expenses.
type User struct {
	ID        uuid.UUID
	DealerID  uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// FinancialAccount holds a money balance (cash, bank, ...).
type FinancialAccount struct {
	ID          uuid.UUID
	DealerID    uuid.UUID
	AccountType string
	Balance     decimal.Decimal
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Vehicle is a car in the dealer's inventory.
//
// BuyerName, BuyerPhone and PaymentMethod are local-only: the wire schema
// does not carry them, so the merge procedure preserves the local values.
type Vehicle struct {
	ID            uuid.UUID
	DealerID      uuid.UUID
	VIN           string
	Make          *string
	Model         *string
	Year          *int
	PurchasePrice decimal.Decimal
	PurchaseDate  time.Time
	Status        string
	Notes         *string
	SalePrice     *decimal.Decimal
	AskingPrice   *decimal.Decimal
	SaleDate      *time.Time
	PhotoURL      *string
	ReportURL     *string
	BuyerName     *string
	BuyerPhone    *string
	PaymentMethod *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Client is a prospective or actual buyer, optionally tied to a vehicle.
type Client struct {
	ID             uuid.UUID
	DealerID       uuid.UUID
	Name           string
	Phone          *string
	Email          *string
	Notes          *string
	RequestDetails *string
	PreferredDate  *time.Time
	Status         string
	VehicleID      *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// ExpenseTemplate pre-fills recurring expenses.
type ExpenseTemplate struct {
	ID                 uuid.UUID
	DealerID           uuid.UUID
	Name               string
	Category           string
	DefaultDescription *string
	DefaultAmount      *decimal.Decimal
	VehicleID          *uuid.UUID
	UserID             *uuid.UUID
	AccountID          *uuid.UUID
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// Expense is money spent, optionally attributed to a vehicle, user and account.
type Expense struct {
	ID          uuid.UUID
	DealerID    uuid.UUID
	Amount      decimal.Decimal
	Date        time.Time
	Description *string
	Category    string
	VehicleID   *uuid.UUID
	UserID      *uuid.UUID
	AccountID   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Sale records a vehicle sale.
type Sale struct {
	ID            uuid.UUID
	DealerID      uuid.UUID
	VehicleID     *uuid.UUID
	Amount        decimal.Decimal
	SalePrice     *decimal.Decimal
	Profit        *decimal.Decimal
	Date          time.Time
	BuyerName     *string
	BuyerPhone    *string
	PaymentMethod *string
	AccountID     *uuid.UUID
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Debt is money owed to or by the dealer.
type Debt struct {
	ID                uuid.UUID
	DealerID          uuid.UUID
	CounterpartyName  string
	CounterpartyPhone *string
	Direction         string
	Amount            decimal.Decimal
	Notes             *string
	DueDate           *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// DebtPayment is a partial or full settlement of a debt.
type DebtPayment struct {
	ID            uuid.UUID
	DealerID      uuid.UUID
	DebtID        *uuid.UUID
	Amount        decimal.Decimal
	Date          time.Time
	Note          *string
	PaymentMethod *string
	AccountID     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// AccountTransaction is a manual movement on a financial account.
type AccountTransaction struct {
	ID              uuid.UUID
	DealerID        uuid.UUID
	AccountID       *uuid.UUID
	TransactionType string
	Amount          decimal.Decimal
	Date            time.Time
	Note            *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// QueueSummary counts pending queue items by entity type and operation.
type QueueSummary struct {
	Total  int
	ByType map[EntityType]int
	ByOp   map[Operation]int
}

// EntityCount pairs local and remote live-row counts for diagnostics.
type EntityCount struct {
	Entity      EntityType
	LocalCount  int
	RemoteCount *int // nil when the remote fetch failed
}

// DiagnosticsReport compares local state against the remote backend.
type DiagnosticsReport struct {
	GeneratedAt      time.Time
	LastSyncAt       *time.Time
	Syncing          bool
	QueueSummary     QueueSummary
	EntityCounts     []EntityCount
	RemoteFetchError string
}

// StoreStats contains statistics about the local store.
type StoreStats struct {
	PendingQueue  int
	LastSync      time.Time
	SchemaVersion string
}
