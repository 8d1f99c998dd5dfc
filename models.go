package main

// SplitMode selects how a transaction's total is divided among participants.
type SplitMode string

const (
	ModeEqual    SplitMode = "equal"
	ModeWeights  SplitMode = "weights"
	ModeExplicit SplitMode = "explicit"
)

// Member represents a person sharing expenses within one ledger
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Transaction represents a single shared expense
type Transaction struct {
	ID string `json:"id"`
	// Total is the expense amount in minor currency units (e.g. cents).
	Total int64 `json:"total"`
	// Participants is ordered; the order breaks remainder ties when splitting.
	Participants []string  `json:"participants"`
	Mode         SplitMode `json:"mode"`
	// Weights applies in weights mode, keyed by member ID.
	Weights map[string]float64 `json:"weights,omitempty"`
	// Shares applies in explicit mode, keyed by member ID, minor units.
	Shares map[string]int64 `json:"shares,omitempty"`
	// Payer is the member credited with having paid the total.
	Payer string `json:"payer"`
	// SettledBy lists participants who already paid the payer directly;
	// they are excluded from outstanding balances.
	SettledBy []string `json:"settled_by,omitempty"`
	Note      string   `json:"note,omitempty"`
	// CreatedAt is a client-supplied unix millisecond timestamp.
	CreatedAt int64 `json:"created_at"`
}

// LedgerDocument is the full synchronized state of one tenant's ledger.
// The sync layer treats it as a single opaque unit.
type LedgerDocument struct {
	Members      []Member      `json:"members"`
	Transactions []Transaction `json:"transactions"`
}

// VersionedSnapshot is one committed state of a tenant's ledger
type VersionedSnapshot struct {
	Document LedgerDocument `json:"document"`
	Version  int64          `json:"version"`
	Etag     string         `json:"etag"`
}

// DebtEdge records one participant's share owed to the payer of a transaction
type DebtEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
	TxID   string `json:"tx_id"`
}

// Transfer is one point-to-point settlement payment
type Transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// UpdateEvent is pushed to stream subscribers after each accepted write
type UpdateEvent struct {
	Type     string         `json:"type"`
	Version  int64          `json:"version"`
	Etag     string         `json:"etag"`
	Document LedgerDocument `json:"document"`
}

// PersistedState is the on-disk and in-database shape of a ledger.
// Version is the source of truth for the derived etag.
type PersistedState struct {
	Document LedgerDocument `json:"document"`
	Version  int64          `json:"version"`
}

// normalized returns a copy of the document with nil slices replaced by
// empty ones so the JSON wire shape stays stable.
func (d LedgerDocument) normalized() LedgerDocument {
	if d.Members == nil {
		d.Members = []Member{}
	}
	if d.Transactions == nil {
		d.Transactions = []Transaction{}
	}
	return d
}
