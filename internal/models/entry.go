package models

import "time"

type EntryType string

const (
	EntryGenesis          EntryType = "genesis"
	EntryRequestAuthority EntryType = "request_authority"
	EntryGrantAuthority   EntryType = "grant_authority"
	EntryListProduct      EntryType = "list_product"
	EntryBuy              EntryType = "buy"
	EntryWithdraw         EntryType = "withdraw"
	EntryToggleBreaker    EntryType = "toggle_breaker"
)

// Entry is one committed ledger operation. Replaying the entries of a
// journal in sequence order rebuilds the ledger state.
type Entry struct {
	Seq         uint64    `json:"seq"`
	Type        EntryType `json:"type"`
	Caller      Identity  `json:"caller"`
	Target      Identity  `json:"target,omitempty"`
	ProductID   uint64    `json:"product_id,omitempty"`
	OrderID     uint64    `json:"order_id,omitempty"`
	Quantity    uint64    `json:"quantity,omitempty"`
	Amount      uint64    `json:"amount,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty"`
	Active      bool      `json:"active,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}
