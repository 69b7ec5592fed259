package models

import "time"

type WalletBalance struct {
	Identity      Identity  `json:"identity"`
	Amount        uint64    `json:"amount"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

type WalletHistory struct {
	ID           int64     `json:"id"`
	Identity     Identity  `json:"identity"`
	Balance      uint64    `json:"balance"`
	ChangeAmount uint64    `json:"change_amount"`
	EntrySeq     *uint64   `json:"entry_seq,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
