package models

type Order struct {
	ID        uint64   `json:"id"`
	ProductID uint64   `json:"product_id"`
	Quantity  uint64   `json:"quantity"`
	Buyer     Identity `json:"buyer"`
	Total     uint64   `json:"total"`
}

type BuyRequest struct {
	ProductID uint64 `json:"product_id"`
	Quantity  uint64 `json:"quantity"`
	PaidValue uint64 `json:"paid_value"`
}

type Withdrawal struct {
	Seller Identity `json:"seller"`
	Amount uint64   `json:"amount"`
}
