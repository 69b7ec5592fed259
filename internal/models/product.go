package models

type Product struct {
	ID                uint64   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	ImageRef          string   `json:"image_ref"`
	Price             uint64   `json:"price"`
	RemainingQuantity uint64   `json:"remaining_quantity"`
	Owner             Identity `json:"owner"`
}

type ListProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageRef    string `json:"image_ref"`
	Price       uint64 `json:"price"`
	Quantity    uint64 `json:"quantity"`
}
