package models

type LoginRequest struct {
	PublicKey string `json:"public_key"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type AuthResponse struct {
	Identity Identity `json:"identity"`
	Role     Role     `json:"role"`
	Token    string   `json:"token,omitempty"`
}
