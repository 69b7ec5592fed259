package models

import (
	"encoding/json"
	"fmt"
)

// Role is the access level of an identity. It is carried in JSON and in
// issued tokens by its String form.
type Role uint8

const (
	RoleUser Role = iota
	RoleRequested
	RoleStoreOwner
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleRequested:
		return "requested"
	case RoleStoreOwner:
		return "store_owner"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "requested":
		return RoleRequested, nil
	case "store_owner":
		return RoleStoreOwner, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUser, fmt.Errorf("unknown role %q", s)
	}
}

// CanSell reports whether the role may list products.
func (r Role) CanSell() bool {
	switch r {
	case RoleStoreOwner, RoleAdmin:
		return true
	case RoleUser, RoleRequested:
		return false
	default:
		return false
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type RequestRecord struct {
	Index    uint64   `json:"index"`
	Identity Identity `json:"identity"`
	Role     Role     `json:"role"`
}

type GrantRequest struct {
	Target string `json:"target"`
}
