package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace-payments/internal/domain"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// User is the slice of a platform account the payment engine reads.
type User struct {
	ID                  string
	Name                string
	Phone               string
	ReferredByAgentCode *string // agent code the user signed up with
	CreatedAt           time.Time
}

func NewUser(id, name, phone string, referredBy *string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(name) == "" || !ValidPhone(phone) {
		return nil, domain.ErrInvalidArgument
	}
	if referredBy != nil && strings.TrimSpace(*referredBy) == "" {
		referredBy = nil
	}
	return &User{
		ID:                  id,
		Name:                strings.TrimSpace(name),
		Phone:               FormatPhone(phone),
		ReferredByAgentCode: referredBy,
		CreatedAt:           time.Now(),
	}, nil
}
