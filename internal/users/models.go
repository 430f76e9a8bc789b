package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleRider    Role = "RIDER"
	RoleOperator Role = "OPERATOR"
)

type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"` // hide in json
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'RIDER'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func IsValidRole(role string) bool {
	switch role {
	case string(RoleRider), string(RoleOperator):
		return true
	default:
		return false
	}
}

// ParseRole maps registration input to a role. The legacy "user" value
// is a rider; anything unrecognised falls back to rider.
func ParseRole(role string) Role {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "OPERATOR":
		return RoleOperator
	default:
		return RoleRider
	}
}
