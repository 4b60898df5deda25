package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. Deactivated users keep their rows and orders
// but can neither sign in nor place orders.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	Country      string    `json:"country" db:"country"`
	Address      string    `json:"address" db:"address"`
	City         string    `json:"city" db:"city"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Principal returns the identity this user acts as once authenticated.
func (u *User) Principal() *Principal {
	return &Principal{UserID: u.ID, IsAdmin: u.IsAdmin, IsActive: u.IsActive}
}

// UserPatch carries profile fields a user may change. Nil fields are left untouched.
type UserPatch struct {
	Email   *string
	Name    *string
	Phone   *string
	Country *string
	Address *string
	City    *string
}

func (up UserPatch) Apply(u *User) {
	if up.Email != nil {
		u.Email = *up.Email
	}
	if up.Name != nil {
		u.Name = *up.Name
	}
	if up.Phone != nil {
		u.Phone = *up.Phone
	}
	if up.Country != nil {
		u.Country = *up.Country
	}
	if up.Address != nil {
		u.Address = *up.Address
	}
	if up.City != nil {
		u.City = *up.City
	}
}

// UserProfile is a user together with the orders they placed.
type UserProfile struct {
	User   *User
	Orders []OrderSummary
}
