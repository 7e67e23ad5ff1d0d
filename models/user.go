package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleInstitute UserRole = "institute"
	RoleAdmin     UserRole = "admin"
)

// User represents any platform actor: students who sign up themselves,
// institutes onboarded by admins, and admins.
type User struct {
	ID           string   `json:"id" gorm:"primaryKey"`
	Name         string   `json:"name" gorm:"not null"`
	Email        *string  `json:"email,omitempty" gorm:"uniqueIndex;size:100"`
	Phone        string   `json:"phone,omitempty" gorm:"size:20"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role" gorm:"size:20;not null;default:'student'"`

	// ReferralCode is held only by institute/admin accounts. The column is
	// nullable with a unique index: Postgres never treats two NULLs as equal,
	// so uniqueness is enforced only among users that actually have a code.
	ReferralCode *string `json:"referral_code,omitempty" gorm:"uniqueIndex;size:20"`

	// ReferrerCodeUsed is the raw code the user typed at signup, kept verbatim
	// for audit even when it matched nothing. Written once at creation.
	ReferrerCodeUsed string `json:"referrer_code_used,omitempty" gorm:"size:20"`

	// ReferredByID points at the owner of the matching referral code. The
	// owner's referral list is derived by querying this column — it is never
	// stored as an array on the owner.
	ReferredByID *string `json:"referred_by_id,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasReferralCode reports whether the user owns a live (non-empty) code.
func (u *User) HasReferralCode() bool {
	return u.ReferralCode != nil && *u.ReferralCode != ""
}
