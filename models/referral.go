package models

import "time"

// Referral is the attribution audit trail: one row per signup that resolved
// to a code owner. ReferredID is unique — a user can be referred at most once.
type Referral struct {
	ID         string `gorm:"primaryKey" json:"id"`
	ReferrerID string `gorm:"index;not null" json:"referrer_id"`
	ReferredID string `gorm:"uniqueIndex;not null" json:"referred_id"`

	// ReferralCodeUsed is the code as typed by the referred user.
	ReferralCodeUsed string `gorm:"not null" json:"referral_code_used"`

	CreatedAt time.Time `json:"created_at"`
}
