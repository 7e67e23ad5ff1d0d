package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AccommodationTypePG     = "pg"
	AccommodationTypeHostel = "hostel"
	AccommodationTypeFlat   = "flat"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderAny    = "any"
)

type Accommodation struct {
	ID          string `json:"id" gorm:"primaryKey"`
	InstituteID string `json:"institute_id" gorm:"index;not null"` // owning institute/admin user
	Name        string `json:"name" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`

	City    string `json:"city" gorm:"index"`
	Area    string `json:"area"`
	Address string `json:"address"`

	AccommodationType string  `json:"accommodation_type"` // pg | hostel | flat
	Gender            string  `json:"gender" gorm:"default:'any'"`
	MonthlyRent       float64 `json:"monthly_rent" gorm:"index"`
	SecurityDeposit   float64 `json:"security_deposit"`
	Amenities         string  `json:"amenities"` // comma-separated, e.g. "wifi,laundry,meals"
	Verified          bool    `json:"verified" gorm:"default:false"`

	Photos []AccommodationPhoto `json:"photos" gorm:"foreignKey:AccommodationID"`

	// Publishing state
	Status    string     `json:"status" gorm:"default:'draft'"` // draft | scheduled | published
	PublishAt *time.Time `json:"publish_at"`                    // only used if scheduled

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

type AccommodationPhoto struct {
	ID              string `json:"id" gorm:"primaryKey"`
	AccommodationID string `json:"accommodation_id" gorm:"index"`
	URL             string `json:"url"`
	Order           int    `json:"order"`
}
