package models

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	City        string `json:"city" gorm:"index"`

	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	Registrations []EventRegistration `json:"registrations,omitempty" gorm:"foreignKey:EventID"`

	// Publishing state — shares the scheduler with accommodations
	Status    string     `json:"status" gorm:"default:'draft'"` // draft | scheduled | published
	PublishAt *time.Time `json:"publish_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// EventRegistration links a user to an event. The composite unique index
// keeps a user from registering twice for the same event.
type EventRegistration struct {
	ID      string `json:"id" gorm:"primaryKey"`
	EventID string `json:"event_id" gorm:"uniqueIndex:idx_event_user;not null"`
	UserID  string `json:"user_id" gorm:"uniqueIndex:idx_event_user;not null"`

	CreatedAt time.Time `json:"created_at"`
}
