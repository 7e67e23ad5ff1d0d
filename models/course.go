package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CourseModeOnline = "online"
	CourseModeCampus = "campus"
)

type Course struct {
	ID          string `json:"id" gorm:"primaryKey"`
	InstituteID string `json:"institute_id" gorm:"index;not null"`
	Title       string `json:"title" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`

	DurationWeeks int     `json:"duration_weeks"`
	Fee           float64 `json:"fee"`
	Mode          string  `json:"mode" gorm:"default:'campus'"` // online | campus

	Published bool `json:"published" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
