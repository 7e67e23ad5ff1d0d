package services

import (
	"errors"
	"strings"

	"heystudents-backend/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserStore is the persistence contract the referral engine works against.
// The production implementation is GORM/Postgres; tests use an in-memory one.
type UserStore interface {
	FindByID(id string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	// FindByReferralCode does an exact match on the stored (normalized) code.
	FindByReferralCode(code string) (*models.User, error)
	// Create persists a new user, translating storage-level unique violations
	// to ErrEmailTaken / ErrCodeTaken.
	Create(u *models.User) error
	// Update persists changed fields, with the same conflict translation.
	Update(u *models.User) error
	// ReferralsOf returns the users attributed to ownerID, oldest first.
	// The list is derived from referred_by_id — it is never stored.
	ReferralsOf(ownerID string) ([]models.User, error)
	// CodeInUse is the generator's advisory pre-check. The unique index on
	// users.referral_code is what actually closes the check-then-act race.
	CodeInUse(code string) (bool, error)
	// RecordAttribution appends an audit row for a resolved referral.
	RecordAttribution(ref *models.Referral) error
}

type GormUserStore struct {
	DB *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{DB: db}
}

func (s *GormUserStore) FindByID(id string) (*models.User, error) {
	var u models.User
	if err := s.DB.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) FindByEmail(email string) (*models.User, error) {
	var u models.User
	if err := s.DB.First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) FindByReferralCode(code string) (*models.User, error) {
	var u models.User
	if err := s.DB.First(&u, "referral_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) Create(u *models.User) error {
	return translateConflict(s.DB.Create(u).Error)
}

func (s *GormUserStore) Update(u *models.User) error {
	return translateConflict(s.DB.Save(u).Error)
}

func (s *GormUserStore) ReferralsOf(ownerID string) ([]models.User, error) {
	var users []models.User
	err := s.DB.Where("referred_by_id = ?", ownerID).
		Order("created_at asc").
		Find(&users).Error
	return users, err
}

func (s *GormUserStore) CodeInUse(code string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.User{}).
		Where("referral_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (s *GormUserStore) RecordAttribution(ref *models.Referral) error {
	return s.DB.Create(ref).Error
}

// translateConflict converts Postgres unique-violation errors (code 23505)
// into the service-level conflict sentinels, picking the sentinel from the
// violated constraint's name.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "referral_code"):
			return ErrCodeTaken
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrEmailTaken
		}
		return ErrCodeTaken
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCodeTaken
	}
	return err
}
