package services

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"heystudents-backend/middleware"
	"heystudents-backend/models"
	"heystudents-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type AccommodationService struct {
	DB *gorm.DB
}

func NewAccommodationService(db *gorm.DB) *AccommodationService {
	return &AccommodationService{DB: db}
}

// MinimalAccommodation is the lightweight browse projection.
type MinimalAccommodation struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Slug              string  `json:"slug"`
	City              string  `json:"city"`
	Area              string  `json:"area"`
	AccommodationType string  `json:"accommodation_type"`
	Gender            string  `json:"gender"`
	MonthlyRent       float64 `json:"monthly_rent"`
	Verified          bool    `json:"verified"`
	CoverPhotoURL     string  `json:"cover_photo_url,omitempty"`
}

// makeSlug builds a unique URL slug: the slugged name plus a short random
// suffix so two "Sunrise PG" listings never fight over the index.
func makeSlug(name string) string {
	return slug.Make(name) + "-" + uuid.NewString()[:8]
}

// orderedPhotos keeps a Photos preload in display order, so Photos[0] is
// always the cover photo. "order" needs quoting — it is a reserved word.
func orderedPhotos(db *gorm.DB) *gorm.DB {
	return db.Order(`"order" asc`)
}

// applyPublishStatus interprets the status/publish_at form fields. Same
// contract everywhere: draft and published take effect immediately,
// scheduled requires an RFC3339 publish_at.
func applyPublishStatus(status, publishAtStr string, outStatus *string, outPublishAt **time.Time) error {
	switch status {
	case "", "draft":
		*outStatus = "draft"
		*outPublishAt = nil
	case "published":
		*outStatus = "published"
		*outPublishAt = nil
	case "scheduled":
		if publishAtStr == "" {
			return errors.New("publish_at required for scheduled status")
		}
		publishAt, err := time.Parse(time.RFC3339, publishAtStr)
		if err != nil {
			return errors.New("invalid publish_at — use RFC3339 (e.g., 2026-12-31T23:00:00Z)")
		}
		*outStatus = "scheduled"
		*outPublishAt = &publishAt
	default:
		return errors.New("invalid status (use: draft, scheduled, published)")
	}
	return nil
}

// CreateAccommodation creates a listing with photos. Institute/admin only;
// the listing is owned by the authenticated user.
func (s *AccommodationService) CreateAccommodation(c *fiber.Ctx) error {
	ownerID := c.Locals(middleware.CtxUserIDKey).(string)

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	rent, _ := strconv.ParseFloat(c.FormValue("monthly_rent"), 64)
	deposit, _ := strconv.ParseFloat(c.FormValue("security_deposit"), 64)

	acc := &models.Accommodation{
		ID:                uuid.NewString(),
		InstituteID:       ownerID,
		Name:              name,
		Slug:              makeSlug(name),
		Description:       c.FormValue("description"),
		City:              c.FormValue("city"),
		Area:              c.FormValue("area"),
		Address:           c.FormValue("address"),
		AccommodationType: c.FormValue("accommodation_type"),
		Gender:            c.FormValue("gender", models.GenderAny),
		MonthlyRent:       rent,
		SecurityDeposit:   deposit,
		Amenities:         c.FormValue("amenities"),
	}

	if err := applyPublishStatus(c.FormValue("status"), c.FormValue("publish_at"), &acc.Status, &acc.PublishAt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// Photos → object storage, ordered
	var photos []models.AccommodationPhoto
	for i := 0; ; i++ {
		key := "photos[" + strconv.Itoa(i) + "]"
		file, err := c.FormFile(key)
		if err != nil {
			break
		}

		ext := filepath.Ext(file.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		photoKey := "accommodations/" + uuid.NewString() + ext
		url, err := utils.UploadPhoto(file, photoKey)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": fmt.Sprintf("failed to upload photo %d", i)})
		}

		photos = append(photos, models.AccommodationPhoto{
			ID:              uuid.NewString(),
			AccommodationID: acc.ID,
			URL:             url,
			Order:           i,
		})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acc).Error; err != nil {
			return err
		}
		if len(photos) > 0 {
			if err := tx.Create(&photos).Error; err != nil {
				return fmt.Errorf("failed to save photos: %w", err)
			}
		}
		return tx.Preload("Photos", orderedPhotos).First(acc, "id = ?", acc.ID).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create accommodation"})
	}

	return c.Status(fiber.StatusCreated).JSON(acc)
}

// ListAccommodations is the public browse endpoint: published listings only,
// with query-side filtering and sorting.
func (s *AccommodationService) ListAccommodations(c *fiber.Ctx) error {
	db := s.DB.Model(&models.Accommodation{}).
		Preload("Photos", orderedPhotos).
		Where("status = ?", "published")

	if city := strings.TrimSpace(c.Query("city")); city != "" {
		db = db.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if accType := c.Query("type"); accType != "" {
		db = db.Where("accommodation_type = ?", accType)
	}
	if gender := c.Query("gender"); gender != "" {
		db = db.Where("gender IN ?", []string{gender, models.GenderAny})
	}
	if maxRent, err := strconv.ParseFloat(c.Query("max_rent"), 64); err == nil && maxRent > 0 {
		db = db.Where("monthly_rent <= ?", maxRent)
	}
	if c.Query("verified") == "true" {
		db = db.Where("verified = ?", true)
	}

	switch c.Query("sort") {
	case "rent_asc":
		db = db.Order("monthly_rent asc")
	case "rent_desc":
		db = db.Order("monthly_rent desc")
	default:
		db = db.Order("created_at desc")
	}

	var listings []models.Accommodation
	if err := db.Find(&listings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch accommodations"})
	}

	minimal := make([]MinimalAccommodation, 0, len(listings))
	for _, a := range listings {
		m := MinimalAccommodation{
			ID:                a.ID,
			Name:              a.Name,
			Slug:              a.Slug,
			City:              a.City,
			Area:              a.Area,
			AccommodationType: a.AccommodationType,
			Gender:            a.Gender,
			MonthlyRent:       a.MonthlyRent,
			Verified:          a.Verified,
		}
		if len(a.Photos) > 0 {
			m.CoverPhotoURL = a.Photos[0].URL
		}
		minimal = append(minimal, m)
	}
	return c.JSON(minimal)
}

// GetAccommodation returns one listing by slug (public) with photos.
func (s *AccommodationService) GetAccommodation(c *fiber.Ctx) error {
	var acc models.Accommodation
	if err := s.DB.Preload("Photos", orderedPhotos).First(&acc, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "accommodation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(acc)
}

// loadOwned fetches a listing and enforces that the caller owns it (admins
// bypass the ownership check).
func (s *AccommodationService) loadOwned(c *fiber.Ctx, id string) (*models.Accommodation, error) {
	var acc models.Accommodation
	if err := s.DB.Preload("Photos", orderedPhotos).First(&acc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "accommodation not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "DB error")
	}

	role := c.Locals(middleware.CtxRoleKey).(models.UserRole)
	callerID := c.Locals(middleware.CtxUserIDKey).(string)
	if role != models.RoleAdmin && acc.InstituteID != callerID {
		return nil, fiber.NewError(fiber.StatusForbidden, "not the owner of this listing")
	}
	return &acc, nil
}

// UpdateAccommodation edits scalar fields and publishing state.
func (s *AccommodationService) UpdateAccommodation(c *fiber.Ctx) error {
	acc, err := s.loadOwned(c, c.Params("id"))
	if err != nil {
		return err
	}

	if name := strings.TrimSpace(c.FormValue("name")); name != "" && name != acc.Name {
		acc.Name = name
		acc.Slug = makeSlug(name)
	}
	if v := c.FormValue("description"); v != "" {
		acc.Description = v
	}
	if v := c.FormValue("city"); v != "" {
		acc.City = v
	}
	if v := c.FormValue("area"); v != "" {
		acc.Area = v
	}
	if v := c.FormValue("address"); v != "" {
		acc.Address = v
	}
	if v := c.FormValue("accommodation_type"); v != "" {
		acc.AccommodationType = v
	}
	if v := c.FormValue("gender"); v != "" {
		acc.Gender = v
	}
	if v := c.FormValue("amenities"); v != "" {
		acc.Amenities = v
	}
	if rent, err := strconv.ParseFloat(c.FormValue("monthly_rent"), 64); err == nil {
		acc.MonthlyRent = rent
	}
	if deposit, err := strconv.ParseFloat(c.FormValue("security_deposit"), 64); err == nil {
		acc.SecurityDeposit = deposit
	}

	if status := c.FormValue("status"); status != "" {
		if err := applyPublishStatus(status, c.FormValue("publish_at"), &acc.Status, &acc.PublishAt); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	if err := s.DB.Save(acc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update accommodation"})
	}
	return c.JSON(acc)
}

// VerifyAccommodation toggles the admin verified badge.
func (s *AccommodationService) VerifyAccommodation(c *fiber.Ctx) error {
	var body struct {
		Verified bool `json:"verified"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	res := s.DB.Model(&models.Accommodation{}).
		Where("id = ?", c.Params("id")).
		Update("verified", body.Verified)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update listing"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "accommodation not found"})
	}
	return c.JSON(fiber.Map{"verified": body.Verified})
}

// AddPhotoByURL imports a photo from an external URL into object storage and
// appends it to the listing.
func (s *AccommodationService) AddPhotoByURL(c *fiber.Ctx) error {
	acc, err := s.loadOwned(c, c.Params("id"))
	if err != nil {
		return err
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	resp, err := utils.HTTPClient.Get(body.URL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to fetch photo"})
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": fmt.Sprintf("photo source returned status %d", resp.StatusCode)})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024)) // 10MB cap
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to read photo"})
	}

	ext := filepath.Ext(body.URL)
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	photoKey := "accommodations/" + uuid.NewString() + ext
	url, err := utils.UploadBytes(data, photoKey, resp.Header.Get("Content-Type"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store photo"})
	}

	photo := models.AccommodationPhoto{
		ID:              uuid.NewString(),
		AccommodationID: acc.ID,
		URL:             url,
		Order:           len(acc.Photos),
	}
	if err := s.DB.Create(&photo).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save photo"})
	}
	return c.Status(fiber.StatusCreated).JSON(photo)
}

// DeleteAccommodation soft-deletes a listing and hard-deletes its photos.
func (s *AccommodationService) DeleteAccommodation(c *fiber.Ctx) error {
	acc, err := s.loadOwned(c, c.Params("id"))
	if err != nil {
		return err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("accommodation_id = ?", acc.ID).Delete(&models.AccommodationPhoto{}).Error; err != nil {
			return err
		}
		return tx.Delete(acc).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete accommodation"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// MyAccommodations lists the caller's own listings (any status).
func (s *AccommodationService) MyAccommodations(c *fiber.Ctx) error {
	ownerID := c.Locals(middleware.CtxUserIDKey).(string)

	var listings []models.Accommodation
	if err := s.DB.Preload("Photos", orderedPhotos).
		Where("institute_id = ?", ownerID).
		Order("created_at desc").
		Find(&listings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch accommodations"})
	}
	return c.JSON(listings)
}
