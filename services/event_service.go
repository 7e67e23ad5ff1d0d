package services

import (
	"errors"
	"strings"
	"time"

	"heystudents-backend/middleware"
	"heystudents-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

type eventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	City        string     `json:"city"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Status      string     `json:"status"`
	PublishAt   string     `json:"publish_at"`
}

// CreateEvent creates an event (admin only).
func (s *EventService) CreateEvent(c *fiber.Ctx) error {
	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	if req.StartsAt.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "starts_at is required"})
	}

	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        makeSlug(req.Title),
		Description: req.Description,
		Venue:       req.Venue,
		City:        req.City,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if err := applyPublishStatus(req.Status, req.PublishAt, &event.Status, &event.PublishAt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.DB.Create(event).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create event"})
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// ListEvents returns published upcoming events, optionally by city.
func (s *EventService) ListEvents(c *fiber.Ctx) error {
	db := s.DB.Model(&models.Event{}).
		Where("status = ?", "published").
		Where("starts_at >= ?", time.Now().Add(-24*time.Hour)).
		Order("starts_at asc")

	if city := strings.TrimSpace(c.Query("city")); city != "" {
		db = db.Where("LOWER(city) = ?", strings.ToLower(city))
	}

	var events []models.Event
	if err := db.Find(&events).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch events"})
	}
	return c.JSON(events)
}

// GetEvent returns one event by slug with its registration count.
func (s *EventService) GetEvent(c *fiber.Ctx) error {
	var event models.Event
	if err := s.DB.First(&event, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var registrationCount int64
	s.DB.Model(&models.EventRegistration{}).Where("event_id = ?", event.ID).Count(&registrationCount)

	return c.JSON(fiber.Map{
		"event":              event,
		"registration_count": registrationCount,
	})
}

// UpdateEvent edits an event (admin only).
func (s *EventService) UpdateEvent(c *fiber.Ctx) error {
	var event models.Event
	if err := s.DB.First(&event, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if title := strings.TrimSpace(req.Title); title != "" && title != event.Title {
		event.Title = title
		event.Slug = makeSlug(title)
	}
	if req.Description != "" {
		event.Description = req.Description
	}
	if req.Venue != "" {
		event.Venue = req.Venue
	}
	if req.City != "" {
		event.City = req.City
	}
	if !req.StartsAt.IsZero() {
		event.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		event.EndsAt = req.EndsAt
	}
	if req.Status != "" {
		if err := applyPublishStatus(req.Status, req.PublishAt, &event.Status, &event.PublishAt); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	if err := s.DB.Save(&event).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update event"})
	}
	return c.JSON(event)
}

// DeleteEvent removes an event and its registrations (admin only).
func (s *EventService) DeleteEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventRegistration{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Event{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete event"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// RegisterForEvent registers the authenticated user. The composite unique
// index turns a double registration into a conflict instead of a dup row.
func (s *EventService) RegisterForEvent(c *fiber.Ctx) error {
	userID := c.Locals(middleware.CtxUserIDKey).(string)

	var event models.Event
	if err := s.DB.First(&event, "id = ? AND status = ?", c.Params("id"), "published").Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	reg := &models.EventRegistration{
		ID:      uuid.NewString(),
		EventID: event.ID,
		UserID:  userID,
	}
	if err := s.DB.Create(reg).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already registered for this event"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to register"})
	}
	return c.Status(fiber.StatusCreated).JSON(reg)
}

// MyEventRegistrations lists events the caller has registered for.
func (s *EventService) MyEventRegistrations(c *fiber.Ctx) error {
	userID := c.Locals(middleware.CtxUserIDKey).(string)

	var events []models.Event
	err := s.DB.
		Joins("JOIN event_registrations ON event_registrations.event_id = events.id").
		Where("event_registrations.user_id = ?", userID).
		Order("events.starts_at asc").
		Find(&events).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch registrations"})
	}
	return c.JSON(events)
}
