package services

import (
	"errors"
	"strings"

	"heystudents-backend/middleware"
	"heystudents-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseService struct {
	DB *gorm.DB
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{DB: db}
}

type courseRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	DurationWeeks int     `json:"duration_weeks"`
	Fee           float64 `json:"fee"`
	Mode          string  `json:"mode"`
	Published     *bool   `json:"published"`
}

// CreateCourse adds a course owned by the calling institute/admin.
func (s *CourseService) CreateCourse(c *fiber.Ctx) error {
	ownerID := c.Locals(middleware.CtxUserIDKey).(string)

	var req courseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	if req.Mode == "" {
		req.Mode = models.CourseModeCampus
	}
	if req.Mode != models.CourseModeOnline && req.Mode != models.CourseModeCampus {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid mode (use: online, campus)"})
	}

	course := &models.Course{
		ID:            uuid.NewString(),
		InstituteID:   ownerID,
		Title:         req.Title,
		Slug:          makeSlug(req.Title),
		Description:   req.Description,
		DurationWeeks: req.DurationWeeks,
		Fee:           req.Fee,
		Mode:          req.Mode,
	}
	if req.Published != nil {
		course.Published = *req.Published
	}

	if err := s.DB.Create(course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create course"})
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

// ListCourses is the public catalog: published courses, filterable by
// institute and free-text search.
func (s *CourseService) ListCourses(c *fiber.Ctx) error {
	db := s.DB.Model(&models.Course{}).
		Where("published = ?", true).
		Order("created_at desc")

	if instituteID := c.Query("institute_id"); instituteID != "" {
		db = db.Where("institute_id = ?", instituteID)
	}
	if mode := c.Query("mode"); mode != "" {
		db = db.Where("mode = ?", mode)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		term := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}

	var courses []models.Course
	if err := db.Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch courses"})
	}
	return c.JSON(courses)
}

// GetCourse returns one course by slug.
func (s *CourseService) GetCourse(c *fiber.Ctx) error {
	var course models.Course
	if err := s.DB.First(&course, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(course)
}

func (s *CourseService) loadOwned(c *fiber.Ctx, id string) (*models.Course, error) {
	var course models.Course
	if err := s.DB.First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "course not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "DB error")
	}

	role := c.Locals(middleware.CtxRoleKey).(models.UserRole)
	callerID := c.Locals(middleware.CtxUserIDKey).(string)
	if role != models.RoleAdmin && course.InstituteID != callerID {
		return nil, fiber.NewError(fiber.StatusForbidden, "not the owner of this course")
	}
	return &course, nil
}

// UpdateCourse edits a course owned by the caller.
func (s *CourseService) UpdateCourse(c *fiber.Ctx) error {
	course, err := s.loadOwned(c, c.Params("id"))
	if err != nil {
		return err
	}

	var req courseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if title := strings.TrimSpace(req.Title); title != "" && title != course.Title {
		course.Title = title
		course.Slug = makeSlug(title)
	}
	if req.Description != "" {
		course.Description = req.Description
	}
	if req.DurationWeeks > 0 {
		course.DurationWeeks = req.DurationWeeks
	}
	if req.Fee > 0 {
		course.Fee = req.Fee
	}
	if req.Mode != "" {
		course.Mode = req.Mode
	}
	if req.Published != nil {
		course.Published = *req.Published
	}

	if err := s.DB.Save(course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update course"})
	}
	return c.JSON(course)
}

// DeleteCourse removes a course owned by the caller.
func (s *CourseService) DeleteCourse(c *fiber.Ctx) error {
	course, err := s.loadOwned(c, c.Params("id"))
	if err != nil {
		return err
	}
	if err := s.DB.Delete(course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete course"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}
