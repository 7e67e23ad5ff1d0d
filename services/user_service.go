package services

import (
	"errors"
	"strings"

	"heystudents-backend/middleware"
	"heystudents-backend/models"
	"heystudents-backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	DB        *gorm.DB
	Referrals *ReferralService
}

func NewUserService(db *gorm.DB, referrals *ReferralService) *UserService {
	return &UserService{DB: db, Referrals: referrals}
}

// userResponse strips everything a client has no business seeing.
func userResponse(u *models.User) fiber.Map {
	resp := fiber.Map{
		"id":    u.ID,
		"name":  u.Name,
		"phone": u.Phone,
		"role":  u.Role,
	}
	if u.Email != nil {
		resp["email"] = *u.Email
	}
	if u.ReferralCode != nil {
		resp["referral_code"] = *u.ReferralCode
	}
	if u.ReferrerCodeUsed != "" {
		resp["referrer_code_used"] = u.ReferrerCodeUsed
	}
	if u.ReferredByID != nil {
		resp["referred_by_id"] = *u.ReferredByID
	}
	return resp
}

// Register handles student signup, including optional referral attribution.
func (s *UserService) Register(c *fiber.Ctx) error {
	var in SignupInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := s.Referrals.SignupWithAttribution(in)
	if err != nil {
		return RespondError(c, err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  userResponse(user),
	})
}

// Login exchanges email+password for a JWT.
func (s *UserService) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))

	user, err := s.Referrals.Store.FindByEmail(body.Email)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  userResponse(user),
	})
}

// Me returns the authenticated user's profile.
func (s *UserService) Me(c *fiber.Ctx) error {
	userID := c.Locals(middleware.CtxUserIDKey).(string)

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return RespondError(c, ErrNotFound)
	}
	return c.JSON(userResponse(&user))
}

// MyReferrals returns the derived referral list of the authenticated user.
func (s *UserService) MyReferrals(c *fiber.Ctx) error {
	userID := c.Locals(middleware.CtxUserIDKey).(string)

	referrals, err := s.Referrals.ReferralsOf(userID)
	if err != nil {
		return RespondError(c, err)
	}

	out := make([]fiber.Map, len(referrals))
	for i := range referrals {
		out[i] = userResponse(&referrals[i])
	}
	return c.JSON(fiber.Map{"count": len(out), "referrals": out})
}

// --- Admin handlers ---

// ListUsers returns users, optionally filtered by a name/email search and role.
func (s *UserService) ListUsers(c *fiber.Ctx) error {
	db := s.DB.Model(&models.User{}).Order("created_at desc").Limit(200)

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		term := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}
	if role := c.Query("role"); role != "" {
		db = db.Where("role = ?", role)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch users"})
	}

	out := make([]fiber.Map, len(users))
	for i := range users {
		out[i] = userResponse(&users[i])
	}
	return c.JSON(out)
}

func (s *UserService) GetUser(c *fiber.Ctx) error {
	var user models.User
	if err := s.DB.First(&user, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RespondError(c, ErrNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(userResponse(&user))
}

// DeleteUser removes a user record. Explicit admin action is the only way a
// user is ever destroyed.
func (s *UserService) DeleteUser(c *fiber.Ctx) error {
	res := s.DB.Delete(&models.User{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete user"})
	}
	if res.RowsAffected == 0 {
		return RespondError(c, ErrNotFound)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// PromoteToAdmin elevates the target user to admin.
func (s *UserService) PromoteToAdmin(c *fiber.Ctx) error {
	user, err := s.Referrals.PromoteToAdmin(c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(userResponse(user))
}

// PromoteToInstitute elevates the target user to institute, assigning a
// referral code (custom when supplied).
func (s *UserService) PromoteToInstitute(c *fiber.Ctx) error {
	var body struct {
		CustomReferralCode string `json:"custom_referral_code"`
	}
	// Empty body is fine — the code is optional.
	_ = c.BodyParser(&body)

	user, err := s.Referrals.PromoteToInstitute(c.Params("id"), body.CustomReferralCode)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(userResponse(user))
}

// CreateInstitute onboards an institute account without a prior signup.
func (s *UserService) CreateInstitute(c *fiber.Ctx) error {
	var body struct {
		InstituteInput
		CustomReferralCode string `json:"custom_referral_code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := s.Referrals.CreateInstitute(body.InstituteInput, body.CustomReferralCode)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(userResponse(user))
}

// ReferralReport returns an institute's referral code and derived referrals.
func (s *UserService) ReferralReport(c *fiber.Ctx) error {
	ownerID := c.Params("id")

	owner, err := s.Referrals.Store.FindByID(ownerID)
	if err != nil {
		return RespondError(c, err)
	}

	referrals, err := s.Referrals.Store.ReferralsOf(ownerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch referrals"})
	}

	members := make([]fiber.Map, len(referrals))
	for i := range referrals {
		members[i] = userResponse(&referrals[i])
	}

	return c.JSON(fiber.Map{
		"owner":          userResponse(owner),
		"referral_count": len(members),
		"referrals":      members,
	})
}
