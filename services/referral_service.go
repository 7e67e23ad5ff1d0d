package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"heystudents-backend/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	minCustomCodeLen    = 4
	maxCodeLen          = 20 // matches the referral_code / referrer_code_used column width
	generatedCodeLen    = 6
	maxGenerateAttempts = 5

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var titleCaser = cases.Title(language.English)

// ReferralService owns referral-code issuance, signup attribution and role
// promotion. It never talks to the database directly — everything goes
// through the UserStore so the rules stay testable.
type ReferralService struct {
	Store UserStore
}

func NewReferralService(store UserStore) *ReferralService {
	return &ReferralService{Store: store}
}

// NormalizeCode is applied to every code before storage or lookup, so
// matching is case-insensitive without the column losing exactness.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// GenerateCode returns an unused candidate code and persists nothing.
//
// With a custom code: validates length (4-20 characters after trimming) and
// uniqueness.
// Without one: tries a name-derived code first, then random 6-char codes, up
// to a bounded number of attempts. The store's unique index still backstops
// the winner if two requests race past the pre-check.
func (s *ReferralService) GenerateCode(customCode, ownerName string) (string, error) {
	if strings.TrimSpace(customCode) != "" {
		code := NormalizeCode(customCode)
		if utf8.RuneCountInString(code) < minCustomCodeLen {
			return "", ErrCodeTooShort
		}
		if utf8.RuneCountInString(code) > maxCodeLen {
			return "", ErrCodeTooLong
		}
		taken, err := s.Store.CodeInUse(code)
		if err != nil {
			return "", fmt.Errorf("checking code availability: %w", err)
		}
		if taken {
			return "", ErrCodeTaken
		}
		return code, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		var code string
		if attempt == 0 {
			code = deriveCodeFromName(ownerName)
		}
		if code == "" {
			code = randomCode(generatedCodeLen)
		}

		taken, err := s.Store.CodeInUse(code)
		if err != nil {
			return "", fmt.Errorf("checking code availability: %w", err)
		}
		if !taken {
			return code, nil
		}
	}

	log.Printf("❌ [REFERRAL] code generation exhausted after %d attempts — code space needs attention", maxGenerateAttempts)
	return "", ErrCodeSpaceExhausted
}

// deriveCodeFromName builds a readable default like "ACME6X" from the owner's
// name: slug the name, keep the first four letters, pad with two random
// characters. Returns "" when the name is too short to be useful.
func deriveCodeFromName(name string) string {
	cleaned := strings.ReplaceAll(slug.Make(name), "-", "")
	if len(cleaned) < minCustomCodeLen {
		return ""
	}
	prefix := strings.ToUpper(cleaned[:generatedCodeLen-2])
	return prefix + randomCode(2)
}

// clampRunes truncates s to at most n runes.
func clampRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is gone; nothing sane to
		// fall back to.
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}

// SignupInput carries a self-service student signup.
type SignupInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referral_code"` // optional, as typed by the user
}

// SignupWithAttribution creates a student user and, when the submitted code
// resolves to an owner, links the new user to that owner. An unmatched code
// does not fail the signup — the raw string is still recorded for audit, so
// a typo never costs a conversion.
func (s *ReferralService) SignupWithAttribution(in SignupInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if in.Email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingField)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password", ErrMissingField)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        &in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}

	var owner *models.User
	if raw := strings.TrimSpace(in.ReferralCode); raw != "" {
		// Record the code verbatim even if it resolves to nobody. Clamp it to
		// the column width first so pasted junk (a whole URL, say) can never
		// fail the insert and cost the signup.
		user.ReferrerCodeUsed = clampRunes(raw, maxCodeLen)

		owner, err = s.Store.FindByReferralCode(NormalizeCode(raw))
		switch {
		case err == nil:
			user.ReferredByID = &owner.ID
		case errors.Is(err, ErrNotFound):
			owner = nil
		default:
			return nil, fmt.Errorf("resolving referral code: %w", err)
		}
	}

	if err := s.Store.Create(user); err != nil {
		return nil, err
	}

	if owner != nil {
		ref := &models.Referral{
			ID:               uuid.NewString(),
			ReferrerID:       owner.ID,
			ReferredID:       user.ID,
			ReferralCodeUsed: user.ReferrerCodeUsed,
		}
		if err := s.Store.RecordAttribution(ref); err != nil {
			// The user row is the source of truth (referred_by_id is set);
			// the audit row is supplementary, so log and carry on.
			log.Printf("⚠️ [REFERRAL] failed to record attribution audit for user %s: %v", user.ID, err)
		}
	}

	return user, nil
}

// ReferralsOf returns the derived referral list of a code owner.
func (s *ReferralService) ReferralsOf(ownerID string) ([]models.User, error) {
	if _, err := s.Store.FindByID(ownerID); err != nil {
		return nil, err
	}
	return s.Store.ReferralsOf(ownerID)
}

// canTransition encodes the supported promotion edges. admin is terminal.
func canTransition(from, to models.UserRole) bool {
	switch {
	case from == models.RoleStudent && to == models.RoleInstitute:
		return true
	case from == models.RoleStudent && to == models.RoleAdmin:
		return true
	case from == models.RoleInstitute && to == models.RoleAdmin:
		return true
	}
	return false
}

// PromoteToAdmin elevates a user to admin. Promoting an existing admin is an
// idempotent no-op.
func (s *ReferralService) PromoteToAdmin(userID string) (*models.User, error) {
	user, err := s.Store.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return user, nil
	}
	if !canTransition(user.Role, models.RoleAdmin) {
		return nil, ErrInvalidTransition
	}

	user.Role = models.RoleAdmin
	if err := s.Store.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// PromoteToInstitute elevates a student to institute and assigns a referral
// code (custom or generated). The code is resolved before any mutation, so a
// validation or conflict failure leaves the user untouched.
func (s *ReferralService) PromoteToInstitute(userID, customCode string) (*models.User, error) {
	user, err := s.Store.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if !canTransition(user.Role, models.RoleInstitute) {
		return nil, ErrInvalidTransition
	}

	code, err := s.GenerateCode(customCode, user.Name)
	if err != nil {
		return nil, err
	}

	user.Role = models.RoleInstitute
	user.ReferralCode = &code
	if err := s.Store.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// InstituteInput carries admin-side institute onboarding. Name and mobile are
// required; email and password are optional so an institute can be listed
// before anyone at the institute claims the account.
type InstituteInput struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateInstitute creates a user already promoted to institute, with a
// referral code, in a single step. Used by admin tooling.
func (s *ReferralService) CreateInstitute(in InstituteInput, customCode string) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if in.Mobile == "" {
		return nil, fmt.Errorf("%w: mobile", ErrMissingField)
	}

	code, err := s.GenerateCode(customCode, in.Name)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         titleCaser.String(in.Name),
		Phone:        in.Mobile,
		Role:         models.RoleInstitute,
		ReferralCode: &code,
	}

	if email := strings.TrimSpace(strings.ToLower(in.Email)); email != "" {
		user.Email = &email
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.Store.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}
