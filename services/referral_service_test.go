package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"heystudents-backend/models"
)

// memStore is an in-memory UserStore for exercising the referral engine
// without a database. It mirrors the storage-level conflict behavior: Create
// and Update report ErrCodeTaken/ErrEmailTaken the way the unique indexes
// would.
type memStore struct {
	users        map[string]*models.User
	attributions []*models.Referral

	// codeAlwaysTaken simulates a fully exhausted code space.
	codeAlwaysTaken bool
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}}
}

func (m *memStore) FindByID(id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) FindByEmail(email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindByReferralCode(code string) (*models.User, error) {
	for _, u := range m.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) conflicts(u *models.User) error {
	for id, other := range m.users {
		if id == u.ID {
			continue
		}
		if u.Email != nil && other.Email != nil && *u.Email == *other.Email {
			return ErrEmailTaken
		}
		if u.ReferralCode != nil && other.ReferralCode != nil && *u.ReferralCode == *other.ReferralCode {
			return ErrCodeTaken
		}
	}
	return nil
}

func (m *memStore) Create(u *models.User) error {
	if err := m.conflicts(u); err != nil {
		return err
	}
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) Update(u *models.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	if err := m.conflicts(u); err != nil {
		return err
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) ReferralsOf(ownerID string) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		if u.ReferredByID != nil && *u.ReferredByID == ownerID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memStore) CodeInUse(code string) (bool, error) {
	if m.codeAlwaysTaken {
		return true, nil
	}
	_, err := m.FindByReferralCode(code)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memStore) RecordAttribution(ref *models.Referral) error {
	m.attributions = append(m.attributions, ref)
	return nil
}

func newTestService() (*ReferralService, *memStore) {
	store := newMemStore()
	return NewReferralService(store), store
}

func assertCodeShape(t *testing.T, code string) {
	t.Helper()
	if len(code) != generatedCodeLen {
		t.Fatalf("expected %d-character code, got %q", generatedCodeLen, code)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains character %q outside the alphabet", code, r)
		}
	}
}

func TestGenerateCodeCustomTooShort(t *testing.T) {
	svc, _ := newTestService()

	for _, custom := range []string{"abc", "  ab  ", "x"} {
		if _, err := svc.GenerateCode(custom, ""); !errors.Is(err, ErrCodeTooShort) {
			t.Errorf("GenerateCode(%q) error = %v, want ErrCodeTooShort", custom, err)
		}
	}
}

func TestGenerateCodeCustomCountsRunes(t *testing.T) {
	svc, _ := newTestService()

	// "日本" is 6 bytes but only 2 characters — still too short.
	if _, err := svc.GenerateCode("日本", ""); !errors.Is(err, ErrCodeTooShort) {
		t.Fatalf("GenerateCode(%q) error = %v, want ErrCodeTooShort", "日本", err)
	}
}

func TestGenerateCodeCustomTooLong(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.GenerateCode(strings.Repeat("A", maxCodeLen+1), ""); !errors.Is(err, ErrCodeTooLong) {
		t.Fatalf("expected ErrCodeTooLong for a %d-character code, got %v", maxCodeLen+1, err)
	}

	// Exactly at the limit is fine.
	code, err := svc.GenerateCode(strings.Repeat("A", maxCodeLen), "")
	if err != nil {
		t.Fatalf("GenerateCode at max length: %v", err)
	}
	if code != strings.Repeat("A", maxCodeLen) {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestGenerateCodeCustomNormalized(t *testing.T) {
	svc, _ := newTestService()

	code, err := svc.GenerateCode("  beta99 ", "")
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if code != "BETA99" {
		t.Fatalf("expected normalized code BETA99, got %q", code)
	}
}

func TestGenerateCodeCustomTaken(t *testing.T) {
	svc, store := newTestService()
	code := "ACME6X"
	store.users["u1"] = &models.User{ID: "u1", Role: models.RoleInstitute, ReferralCode: &code}

	if _, err := svc.GenerateCode("acme6x", ""); !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken for an in-use code, got %v", err)
	}
}

func TestGenerateCodeDerivedFromName(t *testing.T) {
	svc, _ := newTestService()

	code, err := svc.GenerateCode("", "Acme College")
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	assertCodeShape(t, code)
	if !strings.HasPrefix(code, "ACME") {
		t.Fatalf("expected name-derived prefix ACME, got %q", code)
	}
}

func TestGenerateCodeRandomWhenNameTooShort(t *testing.T) {
	svc, _ := newTestService()

	code, err := svc.GenerateCode("", "Xy")
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	assertCodeShape(t, code)
}

func TestGenerateCodeExhausted(t *testing.T) {
	svc, store := newTestService()
	store.codeAlwaysTaken = true

	if _, err := svc.GenerateCode("", "Acme College"); !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
}

func TestSignupWithoutCode(t *testing.T) {
	svc, store := newTestService()

	user, err := svc.SignupWithAttribution(SignupInput{
		Name:     "Ravi Kumar",
		Email:    "ravi@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("SignupWithAttribution: %v", err)
	}
	if user.Role != models.RoleStudent {
		t.Errorf("role = %q, want student", user.Role)
	}
	if user.ReferredByID != nil || user.ReferrerCodeUsed != "" {
		t.Errorf("expected no attribution fields, got referredBy=%v codeUsed=%q", user.ReferredByID, user.ReferrerCodeUsed)
	}
	if len(store.attributions) != 0 {
		t.Errorf("expected no attribution rows, got %d", len(store.attributions))
	}
}

func TestSignupMissingFields(t *testing.T) {
	svc, _ := newTestService()

	cases := []SignupInput{
		{Email: "a@b.com", Password: "x12345"},
		{Name: "A", Password: "x12345"},
		{Name: "A", Email: "a@b.com"},
	}
	for _, in := range cases {
		if _, err := svc.SignupWithAttribution(in); !errors.Is(err, ErrMissingField) {
			t.Errorf("SignupWithAttribution(%+v) error = %v, want ErrMissingField", in, err)
		}
	}
}

func TestSignupWithMatchingCode(t *testing.T) {
	svc, store := newTestService()

	institute, err := svc.CreateInstitute(InstituteInput{Name: "Acme College", Mobile: "9876543210"}, "ACME6X")
	if err != nil {
		t.Fatalf("CreateInstitute: %v", err)
	}

	// Lowercase input must still resolve; the raw string is kept verbatim.
	student, err := svc.SignupWithAttribution(SignupInput{
		Name:         "Priya Singh",
		Email:        "priya@example.com",
		Password:     "secret123",
		ReferralCode: "acme6x",
	})
	if err != nil {
		t.Fatalf("SignupWithAttribution: %v", err)
	}

	if student.ReferredByID == nil || *student.ReferredByID != institute.ID {
		t.Fatalf("referredBy = %v, want institute id %s", student.ReferredByID, institute.ID)
	}
	if student.ReferrerCodeUsed != "acme6x" {
		t.Errorf("referrerCodeUsed = %q, want the raw string acme6x", student.ReferrerCodeUsed)
	}

	referrals, err := svc.ReferralsOf(institute.ID)
	if err != nil {
		t.Fatalf("ReferralsOf: %v", err)
	}
	if len(referrals) != 1 || referrals[0].ID != student.ID {
		t.Fatalf("expected derived referral list to contain exactly the student, got %+v", referrals)
	}

	if len(store.attributions) != 1 {
		t.Fatalf("expected one attribution audit row, got %d", len(store.attributions))
	}
	ref := store.attributions[0]
	if ref.ReferrerID != institute.ID || ref.ReferredID != student.ID || ref.ReferralCodeUsed != "acme6x" {
		t.Errorf("attribution row = %+v, want referrer/referred/code to match", ref)
	}
}

func TestSignupWithUnknownCodeProceeds(t *testing.T) {
	svc, store := newTestService()

	user, err := svc.SignupWithAttribution(SignupInput{
		Name:         "Amit Verma",
		Email:        "amit@example.com",
		Password:     "secret123",
		ReferralCode: "NOSUCH",
	})
	if err != nil {
		t.Fatalf("signup with an unmatched code must not fail, got %v", err)
	}
	if user.ReferredByID != nil {
		t.Errorf("expected no attribution, got referredBy=%v", user.ReferredByID)
	}
	if user.ReferrerCodeUsed != "NOSUCH" {
		t.Errorf("raw code must still be recorded for audit, got %q", user.ReferrerCodeUsed)
	}
	if len(store.attributions) != 0 {
		t.Errorf("expected no attribution rows, got %d", len(store.attributions))
	}
}

func TestSignupWithOverlongCodeStillProceeds(t *testing.T) {
	svc, store := newTestService()

	// Pasted junk instead of a code must never cost the signup.
	raw := "https://heystudents.example/ref/ACME6X"
	user, err := svc.SignupWithAttribution(SignupInput{
		Name:         "Amit Verma",
		Email:        "amit@example.com",
		Password:     "secret123",
		ReferralCode: raw,
	})
	if err != nil {
		t.Fatalf("signup with an overlong code must not fail, got %v", err)
	}
	if user.ReferredByID != nil {
		t.Errorf("expected no attribution, got referredBy=%v", user.ReferredByID)
	}
	if got, want := user.ReferrerCodeUsed, raw[:maxCodeLen]; got != want {
		t.Errorf("expected recorded code clamped to %q, got %q", want, got)
	}
	if len(store.attributions) != 0 {
		t.Errorf("expected no attribution rows, got %d", len(store.attributions))
	}
}

func TestCreateInstituteDefaults(t *testing.T) {
	svc, _ := newTestService()

	inst, err := svc.CreateInstitute(InstituteInput{Name: "acme college", Mobile: "9876543210"}, "")
	if err != nil {
		t.Fatalf("CreateInstitute: %v", err)
	}
	if inst.Role != models.RoleInstitute {
		t.Errorf("role = %q, want institute", inst.Role)
	}
	if inst.Name != "Acme College" {
		t.Errorf("name = %q, want title-cased Acme College", inst.Name)
	}
	if inst.ReferralCode == nil {
		t.Fatal("expected a referral code to be assigned")
	}
	assertCodeShape(t, *inst.ReferralCode)

	referrals, err := svc.ReferralsOf(inst.ID)
	if err != nil {
		t.Fatalf("ReferralsOf: %v", err)
	}
	if len(referrals) != 0 {
		t.Errorf("new institute must start with zero referrals, got %d", len(referrals))
	}
}

func TestCreateInstituteRequiredFields(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.CreateInstitute(InstituteInput{Mobile: "9876543210"}, ""); !errors.Is(err, ErrMissingField) {
		t.Errorf("missing name: error = %v, want ErrMissingField", err)
	}
	if _, err := svc.CreateInstitute(InstituteInput{Name: "Acme"}, ""); !errors.Is(err, ErrMissingField) {
		t.Errorf("missing mobile: error = %v, want ErrMissingField", err)
	}
}

func TestPromoteToInstituteGeneratesCode(t *testing.T) {
	svc, store := newTestService()
	store.users["u1"] = &models.User{ID: "u1", Name: "Sunrise Academy", Role: models.RoleStudent}

	user, err := svc.PromoteToInstitute("u1", "")
	if err != nil {
		t.Fatalf("PromoteToInstitute: %v", err)
	}
	if user.Role != models.RoleInstitute {
		t.Errorf("role = %q, want institute", user.Role)
	}
	if user.ReferralCode == nil {
		t.Fatal("expected a referral code")
	}
	assertCodeShape(t, *user.ReferralCode)

	// The generated code must pass the generator's own uniqueness check.
	taken, err := store.CodeInUse(*user.ReferralCode)
	if err != nil {
		t.Fatalf("CodeInUse: %v", err)
	}
	if !taken {
		t.Error("assigned code should now be reported as in use")
	}
}

func TestPromoteToInstituteShortCodeNoMutation(t *testing.T) {
	svc, store := newTestService()
	store.users["u1"] = &models.User{ID: "u1", Name: "Beta Institute", Role: models.RoleStudent}

	if _, err := svc.PromoteToInstitute("u1", "ab"); !errors.Is(err, ErrCodeTooShort) {
		t.Fatalf("expected ErrCodeTooShort, got %v", err)
	}

	after := store.users["u1"]
	if after.Role != models.RoleStudent || after.ReferralCode != nil {
		t.Fatalf("failed promotion must not mutate the user, got role=%q code=%v", after.Role, after.ReferralCode)
	}
}

func TestPromoteToInstituteLongCodeNoMutation(t *testing.T) {
	svc, store := newTestService()
	store.users["u1"] = &models.User{ID: "u1", Name: "Beta Institute", Role: models.RoleStudent}

	if _, err := svc.PromoteToInstitute("u1", strings.Repeat("X", maxCodeLen+1)); !errors.Is(err, ErrCodeTooLong) {
		t.Fatalf("expected ErrCodeTooLong, got %v", err)
	}

	after := store.users["u1"]
	if after.Role != models.RoleStudent || after.ReferralCode != nil {
		t.Fatalf("failed promotion must not mutate the user, got role=%q code=%v", after.Role, after.ReferralCode)
	}
}

func TestPromoteToInstituteTakenCodeNoMutation(t *testing.T) {
	svc, store := newTestService()
	code := "ACME6X"
	store.users["owner"] = &models.User{ID: "owner", Role: models.RoleInstitute, ReferralCode: &code}
	store.users["u1"] = &models.User{ID: "u1", Name: "Beta Institute", Role: models.RoleStudent}

	if _, err := svc.PromoteToInstitute("u1", "ACME6X"); !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}

	after := store.users["u1"]
	if after.Role != models.RoleStudent || after.ReferralCode != nil {
		t.Fatalf("failed promotion must not mutate the user, got role=%q code=%v", after.Role, after.ReferralCode)
	}

	// Retrying with a free code succeeds.
	user, err := svc.PromoteToInstitute("u1", "BETA99")
	if err != nil {
		t.Fatalf("retry with a free code: %v", err)
	}
	if user.ReferralCode == nil || *user.ReferralCode != "BETA99" {
		t.Fatalf("expected BETA99 after retry, got %v", user.ReferralCode)
	}
}

func TestPromoteToAdmin(t *testing.T) {
	svc, store := newTestService()
	store.users["u1"] = &models.User{ID: "u1", Role: models.RoleStudent}

	user, err := svc.PromoteToAdmin("u1")
	if err != nil {
		t.Fatalf("PromoteToAdmin: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want admin", user.Role)
	}

	// Idempotent on an existing admin.
	again, err := svc.PromoteToAdmin("u1")
	if err != nil {
		t.Fatalf("promoting an admin again must be a no-op, got %v", err)
	}
	if again.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want admin", again.Role)
	}
}

func TestPromoteInstituteToAdminKeepsCode(t *testing.T) {
	svc, store := newTestService()
	code := "ACME6X"
	store.users["u1"] = &models.User{ID: "u1", Role: models.RoleInstitute, ReferralCode: &code}

	user, err := svc.PromoteToAdmin("u1")
	if err != nil {
		t.Fatalf("PromoteToAdmin: %v", err)
	}
	if user.ReferralCode == nil || *user.ReferralCode != "ACME6X" {
		t.Fatalf("promotion to admin must not drop the referral code, got %v", user.ReferralCode)
	}
}

func TestInvalidTransitions(t *testing.T) {
	svc, store := newTestService()
	store.users["admin"] = &models.User{ID: "admin", Role: models.RoleAdmin}
	store.users["inst"] = &models.User{ID: "inst", Role: models.RoleInstitute}

	if _, err := svc.PromoteToInstitute("admin", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("admin→institute: error = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.PromoteToInstitute("inst", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("institute→institute: error = %v, want ErrInvalidTransition", err)
	}
}

func TestPromoteMissingUser(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.PromoteToAdmin("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("PromoteToAdmin(ghost) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.PromoteToInstitute("ghost", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("PromoteToInstitute(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestReferralCodeUniquenessHolds(t *testing.T) {
	svc, store := newTestService()

	// A handful of institutes, all auto-generated codes: every assigned code
	// must be unique among users that have one.
	names := []string{"Acme College", "Beta Institute", "Gamma Academy", "Delta School", "Epsilon University"}
	for _, name := range names {
		if _, err := svc.CreateInstitute(InstituteInput{Name: name, Mobile: "9000000000"}, ""); err != nil {
			t.Fatalf("CreateInstitute(%q): %v", name, err)
		}
	}

	seen := map[string]string{}
	for id, u := range store.users {
		if u.ReferralCode == nil {
			continue
		}
		if other, dup := seen[*u.ReferralCode]; dup {
			t.Fatalf("code %q held by both %s and %s", *u.ReferralCode, other, id)
		}
		seen[*u.ReferralCode] = id
	}
}
