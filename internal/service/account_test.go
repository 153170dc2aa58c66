package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/auth"
)

func newTestAccountService(t *testing.T) (*AccountService, *fakeStore, *auth.TokenService) {
	t.Helper()
	store := newFakeStore()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	svc := NewAccountService(
		store,
		tokens,
		auth.NewPasswordServiceForTest(bcrypt.MinCost),
		auth.NewAdminGate(testAdminKey),
		discardLogger(),
	)
	return svc, store, tokens
}

func janeInput() RegisterInput {
	return RegisterInput{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "Jane@Example.com",
		Password:    "hunter22",
		PhoneNumber: "+2348000000000",
	}
}

// =========================================================================
// Register
// =========================================================================

func TestRegister(t *testing.T) {
	svc, store, _ := newTestAccountService(t)

	user, err := svc.Register(context.Background(), janeInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if len(user.UniqueCode) != auth.UniqueCodeLength || user.UniqueCode[0] == '0' {
		t.Errorf("UniqueCode = %q", user.UniqueCode)
	}
	if user.Email != "jane@example.com" {
		t.Errorf("Email = %q, want lower-cased", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter22" {
		t.Error("password must be stored hashed")
	}
	if len(store.users) != 1 {
		t.Errorf("users = %d, want 1", len(store.users))
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, store, _ := newTestAccountService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, janeInput())
	if err != nil {
		t.Fatal(err)
	}

	again := janeInput()
	again.Email = "  JANE@example.com "
	_, err = svc.Register(ctx, again)

	if !errors.Is(err, apperror.ErrConflict) || err.Error() != "Email already exists" {
		t.Fatalf("error = %v, want \"Email already exists\"", err)
	}
	if len(store.users) != 1 || store.users[0].UniqueCode != first.UniqueCode {
		t.Error("a duplicate registration must not create a user or a code")
	}
	if store.createUserCalls != 1 {
		t.Errorf("CreateUser called %d times, want 1", store.createUserCalls)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"missing first name", func(in *RegisterInput) { in.FirstName = "  " }, "firstName"},
		{"missing last name", func(in *RegisterInput) { in.LastName = "" }, "lastName"},
		{"bad email", func(in *RegisterInput) { in.Email = "jane" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "abc" }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestAccountService(t)
			in := janeInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want a validation error", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
			if len(store.users) != 0 {
				t.Error("invalid input must not create a user")
			}
		})
	}
}

// =========================================================================
// Login / GetUniqueCode
// =========================================================================

func TestLogin(t *testing.T) {
	svc, _, tokens := newTestAccountService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, janeInput())
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Login(ctx, Credentials{Email: "JANE@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if res.User.UniqueCode != "" {
		t.Error("login must not reveal the unique code")
	}
	userID, err := tokens.Validate(res.Token)
	if err != nil || userID != registered.ID {
		t.Errorf("token subject = %q, %v; want %q", userID, err, registered.ID)
	}
}

func TestLogin_Failures(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, janeInput()); err != nil {
		t.Fatal(err)
	}

	for _, in := range []Credentials{
		{Email: "jane@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "hunter22"},
	} {
		_, err := svc.Login(ctx, in)
		if err == nil || err.Error() != "Invalid credentials, please try again" {
			t.Errorf("Login(%s) error = %v", in.Email, err)
		}
	}
}

func TestGetUniqueCode(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, janeInput())
	if err != nil {
		t.Fatal(err)
	}

	code, err := svc.GetUniqueCode(ctx, Credentials{Email: "jane@example.com", Password: "hunter22"})
	if err != nil || code != registered.UniqueCode {
		t.Errorf("GetUniqueCode() = %q, %v; want %q", code, err, registered.UniqueCode)
	}

	_, err = svc.GetUniqueCode(ctx, Credentials{Email: "jane@example.com", Password: "nope-nope"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("wrong password error = %v, want ErrNotFound", err)
	}
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, janeInput())
	if err != nil {
		t.Fatal(err)
	}

	me, err := svc.Me(ctx, registered.ID)
	if err != nil {
		t.Fatal(err)
	}
	if me.Email != "jane@example.com" || me.UniqueCode != "" || me.PasswordHash != "" {
		t.Errorf("Me() = %+v", me)
	}

	if _, err := svc.Me(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown id error = %v", err)
	}
}

// =========================================================================
// Admin tools
// =========================================================================

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, janeInput()); err != nil {
		t.Fatal(err)
	}

	err := svc.ChangePassword(ctx, ChangePasswordInput{Key: testAdminKey, Email: "jane@example.com", Password: "new-secret"})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Login(ctx, Credentials{Email: "jane@example.com", Password: "hunter22"}); err == nil {
		t.Error("old password still works")
	}
	if _, err := svc.Login(ctx, Credentials{Email: "jane@example.com", Password: "new-secret"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestChangePassword_Errors(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, ChangePasswordInput{Key: "wrong", Email: "jane@example.com", Password: "new-secret"})
	if !errors.Is(err, apperror.ErrUnauthorized) || err.Error() != "Invalid admin key" {
		t.Errorf("bad key error = %v", err)
	}

	err = svc.ChangePassword(ctx, ChangePasswordInput{Key: testAdminKey, Email: "ghost@example.com", Password: "new-secret"})
	if err == nil || err.Error() != "User with this email does not exists" {
		t.Errorf("unknown email error = %v", err)
	}
}

func TestListUsers(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()
	for _, name := range [][2]string{{"Zed", "Alpha"}, {"Amy", "Jones"}, {"Mia", "Doe"}} {
		in := janeInput()
		in.FirstName, in.LastName = name[0], name[1]
		in.Email = name[0] + "@example.com"
		if _, err := svc.Register(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	page, err := svc.ListUsers(ctx, testAdminKey, UserListQuery{Page: 0, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 || len(page.Users) != 2 {
		t.Fatalf("page = %+v", page.Pagination)
	}
	if page.Users[0].FirstName != "Amy" || page.Users[1].FirstName != "Mia" {
		t.Errorf("order = %s, %s", page.Users[0].FirstName, page.Users[1].FirstName)
	}
	if page.Users[0].UniqueCode == "" {
		t.Error("the admin list includes unique codes")
	}

	page, err = svc.ListUsers(ctx, testAdminKey, UserListQuery{PageSize: 10, Search: "mia d", Desc: true})
	if err != nil {
		t.Fatal(err)
	}
	if page.Pagination.Total != 1 || page.Users[0].FirstName != "Mia" {
		t.Errorf("search result = %+v", page.Users)
	}

	if _, err := svc.ListUsers(ctx, "", UserListQuery{PageSize: 10}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("missing key error = %v", err)
	}
}
