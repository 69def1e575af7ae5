package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainuser "paperhub/internal/domain/user"
	"paperhub/internal/infra/security"
	"paperhub/internal/infra/storage/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	tokens, err := security.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return &Service{
		Users:     memory.NewUserRepository(),
		Passwords: security.BcryptHasher{},
		Tokens:    tokens,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterParams{
		Email:    " Alice@Example.com ",
		Name:     "Alice",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.Token == "" {
		t.Fatal("register must issue a token")
	}
	if registered.User.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", registered.User.Email)
	}
	// Conversation ids join participant ids with a dash, so ids must not
	// contain one.
	if strings.Contains(string(registered.User.ID), "-") {
		t.Fatalf("user id contains dash: %q", registered.User.ID)
	}

	logged, err := svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.User.ID != registered.User.ID {
		t.Fatal("login resolved a different user")
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params RegisterParams
		want   error
	}{
		{"missing email", RegisterParams{Name: "Alice", Password: "hunter22"}, domainuser.ErrEmailRequired},
		{"missing name", RegisterParams{Email: "a@b.com", Password: "hunter22"}, domainuser.ErrNameRequired},
		{"short password", RegisterParams{Email: "a@b.com", Name: "Alice", Password: "123"}, ErrPasswordTooShort},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.params); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	params := RegisterParams{Email: "alice@example.com", Name: "Alice", Password: "hunter22"}
	if _, err := svc.Register(ctx, params); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, params); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("got %v, want ErrEmailAlreadyUsed", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{
		Email: "alice@example.com", Name: "Alice", Password: "hunter22",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "nobody@example.com", Password: "hunter22"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Password: "hunter22"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("blank email: got %v", err)
	}
}
