package auth

import (
	"context"
	"errors"
	"testing"

	domainauth "slotmarket/internal/domain/auth"
	domainuser "slotmarket/internal/domain/user"
	"slotmarket/internal/infra/security"
	"slotmarket/internal/infra/storage/memory"
)

func newService() *Service {
	return &Service{
		Users:     memory.NewUserRepository(),
		Sessions:  memory.NewSessionStore(),
		Passwords: security.BcryptHasher{},
		Tokens:    security.RandomTokenGenerator{},
	}
}

func TestRegisterAndResolve(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	result, err := svc.Register(ctx, RegisterParams{
		Email:    "Kim.Buyer@Example.com",
		Name:     "Kim Buyer",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.Token == "" {
		t.Fatal("register returned no session token")
	}
	if result.User.Email != "kim.buyer@example.com" {
		t.Errorf("email = %q, want lowercased", result.User.Email)
	}
	if !result.User.HasRole(domainuser.RoleRequester) {
		t.Error("registered user must carry the requester role")
	}
	if result.User.HasRole(domainuser.RoleProvider) {
		t.Error("provider role must be opt-in")
	}

	resolved, err := svc.ResolveToken(ctx, result.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if resolved.User.ID != result.User.ID {
		t.Errorf("resolved user %s, want %s", resolved.User.ID, result.User.ID)
	}
}

func TestRegisterProviderRole(t *testing.T) {
	svc := newService()
	result, err := svc.Register(context.Background(), RegisterParams{
		Email:         "lee.seller@example.com",
		Name:          "Lee Seller",
		Password:      "correct horse",
		WantToProvide: true,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !result.User.HasRole(domainuser.RoleProvider) {
		t.Error("WantToProvide must add the provider role")
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@example.com", Name: "A", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password = %v, want %v", err, ErrPasswordTooShort)
	}
	if _, err := svc.Register(ctx, RegisterParams{Name: "A", Password: "correct horse"}); !errors.Is(err, domainuser.ErrEmailRequired) {
		t.Fatalf("missing email = %v, want %v", err, domainuser.ErrEmailRequired)
	}

	if _, err := svc.Register(ctx, RegisterParams{Email: "dup@example.com", Name: "A", Password: "correct horse"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "DUP@example.com", Name: "B", Password: "correct horse"}); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("duplicate email = %v, want %v", err, domainuser.ErrEmailAlreadyUsed)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	if _, err := svc.Register(ctx, RegisterParams{Email: "kim@example.com", Name: "Kim", Password: "correct horse"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := svc.Login(ctx, LoginParams{Email: " KIM@example.com ", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login returned no session token")
	}

	if _, err := svc.Login(ctx, LoginParams{Email: "kim@example.com", Password: "wrong password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want %v", err, ErrInvalidCredentials)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "nobody@example.com", Password: "correct horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	result, err := svc.Register(ctx, RegisterParams{Email: "kim@example.com", Name: "Kim", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, result.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("resolve after logout = %v, want %v", err, domainauth.ErrSessionNotFound)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Fatalf("logout with empty token must be a no-op, got %v", err)
	}
}

func TestResolveTokenRequiresToken(t *testing.T) {
	svc := newService()
	if _, err := svc.ResolveToken(context.Background(), "  "); !errors.Is(err, domainauth.ErrTokenRequired) {
		t.Fatalf("ResolveToken = %v, want %v", err, domainauth.ErrTokenRequired)
	}
}
