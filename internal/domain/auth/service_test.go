package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/martly/martly-api/internal/domain/user"
	"github.com/martly/martly-api/internal/pkg/jwt"
)

type fakeUserRepo struct {
	byEmail map[string]*user.User
	byID    map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: map[string]*user.User{},
		byID:    map[uuid.UUID]*user.User{},
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	if _, exists := f.byEmail[u.Email]; exists {
		return user.ErrEmailTaken
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func newTestService() (*Service, *fakeUserRepo) {
	repo := newFakeUserRepo()
	tokens := jwt.NewService("test-secret", 15*time.Minute, 24*time.Hour)
	return NewService(repo, tokens), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()

	out, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "Buyer@Test.com",
		Password: "supersecret",
		Role:     "buyer",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if out.Role != "buyer" {
		t.Fatalf("unexpected role: %s", out.Role)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	// Email is normalized, login with the original casing still works
	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "buyer@test.com",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.UserID != out.UserID {
		t.Fatal("login returned a different user")
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "x@test.com",
		Password: "supersecret",
		Role:     "admin",
	})
	if !errors.Is(err, user.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()

	req := RegisterRequest{Email: "dup@test.com", Password: "supersecret", Role: "vendor"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "v@test.com",
		Password: "supersecret",
		Role:     "vendor",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{Email: "v@test.com", Password: "wrong"}); !errors.Is(err, user.ErrInvalidCreds) {
		t.Fatalf("expected ErrInvalidCreds for wrong password, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@test.com", Password: "supersecret"}); !errors.Is(err, user.ErrInvalidCreds) {
		t.Fatalf("expected ErrInvalidCreds for unknown email, got %v", err)
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	svc, _ := newTestService()

	out, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "r@test.com",
		Password: "supersecret",
		Role:     "buyer",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), out.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.UserID != out.UserID {
		t.Fatal("refresh returned a different user")
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a new access token")
	}

	if _, err := svc.Refresh(context.Background(), out.AccessToken); err == nil {
		t.Fatal("access token must not be accepted as refresh token")
	}
}
