package app

import (
	"errors"
	"testing"
	"time"

	"docuchat/internal/model"
	"docuchat/internal/pkg/jwtutil"
)

type memUserStore struct {
	users  map[string]*model.User
	nextID uint
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*model.User{}, nextID: 1}
}

func (s *memUserStore) Create(user *model.User) error {
	user.ID = s.nextID
	s.nextID++
	s.users[user.Username] = user
	return nil
}

func (s *memUserStore) GetByUsername(username string) (*model.User, error) {
	return s.users[username], nil
}

func (s *memUserStore) GetByID(id uint) (*model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func newTestAuthService() (*AuthService, *memUserStore) {
	store := newMemUserStore()
	return NewAuthService(store, "test-secret", time.Hour), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuthService()

	registered, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatal(err)
	}
	if registered.Token == "" {
		t.Fatal("register returned no token")
	}
	if registered.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", registered.User.Email)
	}

	loggedIn, err := svc.Login(LoginInput{Username: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := jwtutil.ParseToken("test-secret", loggedIn.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Username != "alice" || claims.UserID != registered.User.ID {
		t.Errorf("token claims = %+v", claims)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService()
	cases := []RegisterInput{
		{Username: "", Password: "long-enough"},
		{Username: "bob", Password: ""},
		{Username: "bob", Password: "short"},
	}
	for _, input := range cases {
		if _, err := svc.Register(input); !errors.Is(err, ErrValidation) {
			t.Errorf("Register(%+v) err = %v, want ErrValidation", input, err)
		}
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService()
	if _, err := svc.Register(RegisterInput{Username: "alice", Password: "correct-horse"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(RegisterInput{Username: "alice", Password: "another-pass"})
	if !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("err = %v, want ErrUsernameExists", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestAuthService()
	if _, err := svc.Register(RegisterInput{Username: "alice", Password: "correct-horse"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(LoginInput{Username: "alice", Password: "wrong"}); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredential", err)
	}
	if _, err := svc.Login(LoginInput{Username: "nobody", Password: "whatever"}); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredential", err)
	}
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	svc, store := newTestAuthService()
	if _, err := svc.Register(RegisterInput{Username: "alice", Password: "correct-horse"}); err != nil {
		t.Fatal(err)
	}
	store.users["alice"].Disabled = true

	_, err := svc.Login(LoginInput{Username: "alice", Password: "correct-horse"})
	if !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("err = %v, want ErrUserDisabled", err)
	}
}
