package auth

import (
	"context"
	"errors"

	"github.com/michaelgreenl/game-lobby/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("username and password required")
	ErrUsernameTaken      = errors.New("username taken")
)

// UserStore is the slice of the durable store the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

type Service struct {
	users  UserStore
	secret []byte
}

func NewService(users UserStore, secret string) *Service {
	return &Service{users: users, secret: []byte(secret)}
}

func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrMissingFields
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	id, err := s.users.CreateUser(ctx, username, hash)
	if errors.Is(err, store.ErrUsernameTaken) {
		return "", ErrUsernameTaken
	}
	return id, err
}

type LoginResult struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.Mint(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, UserID: u.ID, Username: u.Username}, nil
}
