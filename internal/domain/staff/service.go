package staff

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type tokenIssuer interface {
	GenerateToken(viewerID int64, role string) (string, error)
}

type Service struct {
	repo Repository
	jwt  tokenIssuer
}

type LoginResult struct {
	Staff *Staff `json:"staff"`
	Token string `json:"token"`
}

func NewService(repo Repository, jwt tokenIssuer) *Service {
	return &Service{repo: repo, jwt: jwt}
}

// Login checks credentials and issues the bearer token used for both REST
// calls and the WebSocket handshake.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	member, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(member.ID, member.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Staff: member, Token: token}, nil
}

// Register creates a staff account with a hashed password.
func (s *Service) Register(ctx context.Context, email, password, name, role string) (*Staff, error) {
	if role != RoleAdmin && role != RoleModerator {
		role = RoleModerator
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	member := &Staff{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
