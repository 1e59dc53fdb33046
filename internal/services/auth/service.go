// Package auth issues and validates the JWT credentials the wallet API
// requires. Its logic is deliberately thin; it is not part of ledger
// correctness.
package auth

import (
	"context"
	"errors"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Register(ctx context.Context, email, password, role string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	ValidateToken(tokenString string) (*models.UserClaims, error)
}

type service struct {
	users     repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewService(users repositories.UserRepository, jwtSecret string, tokenTTL time.Duration) Service {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &service{users: users, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL}
}

func (s *service) Register(ctx context.Context, email, password, role string) (*models.User, error) {
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if role == "" {
		role = models.RoleUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, PasswordHash: string(hash), Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	claims := &models.UserClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *service) ValidateToken(tokenString string) (*models.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(*models.UserClaims)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
