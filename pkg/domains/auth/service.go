package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/wagate/pkg/constant"
	"github.com/wagate/pkg/dtos"
	"github.com/wagate/pkg/entities"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

var (
	ErrUserExists         = fmt.Errorf(constant.ALREADY_EXISTS, "User")
	ErrInvalidCredentials = errors.New(constant.INVALID_CREDENTIALS)
)

type Service interface {
	Register(ctx context.Context, req dtos.DTOForUserCreate) (dtos.TokenDTO, error)
	Login(ctx context.Context, req dtos.DTOForUserLogin) (dtos.TokenDTO, error)
}

type service struct {
	repository Repository
	secret     []byte
	now        func() time.Time
}

func NewService(r Repository, secret string) Service {
	return &service{
		repository: r,
		secret:     []byte(secret),
		now:        time.Now,
	}
}

func (s *service) Register(ctx context.Context, req dtos.DTOForUserCreate) (dtos.TokenDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := s.repository.FindUserByEmail(ctx, email)
	if err == nil {
		return dtos.TokenDTO{}, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dtos.TokenDTO{}, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dtos.TokenDTO{}, err
	}

	user := entities.User{
		Email:    email,
		Password: string(passwordHash),
		Name:     req.Name,
	}
	if err := s.repository.CreateUser(ctx, &user); err != nil {
		return dtos.TokenDTO{}, err
	}

	return s.issue(user.ID)
}

func (s *service) Login(ctx context.Context, req dtos.DTOForUserLogin) (dtos.TokenDTO, error) {
	user, err := s.repository.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dtos.TokenDTO{}, ErrInvalidCredentials
	}
	if err != nil {
		return dtos.TokenDTO{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return dtos.TokenDTO{}, ErrInvalidCredentials
	}

	return s.issue(user.ID)
}

func (s *service) issue(userID uint) (dtos.TokenDTO, error) {
	exp := s.now().Add(tokenTTL).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": exp,
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return dtos.TokenDTO{}, err
	}
	return dtos.TokenDTO{Token: tokenString, ExpiresAt: exp}, nil
}
