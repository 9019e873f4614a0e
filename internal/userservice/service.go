// Package userservice implements the optional account subsystem: user
// registration and password authentication. It sits entirely outside the
// sync/search core.
package userservice

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/store"
)

// Service manages users on top of the record store.
type Service struct {
	store *store.Store
}

// NewService creates a user service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Register validates the form fields, hashes the password, and creates the
// user. A taken username surfaces as a per-field validation error on
// "username" rather than an infrastructure failure.
func (s *Service) Register(_ context.Context, username, password, confirm string) (*models.User, error) {
	if err := (validation.Errors{
		"username": validation.Validate(username, validation.Required),
		"password": validation.Validate(password, validation.Required),
		"confirm": validation.Validate(confirm, validation.Required,
			validation.In(password).Error("passwords must match")),
	}).Filter(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("userservice: hash password: %w", err)
	}
	u, err := s.store.CreateUser(username, string(hash))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return nil, validation.Errors{
				"username": fmt.Errorf("username %q is taken", username),
			}
		}
		return nil, err
	}
	return u, nil
}

// Authenticate checks username (case-insensitively) and password. Unknown
// user and wrong password both return ErrInvalidCredentials so the login form
// cannot be used to probe usernames.
func (s *Service) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	u, err := s.store.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}

// Get returns one user by id.
func (s *Service) Get(_ context.Context, id int64) (*models.User, error) {
	return s.store.GetUser(id)
}
