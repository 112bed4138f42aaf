// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → checks input, logs business events
//	Repository (data layer)  → reads/writes the database
//
// UserService takes a repository.UserRepository interface, not a concrete
// database, so tests inject an in-memory fake and main picks SQLite or
// PostgreSQL from the configured URL.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/users-api/internal/apperror"
	"github.com/sakif/users-api/internal/model"
	"github.com/sakif/users-api/internal/repository"
)

// UserService handles the five user operations. Each call issues exactly one
// repository write or read, except Update which looks the user up first.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// Create stores a new user built from in and returns it with its assigned id.
//
// Only presence is checked here. Uniqueness and length limits belong to the
// database; their failures come back as apperror.ErrConflict.
func (s *UserService) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	if field := in.MissingField(); field != "" {
		return nil, missing(field)
	}

	user := &model.User{}
	in.Apply(user)

	if err := s.repo.Insert(ctx, user); err != nil {
		s.logFailure("failed to create user", err, slog.String("username", user.Username))
		return nil, err
	}

	s.logger.Info("user created",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// List returns every user. The slice is never nil.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logFailure("failed to list users", err)
		return nil, err
	}
	return users, nil
}

// Get returns the user with id, or apperror.ErrNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logFailure("failed to get user", err, slog.Int64("id", id))
		return nil, err
	}
	return user, nil
}

// Update overwrites all four fields of the user with id.
//
// The user is fetched first so that a missing user is reported as not found
// even when the input is incomplete. No field keeps its old value.
func (s *UserService) Update(ctx context.Context, id int64, in model.UserInput) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logFailure("failed to look up user for update", err, slog.Int64("id", id))
		return nil, err
	}

	if field := in.MissingField(); field != "" {
		return nil, missing(field)
	}
	in.Apply(user)

	if err := s.repo.Update(ctx, user); err != nil {
		s.logFailure("failed to update user", err, slog.Int64("id", id))
		return nil, err
	}

	s.logger.Info("user updated", slog.Int64("id", user.ID))
	return user, nil
}

// Delete removes the user with id, or returns apperror.ErrNotFound.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logFailure("failed to delete user", err, slog.Int64("id", id))
		return err
	}

	s.logger.Info("user deleted", slog.Int64("id", id))
	return nil
}

// logFailure logs storage failures. Not-found is a normal outcome and is
// not logged.
func (s *UserService) logFailure(msg string, err error, attrs ...any) {
	if errors.Is(err, apperror.ErrNotFound) {
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.Error(msg, attrs...)
}

// missing reports an absent input field. The message is the quoted key,
// which is how the API has always described a missing field.
func missing(field string) error {
	return apperror.ValidationFailed(field, "'"+field+"'")
}
