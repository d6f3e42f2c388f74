package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Service loads and stores operator sessions.
type Service struct {
	repo   StateRepository
	logger *zerolog.Logger
}

func NewService(repo StateRepository, logger *zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get returns the session of an operator, or a fresh one.
func (s *Service) Get(ctx context.Context, operatorID int64) (*Session, error) {
	st, err := s.repo.GetState(ctx, operatorID)
	if err != nil {
		s.logger.Error().Err(err).Int64("operator_id", operatorID).Msg("Error getting session")
		return nil, err
	}
	if st == nil {
		st = New(operatorID)
	}
	return st, nil
}

func (s *Service) Save(ctx context.Context, st *Session) error {
	st.UpdatedAt = time.Now()
	return s.repo.SetState(ctx, st)
}

func (s *Service) Clear(ctx context.Context, operatorID int64) error {
	return s.repo.ClearState(ctx, operatorID)
}

// Update loads a session, applies fn and saves it.
func (s *Service) Update(ctx context.Context, operatorID int64, fn func(*Session)) (*Session, error) {
	st, err := s.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	fn(st)
	if err := s.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
