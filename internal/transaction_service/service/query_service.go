package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/transfer-antifraud-saga/internal/domain/transaction"
)

type QueryServiceImpl struct {
	repo     transaction.Repository
	cache    transaction.Cache
	recorder Recorder
	logger   *slog.Logger
}

func NewQueryService(repo transaction.Repository, cache transaction.Cache, recorder Recorder, logger *slog.Logger) *QueryServiceImpl {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &QueryServiceImpl{
		repo:     repo,
		cache:    cache,
		recorder: recorder,
		logger:   logger,
	}
}

// Get reads through the cache; cache failures fall back to the store
func (s *QueryServiceImpl) Get(ctx context.Context, externalID uuid.UUID) (*transaction.View, error) {
	cached, err := s.cache.GetView(ctx, externalID)
	switch {
	case err != nil:
		s.recorder.CacheLookup("error")
		s.logger.Warn("Cache read failed, falling back to database", "transaction_id", externalID.String(), "error", err)
	case cached != nil:
		s.recorder.CacheLookup("hit")
		return cached, nil
	default:
		s.recorder.CacheLookup("miss")
	}

	t, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	view := t.View()
	if err := s.cache.PutView(ctx, t.Version, view); err != nil {
		s.logger.Warn("Failed to cache transaction", "transaction_id", externalID.String(), "error", err)
	}
	return &view, nil
}

// List returns one zero-based page, newest first, optionally filtered by status
func (s *QueryServiceImpl) List(ctx context.Context, q transaction.ListQuery) (*transaction.Page, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	cached, generation, err := s.cache.GetPage(ctx, q)
	cacheUsable := err == nil
	switch {
	case err != nil:
		s.recorder.CacheLookup("error")
		s.logger.Warn("Cache read failed, falling back to database", "error", err)
	case cached != nil:
		s.recorder.CacheLookup("hit")
		return cached, nil
	default:
		s.recorder.CacheLookup("miss")
	}

	total, err := s.repo.Count(ctx, q.Status)
	if err != nil {
		return nil, err
	}

	var views []transaction.View
	if int64(q.Offset()) < total {
		rows, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		views = make([]transaction.View, 0, len(rows))
		for _, t := range rows {
			views = append(views, t.View())
		}
	}

	page := transaction.NewPage(views, total, q)
	if cacheUsable {
		if err := s.cache.PutPage(ctx, q, generation, page); err != nil {
			s.logger.Warn("Failed to cache page", "error", err)
		}
	}
	return &page, nil
}
