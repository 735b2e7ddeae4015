package service

import (
	"context"
	"fmt"

	"accountsvc/internal/domain"
	"accountsvc/pkg/cache"
	"accountsvc/pkg/logger"
)

// CachedAccountService decorates an AccountService with a read-through cache
// for account views. Writes that change a view drop its cache entry.
type CachedAccountService struct {
	domain.AccountService
	cacheManager cache.CacheStrategy
	logger       logger.Logger
}

func NewCachedAccountService(base domain.AccountService, cacheManager cache.CacheStrategy, logger logger.Logger) *CachedAccountService {
	return &CachedAccountService{
		AccountService: base,
		cacheManager:   cacheManager,
		logger:         logger,
	}
}

func accountKey(id string) string {
	return fmt.Sprintf(cache.AccountByIDKey, id)
}

func (s *CachedAccountService) GetAccount(ctx context.Context, id string) (*domain.AccountView, error) {
	var view domain.AccountView

	err := s.cacheManager.ReadThrough(ctx, accountKey(id), &view, func() (interface{}, error) {
		return s.AccountService.GetAccount(ctx, id)
	}, cache.ShortExpiration)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *CachedAccountService) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) error {
	if err := s.AccountService.UpdateProfile(ctx, id, patch); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedAccountService) UpdateSettings(ctx context.Context, id string, theme *domain.Theme, language *string) error {
	if err := s.AccountService.UpdateSettings(ctx, id, theme, language); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedAccountService) invalidate(ctx context.Context, id string) {
	// the write already succeeded; a stale entry expires on its own
	_ = s.cacheManager.Invalidate(ctx, accountKey(id))
}
