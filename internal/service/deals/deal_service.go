package deals

import (
	"context"
	"log"
	"time"

	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/repository"
)

type DealUseCase interface {
	List(ctx context.Context) ([]domain.Deal, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Deal, error)
	ExpireDeparted(ctx context.Context) (int64, error)
}

type Cache interface {
	GetDeals(ctx context.Context) ([]domain.Deal, error)
	SetDeals(ctx context.Context, deals []domain.Deal) error
	InvalidateDeals(ctx context.Context) error
}

type DealService struct {
	repo  repository.DealRepository
	cache Cache
	now   func() time.Time
}

func NewDealService(repo repository.DealRepository, cache Cache) *DealService {
	return &DealService{repo: repo, cache: cache, now: time.Now}
}

func (s *DealService) List(ctx context.Context) ([]domain.Deal, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetDeals(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	deals, err := s.repo.ListLive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetDeals(ctx, deals)
	}
	return deals, nil
}

func (s *DealService) GetBySlug(ctx context.Context, slug string) (*domain.Deal, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ExpireDeparted is the expiry sweeper: one idempotent bulk update retiring
// internal/operator deals whose departure has passed. One audit line per
// sweep, not per row.
func (s *DealService) ExpireDeparted(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireDeparted(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("deal sweep: expired %d departed deal(s)", count)
		if s.cache != nil {
			if err := s.cache.InvalidateDeals(ctx); err != nil {
				log.Printf("deal sweep: invalidate cache: %v", err)
			}
		}
	}
	return count, nil
}

var _ DealUseCase = (*DealService)(nil)
