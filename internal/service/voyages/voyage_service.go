package voyages

import (
	"context"

	"shipbooking/internal/domain"
	"shipbooking/internal/repository"
)

type VoyageUseCase interface {
	List(ctx context.Context) ([]domain.Voyage, error)
	GetByID(ctx context.Context, id int64) (*domain.Voyage, error)
	Allocations(ctx context.Context, voyageID int64) ([]domain.ContainerAllocation, error)
}

type VoyageCache interface {
	GetVoyages(ctx context.Context) ([]domain.Voyage, error)
	SetVoyages(ctx context.Context, voyages []domain.Voyage) error
}

type VoyageService struct {
	repo        repository.VoyageRepository
	allocations repository.AllocationRepository
	cache       VoyageCache
}

func NewVoyageService(repo repository.VoyageRepository, allocations repository.AllocationRepository, cache VoyageCache) *VoyageService {
	return &VoyageService{repo: repo, allocations: allocations, cache: cache}
}

func (s *VoyageService) List(ctx context.Context) ([]domain.Voyage, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetVoyages(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	voyages, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetVoyages(ctx, voyages)
	}
	return voyages, nil
}

func (s *VoyageService) GetByID(ctx context.Context, id int64) (*domain.Voyage, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *VoyageService) Allocations(ctx context.Context, voyageID int64) ([]domain.ContainerAllocation, error) {
	if _, err := s.repo.GetByID(ctx, voyageID); err != nil {
		return nil, err
	}
	return s.allocations.ListByVoyage(ctx, voyageID)
}

var _ VoyageUseCase = (*VoyageService)(nil)
