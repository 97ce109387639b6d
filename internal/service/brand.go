package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"brand-ranking/internal/model"
	"brand-ranking/internal/repository"
)

// BrandPage is one page of a brand listing.
type BrandPage struct {
	Page   int            `json:"pageId"`
	Count  int            `json:"count"`
	Brands []*model.Brand `json:"brands"`
}

// BrandService handles brand lookup and listing.
type BrandService struct {
	brands *repository.BrandRepository
}

// NewBrandService creates a new BrandService instance.
func NewBrandService(brands *repository.BrandRepository) *BrandService {
	return &BrandService{brands: brands}
}

// ListBrands returns one page of brands whose name contains search,
// case-insensitively, in the given order.
func (s *BrandService) ListBrands(ctx context.Context, order model.BrandOrder, search string, page, limit int) (*BrandPage, error) {
	if page < 1 {
		page = 1
	}
	offset, limit := pageBounds(page, limit, DefaultBrandLimit)

	brands, count, err := s.brands.List(ctx, order, strings.TrimSpace(search), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}

	return &BrandPage{Page: page, Count: count, Brands: brands}, nil
}

// GetBrand retrieves a brand by id.
func (s *BrandService) GetBrand(ctx context.Context, id int64) (*model.Brand, error) {
	b, err := s.brands.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBrandNotFound) {
			return nil, ErrBrandNotFound
		}
		return nil, err
	}
	return b, nil
}

// CreateBrand adds a brand.
func (s *BrandService) CreateBrand(ctx context.Context, b *model.Brand) (*model.Brand, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return nil, ErrInvalidBrand
	}

	created, err := s.brands.Create(ctx, b)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateBrand) {
			return nil, ErrDuplicateBrand
		}
		return nil, err
	}

	log.Info().Int64("brand_id", created.ID).Str("name", created.Name).Msg("Brand created")
	return created, nil
}
