// File: internal/catalog/service.go
package catalog

import (
	"context"
	"errors"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/sanitize"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Service defines the business logic for brands and categories.
type Service interface {
	CreateBrand(ctx context.Context, req CreateEntryRequest) (*Brand, error)
	GetBrand(ctx context.Context, id uuid.UUID) (*Brand, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	DeleteBrand(ctx context.Context, id uuid.UUID) error
	FindOrCreateBrandByName(ctx context.Context, name string) (*Brand, error)

	CreateCategory(ctx context.Context, req CreateEntryRequest) (*Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	FindOrCreateCategoryByName(ctx context.Context, name string) (*Category, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new catalog service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) CreateBrand(ctx context.Context, req CreateEntryRequest) (*Brand, error) {
	name := sanitize.Text(req.Name)
	if len(name) < 2 {
		return nil, common.NewValidationAPIError(map[string]string{"Name": "The name field must be at least 2."})
	}
	brand := &Brand{
		Name:        name,
		NameKey:     common.NormalizeText(name),
		Slug:        slug.Make(name),
		Description: sanitize.OptionalText(req.Description),
	}
	if err := s.repo.CreateBrand(ctx, brand); err != nil {
		s.logger.Error("Failed to create brand", zap.Error(err), zap.String("name", name))
		return nil, err
	}
	s.logger.Info("Brand created successfully", zap.String("id", brand.ID.String()), zap.String("name", brand.Name))
	return brand, nil
}

func (s *service) GetBrand(ctx context.Context, id uuid.UUID) (*Brand, error) {
	return s.repo.FindBrandByID(ctx, id)
}

func (s *service) ListBrands(ctx context.Context) ([]Brand, error) {
	return s.repo.FindAllBrands(ctx)
}

func (s *service) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindBrandByID(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountProductReferences(ctx, "brand_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return common.ErrConflict.WithDetails("Brand is still used by products.")
	}
	if err := s.repo.DeleteBrand(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Brand deleted", zap.String("id", id.String()))
	return nil
}

// FindOrCreateBrandByName returns the brand whose name matches case-insensitively,
// creating it when none does.
func (s *service) FindOrCreateBrandByName(ctx context.Context, name string) (*Brand, error) {
	existing, err := s.repo.FindBrandByNameKey(ctx, common.NormalizeText(sanitize.Text(name)))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return s.CreateBrand(ctx, CreateEntryRequest{Name: name})
}

func (s *service) CreateCategory(ctx context.Context, req CreateEntryRequest) (*Category, error) {
	name := sanitize.Text(req.Name)
	if len(name) < 2 {
		return nil, common.NewValidationAPIError(map[string]string{"Name": "The name field must be at least 2."})
	}
	category := &Category{
		Name:        name,
		NameKey:     common.NormalizeText(name),
		Slug:        slug.Make(name),
		Description: sanitize.OptionalText(req.Description),
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		s.logger.Error("Failed to create category", zap.Error(err), zap.String("name", name))
		return nil, err
	}
	s.logger.Info("Category created successfully", zap.String("id", category.ID.String()), zap.String("name", category.Name))
	return category, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.FindCategoryByID(ctx, id)
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.FindAllCategories(ctx)
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountProductReferences(ctx, "category_id", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return common.ErrConflict.WithDetails("Category is still used by products.")
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Category deleted", zap.String("id", id.String()))
	return nil
}

func (s *service) FindOrCreateCategoryByName(ctx context.Context, name string) (*Category, error) {
	existing, err := s.repo.FindCategoryByNameKey(ctx, common.NormalizeText(sanitize.Text(name)))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return s.CreateCategory(ctx, CreateEntryRequest{Name: name})
}
