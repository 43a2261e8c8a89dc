// File: internal/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/location"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/sanitize"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRSize  = 256
	maxQRSize      = 1024
	syncBatchSize  = 200
	imageSubDir    = "products"
	initialReason  = "Stock inicial"
	searchFallback = 20
)

// CatalogLookup resolves brands and categories.
type CatalogLookup interface {
	GetBrand(ctx context.Context, id uuid.UUID) (*catalog.Brand, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*catalog.Category, error)
}

// LocationLookup resolves warehouses and branches.
type LocationLookup interface {
	GetWarehouse(ctx context.Context, id uuid.UUID) (*location.Warehouse, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*location.Branch, error)
}

// MovementRecorder writes the inventory movement for stock a product is born with.
type MovementRecorder interface {
	RecordInitialStock(ctx context.Context, p *Product, userID uuid.UUID, reason string) error
}

// ImageStore persists uploaded product images.
type ImageStore interface {
	SaveUploadedFile(fileHeader *multipart.FileHeader, subDir string) (string, error)
	DeleteFile(relativePath string) error
}

// Service defines the business logic for products.
type Service interface {
	Validate(ctx context.Context, actor shared.Actor, req ValidateRequest) (*ValidationResult, error)
	FindSimilar(ctx context.Context, actor shared.Actor, req SimilarRequest) ([]SimilarProduct, error)
	SuggestCode(ctx context.Context, actor shared.Actor, categoryID uuid.UUID, name string, loc shared.LocationFilter) (string, error)

	Create(ctx context.Context, actor shared.Actor, in Input) (*Product, error)
	// Provision creates a product on behalf of a workflow (supplier intake)
	// after the same validation as Create, without location scoping.
	Provision(ctx context.Context, userID uuid.UUID, in Input) (*Product, error)
	// CopyToBranch returns the branch product with the source's code,
	// reactivating it if needed, or creates an empty copy of source in the branch.
	CopyToBranch(ctx context.Context, source *Product, branchID uuid.UUID) (*Product, error)
	Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateProductRequest) (*Product, error)
	Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Product, int64, error)
	Deactivate(ctx context.Context, actor shared.Actor, id uuid.UUID) error
	Reactivate(ctx context.Context, actor shared.Actor, ids []uuid.UUID) (int64, error)
	GetByCode(ctx context.Context, actor shared.Actor, code string, loc shared.LocationFilter) (*Product, error)
	Search(ctx context.Context, actor shared.Actor, term string, loc shared.LocationFilter, limit int) ([]Product, error)
	QRList(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]QRPayload, error)
	QRCode(ctx context.Context, actor shared.Actor, id uuid.UUID, size int) ([]byte, error)
	SetImage(ctx context.Context, actor shared.Actor, id uuid.UUID, file *multipart.FileHeader) (*Product, error)
	// Reindex refreshes the search document of a stored product once the
	// surrounding transaction, if any, commits.
	Reindex(ctx context.Context, id uuid.UUID)
	SyncIndex(ctx context.Context) (int, error)
}

type service struct {
	repo      Repository
	catalog   CatalogLookup
	locations LocationLookup
	movements MovementRecorder
	index     *SearchIndex
	images    ImageStore
	tx        *database.Transactor
	logger    *zap.Logger
}

// NewService creates a new product service. index may be nil.
func NewService(
	repo Repository,
	catalog CatalogLookup,
	locations LocationLookup,
	movements MovementRecorder,
	index *SearchIndex,
	images ImageStore,
	tx *database.Transactor,
	logger *zap.Logger,
) Service {
	return &service{
		repo:      repo,
		catalog:   catalog,
		locations: locations,
		movements: movements,
		index:     index,
		images:    images,
		tx:        tx,
		logger:    logger,
	}
}

// authorize checks that actor may work with products held by loc.
func (s *service) authorize(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) error {
	return location.NewGuard(s.locations).Authorize(ctx, actor, loc)
}

// scopedLocation applies the actor's own location and requires exactly one.
func (s *service) scopedLocation(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) (shared.LocationFilter, error) {
	return location.NewGuard(s.locations).Require(ctx, actor, loc)
}

func exactlyOne(loc shared.LocationFilter) bool {
	return (loc.WarehouseID == nil) != (loc.BranchID == nil)
}

// validate runs the field rules plus the checks that need the database.
func (s *service) validate(ctx context.Context, in Input, excludeID *uuid.UUID) (*ValidationResult, error) {
	var siblings []Product
	if exactlyOne(in.Location()) {
		var err error
		if siblings, err = s.repo.FindByLocation(ctx, in.Location(), false); err != nil {
			return nil, err
		}
	}
	result := Validate(in, excludeID, siblings)

	if in.BrandID != nil {
		if _, err := s.catalog.GetBrand(ctx, *in.BrandID); errors.Is(err, common.ErrNotFound) {
			result.Errors["brand_id"] = "The selected brand does not exist."
		} else if err != nil {
			return nil, err
		}
	}
	if in.CategoryID != nil {
		if _, err := s.catalog.GetCategory(ctx, *in.CategoryID); errors.Is(err, common.ErrNotFound) {
			result.Errors["category_id"] = "The selected category does not exist."
		} else if err != nil {
			return nil, err
		}
	}
	if exactlyOne(in.Location()) {
		var err error
		if in.WarehouseID != nil {
			_, err = s.locations.GetWarehouse(ctx, *in.WarehouseID)
		} else {
			_, err = s.locations.GetBranch(ctx, *in.BranchID)
		}
		if errors.Is(err, common.ErrNotFound) {
			result.Errors["location"] = "The selected location does not exist."
		} else if err != nil {
			return nil, err
		}
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (s *service) Validate(ctx context.Context, actor shared.Actor, req ValidateRequest) (*ValidationResult, error) {
	if exactlyOne(req.Location()) {
		if err := s.authorize(ctx, actor, req.Location()); err != nil {
			return nil, err
		}
	}
	return s.validate(ctx, req.Input, req.ExcludeID)
}

func (s *service) FindSimilar(ctx context.Context, actor shared.Actor, req SimilarRequest) ([]SimilarProduct, error) {
	loc, err := s.scopedLocation(ctx, actor, shared.LocationFilter{WarehouseID: req.WarehouseID, BranchID: req.BranchID})
	if err != nil {
		return nil, err
	}
	candidates, err := s.repo.FindByLocation(ctx, loc, true)
	if err != nil {
		return nil, err
	}
	similar := RankSimilar(req.Name, req.BrandID, req.CategoryID, candidates, req.ExcludeID)
	if similar == nil {
		similar = []SimilarProduct{}
	}
	return similar, nil
}

func (s *service) SuggestCode(ctx context.Context, actor shared.Actor, categoryID uuid.UUID, name string, loc shared.LocationFilter) (string, error) {
	loc, err := s.scopedLocation(ctx, actor, loc)
	if err != nil {
		return "", err
	}
	return s.suggestCode(ctx, categoryID, name, loc)
}

func (s *service) suggestCode(ctx context.Context, categoryID uuid.UUID, name string, loc shared.LocationFilter) (string, error) {
	category, err := s.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		return "", err
	}
	existing, err := s.repo.FindByLocation(ctx, loc, false)
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		taken[p.CodeKey] = struct{}{}
	}
	return SuggestCode(category.Name, name, taken), nil
}

func newProduct(in Input) *Product {
	code := strings.TrimSpace(in.InternalCode)
	return &Product{
		Name:           sanitize.Text(in.Name),
		NormalizedName: common.NormalizeText(in.Name),
		Description:    sanitize.OptionalText(in.Description),
		InternalCode:   code,
		CodeKey:        strings.ToLower(code),
		BrandID:        *in.BrandID,
		CategoryID:     *in.CategoryID,
		WarehouseID:    in.WarehouseID,
		BranchID:       in.BranchID,
		Stock:          in.Stock,
		MinStock:       in.MinStock,
		MaxStock:       in.MaxStock,
		Active:         true,
	}
}

func (s *service) Create(ctx context.Context, actor shared.Actor, in Input) (*Product, error) {
	if !actor.IsAdmin() {
		switch {
		case actor.BranchID != nil:
			in.WarehouseID, in.BranchID = nil, actor.BranchID
		case actor.WarehouseID != nil:
			in.WarehouseID, in.BranchID = actor.WarehouseID, nil
		default:
			return nil, common.ErrForbidden.WithDetails("Your account is not bound to a location.")
		}
	}
	return s.Provision(ctx, actor.UserID, in)
}

func (s *service) Provision(ctx context.Context, userID uuid.UUID, in Input) (*Product, error) {
	result, err := s.validate(ctx, in, nil)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, common.NewValidationAPIError(result.Errors)
	}

	p := newProduct(in)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		if p.Stock > 0 {
			return s.movements.RecordInitialStock(ctx, p, userID, initialReason)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create product", zap.Error(err), zap.String("code", p.InternalCode))
		return nil, err
	}
	s.logger.Info("Product created successfully", zap.String("id", p.ID.String()), zap.String("code", p.InternalCode))
	s.Reindex(ctx, p.ID)
	return p, nil
}

func (s *service) CopyToBranch(ctx context.Context, source *Product, branchID uuid.UUID) (*Product, error) {
	existing, err := s.repo.FindByCode(ctx, source.InternalCode, shared.LocationFilter{BranchID: &branchID})
	switch {
	case err == nil:
		if !existing.Active {
			existing.Active = true
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, err
	}

	branch := branchID
	cp := &Product{
		Name:           source.Name,
		NormalizedName: source.NormalizedName,
		Description:    source.Description,
		InternalCode:   source.InternalCode,
		CodeKey:        source.CodeKey,
		BrandID:        source.BrandID,
		CategoryID:     source.CategoryID,
		BranchID:       &branch,
		MinStock:       source.MinStock,
		MaxStock:       source.MaxStock,
		Active:         true,
		ImagePath:      source.ImagePath,
	}
	if err := s.repo.Create(ctx, cp); err != nil {
		return nil, err
	}
	s.logger.Info("Branch product created from warehouse product",
		zap.String("id", cp.ID.String()), zap.String("sourceID", source.ID.String()), zap.String("branchID", branchID.String()))
	return cp, nil
}

func (s *service) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, p.Location()); err != nil {
		return nil, err
	}

	in := Input{
		Name:         p.Name,
		InternalCode: p.InternalCode,
		Description:  p.Description,
		BrandID:      &p.BrandID,
		CategoryID:   &p.CategoryID,
		WarehouseID:  p.WarehouseID,
		BranchID:     p.BranchID,
		Stock:        p.Stock,
		MinStock:     p.MinStock,
		MaxStock:     p.MaxStock,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.InternalCode != nil {
		in.InternalCode = *req.InternalCode
	}
	if req.Description != nil {
		in.Description = req.Description
	}
	if req.BrandID != nil {
		in.BrandID = req.BrandID
	}
	if req.CategoryID != nil {
		in.CategoryID = req.CategoryID
	}
	if req.MinStock != nil {
		in.MinStock = *req.MinStock
	}
	if req.MaxStock != nil {
		in.MaxStock = *req.MaxStock
	}

	result, err := s.validate(ctx, in, &p.ID)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, common.NewValidationAPIError(result.Errors)
	}

	updated := newProduct(in)
	updated.BaseModel = p.BaseModel
	updated.Stock = p.Stock
	updated.Active = p.Active
	updated.ImagePath = p.ImagePath
	if err := s.repo.Update(ctx, updated); err != nil {
		s.logger.Error("Failed to update product", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.Reindex(ctx, id)
	return s.repo.FindByID(ctx, id)
}

func (s *service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, p.Location()); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func (s *service) List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Product, int64, error) {
	q.LocationFilter = q.LocationFilter.ScopeTo(actor)
	if !q.LocationFilter.IsEmpty() {
		if err := s.authorize(ctx, actor, q.LocationFilter); err != nil {
			return nil, 0, err
		}
	}
	return s.repo.List(ctx, q)
}

func (s *service) Deactivate(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, p.Location()); err != nil {
		return err
	}
	if !p.Active {
		return nil
	}
	if _, err := s.repo.SetActive(ctx, []uuid.UUID{id}, false); err != nil {
		return err
	}
	s.logger.Info("Product deactivated", zap.String("id", id.String()))
	s.Reindex(ctx, id)
	return nil
}

func (s *service) Reactivate(ctx context.Context, actor shared.Actor, ids []uuid.UUID) (int64, error) {
	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(products) != len(uniqueIDs(ids)) {
		return 0, common.ErrNotFound.WithDetails("One or more products were not found.")
	}
	var inactive []uuid.UUID
	for i := range products {
		if err := s.authorize(ctx, actor, products[i].Location()); err != nil {
			return 0, err
		}
		if !products[i].Active {
			inactive = append(inactive, products[i].ID)
		}
	}
	n, err := s.repo.SetActive(ctx, inactive, true)
	if err != nil {
		return 0, err
	}
	for _, id := range inactive {
		s.Reindex(ctx, id)
	}
	s.logger.Info("Products reactivated", zap.Int64("count", n))
	return n, nil
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s *service) GetByCode(ctx context.Context, actor shared.Actor, code string, loc shared.LocationFilter) (*Product, error) {
	loc, err := s.scopedLocation(ctx, actor, loc)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByCode(ctx, code, loc)
}

func (s *service) Search(ctx context.Context, actor shared.Actor, term string, loc shared.LocationFilter, limit int) ([]Product, error) {
	if limit <= 0 || limit > common.MaxPageSize {
		limit = searchFallback
	}
	loc = loc.ScopeTo(actor)
	if !loc.IsEmpty() {
		if err := s.authorize(ctx, actor, loc); err != nil {
			return nil, err
		}
	}

	if s.index.Enabled() {
		ids, err := s.index.Search(ctx, term, loc, limit)
		if err == nil {
			byID, err := s.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			ordered := make([]Product, 0, len(ids))
			for _, id := range ids {
				if p, ok := byID[id]; ok && p.Active {
					ordered = append(ordered, p)
				}
			}
			return ordered, nil
		}
		s.logger.Warn("Search index unavailable, falling back to SQL", zap.Error(err))
	}

	active := true
	products, _, err := s.repo.List(ctx, ListQuery{
		LocationFilter:  loc,
		Search:          term,
		Active:          &active,
		PaginationQuery: common.PaginationQuery{Page: 1, PageSize: limit},
	})
	return products, err
}

func (s *service) QRList(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]QRPayload, error) {
	loc, err := s.scopedLocation(ctx, actor, loc)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.FindByLocation(ctx, loc, true)
	if err != nil {
		return nil, err
	}
	payloads := make([]QRPayload, 0, len(products))
	for _, p := range products {
		payloads = append(payloads, QRPayload{ID: p.ID, Name: p.Name, InternalCode: p.InternalCode, Payload: p.InternalCode})
	}
	return payloads, nil
}

func (s *service) QRCode(ctx context.Context, actor shared.Actor, id uuid.UUID, size int) ([]byte, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}
	png, err := qrcode.Encode(p.InternalCode, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	return png, nil
}

func (s *service) SetImage(ctx context.Context, actor shared.Actor, id uuid.UUID, file *multipart.FileHeader) (*Product, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	path, err := s.images.SaveUploadedFile(file, imageSubDir)
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails(err.Error())
	}
	previous := p.ImagePath
	p.ImagePath = &path
	if err := s.repo.Update(ctx, p); err != nil {
		_ = s.images.DeleteFile(path)
		return nil, err
	}
	if previous != nil && *previous != "" {
		if err := s.images.DeleteFile(*previous); err != nil {
			s.logger.Warn("Failed to remove previous product image", zap.Error(err), zap.String("path", *previous))
		}
	}
	return p, nil
}

// Reindex waits for the surrounding transaction, if any, so a rollback never
// leaves a search document behind.
func (s *service) Reindex(ctx context.Context, id uuid.UUID) {
	if !s.index.Enabled() {
		return
	}
	database.AfterCommit(ctx, func(ctx context.Context) { s.reindex(ctx, id) })
}

func (s *service) reindex(ctx context.Context, id uuid.UUID) {
	p, err := s.repo.FindByID(ctx, id)
	if err == nil {
		err = s.index.Index(ctx, p)
	}
	if err != nil {
		s.logger.Warn("Failed to index product", zap.Error(err), zap.String("id", id.String()))
	}
}

func (s *service) SyncIndex(ctx context.Context) (int, error) {
	if !s.index.Enabled() {
		return 0, common.ErrServiceUnavailable.WithDetails("Search index is not configured.")
	}
	total := 0
	err := s.repo.ListAll(ctx, syncBatchSize, func(batch []Product) error {
		n, err := s.index.BulkIndex(ctx, batch)
		total += n
		return err
	})
	if err != nil {
		return total, err
	}
	s.logger.Info("Product index synchronised", zap.Int("indexed", total))
	return total, nil
}
