// File: internal/intake/service.go
package intake

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/order"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/product"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/supplier"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const uploadSubDir = "intake"

// FileStore keeps uploaded supplier documents.
type FileStore interface {
	SaveUploadedFile(fileHeader *multipart.FileHeader, subDir string) (string, error)
	Open(relativePath string) (*os.File, error)
	DeleteFile(relativePath string) error
}

// ProductProvisioner creates products and suggests codes for them.
type ProductProvisioner interface {
	Provision(ctx context.Context, userID uuid.UUID, in product.Input) (*product.Product, error)
	SuggestCode(ctx context.Context, actor shared.Actor, categoryID uuid.UUID, name string, loc shared.LocationFilter) (string, error)
}

// Catalog finds or creates brands and categories by name.
type Catalog interface {
	FindOrCreateBrandByName(ctx context.Context, name string) (*catalog.Brand, error)
	FindOrCreateCategoryByName(ctx context.Context, name string) (*catalog.Category, error)
}

// CatalogLookup finds brands and categories by normalised name without creating them.
type CatalogLookup interface {
	FindBrandByNameKey(ctx context.Context, key string) (*catalog.Brand, error)
	FindCategoryByNameKey(ctx context.Context, key string) (*catalog.Category, error)
}

// Suppliers upserts suppliers by RUT.
type Suppliers interface {
	FindOrCreateByRUT(ctx context.Context, req supplier.CreateSupplierRequest) (*supplier.Supplier, error)
}

// Receiver books the received goods into the warehouse.
type Receiver interface {
	ReceiveFromSupplier(ctx context.Context, userID uuid.UUID, in order.SupplierReceipt) (*order.Order, error)
}

// Service reconciles supplier documents with the warehouse catalogue.
type Service interface {
	Extract(ctx context.Context, actor shared.Actor, file *multipart.FileHeader) (*ExtractResult, error)
	Match(ctx context.Context, actor shared.Actor, req MatchRequest) ([]MatchResult, error)
	Commit(ctx context.Context, actor shared.Actor, req CommitRequest) (*CommitResult, error)
}

type service struct {
	files     FileStore
	products  ProductProvisioner
	repo      product.Repository
	entries   Catalog
	lookup    CatalogLookup
	suppliers Suppliers
	receiver  Receiver
	tx        *database.Transactor
	logger    *zap.Logger
}

// NewService creates the intake service.
func NewService(
	files FileStore,
	products ProductProvisioner,
	repo product.Repository,
	entries Catalog,
	lookup CatalogLookup,
	suppliers Suppliers,
	receiver Receiver,
	tx *database.Transactor,
	logger *zap.Logger,
) Service {
	return &service{
		files:     files,
		products:  products,
		repo:      repo,
		entries:   entries,
		lookup:    lookup,
		suppliers: suppliers,
		receiver:  receiver,
		tx:        tx,
		logger:    logger,
	}
}

func authorize(actor shared.Actor, warehouseID uuid.UUID) error {
	if actor.IsAdmin() || (actor.Role == common.RoleBodega && actor.CanAccessWarehouse(warehouseID)) {
		return nil
	}
	return common.ErrForbidden.WithDetails("Only staff of the warehouse can receive goods into it.")
}

func (s *service) Extract(ctx context.Context, actor shared.Actor, file *multipart.FileHeader) (*ExtractResult, error) {
	if !actor.IsAdmin() && actor.Role != common.RoleBodega {
		return nil, common.ErrForbidden.WithDetails("Only warehouse staff can import supplier documents.")
	}
	if file == nil {
		return nil, common.ErrBadRequest.WithDetails("A PDF file is required.")
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return nil, common.ErrBadRequest.WithDetails("Only PDF files can be imported.")
	}
	path, err := s.files.SaveUploadedFile(file, uploadSubDir)
	if err != nil {
		s.logger.Error("Failed to store supplier document", zap.Error(err))
		return nil, common.ErrBadRequest.WithDetails("The file could not be stored.")
	}

	f, err := s.files.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	text, pages, err := ReadPDFText(f, info.Size())
	if err != nil {
		s.logger.Warn("Unreadable supplier document", zap.Error(err), zap.String("path", path))
		if delErr := s.files.DeleteFile(path); delErr != nil {
			s.logger.Warn("Failed to remove unreadable document", zap.Error(delErr))
		}
		return nil, common.ErrUnprocessableEntity.WithDetails("The file is not a readable PDF.")
	}

	lines := ParseLines(text)
	if lines == nil {
		lines = []Line{}
	}
	s.logger.Info("Supplier document extracted",
		zap.String("path", path), zap.Int("pages", pages), zap.Int("lines", len(lines)))
	return &ExtractResult{FilePath: path, Pages: pages, Lines: lines}, nil
}

// lookupID returns the id of the catalogue entry called name, or nil when
// there is none.
func lookupID[T any](ctx context.Context, name *string, find func(context.Context, string) (*T, error), id func(*T) uuid.UUID) (*uuid.UUID, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return nil, nil
	}
	entry, err := find(ctx, common.NormalizeText(*name))
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := id(entry)
	return &v, nil
}

func (s *service) Match(ctx context.Context, actor shared.Actor, req MatchRequest) ([]MatchResult, error) {
	if err := authorize(actor, req.WarehouseID); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByLocation(ctx, shared.LocationFilter{WarehouseID: &req.WarehouseID}, false)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]*product.Product, len(existing))
	for i := range existing {
		byCode[existing[i].CodeKey] = &existing[i]
	}

	results := make([]MatchResult, 0, len(req.Lines))
	for i, line := range req.Lines {
		brandID, err := lookupID(ctx, line.Brand, s.lookup.FindBrandByNameKey, func(b *catalog.Brand) uuid.UUID { return b.ID })
		if err != nil {
			return nil, err
		}
		categoryID, err := lookupID(ctx, line.Category, s.lookup.FindCategoryByNameKey, func(c *catalog.Category) uuid.UUID { return c.ID })
		if err != nil {
			return nil, err
		}

		result := MatchResult{Index: i}
		if line.Code != nil {
			result.ExactMatch = byCode[strings.ToLower(strings.TrimSpace(*line.Code))]
		}
		if result.ExactMatch == nil && brandID != nil && categoryID != nil {
			name := common.NormalizeText(line.Name)
			for j := range existing {
				p := &existing[j]
				if p.NormalizedName == name && p.BrandID == *brandID && p.CategoryID == *categoryID {
					result.ExactMatch = p
					break
				}
			}
		}

		var exclude *uuid.UUID
		if result.ExactMatch != nil {
			exclude = &result.ExactMatch.ID
		}
		result.Candidates = product.RankSimilar(line.Name, brandID, categoryID, existing, exclude)
		if result.Candidates == nil {
			result.Candidates = []product.SimilarProduct{}
		}
		switch {
		case result.ExactMatch != nil:
			result.SuggestedAction = ActionMerge
		case len(result.Candidates) > 0:
			result.SuggestedAction = ActionReview
		default:
			result.SuggestedAction = ActionCreate
		}
		results = append(results, result)
	}
	return results, nil
}

// prefixed moves validation details under the key of the line that caused them.
func prefixed(errs map[string]string, prefix string, err error) error {
	apiErr, ok := common.IsAPIError(err)
	if !ok || !errors.Is(err, common.ErrValidation) {
		return err
	}
	if details, ok := apiErr.Details.(map[string]string); ok {
		for k, v := range details {
			errs[prefix+"."+k] = v
		}
		return nil
	}
	errs[prefix] = fmt.Sprint(apiErr.Details)
	return nil
}

func (s *service) Commit(ctx context.Context, actor shared.Actor, req CommitRequest) (*CommitResult, error) {
	if err := authorize(actor, req.WarehouseID); err != nil {
		return nil, err
	}
	warehouse := shared.LocationFilter{WarehouseID: &req.WarehouseID}
	result := &CommitResult{Created: []product.Product{}, Merged: []product.Product{}}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		errs := map[string]string{}

		if common.IsValidRUT(req.Supplier.RUT) {
			sup, err := s.suppliers.FindOrCreateByRUT(ctx, req.Supplier)
			if err != nil {
				if err := prefixed(errs, "supplier", err); err != nil {
					return err
				}
			}
			result.Supplier = sup
		} else {
			errs["supplier.rut"] = "The supplier RUT is not valid."
		}

		quantities := map[uuid.UUID]int{}
		var sequence []uuid.UUID
		add := func(id uuid.UUID, qty int) {
			if _, seen := quantities[id]; !seen {
				sequence = append(sequence, id)
			}
			quantities[id] += qty
		}

		for i, line := range req.Lines {
			key := fmt.Sprintf("lines[%d]", i)
			switch line.Action {
			case ActionMerge:
				p, err := s.merge(ctx, line, req.WarehouseID, errs, key)
				if err != nil {
					return err
				}
				if p != nil {
					add(p.ID, line.Quantity)
					result.Merged = append(result.Merged, *p)
				}
			case ActionCreate:
				p, err := s.create(ctx, actor, line, warehouse, errs, key)
				if err != nil {
					return err
				}
				if p != nil {
					add(p.ID, line.Quantity)
					result.Created = append(result.Created, *p)
				}
			default:
				errs[key+".action"] = "The action must be merge or create."
			}
		}
		if len(errs) > 0 {
			return common.NewValidationAPIError(errs)
		}

		items := make([]order.ItemInput, 0, len(sequence))
		for _, id := range sequence {
			items = append(items, order.ItemInput{ProductID: id, Quantity: quantities[id]})
		}
		o, err := s.receiver.ReceiveFromSupplier(ctx, actor.UserID, order.SupplierReceipt{
			WarehouseID:           req.WarehouseID,
			SupplierID:            result.Supplier.ID,
			SupplierDocument:      req.SupplierDocument,
			SupplierDispatchGuide: req.SupplierDispatchGuide,
			Description:           req.Observations,
			Items:                 items,
		})
		if err != nil {
			return err
		}
		result.Order = o
		return nil
	})
	if err != nil {
		s.logger.Warn("Intake commit rejected", zap.Error(err), zap.String("warehouseID", req.WarehouseID.String()))
		return nil, err
	}
	s.logger.Info("Intake committed",
		zap.String("warehouseID", req.WarehouseID.String()),
		zap.String("supplier", result.Supplier.RUT),
		zap.Int("created", len(result.Created)),
		zap.Int("merged", len(result.Merged)))
	return result, nil
}

// merge loads the target of a merge line and reactivates it when needed.
// Line problems go to errs; only unexpected failures are returned.
func (s *service) merge(ctx context.Context, line CommitLine, warehouseID uuid.UUID, errs map[string]string, key string) (*product.Product, error) {
	if line.ProductID == nil {
		errs[key+".product_id"] = "A product is required to merge into."
		return nil, nil
	}
	p, err := s.repo.FindByID(ctx, *line.ProductID)
	if errors.Is(err, common.ErrNotFound) {
		errs[key+".product_id"] = "Product not found."
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.WarehouseID == nil || *p.WarehouseID != warehouseID {
		errs[key+".product_id"] = "Product does not belong to this warehouse."
		return nil, nil
	}
	if !p.Active {
		if _, err := s.repo.SetActive(ctx, []uuid.UUID{p.ID}, true); err != nil {
			return nil, err
		}
		p.Active = true
	}
	return p, nil
}

func (s *service) create(ctx context.Context, actor shared.Actor, line CommitLine, loc shared.LocationFilter, errs map[string]string, key string) (*product.Product, error) {
	if strings.TrimSpace(line.Brand) == "" {
		errs[key+".brand"] = "The brand field is required."
	}
	if strings.TrimSpace(line.Category) == "" {
		errs[key+".category"] = "The category field is required."
	}
	if errs[key+".brand"] != "" || errs[key+".category"] != "" {
		return nil, nil
	}

	brand, err := s.entries.FindOrCreateBrandByName(ctx, line.Brand)
	if err != nil {
		return nil, prefixed(errs, key+".brand", err)
	}
	category, err := s.entries.FindOrCreateCategoryByName(ctx, line.Category)
	if err != nil {
		return nil, prefixed(errs, key+".category", err)
	}

	code := ""
	if line.Code != nil {
		code = strings.TrimSpace(*line.Code)
	}
	if code == "" {
		if code, err = s.products.SuggestCode(ctx, actor, category.ID, line.Name, loc); err != nil {
			return nil, err
		}
	}

	in := product.Input{
		Name:         line.Name,
		InternalCode: code,
		Description:  line.Description,
		BrandID:      &brand.ID,
		CategoryID:   &category.ID,
		WarehouseID:  loc.WarehouseID,
	}
	if line.MinStock != nil {
		in.MinStock = *line.MinStock
	}
	if line.MaxStock != nil {
		in.MaxStock = *line.MaxStock
	}
	p, err := s.products.Provision(ctx, actor.UserID, in)
	if err != nil {
		return nil, prefixed(errs, key, err)
	}
	return p, nil
}
