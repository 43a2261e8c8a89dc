package product

import (
	"context"
	"testing"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/location"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/database/dbtest"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordInitialStock(ctx context.Context, p *Product, userID uuid.UUID, reason string) error {
	return m.Called(ctx, p, userID, reason).Error(0)
}

type ProductServiceSuite struct {
	suite.Suite
	ctx      context.Context
	svc      Service
	recorder *mockRecorder

	warehouse *location.Warehouse
	branch    *location.Branch
	brand     *catalog.Brand
	category  *catalog.Category

	admin  shared.Actor
	bodega shared.Actor
	clerk  shared.Actor
}

func TestProductServiceSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceSuite))
}

func (s *ProductServiceSuite) SetupTest() {
	s.ctx = context.Background()
	db := dbtest.New(s.T(), &location.Warehouse{}, &location.Branch{}, &catalog.Brand{}, &catalog.Category{}, &Product{})
	logger := zap.NewNop()

	locations := location.NewService(location.NewGORMRepository(db), logger)
	catalogSvc := catalog.NewService(catalog.NewGORMRepository(db), logger)
	s.recorder = new(mockRecorder)
	s.svc = NewService(NewGORMRepository(db), catalogSvc, locations, s.recorder, nil, nil, database.NewTransactor(db), logger)

	var err error
	s.warehouse, err = locations.CreateWarehouse(s.ctx, location.CreateWarehouseRequest{Name: "Bodega Central", Address: "Av. Matta 100", RUT: "11111111-1"})
	s.Require().NoError(err)
	s.branch, err = locations.CreateBranch(s.ctx, location.CreateBranchRequest{Name: "Sucursal Norte", Address: "Calle 2", RUT: "22222222-2", WarehouseID: s.warehouse.ID})
	s.Require().NoError(err)
	s.brand, err = catalogSvc.CreateBrand(s.ctx, catalog.CreateEntryRequest{Name: "Stanley"})
	s.Require().NoError(err)
	s.category, err = catalogSvc.CreateCategory(s.ctx, catalog.CreateEntryRequest{Name: "Herramientas"})
	s.Require().NoError(err)

	s.admin = shared.Actor{UserID: uuid.New(), Role: common.RoleAdmin}
	s.bodega = shared.Actor{UserID: uuid.New(), Role: common.RoleBodega, WarehouseID: &s.warehouse.ID}
	s.clerk = shared.Actor{UserID: uuid.New(), Role: common.RoleSucursal, BranchID: &s.branch.ID}
}

func (s *ProductServiceSuite) input(name, code string, stock int) Input {
	return Input{
		Name:         name,
		InternalCode: code,
		BrandID:      &s.brand.ID,
		CategoryID:   &s.category.ID,
		WarehouseID:  &s.warehouse.ID,
		Stock:        stock,
		MinStock:     2,
		MaxStock:     50,
	}
}

func (s *ProductServiceSuite) TestCreateRecordsInitialStockAndForcesLocation() {
	s.recorder.On("RecordInitialStock", mock.Anything, mock.AnythingOfType("*product.Product"), s.clerk.UserID, "Stock inicial").Return(nil).Once()

	in := s.input("Martillo", "HER-MAR-001", 10)
	p, err := s.svc.Create(s.ctx, s.clerk, in)
	s.Require().NoError(err)
	s.Nil(p.WarehouseID)
	s.Equal(s.branch.ID, *p.BranchID)
	s.Equal("martillo", p.NormalizedName)
	s.Equal("her-mar-001", p.CodeKey)
	s.recorder.AssertExpectations(s.T())

	// Zero stock writes no movement.
	_, err = s.svc.Create(s.ctx, s.bodega, s.input("Alicate", "HER-ALI-001", 0))
	s.Require().NoError(err)
	s.recorder.AssertNumberOfCalls(s.T(), "RecordInitialStock", 1)
}

func (s *ProductServiceSuite) TestCreateRejectsInvalidProducts() {
	_, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo", "HER-MAR-001", 0))
	s.Require().NoError(err)

	_, err = s.svc.Create(s.ctx, s.admin, s.input("Martillo de goma", "her-mar-001", 0))
	s.ErrorIs(err, common.ErrValidation)
	apiErr, ok := common.IsAPIError(err)
	s.Require().True(ok)
	s.Contains(apiErr.Details, "internal_code")

	unknown := uuid.New()
	in := s.input("Serrucho", "HER-SER-001", 0)
	in.BrandID = &unknown
	_, err = s.svc.Create(s.ctx, s.admin, in)
	s.ErrorIs(err, common.ErrValidation)

	// The same code is fine in another location.
	in = s.input("Martillo", "HER-MAR-001", 0)
	in.WarehouseID, in.BranchID = nil, &s.branch.ID
	_, err = s.svc.Create(s.ctx, s.admin, in)
	s.NoError(err)
}

func (s *ProductServiceSuite) TestValidateReportsErrorsAndWarnings() {
	_, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo de goma", "HER-MAR-001", 0))
	s.Require().NoError(err)

	unknown := uuid.New()
	req := ValidateRequest{Input: s.input("Martillo", "HER-MAR-002", 0)}
	req.CategoryID = &unknown
	res, err := s.svc.Validate(s.ctx, s.admin, req)
	s.Require().NoError(err)
	s.False(res.Valid)
	s.Contains(res.Errors, "category_id")
	s.Len(res.Warnings, 1)
}

func (s *ProductServiceSuite) TestUpdate() {
	p, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo", "HER-MAR-001", 0))
	s.Require().NoError(err)

	name := "Martillo carpintero"
	updated, err := s.svc.Update(s.ctx, s.bodega, p.ID, UpdateProductRequest{Name: &name})
	s.Require().NoError(err)
	s.Equal("martillo carpintero", updated.NormalizedName)
	s.Require().NotNil(updated.Brand)
	s.Equal("Stanley", updated.Brand.Name)

	badMin := 80
	_, err = s.svc.Update(s.ctx, s.admin, p.ID, UpdateProductRequest{MinStock: &badMin})
	s.ErrorIs(err, common.ErrValidation)

	_, err = s.svc.Update(s.ctx, s.clerk, p.ID, UpdateProductRequest{Name: &name})
	s.ErrorIs(err, common.ErrForbidden)
}

func (s *ProductServiceSuite) TestDeactivateAndReactivate() {
	p, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo", "HER-MAR-001", 0))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Deactivate(s.ctx, s.bodega, p.ID))

	active := true
	list, total, err := s.svc.List(s.ctx, s.bodega, ListQuery{Active: &active})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(list)

	inactive := false
	_, total, err = s.svc.List(s.ctx, s.bodega, ListQuery{Active: &inactive})
	s.Require().NoError(err)
	s.Equal(int64(1), total)

	n, err := s.svc.Reactivate(s.ctx, s.bodega, []uuid.UUID{p.ID, p.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.svc.Reactivate(s.ctx, s.admin, []uuid.UUID{uuid.New()})
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *ProductServiceSuite) TestCopyToBranch() {
	source, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo", "HER-MAR-001", 0))
	s.Require().NoError(err)

	cp, err := s.svc.CopyToBranch(s.ctx, source, s.branch.ID)
	s.Require().NoError(err)
	s.NotEqual(source.ID, cp.ID)
	s.Equal(0, cp.Stock)
	s.Equal(source.InternalCode, cp.InternalCode)
	s.Equal(s.branch.ID, *cp.BranchID)

	s.Require().NoError(s.svc.Deactivate(s.ctx, s.admin, cp.ID))
	again, err := s.svc.CopyToBranch(s.ctx, source, s.branch.ID)
	s.Require().NoError(err)
	s.Equal(cp.ID, again.ID)
	s.True(again.Active)

	byCode, err := s.svc.GetByCode(s.ctx, s.clerk, "her-mar-001", shared.LocationFilter{})
	s.Require().NoError(err)
	s.Equal(cp.ID, byCode.ID)
}

func (s *ProductServiceSuite) TestSuggestCodeSkipsTakenCodes() {
	_, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo", "HER-MAR-001", 0))
	s.Require().NoError(err)

	code, err := s.svc.SuggestCode(s.ctx, s.bodega, s.category.ID, "Martillo de bola", shared.LocationFilter{})
	s.Require().NoError(err)
	s.Equal("HER-MAR-002", code)

	_, err = s.svc.SuggestCode(s.ctx, s.admin, s.category.ID, "Martillo", shared.LocationFilter{})
	s.ErrorIs(err, common.ErrBadRequest)
}

func (s *ProductServiceSuite) TestSearchFallsBackToSQL() {
	_, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo de goma", "HER-MAR-001", 0))
	s.Require().NoError(err)
	_, err = s.svc.Create(s.ctx, s.admin, s.input("Serrucho", "HER-SER-001", 0))
	s.Require().NoError(err)

	found, err := s.svc.Search(s.ctx, s.bodega, "GOMA", shared.LocationFilter{}, 0)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("HER-MAR-001", found[0].InternalCode)

	found, err = s.svc.Search(s.ctx, s.clerk, "goma", shared.LocationFilter{}, 0)
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *ProductServiceSuite) TestQRCode() {
	p, err := s.svc.Create(s.ctx, s.admin, s.input("Martillo", "HER-MAR-001", 0))
	s.Require().NoError(err)

	png, err := s.svc.QRCode(s.ctx, s.bodega, p.ID, 0)
	s.Require().NoError(err)
	s.Equal([]byte("\x89PNG"), png[:4])

	payloads, err := s.svc.QRList(s.ctx, s.bodega, shared.LocationFilter{})
	s.Require().NoError(err)
	s.Require().Len(payloads, 1)
	s.Equal("HER-MAR-001", payloads[0].Payload)

	_, err = s.svc.QRCode(s.ctx, s.clerk, p.ID, 0)
	s.ErrorIs(err, common.ErrForbidden)
}
