package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ordena_backend/internal/analytics"
	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/location"
	"ordena_backend/internal/order"
	"ordena_backend/internal/platform/database/dbtest"
	"ordena_backend/internal/product"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/supplier"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockFigures struct {
	mock.Mock
}

func (m *mockFigures) Summary(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) (*analytics.Summary, error) {
	args := m.Called(ctx, actor, loc)
	return args.Get(0).(*analytics.Summary), args.Error(1)
}

func (m *mockFigures) ApprovalRate(ctx context.Context, actor shared.Actor, q analytics.Query) (*analytics.ApprovalRate, error) {
	args := m.Called(ctx, actor, q)
	return args.Get(0).(*analytics.ApprovalRate), args.Error(1)
}

func (m *mockFigures) OrdersByBranch(ctx context.Context, actor shared.Actor, q analytics.Query) ([]analytics.BranchOrders, error) {
	args := m.Called(ctx, actor, q)
	return args.Get(0).([]analytics.BranchOrders), args.Error(1)
}

func (m *mockFigures) TopProducts(ctx context.Context, actor shared.Actor, q analytics.Query) ([]analytics.TopProduct, error) {
	args := m.Called(ctx, actor, q)
	return args.Get(0).([]analytics.TopProduct), args.Error(1)
}

func (m *mockFigures) RequestsVsOrders(ctx context.Context, actor shared.Actor, loc shared.LocationFilter, months int) ([]analytics.MonthlyPoint, error) {
	args := m.Called(ctx, actor, loc, months)
	return args.Get(0).([]analytics.MonthlyPoint), args.Error(1)
}

func (m *mockFigures) ProductsByBranch(ctx context.Context, actor shared.Actor, loc shared.LocationFilter) ([]analytics.BranchProducts, error) {
	args := m.Called(ctx, actor, loc)
	return args.Get(0).([]analytics.BranchProducts), args.Error(1)
}

type ReportServiceSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	svc     Service
	figures *mockFigures

	admin  shared.Actor
	bodega shared.Actor
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T(),
		&location.Warehouse{}, &location.Branch{},
		&catalog.Brand{}, &catalog.Category{}, &product.Product{},
		&user.User{}, &courier.Courier{}, &supplier.Supplier{},
		&requisition.Request{}, &requisition.Item{},
		&order.Order{}, &order.Item{}, &order.StatusChange{}, &Report{})
	s.figures = new(mockFigures)
	s.svc = NewService(NewGORMRepository(s.db), s.figures, time.UTC, zap.NewNop())

	wh := uuid.New()
	s.admin = shared.Actor{UserID: uuid.New(), Role: common.RoleAdmin}
	s.bodega = shared.Actor{UserID: uuid.New(), Role: common.RoleBodega, WarehouseID: &wh}
}

func (s *ReportServiceSuite) TestCreateGetAndScope() {
	r, err := s.svc.Create(s.ctx, s.bodega, CreateReportRequest{
		Title:   "Cierre de mes",
		Module:  ModuleInventory,
		Content: json.RawMessage(`{"units": 120}`),
	})
	s.Require().NoError(err)
	s.Equal(&s.bodega.UserID, r.UserID)
	s.JSONEq(`{"units": 120}`, string(r.Content))

	got, err := s.svc.Get(s.ctx, s.admin, r.ID)
	s.Require().NoError(err)
	s.Equal("Cierre de mes", got.Title)
	s.JSONEq(`{"units": 120}`, string(got.Content))

	other := shared.Actor{UserID: uuid.New(), Role: common.RoleBodega}
	_, err = s.svc.Get(s.ctx, other, r.ID)
	s.ErrorIs(err, common.ErrForbidden)

	_, total, err := s.svc.List(s.ctx, other, ListQuery{PaginationQuery: common.PaginationQuery{Page: 1, PageSize: 10}})
	s.Require().NoError(err)
	s.Zero(total)
	_, total, err = s.svc.List(s.ctx, s.admin, ListQuery{Module: ModuleInventory, PaginationQuery: common.PaginationQuery{Page: 1, PageSize: 10}})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	_, _, err = s.svc.List(s.ctx, s.admin, ListQuery{Module: "ventas"})
	s.ErrorIs(err, common.ErrBadRequest)
}

func (s *ReportServiceSuite) TestCreateValidates() {
	missing := uuid.New()
	_, err := s.svc.Create(s.ctx, s.admin, CreateReportRequest{
		Title: "Pedido perdido", Module: ModuleOrders, OrderID: &missing, ProductID: &missing,
	})
	s.Require().ErrorIs(err, common.ErrValidation)
	apiErr, _ := common.IsAPIError(err)
	s.Contains(apiErr.Details, "order_id")
	s.Contains(apiErr.Details, "product_id")

	_, err = s.svc.Create(s.ctx, s.admin, CreateReportRequest{
		Title: "Malformado", Module: ModuleGeneral, Content: json.RawMessage(`{"a":`),
	})
	s.ErrorIs(err, common.ErrValidation)
}

func (s *ReportServiceSuite) TestUpdateAndDelete() {
	r, err := s.svc.Create(s.ctx, s.bodega, CreateReportRequest{Title: "Borrador", Module: ModuleGeneral})
	s.Require().NoError(err)
	s.JSONEq(`{}`, string(r.Content))

	title := "Informe final"
	r, err = s.svc.Update(s.ctx, s.bodega, r.ID, UpdateReportRequest{Title: &title, Content: json.RawMessage(`[1,2]`)})
	s.Require().NoError(err)
	s.Equal("Informe final", r.Title)
	s.JSONEq(`[1,2]`, string(r.Content))

	s.Require().NoError(s.svc.Delete(s.ctx, s.bodega, r.ID))
	_, err = s.svc.Get(s.ctx, s.bodega, r.ID)
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *ReportServiceSuite) TestGenerate() {
	loc := shared.LocationFilter{WarehouseID: s.bodega.WarehouseID}
	q := analytics.Query{LocationFilter: loc}
	s.figures.On("ApprovalRate", mock.Anything, s.bodega, q).
		Return(&analytics.ApprovalRate{Approved: 3, Denied: 1, Rate: 0.75}, nil).Once()
	s.figures.On("TopProducts", mock.Anything, s.bodega, q).
		Return([]analytics.TopProduct{{Code: "HER-MAR-001", Name: "Martillo", Quantity: 12, Requests: 4}}, nil).Once()

	r, err := s.svc.Generate(s.ctx, s.bodega, GenerateRequest{Module: ModuleRequests, WarehouseID: s.bodega.WarehouseID})
	s.Require().NoError(err)
	s.figures.AssertExpectations(s.T())
	s.Contains(r.Title, "Informe de solicitudes")

	var content map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(r.Content, &content))
	s.JSONEq(`{"approved":3,"denied":1,"pending":0,"approval_rate":0.75}`, string(content["approval_rate"]))
	s.Contains(content, "top_products")
	s.Contains(content, "warehouse_id")
	s.NotContains(content, "summary")
}

func (s *ReportServiceSuite) TestGenerateGeneralIncludesEverything() {
	s.figures.On("Summary", mock.Anything, s.admin, shared.LocationFilter{}).Return(&analytics.Summary{ActiveProducts: 9}, nil)
	s.figures.On("ProductsByBranch", mock.Anything, s.admin, shared.LocationFilter{}).Return([]analytics.BranchProducts{}, nil)
	s.figures.On("OrdersByBranch", mock.Anything, s.admin, analytics.Query{}).Return([]analytics.BranchOrders{}, nil)
	s.figures.On("RequestsVsOrders", mock.Anything, s.admin, shared.LocationFilter{}, 0).Return([]analytics.MonthlyPoint{}, nil)
	s.figures.On("ApprovalRate", mock.Anything, s.admin, analytics.Query{}).Return(&analytics.ApprovalRate{}, nil)
	s.figures.On("TopProducts", mock.Anything, s.admin, analytics.Query{}).Return([]analytics.TopProduct{}, nil)

	r, err := s.svc.Generate(s.ctx, s.admin, GenerateRequest{Module: ModuleGeneral})
	s.Require().NoError(err)

	var content map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(r.Content, &content))
	for _, k := range []string{"summary", "products_by_branch", "orders_by_branch", "requests_vs_orders", "approval_rate", "top_products", "generated_at"} {
		s.Contains(content, k)
	}

	_, err = s.svc.Generate(s.ctx, s.admin, GenerateRequest{Module: ModuleGeneral, WarehouseID: &r.ID, BranchID: &r.ID})
	s.ErrorIs(err, common.ErrBadRequest)
}

func (s *ReportServiceSuite) TestCleanupOrphans() {
	brand := &catalog.Brand{Name: "Stanley", NameKey: "stanley", Slug: "stanley"}
	s.Require().NoError(s.db.Create(brand).Error)
	cat := &catalog.Category{Name: "Herramientas", NameKey: "herramientas", Slug: "herramientas"}
	s.Require().NoError(s.db.Create(cat).Error)
	wh := &location.Warehouse{Name: "Bodega", Address: "Calle 1", RUT: "11111111-1"}
	s.Require().NoError(s.db.Create(wh).Error)
	p := &product.Product{Name: "Martillo", NormalizedName: "martillo", InternalCode: "HER-MAR-001", CodeKey: "her-mar-001",
		BrandID: brand.ID, CategoryID: cat.ID, WarehouseID: &wh.ID, Active: true}
	s.Require().NoError(product.NewGORMRepository(s.db).Create(s.ctx, p))

	gone := uuid.New()
	repo := NewGORMRepository(s.db)
	keep := []*Report{
		{Title: "Sin referencias", Module: ModuleGeneral, GeneratedAt: time.Now()},
		{Title: "Producto vigente", Module: ModuleInventory, GeneratedAt: time.Now(), ProductID: &p.ID},
	}
	orphans := []*Report{
		{Title: "Pedido borrado", Module: ModuleOrders, GeneratedAt: time.Now(), OrderID: &gone},
		{Title: "Producto borrado", Module: ModuleInventory, GeneratedAt: time.Now(), ProductID: &gone},
	}
	for _, r := range append(keep, orphans...) {
		r.Content = json.RawMessage(`{}`)
		s.Require().NoError(repo.Create(s.ctx, r))
	}

	n, err := s.svc.CleanupOrphans(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(2, n)

	for _, r := range keep {
		_, err := repo.FindByID(s.ctx, r.ID)
		s.NoError(err)
	}
	n, err = s.svc.CleanupOrphans(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}
