package analytics

import (
	"context"
	"testing"
	"time"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/location"
	"ordena_backend/internal/order"
	"ordena_backend/internal/platform/cache"
	"ordena_backend/internal/platform/database/dbtest"
	"ordena_backend/internal/product"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/supplier"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockUnread struct {
	mock.Mock
}

func (m *mockUnread) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type AnalyticsServiceSuite struct {
	suite.Suite
	ctx    context.Context
	db     *gorm.DB
	svc    *service
	unread *mockUnread

	warehouse *location.Warehouse
	north     *location.Branch
	south     *location.Branch
	brandID   uuid.UUID
	catID     uuid.UUID
	hammer    *product.Product
	saw       *product.Product

	admin  shared.Actor
	bodega shared.Actor
	clerk  shared.Actor
}

func TestAnalyticsServiceSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceSuite))
}

func (s *AnalyticsServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T(),
		&location.Warehouse{}, &location.Branch{},
		&catalog.Brand{}, &catalog.Category{}, &product.Product{},
		&courier.Courier{}, &supplier.Supplier{},
		&requisition.Request{}, &requisition.Item{},
		&order.Order{}, &order.Item{}, &order.StatusChange{})
	logger := zap.NewNop()
	locations := location.NewService(location.NewGORMRepository(s.db), logger)
	s.unread = new(mockUnread)
	s.svc = NewService(NewGORMRepository(s.db), locations, s.unread, nil, 0, time.UTC, logger).(*service)

	var err error
	s.warehouse, err = locations.CreateWarehouse(s.ctx, location.CreateWarehouseRequest{Name: "Bodega Central", Address: "Av. Matta 100", RUT: "11111111-1"})
	s.Require().NoError(err)
	s.north, err = locations.CreateBranch(s.ctx, location.CreateBranchRequest{Name: "Sucursal Norte", Address: "Calle 2", RUT: "22222222-2", WarehouseID: s.warehouse.ID})
	s.Require().NoError(err)
	s.south, err = locations.CreateBranch(s.ctx, location.CreateBranchRequest{Name: "Sucursal Sur", Address: "Calle 9", RUT: "33333333-3", WarehouseID: s.warehouse.ID})
	s.Require().NoError(err)

	brand := &catalog.Brand{Name: "Stanley", Slug: "stanley"}
	s.Require().NoError(s.db.Create(brand).Error)
	cat := &catalog.Category{Name: "Herramientas", Slug: "herramientas"}
	s.Require().NoError(s.db.Create(cat).Error)
	s.brandID, s.catID = brand.ID, cat.ID

	s.hammer = s.product("HER-MAR-001", shared.LocationFilter{WarehouseID: &s.warehouse.ID}, 2, 5)
	s.saw = s.product("HER-SER-001", shared.LocationFilter{WarehouseID: &s.warehouse.ID}, 40, 5)
	s.product("HER-MAR-001", shared.LocationFilter{BranchID: &s.north.ID}, 3, 0)
	s.product("HER-SER-001", shared.LocationFilter{BranchID: &s.north.ID}, 4, 0)

	s.admin = shared.Actor{UserID: uuid.New(), Role: common.RoleAdmin}
	s.bodega = shared.Actor{UserID: uuid.New(), Role: common.RoleBodega, WarehouseID: &s.warehouse.ID}
	s.clerk = shared.Actor{UserID: uuid.New(), Role: common.RoleSucursal, BranchID: &s.north.ID}
}

func (s *AnalyticsServiceSuite) product(code string, loc shared.LocationFilter, stock, minStock int) *product.Product {
	p := &product.Product{
		Name: "Producto " + code, NormalizedName: "producto " + code,
		InternalCode: code, CodeKey: code,
		BrandID: s.brandID, CategoryID: s.catID,
		WarehouseID: loc.WarehouseID, BranchID: loc.BranchID,
		Stock: stock, MinStock: minStock, Active: true,
	}
	s.Require().NoError(product.NewGORMRepository(s.db).Create(s.ctx, p))
	return p
}

func (s *AnalyticsServiceSuite) request(branch *location.Branch, status requisition.Status, at time.Time, items ...requisition.Item) {
	r := &requisition.Request{
		BranchID: branch.ID, WarehouseID: s.warehouse.ID,
		RequesterID: uuid.New(), Status: status, Items: items,
	}
	r.CreatedAt = at
	s.Require().NoError(requisition.NewGORMRepository(s.db).Create(s.ctx, r))
}

func (s *AnalyticsServiceSuite) transfer(branch *location.Branch, status order.Status, at time.Time) {
	o := &order.Order{
		Kind: order.KindTransfer, Status: status,
		WarehouseID: s.warehouse.ID, BranchID: &branch.ID, CreatedByID: uuid.New(),
	}
	o.CreatedAt = at
	s.Require().NoError(order.NewGORMRepository(s.db).Create(s.ctx, o))
}

func (s *AnalyticsServiceSuite) TestSummary() {
	now := time.Now().UTC()
	s.request(s.north, requisition.StatusPending, now, requisition.Item{ProductID: s.hammer.ID, Quantity: 1})
	s.request(s.south, requisition.StatusApproved, now, requisition.Item{ProductID: s.hammer.ID, Quantity: 1})
	s.transfer(s.north, order.StatusPending, now)
	s.transfer(s.north, order.StatusInTransit, now)
	s.transfer(s.south, order.StatusCompleted, now)
	s.unread.On("UnreadCount", mock.Anything, s.bodega.UserID).Return(int64(3), nil).Once()

	sum, err := s.svc.Summary(s.ctx, s.bodega, shared.LocationFilter{})
	s.Require().NoError(err)
	s.Equal(&Summary{
		ActiveProducts:      2,
		LowStockProducts:    1,
		PendingRequests:     1,
		PendingTransfers:    2,
		UnreadNotifications: 3,
	}, sum)
	s.unread.AssertExpectations(s.T())

	s.unread.On("UnreadCount", mock.Anything, s.clerk.UserID).Return(int64(0), nil).Twice()
	sum, err = s.svc.Summary(s.ctx, s.clerk, shared.LocationFilter{})
	s.Require().NoError(err)
	s.EqualValues(2, sum.ActiveProducts)
	s.EqualValues(0, sum.LowStockProducts)
	s.EqualValues(2, sum.PendingTransfers)

	pinned, err := s.svc.Summary(s.ctx, s.clerk, shared.LocationFilter{BranchID: &s.south.ID})
	s.Require().NoError(err)
	s.Equal(sum, pinned, "branch staff are pinned to their own branch")
	s.unread.AssertExpectations(s.T())
}

func (s *AnalyticsServiceSuite) TestSummaryIsCached() {
	s.svc.store = cache.NewMemoryStore(time.Minute, time.Minute)
	s.svc.ttl = time.Minute
	s.unread.On("UnreadCount", mock.Anything, s.admin.UserID).Return(int64(0), nil).Once()

	first, err := s.svc.Summary(s.ctx, s.admin, shared.LocationFilter{})
	s.Require().NoError(err)
	s.EqualValues(4, first.ActiveProducts)

	s.product("HER-TAL-001", shared.LocationFilter{WarehouseID: &s.warehouse.ID}, 1, 0)
	second, err := s.svc.Summary(s.ctx, s.admin, shared.LocationFilter{})
	s.Require().NoError(err)
	s.Equal(first, second)
	s.unread.AssertExpectations(s.T())
}

func (s *AnalyticsServiceSuite) TestApprovalRate() {
	now := time.Now().UTC()
	for _, st := range []requisition.Status{
		requisition.StatusApproved, requisition.StatusApproved, requisition.StatusDenied, requisition.StatusPending,
	} {
		s.request(s.north, st, now)
	}

	rate, err := s.svc.ApprovalRate(s.ctx, s.admin, Query{})
	s.Require().NoError(err)
	s.EqualValues(2, rate.Approved)
	s.EqualValues(1, rate.Denied)
	s.EqualValues(1, rate.Pending)
	s.InDelta(0.6667, rate.Rate, 0.0001)

	rate, err = s.svc.ApprovalRate(s.ctx, s.admin, Query{LocationFilter: shared.LocationFilter{BranchID: &s.south.ID}})
	s.Require().NoError(err)
	s.Zero(rate.Rate, "nothing decided yields zero")

	_, err = s.svc.ApprovalRate(s.ctx, shared.Actor{UserID: uuid.New(), Role: common.RoleSucursal}, Query{})
	s.ErrorIs(err, common.ErrForbidden)
}

func (s *AnalyticsServiceSuite) TestOrdersByBranchAndTopProducts() {
	now := time.Now().UTC()
	s.transfer(s.south, order.StatusPending, now)
	s.transfer(s.south, order.StatusCompleted, now)
	s.transfer(s.north, order.StatusPending, now)
	s.request(s.north, requisition.StatusApproved, now,
		requisition.Item{ProductID: s.hammer.ID, Quantity: 2},
		requisition.Item{ProductID: s.saw.ID, Quantity: 5})
	s.request(s.south, requisition.StatusPending, now,
		requisition.Item{ProductID: s.hammer.ID, Quantity: 4})

	byBranch, err := s.svc.OrdersByBranch(s.ctx, s.bodega, Query{})
	s.Require().NoError(err)
	s.Require().Len(byBranch, 2)
	s.Equal("Sucursal Sur", byBranch[0].BranchName)
	s.EqualValues(2, byBranch[0].Orders)
	s.EqualValues(1, byBranch[1].Orders)

	top, err := s.svc.TopProducts(s.ctx, s.bodega, Query{Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(s.hammer.ID, top[0].ProductID)
	s.EqualValues(6, top[0].Quantity)
	s.EqualValues(2, top[0].Requests)

	top, err = s.svc.TopProducts(s.ctx, s.clerk, Query{})
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(s.saw.ID, top[0].ProductID)

	future := now.Add(time.Hour)
	top, err = s.svc.TopProducts(s.ctx, s.admin, Query{From: &future})
	s.Require().NoError(err)
	s.Empty(top)
	s.NotNil(top)
}

func (s *AnalyticsServiceSuite) TestRequestsVsOrdersFillsEmptyMonths() {
	s.svc.now = func() time.Time { return time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC) }
	s.request(s.north, requisition.StatusPending, time.Date(2026, time.October, 2, 9, 0, 0, 0, time.UTC))
	s.request(s.north, requisition.StatusPending, time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC))
	s.request(s.north, requisition.StatusPending, time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC))
	s.request(s.north, requisition.StatusPending, time.Date(2026, time.May, 3, 9, 0, 0, 0, time.UTC))
	s.transfer(s.north, order.StatusCompleted, time.Date(2026, time.September, 10, 9, 0, 0, 0, time.UTC))

	points, err := s.svc.RequestsVsOrders(s.ctx, s.admin, shared.LocationFilter{}, 3)
	s.Require().NoError(err)
	s.Equal([]MonthlyPoint{
		{Month: "2026-08", Requests: 1, Orders: 0},
		{Month: "2026-09", Requests: 0, Orders: 1},
		{Month: "2026-10", Requests: 2, Orders: 0},
	}, points)

	points, err = s.svc.RequestsVsOrders(s.ctx, s.admin, shared.LocationFilter{}, 0)
	s.Require().NoError(err)
	s.Len(points, defaultMonths)
	s.Equal("2026-05", points[0].Month)
	s.EqualValues(1, points[0].Requests)
}

func (s *AnalyticsServiceSuite) TestProductsByBranch() {
	rows, err := s.svc.ProductsByBranch(s.ctx, s.bodega, shared.LocationFilter{})
	s.Require().NoError(err)
	s.Equal([]BranchProducts{
		{BranchID: s.north.ID, BranchName: "Sucursal Norte", Products: 2, Units: 7},
		{BranchID: s.south.ID, BranchName: "Sucursal Sur", Products: 0, Units: 0},
	}, rows)

	rows, err = s.svc.ProductsByBranch(s.ctx, s.clerk, shared.LocationFilter{})
	s.Require().NoError(err)
	s.Len(rows, 1)
}
