package requisition

import (
	"bytes"
	"context"
	"testing"
	"time"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/document"
	"ordena_backend/internal/location"
	"ordena_backend/internal/notification"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/database/dbtest"
	"ordena_backend/internal/product"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, msg notification.Message) error {
	return m.Called(ctx, userIDs, msg).Error(0)
}

func (m *mockNotifier) NotifyWarehouse(ctx context.Context, warehouseID uuid.UUID, msg notification.Message) error {
	return m.Called(ctx, warehouseID, msg).Error(0)
}

type RequestServiceSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	svc      Service
	notifier *mockNotifier

	warehouse  *location.Warehouse
	branch     *location.Branch
	otherWh    *location.Warehouse
	hammer     *product.Product
	saw        *product.Product
	foreign    *product.Product
	inactive   *product.Product
	clerkUser  *user.User
	bodegaUser *user.User

	admin  shared.Actor
	bodega shared.Actor
	clerk  shared.Actor
}

func TestRequestServiceSuite(t *testing.T) {
	suite.Run(t, new(RequestServiceSuite))
}

func (s *RequestServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T(),
		&location.Warehouse{}, &location.Branch{},
		&catalog.Brand{}, &catalog.Category{}, &product.Product{},
		&user.User{}, &Request{}, &Item{}, &document.Sequence{})
	logger := zap.NewNop()
	tx := database.NewTransactor(s.db)

	locations := location.NewService(location.NewGORMRepository(s.db), logger)
	users := user.NewService(user.NewGORMRepository(s.db), locations, tx, logger)
	productRepo := product.NewGORMRepository(s.db)
	products := product.NewService(productRepo, catalog.NewService(catalog.NewGORMRepository(s.db), logger), locations, nil, nil, nil, tx, logger)
	s.notifier = new(mockNotifier)

	s.svc = NewService(NewGORMRepository(s.db), products, locations, users, s.notifier,
		document.NewNumberer(s.db, tx, time.UTC), document.NewRenderer(time.UTC, ""), tx, nil, logger)

	var err error
	s.warehouse, err = locations.CreateWarehouse(s.ctx, location.CreateWarehouseRequest{Name: "Bodega Central", Address: "Av. Matta 100", RUT: "11111111-1"})
	s.Require().NoError(err)
	s.otherWh, err = locations.CreateWarehouse(s.ctx, location.CreateWarehouseRequest{Name: "Bodega Sur", Address: "Ruta 5 km 10", RUT: "33333333-3"})
	s.Require().NoError(err)
	s.branch, err = locations.CreateBranch(s.ctx, location.CreateBranchRequest{Name: "Sucursal Norte", Address: "Calle 2", RUT: "22222222-2", WarehouseID: s.warehouse.ID})
	s.Require().NoError(err)

	brand := &catalog.Brand{Name: "Stanley", Slug: "stanley"}
	s.Require().NoError(s.db.Create(brand).Error)
	cat := &catalog.Category{Name: "Herramientas", Slug: "herramientas"}
	s.Require().NoError(s.db.Create(cat).Error)

	mk := func(code string, wh uuid.UUID, active bool) *product.Product {
		whID := wh
		p := &product.Product{
			Name: "Producto " + code, NormalizedName: "producto " + code,
			InternalCode: code, CodeKey: code,
			BrandID: brand.ID, CategoryID: cat.ID, WarehouseID: &whID,
			Stock: 50, Active: true,
		}
		s.Require().NoError(productRepo.Create(s.ctx, p))
		if !active {
			_, err := productRepo.SetActive(s.ctx, []uuid.UUID{p.ID}, false)
			s.Require().NoError(err)
		}
		return p
	}
	s.hammer = mk("her-mar-001", s.warehouse.ID, true)
	s.saw = mk("her-ser-001", s.warehouse.ID, true)
	s.foreign = mk("her-ali-001", s.otherWh.ID, true)
	s.inactive = mk("her-cla-001", s.warehouse.ID, false)

	s.clerkUser = &user.User{Name: "Ana Pérez", Email: "ana@ordena.cl", RUT: "44444444-4", PasswordHash: "x", Role: common.RoleSucursal, BranchID: &s.branch.ID, Active: true}
	s.Require().NoError(s.db.Create(s.clerkUser).Error)
	s.bodegaUser = &user.User{Name: "Luis Rojas", Email: "luis@ordena.cl", RUT: "55555555-5", PasswordHash: "x", Role: common.RoleBodega, WarehouseID: &s.warehouse.ID, Active: true}
	s.Require().NoError(s.db.Create(s.bodegaUser).Error)

	s.admin = shared.Actor{UserID: uuid.New(), Role: common.RoleAdmin}
	s.bodega = shared.Actor{UserID: s.bodegaUser.ID, Role: common.RoleBodega, WarehouseID: &s.warehouse.ID}
	s.clerk = shared.Actor{UserID: s.clerkUser.ID, Role: common.RoleSucursal, BranchID: &s.branch.ID}
}

func (s *RequestServiceSuite) create() *Request {
	s.notifier.On("NotifyWarehouse", mock.Anything, s.warehouse.ID, mock.Anything).Return(nil).Once()
	r, err := s.svc.Create(s.ctx, s.clerk, CreateRequest{Items: []ItemInput{
		{ProductID: s.hammer.ID, Quantity: 4},
		{ProductID: s.saw.ID, Quantity: 1},
	}})
	s.Require().NoError(err)
	return r
}

func (s *RequestServiceSuite) TestCreate() {
	r := s.create()
	s.Equal(StatusPending, r.Status)
	s.Equal(s.warehouse.ID, r.WarehouseID)
	s.Equal(s.clerk.UserID, r.RequesterID)
	s.Nil(r.Number)
	s.Len(r.Items, 2)
	s.notifier.AssertExpectations(s.T())
}

func (s *RequestServiceSuite) TestCreateValidatesItems() {
	_, err := s.svc.Create(s.ctx, s.clerk, CreateRequest{Items: []ItemInput{
		{ProductID: s.hammer.ID, Quantity: 1},
		{ProductID: s.hammer.ID, Quantity: 2},
		{ProductID: s.foreign.ID, Quantity: 1},
		{ProductID: s.inactive.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	}})
	s.Require().ErrorIs(err, common.ErrValidation)
	apiErr, _ := common.IsAPIError(err)
	details := apiErr.Details.(map[string]string)
	s.Len(details, 4)
	s.Contains(details, "items[1].product_id")
	s.Contains(details, "items[4].product_id")

	_, err = s.svc.Create(s.ctx, s.bodega, CreateRequest{Items: []ItemInput{{ProductID: s.hammer.ID, Quantity: 1}}})
	s.ErrorIs(err, common.ErrForbidden)

	_, err = s.svc.Create(s.ctx, s.admin, CreateRequest{Items: []ItemInput{{ProductID: s.hammer.ID, Quantity: 1}}})
	s.ErrorIs(err, common.ErrValidation)
	s.notifier.AssertNotCalled(s.T(), "NotifyWarehouse", mock.Anything, mock.Anything, mock.Anything)
}

func (s *RequestServiceSuite) TestApproveAssignsPurchaseOrderNumber() {
	r := s.create()
	s.notifier.On("NotifyUsers", mock.Anything, []uuid.UUID{s.clerk.UserID}, mock.MatchedBy(func(m notification.Message) bool {
		return m.Type == notification.TypeSuccess && m.Topic == notification.TopicRequestDecided
	})).Return(nil).Once()

	decided, err := s.svc.Decide(s.ctx, s.bodega, r.ID, DecideRequest{Status: StatusApproved})
	s.Require().NoError(err)
	s.Equal(StatusApproved, decided.Status)
	s.Require().NotNil(decided.Number)
	s.True(document.Validate(document.KindPurchaseOrder, *decided.Number))
	s.Equal(s.bodega.UserID, *decided.DecidedByID)
	s.NotNil(decided.DecidedAt)

	_, err = s.svc.Decide(s.ctx, s.bodega, r.ID, DecideRequest{Status: StatusDenied})
	s.ErrorIs(err, common.ErrConflict)
	s.notifier.AssertExpectations(s.T())
}

func (s *RequestServiceSuite) TestDenyAndPermissions() {
	r := s.create()

	_, err := s.svc.Decide(s.ctx, s.clerk, r.ID, DecideRequest{Status: StatusApproved})
	s.ErrorIs(err, common.ErrForbidden)

	outsider := shared.Actor{UserID: uuid.New(), Role: common.RoleBodega, WarehouseID: &s.otherWh.ID}
	_, err = s.svc.Decide(s.ctx, outsider, r.ID, DecideRequest{Status: StatusApproved})
	s.ErrorIs(err, common.ErrForbidden)

	s.notifier.On("NotifyUsers", mock.Anything, mock.Anything, mock.MatchedBy(func(m notification.Message) bool {
		return m.Type == notification.TypeWarning
	})).Return(nil).Once()
	note := "Sin presupuesto"
	decided, err := s.svc.Decide(s.ctx, s.admin, r.ID, DecideRequest{Status: StatusDenied, Note: &note})
	s.Require().NoError(err)
	s.Equal(StatusDenied, decided.Status)
	s.Nil(decided.Number)
	s.Equal(note, *decided.DecisionNote)
}

func (s *RequestServiceSuite) TestListIsScoped() {
	s.create()

	reqs, total, err := s.svc.List(s.ctx, s.bodega, ListQuery{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(reqs, 1)

	otherBranch := uuid.New()
	other := shared.Actor{UserID: uuid.New(), Role: common.RoleSucursal, BranchID: &otherBranch}
	_, total, err = s.svc.List(s.ctx, other, ListQuery{BranchID: &s.branch.ID})
	s.Require().NoError(err)
	s.Zero(total)

	courier := shared.Actor{UserID: uuid.New(), Role: common.RoleCourier, WarehouseID: &s.warehouse.ID}
	_, _, err = s.svc.List(s.ctx, courier, ListQuery{})
	s.ErrorIs(err, common.ErrForbidden)

	_, total, err = s.svc.List(s.ctx, s.admin, ListQuery{Status: StatusApproved})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *RequestServiceSuite) TestDelete() {
	r := s.create()

	s.ErrorIs(s.svc.Delete(s.ctx, s.bodega, r.ID), common.ErrForbidden)
	s.Require().NoError(s.svc.Delete(s.ctx, s.clerk, r.ID))
	_, err := s.svc.Get(s.ctx, s.clerk, r.ID)
	s.ErrorIs(err, common.ErrNotFound)

	approved := s.create()
	s.notifier.On("NotifyUsers", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	_, err = s.svc.Decide(s.ctx, s.bodega, approved.ID, DecideRequest{Status: StatusApproved})
	s.Require().NoError(err)
	s.ErrorIs(s.svc.Delete(s.ctx, s.clerk, approved.ID), common.ErrConflict)
}

func (s *RequestServiceSuite) TestArchiveSkipsPending() {
	pending := s.create()
	decided := s.create()
	s.notifier.On("NotifyUsers", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	_, err := s.svc.Decide(s.ctx, s.bodega, decided.ID, DecideRequest{Status: StatusDenied})
	s.Require().NoError(err)

	res, err := s.svc.Archive(s.ctx, s.bodega, []uuid.UUID{pending.ID, decided.ID, uuid.New()})
	s.Require().NoError(err)
	s.Equal(int64(1), res.Archived)
	s.Equal(2, res.Skipped)

	archived := true
	_, total, err := s.svc.List(s.ctx, s.bodega, ListQuery{Archived: &archived})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
}

func (s *RequestServiceSuite) TestPurchaseOrderPDF() {
	r := s.create()
	_, _, err := s.svc.PurchaseOrderPDF(s.ctx, s.clerk, r.ID)
	s.ErrorIs(err, common.ErrConflict)

	s.notifier.On("NotifyUsers", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	decided, err := s.svc.Decide(s.ctx, s.bodega, r.ID, DecideRequest{Status: StatusApproved})
	s.Require().NoError(err)

	name, body, err := s.svc.PurchaseOrderPDF(s.ctx, s.clerk, r.ID)
	s.Require().NoError(err)
	s.Equal("OCI_"+*decided.Number+".pdf", name)
	s.True(bytes.HasPrefix(body, []byte("%PDF-")))
}
