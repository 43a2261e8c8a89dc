package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/document"
	"ordena_backend/internal/filestorage"
	"ordena_backend/internal/inventory"
	"ordena_backend/internal/location"
	"ordena_backend/internal/order"
	"ordena_backend/internal/platform/database"
	es "ordena_backend/internal/platform/elasticsearch"
	"ordena_backend/internal/platform/database/dbtest"
	"ordena_backend/internal/product"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/supplier"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type IntakeServiceSuite struct {
	suite.Suite
	ctx         context.Context
	db          *gorm.DB
	svc         Service
	productRepo product.Repository
	indexed     *indexedDocs

	warehouse *location.Warehouse
	hammer    *product.Product
	saw       *product.Product

	bodega      shared.Actor
	otherBodega shared.Actor
}

func TestIntakeServiceSuite(t *testing.T) {
	suite.Run(t, new(IntakeServiceSuite))
}

func (s *IntakeServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T(),
		&location.Warehouse{}, &location.Branch{},
		&catalog.Brand{}, &catalog.Category{}, &product.Product{},
		&inventory.Movement{}, &courier.Courier{}, &supplier.Supplier{},
		&requisition.Request{}, &requisition.Item{},
		&order.Order{}, &order.Item{}, &order.StatusChange{}, &document.Sequence{})
	logger := zap.NewNop()
	tx := database.NewTransactor(s.db)

	locations := location.NewService(location.NewGORMRepository(s.db), logger)
	catalogRepo := catalog.NewGORMRepository(s.db)
	catalogSvc := catalog.NewService(catalogRepo, logger)
	s.productRepo = product.NewGORMRepository(s.db)
	ledger := inventory.NewLedger(inventory.NewGORMRepository(s.db), s.productRepo, tx, nil, logger)
	s.indexed = &indexedDocs{}
	index := product.NewSearchIndex(fakeSearchCluster(s.T(), s.indexed), logger)
	products := product.NewService(s.productRepo, catalogSvc, locations, ledger, index, nil, tx, logger)
	orders := order.NewService(order.Deps{
		Repo:      order.NewGORMRepository(s.db),
		Products:  products,
		Ledger:    ledger,
		Locations: locations,
		Numbers:   document.NewNumberer(s.db, tx, time.UTC),
		Tx:        tx,
		Logger:    logger,
	})
	files, err := filestorage.NewFileStorageService(filepath.Join(s.T().TempDir(), "storage"), logger)
	s.Require().NoError(err)

	s.svc = NewService(files, products, s.productRepo, catalogSvc, catalogRepo,
		supplier.NewService(supplier.NewGORMRepository(s.db), logger), orders, tx, logger)

	s.warehouse, err = locations.CreateWarehouse(s.ctx, location.CreateWarehouseRequest{Name: "Bodega Central", Address: "Av. Matta 100", RUT: "11111111-1"})
	s.Require().NoError(err)
	other, err := locations.CreateWarehouse(s.ctx, location.CreateWarehouseRequest{Name: "Bodega Sur", Address: "Ruta 5 km 10", RUT: "33333333-3"})
	s.Require().NoError(err)
	s.bodega = shared.Actor{UserID: uuid.New(), Role: common.RoleBodega, WarehouseID: &s.warehouse.ID}
	s.otherBodega = shared.Actor{UserID: uuid.New(), Role: common.RoleBodega, WarehouseID: &other.ID}

	brand, err := catalogSvc.CreateBrand(s.ctx, catalog.CreateEntryRequest{Name: "Stanley"})
	s.Require().NoError(err)
	cat, err := catalogSvc.CreateCategory(s.ctx, catalog.CreateEntryRequest{Name: "Herramientas"})
	s.Require().NoError(err)
	mk := func(name, code string, stock int) *product.Product {
		p, err := products.Create(s.ctx, s.bodega, product.Input{
			Name: name, InternalCode: code, BrandID: &brand.ID, CategoryID: &cat.ID, Stock: stock,
		})
		s.Require().NoError(err)
		return p
	}
	s.hammer = mk("Martillo de goma", "HER-MAR-001", 5)
	s.saw = mk("Serrucho costero", "HER-SER-001", 0)
	_, err = s.productRepo.SetActive(s.ctx, []uuid.UUID{s.saw.ID}, false)
	s.Require().NoError(err)
	s.indexed.reset()
}

func (s *IntakeServiceSuite) stock(id uuid.UUID) int {
	p, err := s.productRepo.FindByID(s.ctx, id)
	s.Require().NoError(err)
	return p.Stock
}

func ptr[T any](v T) *T { return &v }

// indexedDocs records the product documents written to the fake cluster.
type indexedDocs struct {
	mu  sync.Mutex
	ids []string
}

func (d *indexedDocs) add(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
}

func (d *indexedDocs) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = nil
}

func (d *indexedDocs) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

func fakeSearchCluster(t *testing.T, docs *indexedDocs) *es.ESClientWrapper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if _, id, found := strings.Cut(r.URL.Path, "/_doc/"); found {
			docs.add(id)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatal(err)
	}
	return &es.ESClientWrapper{Client: client}
}

func pdfUpload(t *testing.T, rows []string) *multipart.FileHeader {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 11)
	for i, row := range rows {
		doc.Text(15, 20+float64(i)*8, row)
	}
	var content bytes.Buffer
	if err := doc.Output(&content); err != nil {
		t.Fatal(err)
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="factura.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.Copy(part, &content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["file"][0]
}

func (s *IntakeServiceSuite) TestExtract() {
	file := pdfUpload(s.T(), []string{
		"Factura F-1234",
		"HER-MAR-001 Martillo de goma 10",
		"Taladro percutor 2",
		"Total 12.500",
	})

	res, err := s.svc.Extract(s.ctx, s.bodega, file)
	s.Require().NoError(err)
	s.Equal(1, res.Pages)
	s.Contains(res.FilePath, "intake/")

	byName := map[string]Line{}
	for _, l := range res.Lines {
		byName[l.Name] = l
	}
	s.Len(byName, 2)
	s.Equal(10, byName["Martillo de goma"].Quantity)
	s.Equal(ptr("HER-MAR-001"), byName["Martillo de goma"].Code)
	s.Equal(2, byName["Taladro percutor"].Quantity)
}

func (s *IntakeServiceSuite) TestExtractRejectsNonPDF() {
	file := pdfUpload(s.T(), []string{"Martillo 1"})
	file.Filename = "factura.png"
	_, err := s.svc.Extract(s.ctx, s.bodega, file)
	s.ErrorIs(err, common.ErrBadRequest)

	clerk := shared.Actor{UserID: uuid.New(), Role: common.RoleSucursal, BranchID: ptr(uuid.New())}
	_, err = s.svc.Extract(s.ctx, clerk, pdfUpload(s.T(), []string{"Martillo 1"}))
	s.ErrorIs(err, common.ErrForbidden)
}

func (s *IntakeServiceSuite) TestMatch() {
	results, err := s.svc.Match(s.ctx, s.bodega, MatchRequest{
		WarehouseID: s.warehouse.ID,
		Lines: []MatchLine{
			{Name: "MARTILLO DE GOMA", Brand: ptr("stanley"), Category: ptr("Herramientas"), Quantity: 3},
			{Name: "Serrucho", Code: ptr("her-ser-001"), Quantity: 1},
			{Name: "Martillo", Quantity: 1},
			{Name: "Taladro percutor", Quantity: 2},
		},
	})
	s.Require().NoError(err)
	s.Require().Len(results, 4)

	s.Equal(ActionMerge, results[0].SuggestedAction)
	s.Equal(s.hammer.ID, results[0].ExactMatch.ID)
	s.Empty(results[0].Candidates, "the exact match is not repeated as a candidate")

	s.Equal(ActionMerge, results[1].SuggestedAction, "inactive products still match by code")
	s.Equal(s.saw.ID, results[1].ExactMatch.ID)

	s.Equal(ActionReview, results[2].SuggestedAction)
	s.Nil(results[2].ExactMatch)
	s.Require().Len(results[2].Candidates, 1)
	s.Equal(s.hammer.ID, results[2].Candidates[0].Product.ID)

	s.Equal(ActionCreate, results[3].SuggestedAction)
	s.Equal(3, results[3].Index)

	_, err = s.svc.Match(s.ctx, s.otherBodega, MatchRequest{WarehouseID: s.warehouse.ID, Lines: []MatchLine{{Name: "Martillo"}}})
	s.ErrorIs(err, common.ErrForbidden)
}

func (s *IntakeServiceSuite) commitRequest(lines ...CommitLine) CommitRequest {
	return CommitRequest{
		WarehouseID: s.warehouse.ID,
		Supplier: supplier.CreateSupplierRequest{
			Name: "Ferretería Sur", BusinessName: "Ferretería Sur SpA", RUT: "76.543.210-3",
		},
		SupplierDocument: ptr("F-1234"),
		Lines:            lines,
	}
}

func (s *IntakeServiceSuite) TestCommit() {
	res, err := s.svc.Commit(s.ctx, s.bodega, s.commitRequest(
		CommitLine{Action: ActionMerge, ProductID: &s.hammer.ID, Quantity: 10},
		CommitLine{Action: ActionMerge, ProductID: &s.saw.ID, Quantity: 3},
		CommitLine{Action: ActionCreate, Name: "Taladro percutor", Brand: "Bosch", Category: "herramientas", Quantity: 2, MinStock: ptr(1)},
		CommitLine{Action: ActionMerge, ProductID: &s.hammer.ID, Quantity: 1},
	))
	s.Require().NoError(err)

	s.Equal("76543210-3", res.Supplier.RUT)
	s.Len(res.Merged, 3)
	s.Require().Len(res.Created, 1)
	created := res.Created[0]
	s.Equal("HER-TAL-001", created.InternalCode)
	s.Equal(1, created.MinStock)

	s.Require().NotNil(res.Order)
	s.Equal(order.KindSupplierReceipt, res.Order.Kind)
	s.Equal(ptr("F-1234"), res.Order.SupplierDocument)
	s.Len(res.Order.Items, 3, "lines for the same product are merged")

	s.Equal(16, s.stock(s.hammer.ID))
	s.Equal(3, s.stock(s.saw.ID))
	s.Equal(2, s.stock(created.ID))
	saw, err := s.productRepo.FindByID(s.ctx, s.saw.ID)
	s.Require().NoError(err)
	s.True(saw.Active)

	var brands int64
	s.Require().NoError(s.db.Model(&catalog.Brand{}).Count(&brands).Error)
	s.EqualValues(2, brands)

	s.Equal([]string{created.ID.String()}, s.indexed.list())
}

func (s *IntakeServiceSuite) TestCommitFailingLateIndexesNothing() {
	req := s.commitRequest(
		CommitLine{Action: ActionCreate, Name: "Taladro percutor", Brand: "Bosch", Category: "Herramientas", Quantity: 2},
		CommitLine{Action: ActionMerge, ProductID: ptr(uuid.New()), Quantity: 1},
	)
	_, err := s.svc.Commit(s.ctx, s.bodega, req)
	s.Require().ErrorIs(err, common.ErrValidation)

	s.Empty(s.indexed.list())
	var count int64
	s.Require().NoError(s.db.Model(&product.Product{}).Where("name = ?", "Taladro percutor").Count(&count).Error)
	s.Zero(count)
}

func (s *IntakeServiceSuite) TestCommitIsAllOrNothing() {
	req := s.commitRequest(
		CommitLine{Action: ActionMerge, ProductID: &s.hammer.ID, Quantity: 10},
		CommitLine{Action: ActionCreate, Name: "Martillo de bola", Code: ptr("her-mar-001"), Brand: "Truper", Category: "Herramientas", Quantity: 1},
		CommitLine{Action: ActionMerge, Quantity: 1},
		CommitLine{Action: ActionCreate, Name: "Alicate", Quantity: 1},
	)
	_, err := s.svc.Commit(s.ctx, s.bodega, req)
	s.Require().ErrorIs(err, common.ErrValidation)

	apiErr, _ := common.IsAPIError(err)
	details := apiErr.Details.(map[string]string)
	s.Contains(details, "lines[1].internal_code")
	s.Contains(details, "lines[2].product_id")
	s.Contains(details, "lines[3].brand")
	s.Contains(details, "lines[3].category")
	s.NotContains(details, "lines[0].product_id")

	s.Equal(5, s.stock(s.hammer.ID))
	s.Empty(s.indexed.list(), "nothing reaches the search index from a rolled back commit")
	var count int64
	s.Require().NoError(s.db.Model(&supplier.Supplier{}).Count(&count).Error)
	s.Zero(count)
	s.Require().NoError(s.db.Model(&catalog.Brand{}).Where("name = ?", "Truper").Count(&count).Error)
	s.Zero(count)
	s.Require().NoError(s.db.Model(&order.Order{}).Count(&count).Error)
	s.Zero(count)
}

func (s *IntakeServiceSuite) TestCommitChecksSupplierAndWarehouse() {
	req := s.commitRequest(CommitLine{Action: ActionMerge, ProductID: &s.hammer.ID, Quantity: 1})
	req.Supplier.RUT = "76543210-4"
	_, err := s.svc.Commit(s.ctx, s.bodega, req)
	s.Require().ErrorIs(err, common.ErrValidation)
	apiErr, _ := common.IsAPIError(err)
	s.Contains(apiErr.Details, "supplier.rut")

	_, err = s.svc.Commit(s.ctx, s.otherBodega, s.commitRequest(CommitLine{Action: ActionMerge, ProductID: &s.hammer.ID, Quantity: 1}))
	s.ErrorIs(err, common.ErrForbidden)

	for i := 0; i < 2; i++ {
		_, err = s.svc.Commit(s.ctx, s.bodega, s.commitRequest(CommitLine{Action: ActionMerge, ProductID: &s.hammer.ID, Quantity: 1}))
		s.Require().NoError(err, fmt.Sprintf("commit %d", i))
	}
	var suppliers int64
	s.Require().NoError(s.db.Model(&supplier.Supplier{}).Count(&suppliers).Error)
	s.EqualValues(1, suppliers, "the supplier is reused by RUT")
}
