// File: internal/requisition/service.go
package requisition

import (
	"context"
	"fmt"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/document"
	"ordena_backend/internal/location"
	"ordena_backend/internal/notification"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/metrics"
	"ordena_backend/internal/platform/sanitize"
	"ordena_backend/internal/product"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductLookup loads products by id.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]product.Product, error)
}

// UserLookup loads users by id.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.User, error)
}

// Notifier is the part of the notification service requests use.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, msg notification.Message) error
	NotifyWarehouse(ctx context.Context, warehouseID uuid.UUID, msg notification.Message) error
}

// Numberer issues document numbers.
type Numberer interface {
	Next(ctx context.Context, kind document.Kind) (string, error)
}

// Service defines the business logic for branch requests.
type Service interface {
	Create(ctx context.Context, actor shared.Actor, req CreateRequest) (*Request, error)
	Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Request, error)
	List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Request, int64, error)
	Decide(ctx context.Context, actor shared.Actor, id uuid.UUID, req DecideRequest) (*Request, error)
	Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error
	Archive(ctx context.Context, actor shared.Actor, ids []uuid.UUID) (*ArchiveResult, error)
	PurchaseOrderPDF(ctx context.Context, actor shared.Actor, id uuid.UUID) (string, []byte, error)
}

type service struct {
	repo     Repository
	products ProductLookup
	branches location.BranchFinder
	users    UserLookup
	notifier Notifier
	numbers  Numberer
	renderer *document.Renderer
	tx       *database.Transactor
	metrics  metrics.Recorder
	logger   *zap.Logger
}

// NewService creates a new request service.
func NewService(
	repo Repository,
	products ProductLookup,
	branches location.BranchFinder,
	users UserLookup,
	notifier Notifier,
	numbers Numberer,
	renderer *document.Renderer,
	tx *database.Transactor,
	rec metrics.Recorder,
	logger *zap.Logger,
) Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &service{
		repo:     repo,
		products: products,
		branches: branches,
		users:    users,
		notifier: notifier,
		numbers:  numbers,
		renderer: renderer,
		tx:       tx,
		metrics:  rec,
		logger:   logger,
	}
}

// canRead reports whether actor may see requests of the branch and warehouse.
func canRead(actor shared.Actor, r *Request) bool {
	return actor.CanAccessBranch(r.BranchID, r.WarehouseID)
}

func (s *service) Create(ctx context.Context, actor shared.Actor, req CreateRequest) (*Request, error) {
	var branchID uuid.UUID
	switch {
	case actor.IsAdmin():
		if req.BranchID == nil {
			return nil, common.NewValidationAPIError(map[string]string{"branch_id": "branch_id is required."})
		}
		branchID = *req.BranchID
	case actor.Role == common.RoleSucursal && actor.BranchID != nil:
		branchID = *actor.BranchID
	default:
		return nil, common.ErrForbidden.WithDetails("Only branch staff can create requests.")
	}
	branch, err := s.branches.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	errs := map[string]string{}
	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	items := make([]Item, 0, len(req.Items))
	for i, it := range req.Items {
		key := fmt.Sprintf("items[%d].product_id", i)
		if _, dup := seen[it.ProductID]; dup {
			errs[key] = "Each product can be requested only once."
			continue
		}
		seen[it.ProductID] = struct{}{}
		p, ok := products[it.ProductID]
		switch {
		case !ok:
			errs[key] = "Product not found."
		case !p.Active:
			errs[key] = "Product is inactive."
		case p.WarehouseID == nil || *p.WarehouseID != branch.WarehouseID:
			errs[key] = "Product does not belong to the branch's warehouse."
		}
		items = append(items, Item{ProductID: it.ProductID, Quantity: it.Quantity, Note: sanitize.OptionalText(it.Note)})
	}
	if len(errs) > 0 {
		return nil, common.NewValidationAPIError(errs)
	}

	r := &Request{
		BranchID:    branch.ID,
		WarehouseID: branch.WarehouseID,
		RequesterID: actor.UserID,
		Status:      StatusPending,
		Observation: sanitize.OptionalText(req.Observation),
		Items:       items,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("Failed to create request", zap.Error(err), zap.String("branchID", branch.ID.String()))
		return nil, err
	}
	s.logger.Info("Request created successfully",
		zap.String("id", r.ID.String()),
		zap.String("branchID", branch.ID.String()),
		zap.Int("items", len(items)))

	s.notify(ctx, func(ctx context.Context) error {
		return s.notifier.NotifyWarehouse(ctx, r.WarehouseID, notification.Message{
			Title:     "Nueva solicitud",
			Body:      fmt.Sprintf("La sucursal %s envió una solicitud con %d productos.", branch.Name, len(items)),
			Type:      notification.TypeInfo,
			Topic:     notification.TopicRequestCreated,
			RequestID: &r.ID,
		})
	})
	return s.repo.FindByID(ctx, r.ID)
}

// notify runs a best-effort notification. Failures are logged only.
func (s *service) notify(ctx context.Context, fn func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Warn("Failed to send request notification", zap.Error(err))
	}
}

func (s *service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Request, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, r) {
		return nil, common.ErrForbidden.WithDetails("You cannot access this request.")
	}
	return r, nil
}

func (s *service) List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Request, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, common.ErrBadRequest.WithDetails("Invalid status filter.")
	}
	switch {
	case actor.IsAdmin():
	case actor.BranchID != nil:
		q.BranchID, q.WarehouseID = actor.BranchID, nil
	case actor.Role == common.RoleBodega && actor.WarehouseID != nil:
		q.WarehouseID = actor.WarehouseID
	default:
		return nil, 0, common.ErrForbidden.WithDetails("You cannot list requests.")
	}
	return s.repo.List(ctx, q)
}

func (s *service) Decide(ctx context.Context, actor shared.Actor, id uuid.UUID, req DecideRequest) (*Request, error) {
	if req.Status != StatusApproved && req.Status != StatusDenied {
		return nil, common.ErrBadRequest.WithDetails("status must be aprobada or denegada.")
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.Role == common.RoleBodega && actor.CanAccessWarehouse(r.WarehouseID)) {
		return nil, common.ErrForbidden.WithDetails("Only staff of the request's warehouse can decide it.")
	}
	if r.Status != StatusPending {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("Request is already %s.", r.Status))
	}

	note := sanitize.OptionalText(req.Note)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var number *string
		if req.Status == StatusApproved {
			n, err := s.numbers.Next(ctx, document.KindPurchaseOrder)
			if err != nil {
				return err
			}
			number = &n
		}
		ok, err := s.repo.Decide(ctx, id, req.Status, number, note, actor.UserID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrConflict.WithDetails("Request was decided by someone else.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRequestDecision(string(req.Status))
	s.logger.Info("Request decided",
		zap.String("id", id.String()),
		zap.String("status", string(req.Status)),
		zap.String("decidedBy", actor.UserID.String()))

	decided, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, func(ctx context.Context) error {
		msg := notification.Message{
			Title:     "Solicitud aprobada",
			Body:      fmt.Sprintf("Tu solicitud fue aprobada con la OCI %s.", deref(decided.Number)),
			Type:      notification.TypeSuccess,
			Topic:     notification.TopicRequestDecided,
			RequestID: &decided.ID,
		}
		if decided.Status == StatusDenied {
			msg.Title = "Solicitud denegada"
			msg.Body = "Tu solicitud fue denegada."
			if note != nil {
				msg.Body += " Motivo: " + *note
			}
			msg.Type = notification.TypeWarning
		}
		return s.notifier.NotifyUsers(ctx, []uuid.UUID{decided.RequesterID}, msg)
	})
	return decided, nil
}

func (s *service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && r.RequesterID != actor.UserID {
		return common.ErrForbidden.WithDetails("Only the requester can delete this request.")
	}
	if r.Status != StatusPending {
		return common.ErrConflict.WithDetails("Only pending requests can be deleted.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete request", zap.Error(err), zap.String("id", id.String()))
		return err
	}
	s.logger.Info("Request deleted", zap.String("id", id.String()))
	return nil
}

func (s *service) Archive(ctx context.Context, actor shared.Actor, ids []uuid.UUID) (*ArchiveResult, error) {
	reqs, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	requested := len(uniqueIDs(ids))
	eligible := make([]uuid.UUID, 0, len(reqs))
	for i := range reqs {
		if reqs[i].Status == StatusPending || !canRead(actor, &reqs[i]) {
			continue
		}
		eligible = append(eligible, reqs[i].ID)
	}
	n, err := s.repo.Archive(ctx, eligible)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Requests archived", zap.Int64("archived", n), zap.Int("requested", requested))
	return &ArchiveResult{Archived: n, Skipped: requested - int(n)}, nil
}

func (s *service) PurchaseOrderPDF(ctx context.Context, actor shared.Actor, id uuid.UUID) (string, []byte, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", nil, err
	}
	if r.Status != StatusApproved || r.Number == nil {
		return "", nil, common.ErrConflict.WithDetails("Only approved requests have an internal purchase order.")
	}

	people := []uuid.UUID{r.RequesterID}
	if r.DecidedByID != nil {
		people = append(people, *r.DecidedByID)
	}
	users, err := s.users.GetByIDs(ctx, people)
	if err != nil {
		return "", nil, err
	}

	doc := document.PurchaseOrder{
		Number:       *r.Number,
		IssuedAt:     r.CreatedAt,
		Observations: deref(r.Observation),
		Status:       string(r.Status),
		Lines:        lines(r.Items),
	}
	if r.DecidedAt != nil {
		doc.IssuedAt = *r.DecidedAt
	}
	if r.Branch != nil {
		doc.Branch = document.Party{Name: r.Branch.Name, Address: r.Branch.Address, RUT: r.Branch.RUT}
	}
	if u, ok := users[r.RequesterID]; ok {
		doc.Requester = u.Name
		doc.RequesterRole = common.RoleLabel(u.Role)
	}
	if r.DecidedByID != nil {
		if u, ok := users[*r.DecidedByID]; ok {
			doc.Approver = u.Name
		}
	}

	body, err := s.renderer.PurchaseOrder(doc)
	if err != nil {
		s.logger.Error("Failed to render purchase order", zap.Error(err), zap.String("id", id.String()))
		return "", nil, err
	}
	return fmt.Sprintf("OCI_%s.pdf", *r.Number), body, nil
}

func lines(items []Item) []document.Line {
	out := make([]document.Line, 0, len(items))
	for _, it := range items {
		l := document.Line{Quantity: it.Quantity}
		if it.Product != nil {
			l.Code = it.Product.InternalCode
			l.Description = it.Product.Name
		}
		if it.Note != nil && *it.Note != "" {
			l.Description += " (" + *it.Note + ")"
		}
		out = append(out, l)
	}
	return out
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
