// File: internal/order/service.go
package order

import (
	"context"
	"fmt"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/document"
	"ordena_backend/internal/inventory"
	"ordena_backend/internal/location"
	"ordena_backend/internal/notification"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/platform/metrics"
	"ordena_backend/internal/platform/sanitize"
	"ordena_backend/internal/product"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/shared"
	"ordena_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50
)

// ProductCatalog is the part of the product service orders need.
type ProductCatalog interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]product.Product, error)
	CopyToBranch(ctx context.Context, source *product.Product, branchID uuid.UUID) (*product.Product, error)
}

// StockLedger moves stock and records the movements.
type StockLedger interface {
	Apply(ctx context.Context, ch inventory.Change) (*inventory.Movement, error)
}

// RequestLookup loads branch requests.
type RequestLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*requisition.Request, error)
}

// CourierLookup loads couriers.
type CourierLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*courier.Courier, error)
}

// UserLookup loads users by id.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.User, error)
}

// Notifier is the part of the notification service orders use.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, msg notification.Message) error
	NotifyWarehouse(ctx context.Context, warehouseID uuid.UUID, msg notification.Message) error
	NotifyBranch(ctx context.Context, branchID uuid.UUID, msg notification.Message) error
}

// Numberer issues document numbers.
type Numberer interface {
	Next(ctx context.Context, kind document.Kind) (string, error)
}

// Service defines the business logic for orders.
type Service interface {
	Create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*Order, error)
	CreateFromRequest(ctx context.Context, actor shared.Actor, req FromRequestRequest) (*Order, error)
	// ReceiveFromSupplier records goods received into a warehouse and adds
	// them to stock. It joins the caller's transaction.
	ReceiveFromSupplier(ctx context.Context, userID uuid.UUID, in SupplierReceipt) (*Order, error)
	Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Order, error)
	List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Order, int64, error)
	Recent(ctx context.Context, actor shared.Actor, limit int) ([]Order, error)
	Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateOrderRequest) (*Order, error)
	Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error
	ChangeStatus(ctx context.Context, actor shared.Actor, id uuid.UUID, req StatusRequest) (*Order, error)
	ConfirmReception(ctx context.Context, actor shared.Actor, id uuid.UUID, req ReceptionRequest) (*Order, error)
	History(ctx context.Context, actor shared.Actor, id uuid.UUID) ([]StatusChange, error)
	DispatchGuidePDF(ctx context.Context, actor shared.Actor, id uuid.UUID) (string, []byte, error)
	ReceiptActPDF(ctx context.Context, actor shared.Actor, id uuid.UUID) (string, []byte, error)
}

// Deps groups the collaborators of the order service.
type Deps struct {
	Repo      Repository
	Products  ProductCatalog
	Ledger    StockLedger
	Requests  RequestLookup
	Couriers  CourierLookup
	Locations location.BranchFinder
	Users     UserLookup
	Notifier  Notifier
	Numbers   Numberer
	Renderer  *document.Renderer
	Tx        *database.Transactor
	Metrics   metrics.Recorder
	Logger    *zap.Logger
}

type service struct {
	Deps
	guard *location.Guard
}

// NewService creates a new order service.
func NewService(deps Deps) Service {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	return &service{Deps: deps, guard: location.NewGuard(deps.Locations)}
}

// --- access rules ---

func isCourierOf(actor shared.Actor, o *Order) bool {
	return actor.Role == common.RoleCourier && o.Courier != nil &&
		o.Courier.UserID != nil && *o.Courier.UserID == actor.UserID
}

func canRead(actor shared.Actor, o *Order) bool {
	if actor.IsAdmin() || isCourierOf(actor, o) {
		return true
	}
	if actor.Role == common.RoleBodega && actor.CanAccessWarehouse(o.WarehouseID) {
		return true
	}
	return o.BranchID != nil && actor.BranchID != nil && *actor.BranchID == *o.BranchID
}

// canManage reports whether actor runs the warehouse side of the order.
func canManage(actor shared.Actor, o *Order) bool {
	return actor.IsAdmin() || (actor.Role == common.RoleBodega && actor.CanAccessWarehouse(o.WarehouseID))
}

func canReceive(actor shared.Actor, o *Order) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Role == common.RoleSucursal && o.BranchID != nil &&
		actor.BranchID != nil && *actor.BranchID == *o.BranchID
}

// --- creation ---

// warehouseItems validates transfer lines against the warehouse's active products.
func (s *service) warehouseItems(ctx context.Context, warehouseID uuid.UUID, in []ItemInput) ([]Item, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	errs := map[string]string{}
	seen := make(map[uuid.UUID]struct{}, len(in))
	items := make([]Item, 0, len(in))
	for i, it := range in {
		key := fmt.Sprintf("items[%d].product_id", i)
		if _, dup := seen[it.ProductID]; dup {
			errs[key] = "Each product can appear only once."
			continue
		}
		seen[it.ProductID] = struct{}{}
		p, ok := products[it.ProductID]
		switch {
		case !ok:
			errs[key] = "Product not found."
		case !p.Active:
			errs[key] = "Product is inactive."
		case p.WarehouseID == nil || *p.WarehouseID != warehouseID:
			errs[key] = "Product does not belong to the order's warehouse."
		}
		items = append(items, Item{ProductID: it.ProductID, Quantity: it.Quantity, Description: sanitize.OptionalText(it.Description)})
	}
	if len(errs) > 0 {
		return nil, common.NewValidationAPIError(errs)
	}
	return items, nil
}

// checkCourier verifies the courier is active and works for the warehouse.
func (s *service) checkCourier(ctx context.Context, courierID *uuid.UUID, warehouseID uuid.UUID) error {
	if courierID == nil {
		return nil
	}
	c, err := s.Couriers.Get(ctx, *courierID)
	if err != nil {
		return err
	}
	if !c.Active {
		return common.NewValidationAPIError(map[string]string{"courier_id": "Courier is inactive."})
	}
	if c.WarehouseID != warehouseID {
		return common.NewValidationAPIError(map[string]string{"courier_id": "Courier belongs to another warehouse."})
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*Order, error) {
	branch, err := s.Locations.GetBranch(ctx, req.BranchID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.Role == common.RoleBodega && actor.CanAccessWarehouse(branch.WarehouseID)) {
		return nil, common.ErrForbidden.WithDetails("Only staff of the branch's warehouse can create orders for it.")
	}
	items, err := s.warehouseItems(ctx, branch.WarehouseID, req.Items)
	if err != nil {
		return nil, err
	}
	if err := s.checkCourier(ctx, req.CourierID, branch.WarehouseID); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, &Order{
		Kind:         KindTransfer,
		WarehouseID:  branch.WarehouseID,
		BranchID:     &branch.ID,
		CourierID:    req.CourierID,
		Description:  sanitize.OptionalText(req.Description),
		DeliveryDate: req.DeliveryDate,
		Items:        items,
	})
}

func (s *service) CreateFromRequest(ctx context.Context, actor shared.Actor, req FromRequestRequest) (*Order, error) {
	r, err := s.Requests.FindByID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.Role == common.RoleBodega && actor.CanAccessWarehouse(r.WarehouseID)) {
		return nil, common.ErrForbidden.WithDetails("Only staff of the request's warehouse can fulfil it.")
	}
	if r.Status != requisition.StatusApproved {
		return nil, common.ErrConflict.WithDetails("Only approved requests can become orders.")
	}
	exists, err := s.Repo.ExistsForRequest(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrConflict.WithDetails("This request already has an order.")
	}
	if err := s.checkCourier(ctx, req.CourierID, r.WarehouseID); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, Item{ProductID: it.ProductID, Quantity: it.Quantity, Description: it.Note})
	}
	description := sanitize.OptionalText(req.Description)
	if description == nil {
		description = r.Observation
	}
	branchID := r.BranchID
	return s.create(ctx, actor, &Order{
		Kind:         KindTransfer,
		WarehouseID:  r.WarehouseID,
		BranchID:     &branchID,
		CourierID:    req.CourierID,
		RequestID:    &r.ID,
		Description:  description,
		DeliveryDate: req.DeliveryDate,
		Items:        items,
	})
}

func (s *service) create(ctx context.Context, actor shared.Actor, o *Order) (*Order, error) {
	o.Status = StatusPending
	o.CreatedByID = actor.UserID
	o.History = []StatusChange{{To: StatusPending, ChangedByID: actor.UserID, ChangedAt: time.Now().UTC()}}
	if err := s.Repo.Create(ctx, o); err != nil {
		s.Logger.Error("Failed to create order", zap.Error(err))
		return nil, err
	}
	s.Logger.Info("Order created successfully",
		zap.String("id", o.ID.String()),
		zap.String("warehouseID", o.WarehouseID.String()),
		zap.Int("items", len(o.Items)))
	return s.Repo.FindByID(ctx, o.ID)
}

func (s *service) ReceiveFromSupplier(ctx context.Context, userID uuid.UUID, in SupplierReceipt) (*Order, error) {
	items, err := s.warehouseItems(ctx, in.WarehouseID, in.Items)
	if err != nil {
		return nil, err
	}
	supplierID := in.SupplierID
	now := time.Now().UTC()
	o := &Order{
		Kind:                  KindSupplierReceipt,
		Status:                StatusCompleted,
		WarehouseID:           in.WarehouseID,
		SupplierID:            &supplierID,
		CreatedByID:           userID,
		Description:           sanitize.OptionalText(in.Description),
		SupplierDocument:      sanitize.OptionalText(in.SupplierDocument),
		SupplierDispatchGuide: sanitize.OptionalText(in.SupplierDispatchGuide),
		ReceivedAt:            &now,
		ReceivedByID:          &userID,
		Items:                 items,
		History:               []StatusChange{{To: StatusCompleted, ChangedByID: userID, ChangedAt: now}},
	}

	err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		number, err := s.Numbers.Next(ctx, document.KindInvoice)
		if err != nil {
			return err
		}
		o.InvoiceNumber = &number
		if err := s.Repo.Create(ctx, o); err != nil {
			return err
		}
		reason := "Ingreso proveedor " + number
		if o.SupplierDocument != nil {
			reason = "Ingreso proveedor " + *o.SupplierDocument
		}
		for _, it := range o.Items {
			_, err := s.Ledger.Apply(ctx, inventory.Change{
				ProductID: it.ProductID,
				UserID:    userID,
				Type:      inventory.TypeEntrada,
				Quantity:  it.Quantity,
				Reason:    reason,
				OrderID:   &o.ID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("Failed to record supplier receipt", zap.Error(err), zap.String("warehouseID", in.WarehouseID.String()))
		return nil, err
	}
	s.Logger.Info("Supplier receipt recorded",
		zap.String("id", o.ID.String()),
		zap.String("invoice", *o.InvoiceNumber),
		zap.Int("items", len(o.Items)))
	return s.Repo.FindByID(ctx, o.ID)
}

// --- reads ---

func (s *service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (*Order, error) {
	o, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, o) {
		return nil, common.ErrForbidden.WithDetails("You cannot access this order.")
	}
	return o, nil
}

// scope narrows q to what actor may see.
func (s *service) scope(ctx context.Context, actor shared.Actor, q ListQuery) (ListQuery, error) {
	switch {
	case actor.IsAdmin():
	case actor.Role == common.RoleCourier:
		q.CourierUserID = &actor.UserID
	case actor.BranchID != nil:
		q.BranchID, q.WarehouseID = actor.BranchID, nil
	case actor.Role == common.RoleBodega && actor.WarehouseID != nil:
		if q.BranchID != nil {
			if err := s.guard.Authorize(ctx, actor, shared.LocationFilter{BranchID: q.BranchID}); err != nil {
				return q, err
			}
		}
		q.WarehouseID = actor.WarehouseID
	default:
		return q, common.ErrForbidden.WithDetails("You cannot list orders.")
	}
	return q, nil
}

func (s *service) List(ctx context.Context, actor shared.Actor, q ListQuery) ([]Order, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, common.ErrBadRequest.WithDetails("Invalid status filter.")
	}
	if q.Kind != "" && q.Kind != KindTransfer && q.Kind != KindSupplierReceipt {
		return nil, 0, common.ErrBadRequest.WithDetails("Invalid kind filter.")
	}
	q, err := s.scope(ctx, actor, q)
	if err != nil {
		return nil, 0, err
	}
	return s.Repo.List(ctx, q)
}

func (s *service) Recent(ctx context.Context, actor shared.Actor, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	q, err := s.scope(ctx, actor, ListQuery{PaginationQuery: common.PaginationQuery{Page: 1, PageSize: limit}})
	if err != nil {
		return nil, err
	}
	orders, _, err := s.Repo.List(ctx, q)
	return orders, err
}

func (s *service) History(ctx context.Context, actor shared.Actor, id uuid.UUID) ([]StatusChange, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.Repo.History(ctx, id)
}

// --- edits ---

func (s *service) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateOrderRequest) (*Order, error) {
	o, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, o) {
		return nil, common.ErrForbidden.WithDetails("You cannot edit this order.")
	}
	if o.Status != StatusPending {
		return nil, common.ErrConflict.WithDetails("Only pending orders can be edited.")
	}
	if req.CourierID != nil {
		if err := s.checkCourier(ctx, req.CourierID, o.WarehouseID); err != nil {
			return nil, err
		}
		o.CourierID = req.CourierID
	}
	if req.Description != nil {
		o.Description = sanitize.OptionalText(req.Description)
	}
	if req.DeliveryDate != nil {
		o.DeliveryDate = req.DeliveryDate
	}
	o.Courier = nil
	if err := s.Repo.Update(ctx, o); err != nil {
		s.Logger.Error("Failed to update order", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	return s.Repo.FindByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	o, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, o) {
		return common.ErrForbidden.WithDetails("You cannot delete this order.")
	}
	if o.Status != StatusPending {
		return common.ErrConflict.WithDetails("Only pending orders can be deleted.")
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		s.Logger.Error("Failed to delete order", zap.Error(err), zap.String("id", id.String()))
		return err
	}
	s.Logger.Info("Order deleted", zap.String("id", id.String()))
	return nil
}

// --- status machine ---

func (s *service) ChangeStatus(ctx context.Context, actor shared.Actor, id uuid.UUID, req StatusRequest) (*Order, error) {
	if req.Status == StatusCompleted {
		conforming := true
		return s.ConfirmReception(ctx, actor, id, ReceptionRequest{Conforming: &conforming, Note: req.Note})
	}
	o, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Kind != KindTransfer {
		return nil, common.ErrConflict.WithDetails("Supplier receipts have no status workflow.")
	}
	if !o.Status.CanTransitionTo(req.Status) {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("Cannot change an order from %s to %s.", o.Status, req.Status))
	}
	note := sanitize.OptionalText(req.Note)

	switch req.Status {
	case StatusInTransit:
		if !canManage(actor, o) {
			return nil, common.ErrForbidden.WithDetails("Only warehouse staff can dispatch this order.")
		}
		return s.dispatch(ctx, actor, o, note)
	case StatusDelivered:
		if !canManage(actor, o) && !isCourierOf(actor, o) {
			return nil, common.ErrForbidden.WithDetails("Only the courier or warehouse staff can mark this order delivered.")
		}
		now := time.Now().UTC()
		if err := s.transition(ctx, actor, o, StatusDelivered, note, map[string]interface{}{"delivered_at": now}, nil); err != nil {
			return nil, err
		}
		s.notify(ctx, func(ctx context.Context) error {
			return s.Notifier.NotifyBranch(ctx, *o.BranchID, notification.Message{
				Title:   "Pedido entregado",
				Body:    fmt.Sprintf("El pedido %s fue entregado. Confirma la recepción.", deref(o.DispatchNumber)),
				Type:    notification.TypeInfo,
				Topic:   notification.TopicOrderDelivered,
				OrderID: &o.ID,
			})
		})
	case StatusCancelled:
		if !canManage(actor, o) {
			return nil, common.ErrForbidden.WithDetails("Only warehouse staff can cancel this order.")
		}
		if err := s.transition(ctx, actor, o, StatusCancelled, note, nil, nil); err != nil {
			return nil, err
		}
		s.notify(ctx, func(ctx context.Context) error {
			return s.Notifier.NotifyBranch(ctx, *o.BranchID, notification.Message{
				Title:   "Pedido cancelado",
				Body:    "Un pedido para tu sucursal fue cancelado.",
				Type:    notification.TypeWarning,
				Topic:   notification.TopicOrderCancelled,
				OrderID: &o.ID,
			})
		})
	}
	return s.Repo.FindByID(ctx, id)
}

// transition moves o to status inside a transaction, records the history
// entry and runs then (if any) in the same transaction.
func (s *service) transition(ctx context.Context, actor shared.Actor, o *Order, to Status, note *string, fields map[string]interface{}, then func(ctx context.Context) error) error {
	from := o.Status
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if then != nil {
			if err := then(ctx); err != nil {
				return err
			}
		}
		ok, err := s.Repo.Transition(ctx, o.ID, from, to, fields)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrConflict.WithDetails("Order was changed by someone else.")
		}
		return s.Repo.AddHistory(ctx, &StatusChange{
			OrderID:     o.ID,
			From:        from,
			To:          to,
			ChangedByID: actor.UserID,
			Note:        note,
			ChangedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		s.Logger.Error("Order transition failed", zap.Error(err),
			zap.String("id", o.ID.String()), zap.String("from", string(from)), zap.String("to", string(to)))
		return err
	}
	s.Metrics.RecordOrderTransition(string(from), string(to))
	s.Logger.Info("Order status changed",
		zap.String("id", o.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("by", actor.UserID.String()))
	return nil
}

// dispatch takes the items out of the warehouse and hands the order to its courier.
func (s *service) dispatch(ctx context.Context, actor shared.Actor, o *Order, note *string) (*Order, error) {
	if o.CourierID == nil {
		return nil, common.ErrUnprocessableEntity.WithDetails("Assign a courier before dispatching the order.")
	}
	if err := s.checkCourier(ctx, o.CourierID, o.WarehouseID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"dispatched_at": time.Now().UTC()}
	var number string
	err := s.transition(ctx, actor, o, StatusInTransit, note, fields, func(ctx context.Context) error {
		var err error
		if number, err = s.Numbers.Next(ctx, document.KindDispatchGuide); err != nil {
			return err
		}
		fields["dispatch_number"] = number
		for _, it := range o.Items {
			_, err := s.Ledger.Apply(ctx, inventory.Change{
				ProductID: it.ProductID,
				UserID:    actor.UserID,
				Type:      inventory.TypeSalida,
				Quantity:  it.Quantity,
				Reason:    "Despacho " + number,
				OrderID:   &o.ID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := notification.Message{
		Title:   "Pedido en camino",
		Body:    fmt.Sprintf("El pedido %s salió de bodega.", number),
		Type:    notification.TypeInfo,
		Topic:   notification.TopicOrderDispatched,
		OrderID: &o.ID,
	}
	s.notify(ctx, func(ctx context.Context) error {
		return s.Notifier.NotifyBranch(ctx, *o.BranchID, msg)
	})
	if c, err := s.Couriers.Get(ctx, *o.CourierID); err == nil && c.UserID != nil {
		courierMsg := msg
		courierMsg.Title = "Nuevo despacho asignado"
		courierMsg.Body = fmt.Sprintf("Se te asignó el despacho %s.", number)
		s.notify(ctx, func(ctx context.Context) error {
			return s.Notifier.NotifyUsers(ctx, []uuid.UUID{*c.UserID}, courierMsg)
		})
	}
	return s.Repo.FindByID(ctx, o.ID)
}

func (s *service) ConfirmReception(ctx context.Context, actor shared.Actor, id uuid.UUID, req ReceptionRequest) (*Order, error) {
	o, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Kind != KindTransfer || o.BranchID == nil {
		return nil, common.ErrConflict.WithDetails("Only transfers can be received.")
	}
	if !canReceive(actor, o) {
		return nil, common.ErrForbidden.WithDetails("Only staff of the destination branch can confirm reception.")
	}
	if !o.Status.CanTransitionTo(StatusCompleted) {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("Cannot receive an order that is %s.", o.Status))
	}
	conforming := req.Conforming == nil || *req.Conforming
	note := sanitize.OptionalText(req.Note)
	now := time.Now().UTC()
	fields := map[string]interface{}{
		"received_at":          now,
		"received_by_id":       actor.UserID,
		"reception_conforming": conforming,
		"reception_note":       note,
	}

	var number string
	err = s.transition(ctx, actor, o, StatusCompleted, note, fields, func(ctx context.Context) error {
		var err error
		if number, err = s.Numbers.Next(ctx, document.KindReceiptAct); err != nil {
			return err
		}
		fields["receipt_number"] = number
		for _, it := range o.Items {
			if it.Product == nil {
				return fmt.Errorf("order item %s has no product loaded", it.ID)
			}
			target, err := s.Products.CopyToBranch(ctx, it.Product, *o.BranchID)
			if err != nil {
				return err
			}
			_, err = s.Ledger.Apply(ctx, inventory.Change{
				ProductID: target.ID,
				UserID:    actor.UserID,
				Type:      inventory.TypeEntrada,
				Quantity:  it.Quantity,
				Reason:    "Recepción " + number,
				OrderID:   &o.ID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, func(ctx context.Context) error {
		msg := notification.Message{
			Title:   "Pedido recibido",
			Body:    fmt.Sprintf("La sucursal confirmó la recepción del pedido %s.", deref(o.DispatchNumber)),
			Type:    notification.TypeSuccess,
			Topic:   notification.TopicOrderReceived,
			OrderID: &o.ID,
		}
		if !conforming {
			msg.Body = fmt.Sprintf("La sucursal recibió el pedido %s con observaciones.", deref(o.DispatchNumber))
			msg.Type = notification.TypeWarning
		}
		return s.Notifier.NotifyWarehouse(ctx, o.WarehouseID, msg)
	})
	return s.Repo.FindByID(ctx, id)
}

// notify runs a best-effort notification. Failures are logged only.
func (s *service) notify(ctx context.Context, fn func(context.Context) error) {
	if s.Notifier == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.Logger.Warn("Failed to send order notification", zap.Error(err))
	}
}

// --- documents ---

func (s *service) DispatchGuidePDF(ctx context.Context, actor shared.Actor, id uuid.UUID) (string, []byte, error) {
	o, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", nil, err
	}
	if o.DispatchNumber == nil {
		return "", nil, common.ErrConflict.WithDetails("The order has not been dispatched yet.")
	}
	doc := document.DispatchGuide{
		Number:       *o.DispatchNumber,
		IssuedAt:     derefTime(o.DispatchedAt, o.CreatedAt),
		Lines:        orderLines(o.Items),
		Observations: deref(o.Description),
	}
	if o.Branch != nil {
		doc.Destination = document.Party{Name: o.Branch.Name, Address: o.Branch.Address, RUT: o.Branch.RUT}
	}
	if o.Warehouse != nil {
		doc.Origin = document.Party{Name: o.Warehouse.Name, Address: o.Warehouse.Address, RUT: o.Warehouse.RUT}
	}
	if o.Courier != nil {
		doc.Courier = o.Courier.Name
		doc.LicensePlate = o.Courier.LicensePlate
	}
	if o.RequestID != nil {
		if r, err := s.Requests.FindByID(ctx, *o.RequestID); err == nil {
			doc.PurchaseOrder = deref(r.Number)
		}
	}
	body, err := s.Renderer.DispatchGuide(doc)
	if err != nil {
		s.Logger.Error("Failed to render dispatch guide", zap.Error(err), zap.String("id", id.String()))
		return "", nil, err
	}
	return fmt.Sprintf("GuiaDespacho_%s.pdf", doc.Number), body, nil
}

func (s *service) ReceiptActPDF(ctx context.Context, actor shared.Actor, id uuid.UUID) (string, []byte, error) {
	o, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", nil, err
	}
	if o.ReceiptNumber == nil {
		return "", nil, common.ErrConflict.WithDetails("The order has not been received yet.")
	}
	doc := document.ReceiptAct{
		Number:       *o.ReceiptNumber,
		ReceivedAt:   derefTime(o.ReceivedAt, o.UpdatedAt),
		Lines:        orderLines(o.Items),
		Observations: deref(o.ReceptionNote),
		Conforming:   o.ReceptionConforming == nil || *o.ReceptionConforming,
	}
	if o.Branch != nil {
		doc.Branch = document.Party{Name: o.Branch.Name, Address: o.Branch.Address, RUT: o.Branch.RUT}
	}
	if o.ReceivedByID != nil {
		users, err := s.Users.GetByIDs(ctx, []uuid.UUID{*o.ReceivedByID})
		if err != nil {
			return "", nil, err
		}
		if u, ok := users[*o.ReceivedByID]; ok {
			doc.Receiver = u.Name
			doc.ReceiverRole = common.RoleLabel(u.Role)
			doc.Responsible = u.Name
		}
	}
	body, err := s.Renderer.ReceiptAct(doc)
	if err != nil {
		s.Logger.Error("Failed to render receipt act", zap.Error(err), zap.String("id", id.String()))
		return "", nil, err
	}
	return fmt.Sprintf("ActaRecepcion_%s.pdf", doc.Number), body, nil
}

func orderLines(items []Item) []document.Line {
	out := make([]document.Line, 0, len(items))
	for _, it := range items {
		l := document.Line{Quantity: it.Quantity, Description: deref(it.Description)}
		if it.Product != nil {
			l.Code = it.Product.InternalCode
			l.Description = it.Product.Name
		}
		out = append(out, l)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return *t
}
