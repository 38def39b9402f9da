package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"

	"github.com/shopspring/decimal"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

type OrderUsecase struct {
	tx    repo.TransactionManager
	menu  repo.MenuCatalog
	ids   IDGenerator
	clock Clock
}

func NewOrderUsecase(tx repo.TransactionManager, menu repo.MenuCatalog, ids IDGenerator, clock Clock) *OrderUsecase {
	return &OrderUsecase{tx: tx, menu: menu, ids: ids, clock: clock}
}

type OrderLineInput struct {
	MenuItemID string
	Quantity   int64
}

type PlaceOrderInput struct {
	Items        []OrderLineInput
	PickupTime   string
	SpecialInstr *string
}

// nilの項目は変更しない。SpecialInstrは空文字でも上書きする。
type UpdateOrderInput struct {
	Items        []OrderLineInput
	PickupTime   *string
	SpecialInstr *string
}

type OrderItemOutput struct {
	ID         string `json:"id"`
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
	Subtotal   string `json:"subtotal"`
}

type OrderOutput struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"ownerId"`
	Status       string            `json:"status"`
	TotalAmount  string            `json:"totalAmount"`
	PickupTime   time.Time         `json:"pickupTime"`
	SpecialInstr string            `json:"specialInstr"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	Items        []OrderItemOutput `json:"items,omitempty"`
}

type OrderListOutput struct {
	Orders     []OrderOutput `json:"orders"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// PlaceOrder は学生の注文を作る。
// 価格は今のメニュー価格を明細にスナップショットし、注文と明細は1つのTxで書く。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, actor model.Actor, in PlaceOrderInput) (OrderOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderOutput{}, err
	}
	if actor.Role != model.RoleStudent {
		return OrderOutput{}, NewError(KindForbidden, "only students can place orders")
	}

	pickup, err := ParsePickupTime(in.PickupTime)
	if err != nil {
		return OrderOutput{}, err
	}

	instr := ""
	if in.SpecialInstr != nil {
		instr, err = normalizeSpecialInstr(*in.SpecialInstr)
		if err != nil {
			return OrderOutput{}, err
		}
	}

	//1件でも解決できなければ何も作らない
	items, total, err := u.resolveLines(ctx, in.Items)
	if err != nil {
		return OrderOutput{}, err
	}

	now := u.clock.Now().UTC()
	order := model.Order{
		ID:           model.OrderID(u.ids.NewID()),
		OwnerID:      actor.UserID,
		TotalAmount:  total,
		Status:       model.OrderStatusPlaced,
		PickupTime:   pickup,
		SpecialInstr: instr,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().Create(ctx, order); err != nil {
			return storeError(err)
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return storeError(err)
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, txError(err)
	}

	//作成時は明細を含めない（明細は別に取得）
	return toOrderOutput(order, nil), nil
}

// GetOrder は学生なら自分の注文のみ、管理者ならどの注文でも返す。
func (u *OrderUsecase) GetOrder(ctx context.Context, actor model.Actor, orderID model.OrderID) (OrderOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderOutput{}, err
	}
	if orderID == "" {
		return OrderOutput{}, NewError(KindInvalidInput, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOrderAccess(actor, o, "view"); err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return storeError(err)
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, txError(err)
	}
	return out, nil
}

// ListMyOrders は呼び出した学生の注文を新しい順で返す。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, actor model.Actor, page int, limit int) (OrderListOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderListOutput{}, err
	}
	if actor.Role != model.RoleStudent {
		return OrderListOutput{}, NewError(KindForbidden, "order history is for students")
	}
	if err := validatePaging(page, limit); err != nil {
		return OrderListOutput{}, err
	}

	owner := actor.UserID
	return listOrders(ctx, u.tx, repo.OrderListFilter{
		Page:    page,
		Limit:   limit,
		OwnerID: &owner,
	})
}

// UpdateOrder は調理開始前（placed）の注文だけを編集する。
// 明細が来たら今のメニュー価格で引き直し、既存明細は全削除して入れ替える。
func (u *OrderUsecase) UpdateOrder(ctx context.Context, actor model.Actor, orderID model.OrderID, in UpdateOrderInput) (OrderOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderOutput{}, err
	}
	if orderID == "" {
		return OrderOutput{}, NewError(KindInvalidInput, "invalid id")
	}
	if in.Items == nil && in.PickupTime == nil && in.SpecialInstr == nil {
		return OrderOutput{}, NewError(KindInvalidInput, "nothing to update")
	}

	var pickup *time.Time
	if in.PickupTime != nil {
		t, err := ParsePickupTime(*in.PickupTime)
		if err != nil {
			return OrderOutput{}, err
		}
		pickup = &t
	}

	var instr *string
	if in.SpecialInstr != nil {
		s, err := normalizeSpecialInstr(*in.SpecialInstr)
		if err != nil {
			return OrderOutput{}, err
		}
		instr = &s
	}

	//メニューを引く前に、存在・権限・ステータスで落とす
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOrderAccess(actor, o, "edit"); err != nil {
			return err
		}
		if !o.Status.IsEditable() {
			return editConflict(o.Status)
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, txError(err)
	}

	//元のスナップショットは使わない（編集は今の価格で再計算）
	var newItems []model.OrderItem
	var newTotal decimal.Decimal
	if in.Items != nil {
		newItems, newTotal, err = u.resolveLines(ctx, in.Items)
		if err != nil {
			return OrderOutput{}, err
		}
	}

	now := u.clock.Now().UTC()
	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOrderAccess(actor, o, "edit"); err != nil {
			return err
		}
		if !o.Status.IsEditable() {
			return editConflict(o.Status)
		}

		before := auditViewOf(o)
		if newItems != nil {
			o.TotalAmount = newTotal
		}
		if pickup != nil {
			o.PickupTime = *pickup
		}
		if instr != nil {
			o.SpecialInstr = *instr
		}
		o.UpdatedAt = now

		//commit時点でもplacedであること
		if err := r.Orders().UpdateIfStatus(ctx, o, model.OrderStatusPlaced); err != nil {
			if errors.Is(err, repo.ErrStatusChanged) {
				return NewError(KindConflict, "order status changed while editing. Only 'placed' orders can be edited.")
			}
			return storeError(err)
		}

		items := newItems
		if newItems != nil {
			if _, err := r.OrderItems().DeleteByOrderID(ctx, o.ID); err != nil {
				return storeError(err)
			}
			if err := r.OrderItems().CreateBulk(ctx, o.ID, newItems); err != nil {
				return storeError(err)
			}
		} else {
			items, err = r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return storeError(err)
			}
		}

		if err := recordAudit(ctx, r, actor, model.AuditActionUpdateOrder, o.ID, before, auditViewOf(o), now); err != nil {
			return err
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, txError(err)
	}
	return out, nil
}

// CancelOrder はplaced/preparingの注文をcanceledにする。明細は残す。
func (u *OrderUsecase) CancelOrder(ctx context.Context, actor model.Actor, orderID model.OrderID) (OrderOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderOutput{}, err
	}
	if orderID == "" {
		return OrderOutput{}, NewError(KindInvalidInput, "invalid id")
	}

	now := u.clock.Now().UTC()
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOrderAccess(actor, o, "cancel"); err != nil {
			return err
		}

		prev := o.Status
		before := auditViewOf(o)
		//二重キャンセルもここで409
		if !o.Transition(model.OrderStatusCanceled, now) {
			return newErrorf(KindConflict, "cannot cancel order with status: %s", prev)
		}

		if err := r.Orders().UpdateIfStatus(ctx, o, prev); err != nil {
			if errors.Is(err, repo.ErrStatusChanged) {
				return NewError(KindConflict, "order status changed while canceling")
			}
			return storeError(err)
		}

		if err := recordAudit(ctx, r, actor, model.AuditActionCancelOrder, o.ID, before, auditViewOf(o), now); err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return storeError(err)
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, txError(err)
	}
	return out, nil
}

// resolveLines はメニューを引いて明細と合計を作る。
func (u *OrderUsecase) resolveLines(ctx context.Context, lines []OrderLineInput) ([]model.OrderItem, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, NewError(KindInvalidInput, "at least one item is required")
	}

	items := make([]model.OrderItem, 0, len(lines))
	for i, l := range lines {
		id := strings.TrimSpace(l.MenuItemID)
		if id == "" {
			return nil, decimal.Zero, NewError(KindInvalidInput, "menuItemId is required")
		}
		if l.Quantity < 1 {
			return nil, decimal.Zero, NewError(KindInvalidInput, "quantity must be at least 1")
		}
		if l.Quantity > model.MaxLineQuantity {
			return nil, decimal.Zero, newErrorf(KindInvalidInput, "quantity must be at most %d", model.MaxLineQuantity)
		}

		m, err := u.menu.FindByID(ctx, model.MenuItemID(id))
		if errors.Is(err, repo.ErrNotFound) {
			return nil, decimal.Zero, newErrorf(KindNotFound, "menu item with ID %s not found", id)
		}
		if err != nil {
			return nil, decimal.Zero, internalError("menu lookup failed", err)
		}
		if !m.Available {
			return nil, decimal.Zero, newErrorf(KindUnavailable, "menu item %s is not available", m.Name)
		}
		if m.Price.IsNegative() {
			return nil, decimal.Zero, internalError("menu price is negative", errors.New(string(m.ID)))
		}

		//スナップショット
		items = append(items, model.OrderItem{
			ID:         model.OrderItemID(u.ids.NewID()),
			Line:       i + 1,
			MenuItemID: m.ID,
			Name:       m.Name,
			Quantity:   l.Quantity,
			Price:      m.Price,
		})
	}

	total := model.SumItems(items)
	if total.GreaterThan(model.MaxAmount) {
		return nil, decimal.Zero, newErrorf(KindInvalidInput, "totalAmount must be at most %s", model.MaxAmount.StringFixed(2))
	}
	return items, total, nil
}

func listOrders(ctx context.Context, tx repo.TransactionManager, f repo.OrderListFilter) (OrderListOutput, error) {
	var out OrderListOutput

	err := tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return storeError(err)
		}

		outs := make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return storeError(err)
			}
			outs = append(outs, toOrderOutput(o, items))
		}

		out = OrderListOutput{
			Orders:     outs,
			Total:      total,
			Page:       f.Page,
			Limit:      f.Limit,
			TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
		}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, txError(err)
	}
	return out, nil
}

func loadOrder(ctx context.Context, r repo.TxRepos, orderID model.OrderID) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewError(KindNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, storeError(err)
	}
	return o, nil
}

func requireActor(actor model.Actor) error {
	if !actor.Valid() {
		return NewError(KindUnauthenticated, "unauthorized")
	}
	return nil
}

func requireAdmin(actor model.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return NewError(KindForbidden, "admin only")
	}
	return nil
}

// 学生は自分の注文だけ。管理者は所有者チェックなし（意図した非対称）。
func authorizeOrderAccess(actor model.Actor, o model.Order, verb string) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStudent:
		if actor.Owns(o) {
			return nil
		}
		return newErrorf(KindForbidden, "not allowed to %s this order", verb)
	default:
		return NewError(KindUnauthenticated, "unauthorized")
	}
}

func validatePaging(page int, limit int) error {
	if page < 1 {
		return NewError(KindInvalidInput, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return NewError(KindInvalidInput, "invalid limit")
	}
	//offset計算があふれないこと
	if page > math.MaxInt/limit {
		return NewError(KindInvalidInput, "invalid page")
	}
	return nil
}

func normalizeSpecialInstr(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > model.SpecialInstrMaxLen {
		return "", newErrorf(KindInvalidInput, "specialInstr must be at most %d characters", model.SpecialInstrMaxLen)
	}
	return s, nil
}

func editConflict(status model.OrderStatus) error {
	return newErrorf(KindConflict, "cannot edit order with status: %s. Only 'placed' orders can be edited.", status)
}

// storeError はTx内のrepositoryエラーを分類する。
func storeError(err error) error {
	if errors.Is(err, repo.ErrConcurrentUpdate) {
		return &Error{Kind: KindConflict, Message: "order was modified concurrently", Err: err}
	}
	return internalError("db error", err)
}

// txError はWithinTxの戻り値をusecaseのエラーにそろえる（commit失敗など）。
func txError(err error) error {
	if _, ok := AsError(err); ok {
		return err
	}
	return storeError(err)
}

// 監査ログに残す注文の状態
type orderAuditView struct {
	Status       model.OrderStatus `json:"status"`
	TotalAmount  string            `json:"totalAmount"`
	PickupTime   time.Time         `json:"pickupTime"`
	SpecialInstr string            `json:"specialInstr"`
}

func auditViewOf(o model.Order) orderAuditView {
	return orderAuditView{
		Status:       o.Status,
		TotalAmount:  o.TotalAmount.StringFixed(2),
		PickupTime:   o.PickupTime,
		SpecialInstr: o.SpecialInstr,
	}
}

func recordAudit(ctx context.Context, r repo.TxRepos, actor model.Actor, action model.AuditAction, orderID model.OrderID, before, after orderAuditView, now time.Time) error {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return internalError("audit encode failed", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return internalError("audit encode failed", err)
	}

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		ActorRole:    actor.Role.String(),
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   string(orderID),
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    now,
	}); err != nil {
		return storeError(err)
	}
	return nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	var outItems []OrderItemOutput
	if items != nil {
		outItems = make([]OrderItemOutput, 0, len(items))
		for _, it := range items {
			outItems = append(outItems, OrderItemOutput{
				ID:         string(it.ID),
				MenuItemID: string(it.MenuItemID),
				Name:       it.Name,
				Quantity:   it.Quantity,
				Price:      it.Price.StringFixed(2),
				Subtotal:   it.Subtotal().StringFixed(2),
			})
		}
	}

	return OrderOutput{
		ID:           string(o.ID),
		OwnerID:      string(o.OwnerID),
		Status:       string(o.Status),
		TotalAmount:  o.TotalAmount.StringFixed(2),
		PickupTime:   o.PickupTime,
		SpecialInstr: o.SpecialInstr,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		StartedAt:    o.StartedAt,
		CompletedAt:  o.CompletedAt,
		Items:        outItems,
	}
}
