package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"
)

// 監査ログを読むときの1回あたりの件数（リポジトリ側の上限）
const auditPageSize = 200

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, clock: clock}
}

type AdminListOrdersInput struct {
	Page   int
	Limit  int
	Status string
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AuditEntryOutput struct {
	ID          int64           `json:"id"`
	ActorUserID string          `json:"actorUserId"`
	ActorRole   string          `json:"actorRole"`
	Action      string          `json:"action"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// 注文一覧（全学生分、statusで絞り込み可）
func (u *AdminOrderUsecase) List(ctx context.Context, actor model.Actor, in AdminListOrdersInput) (OrderListOutput, error) {
	if err := requireAdmin(actor); err != nil {
		return OrderListOutput{}, err
	}
	if err := validatePaging(in.Page, in.Limit); err != nil {
		return OrderListOutput{}, err
	}

	f := repo.OrderListFilter{Page: in.Page, Limit: in.Limit}
	if s := strings.TrimSpace(in.Status); s != "" {
		st, ok := model.ParseOrderStatus(s)
		if !ok {
			return OrderListOutput{}, NewError(KindInvalidInput, "invalid status")
		}
		f.Status = &st
	}

	return listOrders(ctx, u.tx, f)
}

// UpdateStatus は遷移表にある遷移だけを通す。
// preparingに入るとstartedAt（初回のみ）、completedに入るとcompletedAtを記録する。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actor model.Actor, orderID model.OrderID, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if err := requireAdmin(actor); err != nil {
		return OrderOutput{}, err
	}
	if orderID == "" {
		return OrderOutput{}, NewError(KindInvalidInput, "invalid id")
	}

	next, ok := model.ParseOrderStatus(strings.TrimSpace(in.Status))
	if !ok {
		return OrderOutput{}, NewError(KindInvalidInput, "invalid status. Must be one of: "+statusList())
	}

	now := u.clock.Now().UTC()
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}

		prev := o.Status
		before := auditViewOf(o)
		//同じステータスへの遷移も409
		if !o.Transition(next, now) {
			return newErrorf(KindConflict, "cannot transition from %s to %s", prev, next)
		}

		if err := r.Orders().UpdateIfStatus(ctx, o, prev); err != nil {
			if errors.Is(err, repo.ErrStatusChanged) {
				return newErrorf(KindConflict, "order status changed from %s before this update", prev)
			}
			return storeError(err)
		}

		if err := recordAudit(ctx, r, actor, model.AuditActionUpdateOrderStatus, o.ID, before, auditViewOf(o), now); err != nil {
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

// AuditTrail は注文の編集・ステータス変更・キャンセルの履歴を古い順で返す。
func (u *AdminOrderUsecase) AuditTrail(ctx context.Context, actor model.Actor, orderID model.OrderID) ([]AuditEntryOutput, error) {
	if err := requireAdmin(actor); err != nil {
		return []AuditEntryOutput{}, err
	}
	if orderID == "" {
		return []AuditEntryOutput{}, NewError(KindInvalidInput, "invalid id")
	}

	var outs []AuditEntryOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := loadOrder(ctx, r, orderID); err != nil {
			return err
		}

		rt := model.AuditResourceOrder
		rid := string(orderID)

		//1回の取得上限を超える履歴もページをめくって全部読む
		var logs []model.AuditLog
		for {
			page, err := r.AuditLogs().List(ctx, repo.AuditLogFilter{
				ResourceType: &rt,
				ResourceID:   &rid,
				Limit:        auditPageSize,
				Offset:       len(logs),
			})
			if err != nil {
				return storeError(err)
			}
			logs = append(logs, page...)
			if len(page) < auditPageSize {
				break
			}
		}

		outs = make([]AuditEntryOutput, 0, len(logs))
		for _, l := range logs {
			outs = append(outs, AuditEntryOutput{
				ID:          l.ID,
				ActorUserID: string(l.ActorUserID),
				ActorRole:   l.ActorRole,
				Action:      string(l.Action),
				Before:      rawJSON(l.BeforeJSON),
				After:       rawJSON(l.AfterJSON),
				CreatedAt:   l.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return []AuditEntryOutput{}, txError(err)
	}
	return outs, nil
}

func statusList() string {
	all := model.AllOrderStatuses()
	names := make([]string, 0, len(all))
	for _, s := range all {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}
