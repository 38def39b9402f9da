package memory

import (
	"context"
	"sort"
	"sync"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"
)

// Store はgormを使わない注文ストア。
// WithinTxはロックを取ったまま状態のコピーに書き込み、成功したときだけ差し替える。
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	orders      map[model.OrderID]model.Order
	items       map[model.OrderID][]model.OrderItem
	audit       []model.AuditLog
	nextAuditID int64
}

func NewStore() *Store {
	return &Store{state: &state{
		orders: make(map[model.OrderID]model.Order),
		items:  make(map[model.OrderID][]model.OrderItem),
	}}
}

func (s *state) clone() *state {
	cp := &state{
		orders:      make(map[model.OrderID]model.Order, len(s.orders)),
		items:       make(map[model.OrderID][]model.OrderItem, len(s.items)),
		audit:       append([]model.AuditLog(nil), s.audit...),
		nextAuditID: s.nextAuditID,
	}
	for id, o := range s.orders {
		cp.orders[id] = o
	}
	for id, its := range s.items {
		cp.items[id] = append([]model.OrderItem(nil), its...)
	}
	return cp
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&txRepos{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Ping はヘルスチェック用（常に成功）
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type txRepos struct {
	st *state
}

func (r *txRepos) Orders() repo.OrderRepository         { return orderRepo{r.st} }
func (r *txRepos) OrderItems() repo.OrderItemRepository { return orderItemRepo{r.st} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository   { return auditRepo{r.st} }

type orderRepo struct{ st *state }

func (r orderRepo) Create(ctx context.Context, order model.Order) error {
	r.st.orders[order.ID] = order
	return nil
}

func (r orderRepo) FindByID(ctx context.Context, orderID model.OrderID) (model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r orderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}

	all := make([]model.Order, 0, len(r.st.orders))
	for _, o := range r.st.orders {
		if f.OwnerID != nil && o.OwnerID != *f.OwnerID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		all = append(all, o)
	}

	//新しい順、同時刻はID降順
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start < 0 || start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r orderRepo) UpdateIfStatus(ctx context.Context, order model.Order, expected model.OrderStatus) error {
	cur, ok := r.st.orders[order.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if cur.Status != expected {
		return repo.ErrStatusChanged
	}

	//所有者と作成日時は変えない
	order.OwnerID = cur.OwnerID
	order.CreatedAt = cur.CreatedAt
	r.st.orders[order.ID] = order
	return nil
}

type orderItemRepo struct{ st *state }

func (r orderItemRepo) CreateBulk(ctx context.Context, orderID model.OrderID, items []model.OrderItem) error {
	for _, it := range items {
		it.OrderID = orderID
		r.st.items[orderID] = append(r.st.items[orderID], it)
	}
	return nil
}

func (r orderItemRepo) ListByOrderID(ctx context.Context, orderID model.OrderID) ([]model.OrderItem, error) {
	items := append([]model.OrderItem{}, r.st.items[orderID]...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Line < items[j].Line })
	return items, nil
}

func (r orderItemRepo) DeleteByOrderID(ctx context.Context, orderID model.OrderID) (int64, error) {
	n := int64(len(r.st.items[orderID]))
	delete(r.st.items, orderID)
	return n, nil
}

type auditRepo struct{ st *state }

func (r auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	r.st.nextAuditID++
	log.ID = r.st.nextAuditID
	r.st.audit = append(r.st.audit, log)
	return nil
}

func (r auditRepo) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	out := []model.AuditLog{}
	skipped := 0
	for _, l := range r.st.audit {
		if filter.ActorUserID != nil && l.ActorUserID != *filter.ActorUserID {
			continue
		}
		if filter.Action != nil && l.Action != *filter.Action {
			continue
		}
		if filter.ResourceType != nil && l.ResourceType != *filter.ResourceType {
			continue
		}
		if filter.ResourceID != nil && l.ResourceID != *filter.ResourceID {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
