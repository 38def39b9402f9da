package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canteen/internal/config"
	"canteen/internal/domain/model"
	"canteen/internal/handler"
	"canteen/internal/infra/db"
	"canteen/internal/infra/memory"
	infraRepo "canteen/internal/infra/repository"
	repo "canteen/internal/repository"
	"canteen/internal/server"
	"canteen/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

// ストアごとの部品
type store struct {
	tx   repo.TransactionManager
	menu repo.MenuCatalog
	ping handler.Pinger
}

func main() {
	//.envはなくてもよい（本番は環境変数で渡す）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(st.tx, st.menu, idGen, clock)
	adminOrderUC := usecase.NewAdminOrderUsecase(st.tx, clock)

	//Handler生成
	e := server.New(cfg,
		handler.NewHealthHandler(st.ping),
		handler.NewOrderHandler(orderUC),
		handler.NewAdminOrderHandler(adminOrderUC),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.Logger.Infof("listening on %s (store=%s env=%s)", cfg.Addr(), cfg.StoreDriver, cfg.GoEnv)
	if err := server.Start(ctx, e, cfg.Addr()); err != nil {
		e.Logger.Fatalf("server: %v", err)
	}
}

func openStore(cfg config.Config) (store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		ms := memory.NewStore()
		return store{tx: ms, menu: memory.NewMenu(demoMenu()...), ping: ms}, nil
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return store{}, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return store{}, err
	}

	tm := infraRepo.NewTxManagerGorm(gormDB)
	return store{
		tx:   tm,
		menu: infraRepo.NewMenuGormRepository(gormDB),
		ping: tm,
	}, nil
}

// memoryドライバで起動したとき用のメニュー
func demoMenu() []model.MenuItem {
	now := time.Now().UTC()
	return []model.MenuItem{
		{ID: "curry-rice", Name: "Curry Rice", Price: decimal.RequireFromString("4.50"), Available: true, CreatedAt: now, UpdatedAt: now},
		{ID: "udon", Name: "Kake Udon", Price: decimal.RequireFromString("3.20"), Available: true, CreatedAt: now, UpdatedAt: now},
		{ID: "karaage", Name: "Karaage Set", Price: decimal.RequireFromString("5.80"), Available: true, CreatedAt: now, UpdatedAt: now},
		{ID: "seasonal-soup", Name: "Seasonal Soup", Price: decimal.RequireFromString("2.00"), Available: false, CreatedAt: now, UpdatedAt: now},
	}
}
