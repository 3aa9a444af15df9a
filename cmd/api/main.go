package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog/internal/config"
	"catalog/internal/handler"
	"catalog/internal/infra/asset"
	"catalog/internal/infra/db"
	applog "catalog/internal/infra/log"
	"catalog/internal/infra/memory"
	infraRepo "catalog/internal/infra/repository"
	"catalog/internal/middleware"
	repo "catalog/internal/repository"
	"catalog/internal/server"
	"catalog/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 選んだストレージのリポジトリ一式
type storage struct {
	products  repo.ProductRepository
	users     repo.UserRepository
	auditLogs repo.AuditLogRepository
	txm       repo.TransactionManager
	close     func() error
}

func main() {
	//.envは無くてもよい（コンテナでは環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := applog.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Warn("close storage failed", zap.Error(err))
		}
	}()

	assets, err := asset.Open(ctx, cfg.AssetBucketURL, asset.Options{
		KeyPrefix:     cfg.AssetKeyPrefix,
		PublicBaseURL: cfg.AssetPublicBaseURL,
		URLExpiry:     cfg.AssetURLExpiry,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := assets.Close(); err != nil {
			logger.Warn("close asset bucket failed", zap.Error(err))
		}
	}()

	//Usecase生成
	productUC := usecase.NewProductUsecase(st.products, st.txm, assets, logger.Named("product"))
	userUC := usecase.NewUserUsecase(st.users, st.txm, cfg.BcryptCost, logger.Named("user"))
	authUC := usecase.NewAuthUsecase(st.users, cfg.JWTSecret, cfg.AccessTokenTTL, logger.Named("auth"))
	auditUC := usecase.NewAuditLogUsecase(st.auditLogs)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	srv := server.New(cfg.Port, cfg.MaxImageBytes, logger, server.Handlers{
		Products:  handler.NewProductHandler(productUC, cfg.MaxImageBytes),
		Users:     handler.NewUserHandler(userUC, authH),
		Auth:      authH,
		AuditLogs: handler.NewAuditLogHandler(auditUC),
		Authn: []echo.MiddlewareFunc{
			middleware.AuthJWT(cfg.JWTSecret),
			middleware.TokenVersionGuard(st.users),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return srv.Shutdown(context.Background())
}

func openStorage(cfg config.Config, logger *zap.Logger) (storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return storage{
			products:  store.Products(),
			users:     store.Users(),
			auditLogs: store.AuditLogs(),
			txm:       memory.NewTxManager(store),
			close:     func() error { return nil },
		}, nil
	}

	gormDB, err := db.Connect(cfg, logger)
	if err != nil {
		return storage{}, err
	}
	if err := db.Migrate(gormDB); err != nil {
		_ = db.Close(gormDB)
		return storage{}, err
	}

	return storage{
		products:  infraRepo.NewProductGormRepository(gormDB),
		users:     infraRepo.NewUserGormRepository(gormDB),
		auditLogs: infraRepo.NewAuditLogGormRepository(gormDB),
		txm:       infraRepo.NewTxManagerGorm(gormDB),
		close:     func() error { return db.Close(gormDB) },
	}, nil
}
