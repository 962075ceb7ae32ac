package main

import (
	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/gateway"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logger"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	//.envはローカル用。無ければ環境変数だけで動く
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New("storefront-api", cfg.GoEnv != "prod")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	tx := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)

	//決済アダプタ
	wompiBase := gateway.WompiSandboxBaseURL
	if cfg.WompiEnv == "production" {
		wompiBase = gateway.WompiProductionBaseURL
	}
	gateways := gateway.NewRegistry(
		gateway.NewWompiGateway(gateway.WompiConfig{
			PublicKey:   cfg.WompiPublicKey,
			PrivateKey:  cfg.WompiPrivateKey,
			BaseURL:     wompiBase,
			FrontendURL: cfg.FrontendURL,
		}),
		gateway.NewMercadoPagoGateway(gateway.MercadoPagoConfig{
			AccessToken: cfg.MercadoPagoAccessToken,
			BaseURL:     gateway.MercadoPagoBaseURL,
			FrontendURL: cfg.FrontendURL,
			BackendURL:  cfg.BackendURL,
		}),
	)

	//Usecase生成
	statsUC := usecase.NewStatsUsecase(tx, userRepo, log)
	orderUC := usecase.NewOrderUsecase(tx, gateways, statsUC, log)
	reconcileUC := usecase.NewReconcileUsecase(tx, gateways, statsUC, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(tx, statsUC, log)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC)
	paymentH := handler.NewPaymentHandler(orderUC, reconcileUC)
	webhookH := handler.NewWebhookHandler(reconcileUC, log)
	adminOrderH := handler.NewAdminOrderHandler(adminOrderUC, statsUC)

	//Server起動
	e := server.New(cfg, orderH, paymentH, webhookH, adminOrderH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := e.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
