package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tradecove/marketplace-api/config"
	"github.com/tradecove/marketplace-api/gateway"
	"github.com/tradecove/marketplace-api/routes"
	"github.com/tradecove/marketplace-api/services/checkout"
	"github.com/tradecove/marketplace-api/services/orders"
	"github.com/tradecove/marketplace-api/services/reconcile"
	"github.com/tradecove/marketplace-api/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	log := newLogger(cfg.Server.Mode)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}

	st := store.NewGormStore(db)
	if err := st.Migrate(); err != nil {
		log.Fatal("migrate schema", zap.Error(err))
	}

	sessionCart := store.NewSessionCartStore(redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}))

	gw := gateway.NewClient(cfg.Gateway.APIURL, cfg.Gateway.APIKey, cfg.Gateway.Sandbox())

	deps := routes.Deps{
		Store:       st,
		SessionCart: sessionCart,
		Checkout: checkout.NewService(st, gw, checkout.Config{
			Currency:   cfg.Gateway.Currency,
			SuccessURL: cfg.Gateway.SuccessURL,
			CancelURL:  cfg.Gateway.CancelURL,
		}, log),
		Reconcile: reconcile.NewService(st, log),
		Orders:    orders.NewService(st, log),
		Config:    cfg,
		Log:       log,
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, deps)

	log.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(mode string) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if mode == "release" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic("init logger: " + err.Error())
	}
	return log
}
