package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/givers/givers-backend/config"
	"github.com/givers/givers-backend/controllers"
	"github.com/givers/givers-backend/payments"
	"github.com/givers/givers-backend/routes"
	"github.com/givers/givers-backend/services"
	"github.com/givers/givers-backend/store"
	"github.com/givers/givers-backend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := cfg.Logger
	defer log.Sync()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = cfg.MongoClient.Disconnect(ctx)
	}()

	st := store.NewMongo(cfg.MongoClient.Database(cfg.DBName))
	cache := services.NewQueryCache()
	resolver := services.NewResolver(st, log)
	users := services.NewUsers(st, cache, log)
	foundations := services.NewFoundations(st, resolver, cache, log)
	campaigns := services.NewCampaigns(st, resolver, foundations, cache, log)
	contributions := services.NewContributions(st, resolver, cache, utils.ReceiptMailer{}, log)

	checkout := &controllers.Checkout{
		Cfg:           cfg,
		Contributions: contributions,
		Campaigns:     campaigns,
		MercadoPago:   payments.NewMercadoPagoClient(cfg.MercadoPago.BaseURL, cfg.MercadoPago.AccessToken),
		Webpay:        payments.NewWebpayClient(cfg.Webpay.BaseURL, cfg.Webpay.KeyID, cfg.Webpay.KeySecret),
	}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.AllowOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "If-None-Match")
	r.Use(cors.New(corsCfg))

	routes.SetupRoutes(r, routes.Deps{
		Cfg:         cfg,
		Users:       users,
		Campaigns:   campaigns,
		Foundations: foundations,
		Checkout:    checkout,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("server listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
