package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/digkill/writory/internal/config"
	"github.com/digkill/writory/internal/database"
	"github.com/digkill/writory/internal/gateway"
	"github.com/digkill/writory/internal/outbox"
	"github.com/digkill/writory/internal/repository"
	"github.com/digkill/writory/internal/server"
	"github.com/digkill/writory/internal/service"
	"github.com/digkill/writory/internal/sheets"
	"github.com/digkill/writory/internal/storage"
	"github.com/digkill/writory/internal/telegram"
	"github.com/digkill/writory/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	rdb, err := outbox.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	queue := outbox.NewQueue(rdb, cfg.OutboxQueue)

	uploader, err := storage.NewUploader(storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
		Prefix:        cfg.S3Prefix,
		MaxBytes:      cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	var card service.CardGateway
	if cfg.StripeEnabled() {
		card = gateway.NewStripe(gateway.StripeConfig{
			SecretKey:  cfg.StripeSecretKey,
			Currency:   cfg.StripeCurrency,
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
		})
	} else {
		logr.Warn("stripe disabled: STRIPE_SECRET_KEY is empty")
	}
	var paypal service.PayPalGateway
	if cfg.PayPalEnabled() {
		paypal = gateway.NewPayPal(gateway.PayPalConfig{
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			BaseURL:      cfg.PayPalBaseURL,
			ReturnURL:    cfg.PayPalReturnURL,
			CancelURL:    cfg.PayPalCancelURL,
		})
	} else {
		logr.Warn("paypal disabled: client credentials are empty")
	}

	notifier, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramAdminChatID, logr)
	if err != nil {
		log.Fatalf("telegram notifier: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	freeTierRepo := repository.NewFreeTierRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	contactRepo := repository.NewContactRepository(db)
	wallRepo := repository.NewWallRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	tierService := service.NewTierService(freeTierRepo, cfg.Location())
	couponService := service.NewCouponService(couponRepo)
	paymentService := service.NewPaymentService(card, paypal, paymentRepo)
	submissionService := service.NewSubmissionService(tierService, couponService, paymentService,
		uploader, submissionRepo, queue, notifier,
		service.Folders{Poems: cfg.PoemsFolder, Photos: cfg.PhotosFolder}, logr)

	if cfg.SheetsEnabled() {
		appender, err := sheets.NewAppender(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsFile, cfg.SheetsRange)
		if err != nil {
			log.Fatalf("sheets: %v", err)
		}
		relay := outbox.NewRelay(outboxRepo, appender, queue, logr, outbox.Options{
			MaxAttempts:   cfg.OutboxMaxAttempts,
			SweepInterval: cfg.OutboxSweepInterval,
		})
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("outbox relay stopped", "err", err)
			}
		}()
	} else {
		logr.Warn("sheet mirror disabled: entries stay in the outbox until replayed")
	}

	srv := server.New(server.Config{
		Addr:              cfg.HTTPListenAddr,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiration:     cfg.JWTExpiration,
		MaxUploadBytes:    cfg.MaxUploadBytes,
	}, logr, server.Services{
		Tiers:       tierService,
		Coupons:     couponService,
		Payments:    paymentService,
		Submissions: submissionService,
		Reconcile:   service.NewReconcileService(submissionRepo),
		Wall:        service.NewWallService(wallRepo),
		Users:       service.NewUserService(userRepo),
		Contact:     service.NewContactService(contactRepo, notifier),
		Admin:       service.NewAdminService(submissionRepo, settingsRepo),
	})

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("http server stopped", "err", err)
	}
}
