package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/bagvault/api/internal/config"
	"github.com/bagvault/api/internal/database"
	"github.com/bagvault/api/internal/handler"
	"github.com/bagvault/api/internal/jobs"
	"github.com/bagvault/api/internal/middleware"
	"github.com/bagvault/api/internal/queue"
	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/router"
	"github.com/bagvault/api/internal/service"
	"github.com/bagvault/api/internal/storage"
	"github.com/bagvault/api/internal/utils"
)

const shutdownGrace = 30 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	avatars, err := storage.NewAvatars(cfg)
	if err != nil {
		log.Fatalf("object storage: %v", err)
	}

	brokerURL := queue.BrokerURL()
	emails, err := queue.NewEmailQueue(brokerURL)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer emails.Close()

	users := &repository.UserRepo{DB: db}
	otps := &repository.OTPRepo{RDB: rdb}
	blacklist := &repository.BlacklistRepo{RDB: rdb}

	issuer := utils.NewTokenIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTOTPPageSecret)
	authSvc := service.NewAuthService(users, otps, blacklist, emails, issuer,
		cfg.OTPHashSecret, cfg.OTPTTLMin, cfg.BcryptCost)
	cookies := utils.CookiePolicy{Prod: cfg.IsProd(), Domain: cfg.CookieDomain}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(authSvc, cookies),
		Profile:   handler.NewProfileHandler(users),
		Admin:     handler.NewAdminUserHandler(users),
		Session:   middleware.NewSession(issuer, blacklist, users),
		Checks:    middleware.NewAuthChecks(users, otps, cfg.OTPHashSecret),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	// Background loops stop on the same signal as the server.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailer := queue.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
	go queue.NewWorker(brokerURL, mailer).Run(ctx)
	go jobs.NewSweeper(users, avatars).Run(ctx)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
