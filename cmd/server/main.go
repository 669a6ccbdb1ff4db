package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/proshop-dev/proshop-backend/internal/config"
	"github.com/proshop-dev/proshop-backend/internal/es"
	"github.com/proshop-dev/proshop-backend/internal/handlers"
	"github.com/proshop-dev/proshop-backend/internal/logging"
	"github.com/proshop-dev/proshop-backend/internal/mail"
	authmw "github.com/proshop-dev/proshop-backend/internal/middleware/auth"
	loggingmw "github.com/proshop-dev/proshop-backend/internal/middleware/logging"
	"github.com/proshop-dev/proshop-backend/internal/mykafka"
	"github.com/proshop-dev/proshop-backend/internal/service/search"
	httpserver "github.com/proshop-dev/proshop-backend/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	var producer *mykafka.Producer
	var pub mykafka.Publisher
	if len(configuration.KAFKA_BROKERS) > 0 {
		producer = mykafka.NewProducer(configuration.KAFKA_BROKERS)
		pub = producer
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}

	mailer := &mail.SMTPMailer{
		Host: configuration.SMTP_HOST,
		Port: configuration.SMTP_PORT,
		User: configuration.SMTP_USER,
		Pass: configuration.SMTP_PASS,
		From: configuration.MAIL_FROM,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Auth:     &authmw.Middleware{DB: db, JWTSecret: jwtSecret},
		AuthH:    &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, TokenTTL: configuration.TOKEN_TTL, Producer: pub},
		UserH:    &handlers.UserHandler{DB: db},
		ResetH:   &handlers.ResetHandler{DB: db, Mailer: mailer, ResetURL: configuration.RESET_URL},
		ProductH: &handlers.ProductHandler{DB: db, Producer: pub, ES: esClient},
		ReviewH:  &handlers.ReviewHandler{DB: db, Producer: pub},
		OrderH:   &handlers.OrderHandler{DB: db, Producer: pub},
	}
	if esClient != nil {
		deps.SearchH = &handlers.SearchHandler{ES: esClient, Index: search.Index}
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.SERVER_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db() error", "error", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
