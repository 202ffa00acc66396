package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"labinsight/internal/config"
	"labinsight/internal/extract/pdftext"
	"labinsight/internal/handler"
	"labinsight/internal/llm"
	_ "labinsight/internal/llm/claude"
	_ "labinsight/internal/llm/gemini"
	_ "labinsight/internal/llm/openai"
	"labinsight/internal/port"
	"labinsight/internal/repository/postgres"
	"labinsight/internal/router"
	"labinsight/internal/service"
	s3storage "labinsight/internal/storage/s3"
	"labinsight/pkg/logger"
)

// @title        Lab Insight API
// @version      1.0
// @description  Lab report PDF interpretation service.
// @BasePath     /
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// A .env file is optional; the environment wins when both are set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator, err := llm.BuildChain(&cfg.Generator)
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}

	archive := service.NewNoopArchive()
	if cfg.Archive.Enabled {
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		// Without a bucket only the interpretation is archived.
		var storage port.ObjectStorage
		if cfg.S3.Bucket != "" {
			storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
			if err != nil {
				return fmt.Errorf("failed to initialize S3 client: %w", err)
			}
		}
		archive = service.NewArchiveService(postgres.NewAnalysisRepo(db), storage, &cfg.S3)
		slog.Info("analysis archive enabled", "db_host", cfg.DB.Host, "bucket", cfg.S3.Bucket)
	}

	analysisSvc := service.NewAnalysisService(pdftext.NewExtractor(), generator, archive, &cfg.Upload, &cfg.Generator)

	r := router.Setup(cfg, router.Handlers{
		Analysis: handler.NewAnalysisHandler(analysisSvc, cfg.Upload.MaxBytes()),
		Archive:  handler.NewArchiveHandler(archive),
		Health:   handler.NewHealthHandler(archive),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", cfg.Server.Port,
			"provider", cfg.Generator.PrimaryConfig().Provider,
			"max_upload_mb", cfg.Upload.MaxFileSizeMB,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
