package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ecosort_service/internal/api"
	"ecosort_service/internal/config"
	"ecosort_service/internal/core"
	"ecosort_service/internal/domain/repository"
	"ecosort_service/internal/infrastructure/detector"
	"ecosort_service/internal/infrastructure/export"
	"ecosort_service/internal/infrastructure/sysmon"
)

func main() {
	cfg := config.Load()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load class catalog: %v", err)
	}

	restDetector := detector.NewRESTDetector(cfg.InferenceURL)
	monitor := sysmon.New()

	healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := restDetector.CheckHealth(healthCtx); err != nil {
		log.Printf("Warning: inference service not available: %v", err)
		monitor.SetModelStatus("Unavailable", cfg.InferenceURL)
	} else {
		monitor.SetModelStatus("Ready", cfg.InferenceURL)
	}
	cancel()

	logs := repository.NewLogStore()

	var recorder repository.DetectionRecorder
	if cfg.RecordDetections {
		recorder = repository.NewPostgresDetectionRecorder(cfg.PostgresURL)
	}

	service := core.NewDetectionService(
		restDetector,
		catalog,
		logs,
		recorder,
		cfg.ConfidenceThreshold,
		cfg.IOUThreshold,
	)

	handler := api.NewHandler(service, logs, monitor, cfg.UploadDir, cfg.SnapshotDir, cfg.LogsDir, cfg.ImageSize)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsMiddleware(handler.Routes()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		log.Printf("Inference URL: %s", cfg.InferenceURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	// Preserve the session log on the way out.
	if logs.Total() > 0 {
		if path, err := export.ExportCSV(cfg.LogsDir, logs.SessionID(), logs.All()); err != nil {
			log.Printf("failed to save session log: %v", err)
		} else {
			log.Printf("Session log saved to %s", path)
		}
	}
}

// corsMiddleware allows the browser frontend to call the API from any
// origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
