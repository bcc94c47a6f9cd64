package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"warchive/internal/category"
	"warchive/internal/download"
	"warchive/internal/history"
	"warchive/internal/images"
	"warchive/internal/progress"
	"warchive/internal/scraper"
	"warchive/internal/search"
	"warchive/pkg/database"
	"warchive/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()
	if cfg == nil {
		return
	}

	db := database.MustOpen(cfg.DBPath)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}
	if err := database.SeedCategories(db); err != nil {
		log.Fatalf("seed categories failed: %v", err)
	}

	svc, err := download.NewService(cfg.DownloadsDir)
	if err != nil {
		log.Fatalf("init download service: %v", err)
	}

	wm := scraper.NewWikimedia()
	nara := scraper.NewNationalArchives()
	archive := scraper.NewArchiveOrg()
	if cfg.UserAgent != "" {
		wm.UserAgent = cfg.UserAgent
		nara.UserAgent = cfg.UserAgent
		archive.UserAgent = cfg.UserAgent
	}
	agg := scraper.NewAggregator(wm, nara, archive)

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := progress.NewHub()
	router.GET("/ws", progress.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Count(),
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"db":         cfg.DBPath,
			"downloads":  cfg.DownloadsDir,
			"ws_clients": hub.Count(),
		})
	})

	catRepo := category.NewRepo(db)
	histRepo := history.NewRepo(db)
	imgRepo := images.NewRepo(db)

	api := router.Group("/api")
	category.NewHandler(catRepo).RegisterRoutes(api)
	history.NewHandler(histRepo).RegisterRoutes(api)
	images.NewHandler(imgRepo).RegisterRoutes(api)
	search.NewHandler(wm, archive, agg, histRepo, imgRepo, catRepo).RegisterRoutes(api)
	download.NewHandler(svc, imgRepo, hub).RegisterRoutes(api)

	// downloaded assets are served straight from disk
	router.Static("/downloads", cfg.DownloadsDir)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
