package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simhaf82/Handtiming/internal/config"
	"github.com/simhaf82/Handtiming/internal/csvexport"
	"github.com/simhaf82/Handtiming/internal/directory"
	"github.com/simhaf82/Handtiming/internal/httpapi"
	"github.com/simhaf82/Handtiming/internal/httpmiddleware"
	"github.com/simhaf82/Handtiming/internal/mailer"
	"github.com/simhaf82/Handtiming/internal/queue"
	"github.com/simhaf82/Handtiming/internal/realtime"
	"github.com/simhaf82/Handtiming/internal/startlist"
	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	var st store.Store
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPgStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		st = pg
	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			return err
		}
		st = fs
	}

	csv, err := csvexport.NewMaterializer(cfg.DataDir)
	if err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "handtiming:email")
	}

	hub := realtime.NewHub()
	engine := timing.NewService(st, csv, hub)
	dir := directory.New(st, engine.Teardown)
	sl := startlist.New(st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// With the in-memory queue there is no separate worker process, so
	// the API runs the delivery loop itself.
	if cfg.QueueBackend == "memory" {
		deliverer := mailer.NewDeliverer(st, csv, nil)
		go runDeliveryLoop(ctx, q, deliverer)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		storeHealthy := st.Ping(c.Request.Context()) == nil
		status := http.StatusOK
		if !storeHealthy {
			status = http.StatusServiceUnavailable
		}
		payload := gin.H{"status": "ok", "store": storeHealthy, "sessions": hub.SessionCount()}
		if cfg.QueueBackend != "memory" {
			payload["redis"] = redisClient.Healthy(c.Request.Context())
		}
		c.JSON(status, payload)
	})

	handler := httpapi.New(cfg, st, dir, engine, sl, csv, hub, q)
	handler.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func runDeliveryLoop(ctx context.Context, q queue.Queue, deliverer *mailer.Deliverer) {
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Printf("delivery loop init failed: %v", err)
		return
	}
	for msg := range messages {
		if msg.Type != "email" {
			continue
		}
		job, err := mailer.DecodeJob(msg.Body)
		if err != nil {
			log.Printf("bad email job: %v", err)
			continue
		}
		if err := deliverer.Process(ctx, job); err != nil {
			log.Printf("email delivery failed: %v", err)
		}
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
