package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/simhaf82/Handtiming/internal/config"
	"github.com/simhaf82/Handtiming/internal/csvexport"
	"github.com/simhaf82/Handtiming/internal/mailer"
	"github.com/simhaf82/Handtiming/internal/queue"
	"github.com/simhaf82/Handtiming/internal/store"
)

// Worker consumes queued email jobs and delivers result CSVs via SMTP.
// Only useful with the Redis queue; with the in-memory queue the API
// process runs the delivery loop itself.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	var st store.Store
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPgStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres connect failed: %v", err)
		}
		defer pg.Close()
		st = pg
	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("data dir failed: %v", err)
		}
		st = fs
	}

	csv, err := csvexport.NewMaterializer(cfg.DataDir)
	if err != nil {
		log.Fatalf("artifact dir failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	q := queue.NewRedisQueue(redisClient.Client, "handtiming:email")
	deliverer := mailer.NewDeliverer(st, csv, nil)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for email jobs...")
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
			continue
		}
		log.Printf("email sent to %s", job.Recipient)
	}

	log.Println("worker stopped")
}
