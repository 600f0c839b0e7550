package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/queue"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/repository"
	"github.com/oznakn/enhanced-embedded-queue/internal/pkg/config"
	"github.com/oznakn/enhanced-embedded-queue/internal/processing"
)

const renderDocumentJobType = "render-document"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewStructuredLogger(&cfg.Logger)
	defer log.Sync()

	q, err := queue.New(repository.Options{
		Backend:  cfg.Repository.Backend,
		Filename: cfg.Repository.Filename,
		Autoload: cfg.Repository.Autoload,
		Warn:     log.Warn,
	}, log)
	if err != nil {
		log.Fatal("failed to open queue", "error", err)
	}
	defer q.Close()

	var sink processing.Sink
	if cfg.Processing.ObjectStoreURL != "" {
		sink, err = processing.NewObjectSink(processing.ObjectSinkConfig{
			Endpoint:     cfg.Processing.ObjectStoreURL,
			AccessKey:    cfg.Processing.ObjectStoreKey,
			SecretKey:    cfg.Processing.ObjectStoreSecret,
			Bucket:       cfg.Processing.Bucket,
			UseSSL:       cfg.Processing.UseSSL,
			CreateBucket: true,
		})
		if err != nil {
			log.Fatal("failed to initialize object store", "error", err)
		}
	} else {
		sink, err = processing.NewDiskSink(cfg.Processing.OutputDirectory)
		if err != nil {
			log.Fatal("failed to initialize local output directory", "error", err)
		}
		log.Info("no object store configured, falling back to local disk", "output_directory", cfg.Processing.OutputDirectory)
	}

	poolSize := cfg.Worker.DefaultPoolSize
	if configured, ok := cfg.Worker.Pools[renderDocumentJobType]; ok {
		poolSize = configured
	}

	workers := q.Process(renderDocumentJobType, processing.NewProcessor(sink), poolSize)
	log.Info("worker pool started", "job_type", renderDocumentJobType, "pool_size", poolSize)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down workers")
	for _, w := range workers {
		w.Shutdown(cfg.Worker.ShutdownTimeout)
	}
	log.Info("workers exited")
}
