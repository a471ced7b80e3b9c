package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"smartliving/site/internal/api"
	"smartliving/site/internal/cache"
	"smartliving/site/internal/captcha"
	"smartliving/site/internal/config"
	"smartliving/site/internal/db"
	"smartliving/site/internal/email"
	"smartliving/site/internal/services"
	"smartliving/site/internal/storage"
	"smartliving/site/internal/store"
	"smartliving/site/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (email worker), 'img' (image worker), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	switch cfg.RunMode {
	case "api", "bg", "img", "all":
	default:
		log.Fatalf("Invalid run mode %q", cfg.RunMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: an empty REDIS_ADDR runs everything in-process.
	var redisClient *redis.Client
	var broker store.Broker
	if cfg.RedisAddr != "" {
		redisClient, err = cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer func() {
			if err := cache.DisconnectRedis(redisClient); err != nil {
				log.Printf("Error disconnecting from Redis: %v", err)
			}
		}()
		broker = cache.NewRedisBroker(redisClient)
	} else {
		log.Println("REDIS_ADDR is empty: change events stay in-process and tasks run inline")
	}

	var st store.Store
	switch cfg.StoreDriver {
	case config.StoreMongo:
		mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer func() {
			if err := db.DisconnectDB(mongoClient); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
			}
		}()
		mongoStore := store.NewMongoStore(mongoDb, broker)
		if err := mongoStore.EnsureIndexes(ctx, db.Indexes()); err != nil {
			log.Printf("WARNING: failed to ensure indexes: %v", err)
		}
		st = mongoStore
	case config.StoreMemory:
		log.Println("Using the in-memory store; data is lost on exit")
		st = store.NewMemoryStore(broker)
	}

	bucket, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Printf("Image uploads disabled: %v", err)
	}

	var primarySender email.Sender
	if cfg.MockEmail && redisClient != nil {
		log.Println("MOCK_EMAIL enabled: storing outgoing mail in Redis")
		primarySender = email.NewRedisSender(redisClient, cfg.SmtpFromAddress)
	} else {
		primarySender = email.NewSMTPSender(cfg)
	}
	emailSender := email.NewCompositeEmailSender(primarySender)
	if cfg.EmailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			log.Printf("WARNING: email log file %s unavailable: %v", cfg.EmailLogFile, err)
		} else {
			emailSender.AddSender(fileSender)
		}
	}

	var queue services.ITaskQueue
	var inlineQueue *tasks.InlineQueue
	if redisClient != nil {
		taskClient := tasks.NewClient(redisClient)
		defer taskClient.Close()
		queue = tasks.NewQueue(taskClient)
	} else {
		inlineQueue = tasks.NewInlineQueue()
		queue = inlineQueue
	}

	emailTemplateService := services.NewEmailTemplateService(st)
	inquiryService := services.NewInquiryService(st, cfg, queue)
	imageService := services.NewImageService(st, bucket, queue)
	svc := api.Services{
		Inquiries:      inquiryService,
		Contacts:       services.NewContactService(st, cfg, queue),
		Registrations:  services.NewRegistrationService(st, cfg, inquiryService, queue),
		Images:         imageService,
		Blog:           services.NewBlogService(st),
		Admins:         services.NewAdminUserService(st, cfg),
		EmailTemplates: emailTemplateService,
	}

	taskProcessor := tasks.NewTaskProcessor(cfg, emailSender, bucket, imageService, emailTemplateService)
	if inlineQueue != nil {
		inlineQueue.SetProcessor(taskProcessor)
	}

	if err := svc.Admins.EnsureSeedAdmin(ctx); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
	}()

	var mainApiSrv *http.Server
	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		// Counts streams close when Shutdown starts; other requests drain.
		streamCtx, stopStreams := context.WithCancel(ctx)
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(streamCtx, cfg, svc, captcha.NewTurnstileVerifier(cfg)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		mainApiSrv.RegisterOnShutdown(stopStreams)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
		}()
	}

	var taskSrv *asynq.Server
	isBgWorker := cfg.RunMode == "bg" || cfg.RunMode == "all"
	isImageWorker := cfg.RunMode == "img" || cfg.RunMode == "all"
	if redisClient == nil && (isBgWorker || isImageWorker) {
		log.Println("No Redis: workers not started, tasks run inside the API process")
	} else if srv, mux := tasks.SetupServer(redisClient, taskProcessor, isImageWorker, isBgWorker); srv != nil {
		if err := srv.Start(mux); err != nil {
			log.Fatalf("Task server error: %v", err)
		}
		taskSrv = srv
		log.Printf("Task server started (bg=%t img=%t)", isBgWorker, isImageWorker)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down", sig)
	case <-shutdownChan:
		log.Println("Shutdown requested via Service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API shutdown error: %v", err)
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}
	cancel()

	wg.Wait()
	log.Println("Server gracefully stopped")
}
