package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/mata-s/novel-day/internal/config"
	"github.com/mata-s/novel-day/internal/database"
	"github.com/mata-s/novel-day/internal/handlers"
	"github.com/mata-s/novel-day/internal/jobs"
	"github.com/mata-s/novel-day/internal/logging"
	"github.com/mata-s/novel-day/internal/narrative"
	"github.com/mata-s/novel-day/internal/services"
	"github.com/mata-s/novel-day/internal/worker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting novel-day server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	redisService, err := services.NewRedisService(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	openaiService, err := services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to initialize OpenAI client: %v", err)
	}

	profileService := services.NewProfileService(mongoDB)
	chapterService := services.NewChapterService(mongoDB)
	queueService := services.NewQueueService(redisService, cfg.TaskMaxAttempts)
	engine := narrative.NewEngine(openaiService)
	taskWorker := worker.New(chapterService, profileService, engine)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := chapterService.EnsureIndexes(ctx); err != nil {
			log.Printf("⚠️ Failed to create entries indexes: %v", err)
		}
		cancel()
	}

	scheduler, err := jobs.NewChapterScheduler(cfg, profileService, queueService, redisService)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// One dispatcher per queue; both deliver to the worker endpoints.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go queueService.StartDispatcher(dispatchCtx, cfg.WeeklyQueue)
	go queueService.StartDispatcher(dispatchCtx, cfg.MonthlyQueue)

	app := fiber.New(fiber.Config{
		AppName:      "novel-day v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("novelday")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Routes
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService, scheduler)
	taskHandler := handlers.NewTaskHandler(taskWorker)
	novelHandler := handlers.NewNovelHandler(engine)

	app.Get("/health", healthHandler.Handle)
	app.Post("/tasks/weekly", taskHandler.Weekly)
	app.Post("/tasks/monthly", taskHandler.Monthly)
	app.Post("/api/novels/daily", novelHandler.Daily)

	// Graceful shutdown
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("🛑 Shutting down...")
		stopDispatch()
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
