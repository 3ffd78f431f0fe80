package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port          string
	MongoURI      string
	RedisURL      string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Worker endpoint the task dispatcher POSTs to. When empty the
	// scheduler skips enqueueing entirely.
	WorkerBaseURL string

	// Queue configuration
	WeeklyQueue     string
	MonthlyQueue    string
	TaskMaxAttempts int

	// Scheduler configuration
	WeeklyCron         string
	MonthlyCron        string
	SchedulerTimezone  string
	EnqueueConcurrency int
	EnqueuePerSecond   int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3001"),
		MongoURI:      getEnv("MONGODB_URI", ""),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		WorkerBaseURL: getEnv("WORKER_BASE_URL", ""),

		WeeklyQueue:     getEnv("WEEKLY_QUEUE", "novelday-weekly-novel"),
		MonthlyQueue:    getEnv("MONTHLY_QUEUE", "novelday-monthly-novel"),
		TaskMaxAttempts: getIntEnv("TASK_MAX_ATTEMPTS", 5),

		WeeklyCron:         getEnv("WEEKLY_CRON", "0 1 * * 1"),
		MonthlyCron:        getEnv("MONTHLY_CRON", "0 3 1 * *"),
		SchedulerTimezone:  getEnv("SCHEDULER_TIMEZONE", "Asia/Tokyo"),
		EnqueueConcurrency: getIntEnv("ENQUEUE_CONCURRENCY", 4),
		EnqueuePerSecond:   getIntEnv("ENQUEUE_PER_SECOND", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
