package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
// Components receive the values they need at construction; nothing reads
// configuration from ambient state after startup.
type Config struct {
	// Ops HTTP server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Telephony manager connection
	AMIAddr     string
	AMIUsername string
	AMISecret   string

	// Call-scripting (FastAGI) listener
	AGIAddr string

	// Monitored queues
	Queues []string

	// Callback scheduling
	SchedulerInterval time.Duration
	CallbackLimit     int
	OriginateRate     int // originations per second per queue

	// Fixed outbound routing
	CallbackTrunk    string
	CallbackContext  string
	CallbackExten    string
	CallbackPriority int
	CallbackCallerID string
	OriginateTimeout time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		AMIAddr:     getEnv("AMI_ADDR", "127.0.0.1:5038"),
		AMIUsername: getEnv("AMI_USERNAME", "manager"),
		AMISecret:   getEnv("AMI_SECRET", ""),

		AGIAddr: getEnv("AGI_ADDR", ":24131"),

		Queues: getList("MONITORED_QUEUES", nil),

		SchedulerInterval: getDuration("SCHEDULER_INTERVAL", 90*time.Second),
		CallbackLimit:     getInt("CALLBACK_LIMIT", 3),
		OriginateRate:     getInt("ORIGINATE_RATE", 1),

		CallbackTrunk:    getEnv("CALLBACK_TRUNK", ""),
		CallbackContext:  getEnv("CALLBACK_CONTEXT", "queue-callback"),
		CallbackExten:    getEnv("CALLBACK_EXTEN", "s"),
		CallbackPriority: getInt("CALLBACK_PRIORITY", 1),
		CallbackCallerID: getEnv("CALLBACK_CALLERID", ""),
		OriginateTimeout: getDuration("ORIGINATE_TIMEOUT", 30*time.Second),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
