package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type BotConfig struct {
	TelegramToken string

	// DatabaseDir holds the per-month record partitions.
	DatabaseDir   string
	DashboardAddr string
	StaticDir     string

	// Timezone is the single operational zone all daily boundaries and
	// reports use, regardless of where agents or the server run.
	Timezone *time.Location

	RetentionDays int

	// Excel Online mirror (optional; disabled unless ExcelSyncEnabled
	// and all credentials are present).
	ExcelSyncEnabled bool
	MSTenantID       string
	MSClientID       string
	MSClientSecret   string
	ExcelFileID      string
	ExcelTableName   string
}

var instance *BotConfig
var once sync.Once

func GetBotConfig() *BotConfig {
	once.Do(func() {
		instance = &BotConfig{}

		if err := godotenv.Load(); err != nil {
			logrus.Infof("No .env file loaded: %s", err.Error())
		}

		instance.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
		if instance.TelegramToken == "" {
			logrus.Fatal("could not get bot token")
		}

		instance.DatabaseDir = getEnv("DATABASE_DIR", "database")
		instance.DashboardAddr = getEnv("DASHBOARD_ADDR", ":8000")
		instance.StaticDir = getEnv("STATIC_DIR", "dashboard/static")

		tz := getEnv("TIMEZONE", "Local")
		loc, err := time.LoadLocation(tz)
		if err != nil {
			logrus.Fatalf("invalid TIMEZONE %q: %s", tz, err.Error())
		}
		instance.Timezone = loc

		instance.RetentionDays = int(getEnvAsInt("RETENTION_DAYS", 90))
		if instance.RetentionDays < 1 {
			logrus.Fatal("RETENTION_DAYS must be positive")
		}

		instance.ExcelSyncEnabled = getEnvAsBool("EXCEL_SYNC_ENABLED", false)
		instance.MSTenantID = getEnv("MS_TENANT_ID", "")
		instance.MSClientID = getEnv("MS_CLIENT_ID", "")
		instance.MSClientSecret = getEnv("MS_CLIENT_SECRET", "")
		instance.ExcelFileID = getEnv("EXCEL_FILE_ID", "")
		instance.ExcelTableName = getEnv("EXCEL_TABLE_NAME", "BreakLog")

		if instance.ExcelSyncEnabled && !instance.ExcelConfigured() {
			logrus.Info("Excel sync enabled but credentials incomplete, disabling")
			instance.ExcelSyncEnabled = false
		}
	})

	return instance
}

// ExcelConfigured reports whether every credential the Graph client
// needs is present.
func (c *BotConfig) ExcelConfigured() bool {
	return c.MSTenantID != "" && c.MSClientID != "" && c.MSClientSecret != "" && c.ExcelFileID != ""
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}
