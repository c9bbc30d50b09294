package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/agalitsyn/flagutils"
	"github.com/agalitsyn/secret"

	"github.com/agalitsyn/task-planner-bot/pkg/slogtools"
	"github.com/agalitsyn/task-planner-bot/version"
)

const EnvPrefix = "TASK_PLANNER"

type Config struct {
	Debug bool

	Log struct {
		Level slog.Level
	}

	Token  secret.String
	ChatID int64

	DBPath string

	// ReconcileInterval is how often the overdue reconciliation pass runs.
	ReconcileInterval time.Duration
	// SummaryAt is the HH:MM local time of the daily summary message.
	SummaryAt string
}

func (c Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(0)
	}
	return string(b)
}

func ParseFlags() Config {
	var cfg Config

	printVersion := flag.Bool("version", false, "Show version.")
	logLevel := flag.String("log-level", "info", "Log level (debug | info | warn | error).")
	token := flag.String("token", "", "Telegram bot token.")
	chatID := flag.Int64("chat-id", 0, "Chat for reminders and the daily summary (0 logs them instead).")
	dbPath := flag.String("db-path", "planner.db", "Path to the SQLite database file.")
	reconcileInterval := flag.Duration(
		"reconcile-interval",
		5*time.Minute,
		"How often pending tasks are checked for having become overdue.",
	)
	summaryAt := flag.String("summary-at", "09:00", "Local HH:MM time of the daily summary.")

	flagutils.Prefix = EnvPrefix
	flagutils.Parse()
	flag.Parse()

	slogLevel := slogtools.ParseLogLevel(*logLevel)
	cfg.Log.Level = slogLevel
	if slogLevel == slog.LevelDebug {
		cfg.Debug = true
	}

	cfg.Token = secret.NewString(*token)
	cfg.ChatID = *chatID
	cfg.DBPath = *dbPath
	cfg.ReconcileInterval = *reconcileInterval
	cfg.SummaryAt = *summaryAt

	if *printVersion {
		fmt.Fprintln(os.Stdout, version.String())
		os.Exit(0)
	}

	return cfg
}
