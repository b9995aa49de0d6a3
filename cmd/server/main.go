package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "textforward/internal/adapters/email"
	"textforward/internal/adapters/formatter"
	web "textforward/internal/adapters/http"
	"textforward/internal/adapters/storage"
	formattedStorePkg "textforward/internal/adapters/storage/formatted"
	mailStorePkg "textforward/internal/adapters/storage/mailrequest"
	"textforward/internal/application/orchestrators"

	"github.com/google/uuid"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize database with WAL mode and busy timeout
	dbPath := envOrDefault("TEXTFORWARD_DB", "textforward.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.MigrateDB(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	loggedDB := storage.NewLoggedDB(db)
	formattedStore := formattedStorePkg.NewSQLiteStore(loggedDB)
	mailStore := mailStorePkg.NewSQLiteStore(loggedDB)

	// Configure the text formatter
	var textFormatter formatter.Formatter
	if apiKey := os.Getenv("TEXTFORWARD_GENAI_KEY"); apiKey != "" {
		model := envOrDefault("TEXTFORWARD_GENAI_MODEL", formatter.DefaultModel)
		gf, err := formatter.NewGenAIFormatter(context.Background(), apiKey, model)
		if err != nil {
			log.Fatalf("failed to create GenAI formatter: %v", err)
		}
		textFormatter = gf
		log.Printf("Formatter configured (GenAI, model=%s)", model)
	} else {
		textFormatter = formatter.NewPassthroughFormatter()
		if os.Getenv("TEXTFORWARD_ENV") == "production" {
			log.Println("WARNING: TEXTFORWARD_GENAI_KEY is not set — text passes through UNFORMATTED in production")
		} else {
			log.Println("Formatter configured (passthrough — set TEXTFORWARD_GENAI_KEY for real formatting)")
		}
	}

	// Configure the mail transport
	emailFrom := envOrDefault("TEXTFORWARD_RESEND_FROM", "TextForward <noreply@textforward.example>")
	emailReply := envOrDefault("TEXTFORWARD_REPLY_TO", "")
	var sender emailPkg.Sender
	if resendKey := os.Getenv("TEXTFORWARD_RESEND_KEY"); resendKey != "" {
		sender = emailPkg.NewResendSender(resendKey, emailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if os.Getenv("TEXTFORWARD_ENV") == "production" {
			log.Println("WARNING: TEXTFORWARD_RESEND_KEY is not set — email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop — set TEXTFORWARD_RESEND_KEY for real delivery)")
		}
	}

	// Start the mail watcher: delivers mail-request creation events to the
	// dispatcher. Restarting the process replays the collection (at-least-once).
	dispatcher := &orchestrators.MailDispatcher{Sender: sender, From: emailFrom, ReplyTo: emailReply}
	watcherStopCh := make(chan struct{})
	watcher := orchestrators.NewMailWatcher(mailStore, dispatcher)
	orchestrators.StartMailWatcher(watcher, 5*time.Second, watcherStopCh)
	defer close(watcherStopCh)

	app := &web.App{
		FormattedStore: formattedStore,
		MailStore:      mailStore,
		Formatter:      textFormatter,
		DB:             db,
		GenerateID:     func() string { return uuid.New().String() },
	}
	mux := web.NewMux(app)

	addr := envOrDefault("TEXTFORWARD_ADDR", ":8080")
	log.Printf("TextForward %s starting on %s (env=%s, schema=%d)", version, addr, envOrDefault("TEXTFORWARD_ENV", "development"), storage.LatestSchemaVersion())

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
