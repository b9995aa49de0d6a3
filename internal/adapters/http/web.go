package web

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"textforward/internal/adapters/formatter"
	"textforward/internal/adapters/http/middleware"
	formattedStore "textforward/internal/adapters/storage/formatted"
	mailStore "textforward/internal/adapters/storage/mailrequest"
)

// App holds the handler dependencies. Handlers receive everything through
// this struct at construction time; there are no package-level client handles.
type App struct {
	FormattedStore formattedStore.Store
	MailStore      mailStore.Store
	Formatter      formatter.Formatter
	DB             *sql.DB // for health checks only; stores own their queries

	// GenerateID yields record/correlation ids. Injected so tests can pin it.
	GenerateID func() string
}

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// loadCSRFKey reads the CSRF secret from TEXTFORWARD_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("TEXTFORWARD_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("TEXTFORWARD_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("TEXTFORWARD_ENV") == "production" {
		log.Fatal("TEXTFORWARD_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (tokens won't survive restart). Set TEXTFORWARD_CSRF_KEY for production.")
	return key
}

// NewMux wires HTTP handlers for the app.
func NewMux(app *App) http.Handler {
	if app.GenerateID == nil {
		app.GenerateID = generateID
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", app.handleIndex)
	mux.HandleFunc("/format", app.handleFormat)
	mux.HandleFunc("/api/history", app.handleHistory)
	mux.HandleFunc("/api/mail", app.handleMailLog)
	mux.HandleFunc("/healthz", app.handleHealthz)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	return middleware.Chain(mux,
		middleware.CSRF(loadCSRFKey()),
		middleware.RateLimit(limiter),
		middleware.SecurityHeaders,
		middleware.Timing(),
	)
}
