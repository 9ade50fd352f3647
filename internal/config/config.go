package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; a .env file in the working directory is honoured
// when present.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	PublicURL       string        // externally reachable base URL of this server
	ClientURL       string        // front-end origin used for post-login redirects
	CORSOrigins     []string      // allowed CORS origins
	MaxUploadBytes  int64         // upper bound for a poster image upload
	ShutdownTimeout time.Duration // grace period for in-flight requests on shutdown

	Mongo   MongoConfig
	Session SessionConfig
	Google  GoogleConfig
	Broker  BrokerConfig
	Logging LoggingConfig
}

// MongoConfig describes the document store connection.
type MongoConfig struct {
	URI          string
	Database     string
	Transactions bool // requires a replica set
}

// SessionConfig controls the signed session cookie issued after login.
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
	Required     bool // reject write requests that carry no session
}

// GoogleConfig carries the OAuth2 client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// BrokerConfig configures the RabbitMQ publisher and consumer.  An empty URL
// disables both.
type BrokerConfig struct {
	URL            string
	ActivityLogDir string
}

// LoggingConfig selects zerolog level and output format (json or console).
type LoggingConfig struct {
	Level  string
	Format string
}

// ErrMissingEnv is wrapped by Load when required variables are absent.
var ErrMissingEnv = errors.New("missing required env var")

// Load reads configuration values from the environment.  Required variables
// are collected and reported together instead of failing on the first one.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional

	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	env := envStr("APP_ENV", "dev")
	port := envStr("PORT", "5000")
	public := strings.TrimRight(envStr("PUBLIC_URL", "http://localhost:"+port), "/")
	cfg := Config{
		Env:             env,
		Port:            port,
		PublicURL:       public,
		ClientURL:       envStr("CLIENT_URL", "http://localhost:5173"),
		CORSOrigins:     envList("CORS_ALLOWED_ORIGINS", []string{"https://event-hub-kah1.vercel.app", "http://localhost:5173"}),
		MaxUploadBytes:  int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		Mongo: MongoConfig{
			URI:          must("MONGODB_URI"),
			Database:     envStr("MONGODB_DATABASE", "eventhub"),
			Transactions: envBool("MONGO_TRANSACTIONS", false),
		},
		Session: SessionConfig{
			Secret:       must("SESSION_SECRET"),
			TTL:          envDur("SESSION_TTL", 24*time.Hour),
			CookieName:   envStr("SESSION_COOKIE", "eventhub_session"),
			CookieSecure: envBool("SESSION_COOKIE_SECURE", env == "prod"),
			Required:     envBool("AUTH_REQUIRED", false),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  absoluteURL(public, envStr("GOOGLE_CALLBACK_URL", "/google/callback")),
		},
		Broker: BrokerConfig{
			URL:            firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
			ActivityLogDir: envStr("ACTIVITY_LOG_DIR", "logs"),
		},
		Logging: LoggingConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
		},
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return cfg, nil
}

// absoluteURL resolves a path such as "/google/callback" against base.  Values
// that already carry a scheme are returned unchanged.
func absoluteURL(base, v string) string {
	if strings.HasPrefix(v, "/") {
		return base + v
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
