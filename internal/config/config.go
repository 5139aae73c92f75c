package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    DBMaxOpenConns    int           // DB_MAX_OPEN_CONNS, 25 when unset
    DBConnMaxLifetime time.Duration // DB_CONN_MAX_LIFETIME, 30m when unset

    Stripe  StripeConfig
    Mail    MailConfig
    AMQPURL string // RabbitMQ connection string; empty disables the publisher and consumer

    // PublicBaseURL is the SPA origin printed into certificate QR codes
    // (<PublicBaseURL>/certify/<participant id>).
    PublicBaseURL string

    // PendingOrderTTL is how long an unpaid order is kept before the sweeper
    // deletes it.  Zero disables the sweep.
    PendingOrderTTL time.Duration
}

// StripeConfig groups the payment gateway settings.
type StripeConfig struct {
    SecretKey     string
    WebhookSecret string
    Currency      string // ISO code in lower case, e.g. "eur"
    SuccessURL    string
    CancelURL     string
}

// MailConfig holds Resend credentials.  An empty APIKey disables sending;
// confirmations are then only logged.
type MailConfig struct {
    APIKey string
    From   string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    frontend := strings.TrimRight(envStr("FRONTEND_URL", "http://localhost:5173"), "/")
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        DBMaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
        DBConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
        Stripe: StripeConfig{
            SecretKey:     must("STRIPE_SECRET_KEY"),
            WebhookSecret: must("STRIPE_WEBHOOK_SECRET"),
            Currency:      strings.ToLower(envStr("CURRENCY", "eur")),
            SuccessURL:    frontend + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
            CancelURL:     frontend + "/checkout/cancel",
        },
        Mail: MailConfig{
            APIKey: os.Getenv("RESEND_API_KEY"),
            From:   envStr("MAIL_FROM", "Rhum Atelier <atelier@example.com>"),
        },
        AMQPURL:         os.Getenv("RABBITMQ_URL"),
        PublicBaseURL:   strings.TrimRight(envStr("PUBLIC_BASE_URL", frontend), "/"),
        PendingOrderTTL: envDur("PENDING_ORDER_TTL", 0),
    }
}

// DSN renders the go-sql-driver/mysql connection string.
// parseTime=true maps DATETIME to time.Time and loc=UTC keeps times consistent.
func (c Config) DSN() string {
    auth := c.DBUser
    if c.DBPass != "" {
        auth = c.DBUser + ":" + c.DBPass
    }
    return auth + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName +
        "?charset=utf8mb4&parseTime=true&loc=UTC"
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
