package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	// Three signing secrets, one per token class. Keeping them distinct is
	// what makes the classes unforgeable across each other.
	JWTAccessSecret  string // secret for access tokens
	JWTRefreshSecret string // secret for refresh tokens
	JWTOTPPageSecret string // secret for OTP-page tokens

	OTPHashSecret string // HMAC key for OTP digests stored in Redis
	OTPTTLMin     int    // OTP time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing

	SMTPHost  string // SMTP relay host
	SMTPPort  string // SMTP relay port
	SMTPUser  string // SMTP username
	SMTPPass  string // SMTP password
	EmailFrom string // From address on outgoing mail

	CookieDomain string // admin cookie domain in production

	MinioEndpoint  string // object storage endpoint (host:port)
	MinioAccessKey string // object storage access key
	MinioSecretKey string // object storage secret key
	MinioBucket    string // bucket holding avatar uploads
	MinioUseSSL    bool   // whether to talk TLS to object storage
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTAccessSecret:  must("JWT_ACCESS_TOKEN_SECRET_KEY"),
		JWTRefreshSecret: must("JWT_REFRESH_TOKEN_SECRET_KEY"),
		JWTOTPPageSecret: must("JWT_VERIFY_OTP_PAGE_SECRET_KEY"),
		OTPHashSecret:    must("OTP_HASH_SECRET"),
		OTPTTLMin:        mustInt("OTP_TTL_MIN"),
		BcryptCost:       mustInt("BCRYPT_COST"),
		SMTPHost:         must("SMTP_HOST"),
		SMTPPort:         must("SMTP_PORT"),
		SMTPUser:         must("SMTP_USER"),
		SMTPPass:         must("SMTP_PASS"),
		EmailFrom:        must("EMAIL_FROM"),
		CookieDomain:     os.Getenv("COOKIE_DOMAIN"),
		MinioEndpoint:    must("MINIO_ENDPOINT"),
		MinioAccessKey:   must("MINIO_ACCESS_KEY"),
		MinioSecretKey:   must("MINIO_SECRET_KEY"),
		MinioBucket:      must("MINIO_BUCKET"),
		MinioUseSSL:      os.Getenv("MINIO_USE_SSL") == "true",
	}
}

// IsProd reports whether the server runs with production settings
// (secure cookies, real cookie domain).
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
