package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vasapolrittideah/orvane-auth/shared/logger"
	"github.com/vasapolrittideah/orvane-auth/shared/mailer"
)

// Notifier modes.
const (
	NotifierModeSMTP  = "smtp"
	NotifierModeQueue = "queue"
)

// AuthServiceConfig holds the runtime configuration of the auth service.
type AuthServiceConfig struct {
	Server ServerConfig  `envPrefix:"APP_"`
	Log    logger.Config `envPrefix:"LOG_"`
	Mongo  MongoConfig   `envPrefix:"MONGO_"`
	Redis  RedisConfig   `envPrefix:"REDIS_"`
	Token  TokenConfig   `envPrefix:"TOKEN_"`
	SMTP   mailer.Config `envPrefix:"SMTP_"`
	Mail   MailConfig    `envPrefix:"MAIL_"`
	Limits LimitsConfig  `envPrefix:"LIMIT_"`

	// AppPasswordResetURL is the front end page that receives ?token=<reference>.
	AppPasswordResetURL string `env:"APP_PASSWORD_RESET_URL" envDefault:"http://localhost:3000/auth/password-reset"`
}

type ServerConfig struct {
	Addr            string        `env:"ADDR"             envDefault:":8080"`
	Env             string        `env:"ENV"              envDefault:"development"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"15s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CookieSecure    bool          `env:"COOKIE_SECURE"    envDefault:"true"`
	HashConcurrency int           `env:"HASH_CONCURRENCY" envDefault:"0"`
}

type MongoConfig struct {
	URI      string        `env:"URI"      envDefault:"mongodb://localhost:27017/?replicaSet=rs0"`
	Database string        `env:"DATABASE" envDefault:"orvane"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"5s"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`
}

type TokenConfig struct {
	Issuer                       string        `env:"ISSUER"                         envDefault:"orvane"`
	PasswordResetTokenSecret     string        `env:"PASSWORD_RESET_SECRET,required,notEmpty"`
	PasswordResetTokenExpiresIn  time.Duration `env:"PASSWORD_RESET_EXPIRES_IN"      envDefault:"1h"`
	VerificationCodeSecret       string        `env:"VERIFICATION_CODE_SECRET,required,notEmpty"`
	EmailVerificationExpiresIn   time.Duration `env:"EMAIL_VERIFICATION_EXPIRES_IN"  envDefault:"5m"`
	AuthorizedSessionExpiresIn   time.Duration `env:"AUTHORIZED_SESSION_EXPIRES_IN"  envDefault:"720h"`
	UnauthorizedSessionExpiresIn time.Duration `env:"UNAUTHORIZED_SESSION_EXPIRES_IN" envDefault:"12h"`
}

type MailConfig struct {
	Mode              string        `env:"MODE"               envDefault:"smtp"`
	Timeout           time.Duration `env:"TIMEOUT"            envDefault:"10s"`
	Product           string        `env:"PRODUCT"            envDefault:"Orvane"`
	MaxRetry          int           `env:"MAX_RETRY"          envDefault:"5"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"5"`
}

type LimitsConfig struct {
	Enabled            bool          `env:"ENABLED"              envDefault:"true"`
	RequestsPerMinute  int           `env:"REQUESTS_PER_MINUTE"  envDefault:"60"`
	VerifyAttempts     int           `env:"VERIFY_ATTEMPTS"      envDefault:"5"`
	VerifyWindow       time.Duration `env:"VERIFY_WINDOW"        envDefault:"5m"`
	ResetRequests      int           `env:"RESET_REQUESTS"       envDefault:"3"`
	ResetRequestWindow time.Duration `env:"RESET_REQUEST_WINDOW" envDefault:"1h"`
}

// NewAuthServiceConfig parses the configuration from environment variables.
func NewAuthServiceConfig() (*AuthServiceConfig, error) {
	cfg, err := env.ParseAs[AuthServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *AuthServiceConfig) IsProduction() bool {
	return c != nil && c.Server.Env == "production"
}

func (c *AuthServiceConfig) validate() error {
	if c.Token.EmailVerificationExpiresIn <= 0 ||
		c.Token.PasswordResetTokenExpiresIn <= 0 ||
		c.Token.AuthorizedSessionExpiresIn <= 0 ||
		c.Token.UnauthorizedSessionExpiresIn <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Mail.Mode != NotifierModeSMTP && c.Mail.Mode != NotifierModeQueue {
		return fmt.Errorf("unknown MAIL_MODE %q", c.Mail.Mode)
	}
	if c.Mongo.Timeout <= 0 || c.Mail.Timeout <= 0 {
		return errors.New("MONGO_TIMEOUT and MAIL_TIMEOUT must be positive")
	}
	if c.Mail.WorkerConcurrency <= 0 {
		return errors.New("MAIL_WORKER_CONCURRENCY must be positive")
	}

	return nil
}
