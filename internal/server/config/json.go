package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/flagx"
	"github.com/dmitrijs2005/timecaddy/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "5m" and integer nanoseconds are accepted. Fields
// absent from the file leave the current value untouched.
type JsonConfig struct {
	AppEnv           string `json:"app_env"`
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       *int   `json:"redis_db"`

	InactivityWindow     timex.Duration  `json:"inactivity_window"`
	ConfirmationCooldown timex.Duration  `json:"confirmation_cooldown"`
	ConfirmationLifespan timex.Duration  `json:"confirmation_lifespan"`
	ResetLifespan        timex.Duration  `json:"reset_lifespan"`
	ResetWindow          timex.Duration  `json:"reset_window"`
	ResetMaxRequests     int             `json:"reset_max_requests"`
	ResetCooldown        *timex.Duration `json:"reset_cooldown"`

	RequestTimeout timex.Duration `json:"request_timeout"`
	RateLimitRPS   float64        `json:"rate_limit_rps"`
	RateLimitBurst int            `json:"rate_limit_burst"`

	AppName      string `json:"app_name"`
	AppURL       string `json:"app_url"`
	SupportEmail string `json:"support_email"`
	EmailFrom    string `json:"email_from"`
	ResendAPIKey string `json:"resend_api_key"`
	SentryDSN    string `json:"sentry_dsn"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// If the file cannot be read or contains invalid JSON, parseJson panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.AppEnv, c.AppEnv)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}

	setDuration(&config.InactivityWindow, c.InactivityWindow)
	setDuration(&config.ConfirmationCooldown, c.ConfirmationCooldown)
	setDuration(&config.ConfirmationLifespan, c.ConfirmationLifespan)
	setDuration(&config.ResetLifespan, c.ResetLifespan)
	setDuration(&config.ResetWindow, c.ResetWindow)
	if c.ResetMaxRequests > 0 {
		config.ResetMaxRequests = c.ResetMaxRequests
	}
	// zero is meaningful here: it disables the reset cooldown
	if c.ResetCooldown != nil {
		config.ResetCooldown = c.ResetCooldown.Duration
	}

	setDuration(&config.RequestTimeout, c.RequestTimeout)
	if c.RateLimitRPS > 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}

	setString(&config.AppName, c.AppName)
	setString(&config.AppURL, c.AppURL)
	setString(&config.SupportEmail, c.SupportEmail)
	setString(&config.EmailFrom, c.EmailFrom)
	setString(&config.ResendAPIKey, c.ResendAPIKey)
	setString(&config.SentryDSN, c.SentryDSN)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
