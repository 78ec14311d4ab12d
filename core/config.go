package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string        `mapstructure:"host"`
		Address                   string        `mapstructure:"address"`
		DebugHost                 string        `mapstructure:"debugHost"`
		ReadTimeout               time.Duration `mapstructure:"readTimeout"`
		WriteTimeout              time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | memory
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	RedisConfig struct {
		Addr     string `mapstructure:"addr"` // empty: run tasks in-process
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		QueueKey string `mapstructure:"queueKey"`
		Workers  int    `mapstructure:"workers"`
	}

	// IncentiveConfig drives bonus-book allocation for school & institution packages.
	IncentiveConfig struct {
		Threshold  int     `mapstructure:"threshold"`
		Multiplier float64 `mapstructure:"multiplier"`
		Max        int     `mapstructure:"max"`
	}

	Config struct {
		Env                       string        `mapstructure:"env"`
		Build                     string        `mapstructure:"build"`
		Debug                     bool          `mapstructure:"debug"`
		TestMode                  bool          `mapstructure:"testMode"`
		AppName                   string        `mapstructure:"appName"`
		WorkDir                   string        `mapstructure:"workDir"`
		SecretKey                 string        `mapstructure:"secretKey"`
		FrontendBaseURL           string        `mapstructure:"frontendBaseURL"`
		DefaultFromName           string        `mapstructure:"defaultFromName"`
		DefaultFromAddress        string        `mapstructure:"defaultFromAddress"`
		SendgridApiKey            string        `mapstructure:"sendgridApiKey"`
		RollbarToken              string        `mapstructure:"rollbarToken"`
		PasswordResetTimeoutDelta time.Duration `mapstructure:"passwordResetTimeoutDelta"`

		Server    ServerConfig    `mapstructure:"server"`
		Database  DatabaseConfig  `mapstructure:"database"`
		Redis     RedisConfig     `mapstructure:"redis"`
		Incentive IncentiveConfig `mapstructure:"incentive"`
	}
)

func (c Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddress}
}

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values come from defaults, then config/.env.<env> (if present), then environment
// variables prefixed with the env name, eg: DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// defaults
	v.SetDefault("env", env)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Kitab Bazar")
	v.SetDefault("workDir", workDir)
	v.SetDefault("secretKey", "k1tab-b@zar-dev-$ecret-poq5wer)enb$+57=dz&uoxh2(h!x)")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Kitab Bazar")
	v.SetDefault("defaultFromAddress", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "kitab_bazar")
	v.SetDefault("database.user", "kitab_bazar")
	v.SetDefault("database.password", "kitab_bazar")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queueKey", "kitab-bazar:tasks")
	v.SetDefault("redis.workers", 4)

	v.SetDefault("incentive.threshold", 10)
	v.SetDefault("incentive.multiplier", 0.1)
	v.SetDefault("incentive.max", 50)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	return conf
}

// NewTestConfig returns a Config suitable for tests: in-memory storage, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		Debug:                     false,
		TestMode:                  true,
		AppName:                   "Kitab Bazar",
		WorkDir:                   Getwd(),
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromName:           "Kitab Bazar",
		DefaultFromAddress:        "noreply@localhost",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database:  DatabaseConfig{Engine: "memory"},
		Incentive: IncentiveConfig{Threshold: 10, Multiplier: 0.1, Max: 5},
	}
}

func (c Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s debug=%t db=%s", c.AppName, c.Build, c.Env, c.Debug, c.Database.Engine)
}
