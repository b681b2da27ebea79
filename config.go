package main

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, constructed once in main and
// passed by injection. Values come from an optional ./config.yaml overridden
// by TASKROOM_* environment variables.
type Config struct {
	Addr              string
	DBDSN             string
	DBAutoMigrate     bool
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	CookieAuth        string
	SeedAdminPassword string
}

func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetDefault("addr", ":8081")
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("access_token_ttl", "15m")
	v.SetDefault("refresh_token_ttl", "720h")
	v.SetDefault("cookie_auth", "Authentication")
	v.SetDefault("seed_admin_password", "admin123") // development fallback

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("TASKROOM")
	v.AutomaticEnv()

	return Config{
		Addr:              v.GetString("addr"),
		DBDSN:             v.GetString("db_dsn"),
		DBAutoMigrate:     v.GetBool("db_auto_migrate"),
		AccessTokenSecret: v.GetString("access_token_secret"),
		AccessTokenTTL:    v.GetDuration("access_token_ttl"),
		RefreshTokenTTL:   v.GetDuration("refresh_token_ttl"),
		CookieAuth:        v.GetString("cookie_auth"),
		SeedAdminPassword: v.GetString("seed_admin_password"),
	}, nil
}
