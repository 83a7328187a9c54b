package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all development server configuration
type Config struct {
	HTTPAddress string

	// MongoDB settings
	MongoURI             string
	MongoEnvironmentDB   string
	MongoModuleLibraryDB string

	// Redis settings (session credential cache)
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Credential engine settings
	TokenCryptoKey    string // base64 256-bit key for refresh token encryption
	OAuth2RedirectURL string
	IDCodecKey        string
	AccountLimit      int
	SessionTTLHours   int

	// DevUserID scopes all requests in development; real deployments
	// resolve the user from the embedding application's session.
	DevUserID string
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Load loads configuration from files and environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Configure environment variables - do this BEFORE reading config
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":          "HTTP_ADDRESS",
		"MongoURI":             "MONGODB_URI",
		"MongoEnvironmentDB":   "MONGODB_ENVIRONMENT_DB",
		"MongoModuleLibraryDB": "MONGODB_MODULE_LIBRARY_DB",
		"RedisAddress":         "REDIS_ADDRESS",
		"RedisPassword":        "REDIS_PASSWORD",
		"RedisDB":              "REDIS_DB",
		"TokenCryptoKey":       "INTEGRATION_TOKEN_CRYPTO_KEY",
		"OAuth2RedirectURL":    "INTEGRATION_OAUTH2_REDIRECT_URL",
		"IDCodecKey":           "MODULE_ID_CODEC_KEY",
		"AccountLimit":         "INTEGRATION_ACCOUNT_LIMIT",
		"SessionTTLHours":      "SESSION_TTL_HOURS",
		"DevUserID":            "DEV_USER_ID",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("server_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.fluidspace")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("MongoEnvironmentDB", "environment")
	v.SetDefault("MongoModuleLibraryDB", "module_library")
	v.SetDefault("RedisAddress", "localhost:6379")
	v.SetDefault("RedisDB", 0)
	v.SetDefault("AccountLimit", 2)
	v.SetDefault("SessionTTLHours", 24)
	// Fixed development user, matching the seeded database.
	v.SetDefault("DevUserID", "64bd4e59ecebd5028d1be4c5")
}

func validate(config *Config) error {
	var missingVars []string

	if config.MongoURI == "" {
		missingVars = append(missingVars, "MONGODB_URI")
	}

	if config.TokenCryptoKey == "" {
		missingVars = append(missingVars, "INTEGRATION_TOKEN_CRYPTO_KEY")
	}

	if config.OAuth2RedirectURL == "" {
		missingVars = append(missingVars, "INTEGRATION_OAUTH2_REDIRECT_URL")
	}

	if config.IDCodecKey == "" {
		missingVars = append(missingVars, "MODULE_ID_CODEC_KEY")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s\n\nGenerate a crypto key with: development-server generate-key",
			strings.Join(missingVars, ", "))
	}

	return nil
}
