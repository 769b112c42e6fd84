package config

import (
	"github.com/spf13/viper"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
)

const (
	DefaultPath = "config.json"

	defaultServiceURL    = "https://www.kaltura.com"
	defaultSessionExpiry = 86400
)

// Config holds the per-partner credentials and endpoints every invocation
// needs. PartnerID and AdminSecret are mandatory; loading fails before any
// remote call is attempted when they are missing or malformed.
type Config struct {
	PartnerID       int    `mapstructure:"PARTNER_ID"`
	AdminSecret     string `mapstructure:"ADMIN_SECRET"`
	ServiceURL      string `mapstructure:"SERVICE_URL"`
	UserID          string `mapstructure:"USER_ID"`
	SessionExpiry   int    `mapstructure:"EXPIRY"`
	AdminPrivileges string `mapstructure:"DEFAULT_ADMIN_PRIVILEGES"`
}

func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("SERVICE_URL", defaultServiceURL)
	v.SetDefault("EXPIRY", defaultSessionExpiry)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, oerrors.Wrap(oerrors.CodeConfiguration, "config: failed to read "+path, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, oerrors.Wrap(oerrors.CodeConfiguration, "config: malformed "+path, err)
	}

	if config.PartnerID <= 0 {
		return Config{}, oerrors.New(oerrors.CodeConfiguration, "config: PARTNER_ID must be a positive integer")
	}
	if config.AdminSecret == "" {
		return Config{}, oerrors.New(oerrors.CodeConfiguration, "config: ADMIN_SECRET is required")
	}
	if config.SessionExpiry <= 0 {
		config.SessionExpiry = defaultSessionExpiry
	}

	return config, nil
}
