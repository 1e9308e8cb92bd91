// Package config loads dashboard settings from defaults, an optional
// wthr.yaml, WTHR_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Search sources.
const (
	SourceRemote    = "remote"
	SourceGazetteer = "gazetteer"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WTHR"

// Settings is the full configuration of the dashboard.
type Settings struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Service struct {
		BaseURL   string        `mapstructure:"baseurl"`
		Timeout   time.Duration `mapstructure:"timeout"`
		UserAgent string        `mapstructure:"useragent"`
	} `mapstructure:"service"`

	Tiles struct {
		APIKey          string `mapstructure:"apikey"`
		OverlayTemplate string `mapstructure:"overlaytemplate"`
		BaseTemplate    string `mapstructure:"basetemplate"`
	} `mapstructure:"tiles"`

	Search struct {
		Source   string        `mapstructure:"source"`
		Debounce time.Duration `mapstructure:"debounce"`
		Limit    int           `mapstructure:"limit"`
	} `mapstructure:"search"`

	Gazetteer struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"gazetteer"`

	Session struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`

	Log LogSettings `mapstructure:"log"`
}

// LogSettings selects the log handler.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("service.baseurl", "http://localhost:5000")
	v.SetDefault("service.timeout", 10*time.Second)
	v.SetDefault("service.useragent", "wthr.lol/1.0 (+https://wthr.lol)")

	v.SetDefault("tiles.apikey", "")
	v.SetDefault("tiles.overlaytemplate", "")
	v.SetDefault("tiles.basetemplate", "")

	v.SetDefault("search.source", SourceRemote)
	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("search.limit", 5)

	v.SetDefault("gazetteer.path", "data/gazetteer.db")

	v.SetDefault("session.ttl", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile, or wthr.yaml from the working directory when
// configFile is empty, and returns validated settings. A missing wthr.yaml is
// not an error; a missing explicit file is.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("wthr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks settings for values the dashboard cannot run with.
func (s *Settings) Validate() error {
	var errs []error
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", s.Server.Port))
	}
	if s.Service.BaseURL == "" {
		errs = append(errs, errors.New("service.baseurl is required"))
	}
	if s.Service.Timeout <= 0 {
		errs = append(errs, errors.New("service.timeout must be positive"))
	}
	switch s.Search.Source {
	case SourceRemote, SourceGazetteer:
	default:
		errs = append(errs, fmt.Errorf("search.source %q must be %q or %q", s.Search.Source, SourceRemote, SourceGazetteer))
	}
	if s.Search.Debounce <= 0 {
		errs = append(errs, errors.New("search.debounce must be positive"))
	}
	if s.Search.Limit <= 0 {
		errs = append(errs, errors.New("search.limit must be positive"))
	}
	if s.Search.Source == SourceGazetteer && s.Gazetteer.Path == "" {
		errs = append(errs, errors.New("gazetteer.path is required when search.source is gazetteer"))
	}
	if s.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if _, err := parseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", s.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
