package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	HttpAddr    string                   `yaml:"http_addr" validate:"required"`
	HTTPS       bool                     `yaml:"https"`
	CorsOrigins []string                 `yaml:"cors_origins"`
	Shutdown    Duration                 `yaml:"shutdown_timeout"`
	LogLevel    string                   `yaml:"log_level"`
	LogJSON     bool                     `yaml:"log_json"`
	Media       Media                    `yaml:"media" validate:"required"`
	Tables      Tables                   `yaml:"tables"`
	Conversions Conversions              `yaml:"conversions" validate:"required"`
	Owners      map[string]OwnerTypeSpec `yaml:"owners"`
	GC          GC                       `yaml:"gc"`
	RateLimit   RateLimit                `yaml:"rate_limit"`
}

type Media struct {
	RootDir            string   `yaml:"root_dir" validate:"required"`
	BaseURL            string   `yaml:"base_url" validate:"required"`
	ServePrefix        string   `yaml:"serve_prefix" validate:"omitempty,startswith=/"`
	MaxUploadSizeBytes int64    `yaml:"max_upload_size_bytes" validate:"required,gt=0"`
	AllowedMimeTypes   []string `yaml:"allowed_mime_types" validate:"required,min=1"`
}

// Tables names the media and pivot tables. Empty values fall back to defaults.
type Tables struct {
	Media     string `yaml:"media"`
	Mediables string `yaml:"mediables"`
}

type Conversions struct {
	Workers     int              `yaml:"workers" validate:"required,gt=0"`
	QueueSize   int              `yaml:"queue_size" validate:"required,gt=0"`
	MaxAttempts int              `yaml:"max_attempts"`
	RetryDelay  Duration         `yaml:"retry_delay"`
	Presets     []ConversionSpec `yaml:"presets" validate:"dive"`
}

type ConversionSpec struct {
	Name    string `yaml:"name" validate:"required"`
	Width   int    `yaml:"width" validate:"gte=0"`
	Height  int    `yaml:"height" validate:"gte=0"`
	Mode    string `yaml:"mode" validate:"omitempty,oneof=fit fill"`
	Quality int    `yaml:"quality" validate:"gte=0,lte=100"`
}

type OwnerTypeSpec struct {
	Channels map[string]ChannelSpec `yaml:"channels"`
}

type ChannelSpec struct {
	Conversions []string `yaml:"conversions"`
}

type GC struct {
	Interval        Duration `yaml:"interval"`
	SafetyThreshold Duration `yaml:"safety_threshold"`
}

type RateLimit struct {
	UploadRPS   float64 `yaml:"upload_rps"`
	UploadBurst float64 `yaml:"upload_burst"`
}

type Private struct {
	Pg     Pg     `yaml:"pg" validate:"required"`
	JwtKey string `yaml:"jwt_key" validate:"required"`
}

type Pg struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname" validate:"required"`
}

// Duration accepts Go duration strings ("30s", "5m") in yaml.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

// ShutdownTimeout bounds graceful shutdown of the server and the conversion pool.
func (s *Config) ShutdownTimeout() time.Duration {
	if s.Public.Shutdown <= 0 {
		return 10 * time.Second
	}
	return s.Public.Shutdown.Std()
}

func (s *Config) MediaTable() string {
	if s.Public.Tables.Media == "" {
		return "media"
	}
	return s.Public.Tables.Media
}

func (s *Config) MediablesTable() string {
	if s.Public.Tables.Mediables == "" {
		return "mediables"
	}
	return s.Public.Tables.Mediables
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file: " + configPath)
	}

	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic(fmt.Sprintf("can't unmarshal config file %s: %v", configPath, err))
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(output); err != nil {
		panic(fmt.Sprintf("invalid config file %s: %v", configPath, err))
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	return &Config{Public: public, Private: private}
}
