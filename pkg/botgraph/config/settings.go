package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvServer   = "BOTGRAPH_SERVER"
	EnvUsername = "BOTGRAPH_USERNAME"
	EnvPassword = "BOTGRAPH_PASSWORD"
	EnvStateDSN = "BOTGRAPH_STATE_DSN"
)

// Settings is the daemon's configuration file.
type Settings struct {
	Connection Connection                `yaml:"connection" json:"connection" validate:"required"`
	Bot        Bot                       `yaml:"bot" json:"bot"`
	State      State                     `yaml:"state" json:"state"`
	Log        Log                       `yaml:"log" json:"log"`
	Health     Health                    `yaml:"health" json:"health"`
	Workers    Workers                   `yaml:"workers" json:"workers"`
	Telemetry  Telemetry                 `yaml:"telemetry" json:"telemetry"`
	Nodes      map[string]map[string]any `yaml:"nodes" json:"nodes"`
}

// Connection holds homeserver credentials.
type Connection struct {
	Server   string `yaml:"server" json:"server" validate:"required,url"`
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// Bot holds identity and tree-wiring settings.
type Bot struct {
	DisplayName string   `yaml:"display_name" json:"display_name"`
	Prefix      string   `yaml:"prefix" json:"prefix" validate:"required"`
	Rooms       []string `yaml:"rooms" json:"rooms" validate:"dive,required"`
	Admins      []string `yaml:"admins" json:"admins" validate:"dive,startswith=@"`
	Ignore      []string `yaml:"ignore" json:"ignore" validate:"dive,startswith=@"`
}

// State selects the node state store.
type State struct {
	Driver string `yaml:"driver" json:"driver" validate:"omitempty,oneof=memory file sqlite postgres"`
	// Path is the directory (file) or database path (sqlite).
	Path string `yaml:"path" json:"path" validate:"required_if=Driver file,required_if=Driver sqlite"`
	DSN  string `yaml:"dsn" json:"dsn" validate:"required_if=Driver postgres"`
}

// Location returns the driver-specific location string.
func (s State) Location() string {
	if s.Driver == "postgres" {
		return s.DSN
	}
	return s.Path
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=text json"`
}

// Health configures the HTTP health endpoint. An empty Addr disables it.
type Health struct {
	Addr string `yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
}

// Workers bounds background work.
type Workers struct {
	Limit         int      `yaml:"limit" json:"limit" validate:"gte=0"`
	ShutdownGrace Duration `yaml:"shutdown_grace" json:"shutdown_grace"`
}

// Telemetry enables OpenTelemetry instrumentation. Spans are exported over
// OTLP/gRPC when OTLPEndpoint is set.
type Telemetry struct {
	Metrics      bool   `yaml:"metrics" json:"metrics"`
	Tracing      bool   `yaml:"tracing" json:"tracing"`
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint" validate:"omitempty,hostname_port"`
}

// Duration is a time.Duration that decodes from "5s"-style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Node returns the configuration blob for a node name. Missing blobs are empty.
func (s *Settings) Node(name string) Config {
	return New(s.Nodes[name])
}

// Defaults fills zero values.
func (s *Settings) Defaults() {
	if s.Bot.Prefix == "" {
		s.Bot.Prefix = "!"
	}
	if s.State.Driver == "" {
		s.State.Driver = "memory"
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "text"
	}
	if s.Workers.Limit == 0 {
		s.Workers.Limit = 8
	}
	if s.Workers.ShutdownGrace == 0 {
		s.Workers.ShutdownGrace = Duration(5 * time.Second)
	}
}

// ApplyEnv overrides settings from the environment.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvServer); v != "" {
		s.Connection.Server = v
	}
	if v := getenv(EnvUsername); v != "" {
		s.Connection.Username = v
	}
	if v := getenv(EnvPassword); v != "" {
		s.Connection.Password = v
	}
	if v := getenv(EnvStateDSN); v != "" {
		s.State.DSN = v
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every invalid field.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid settings: " + strings.Join(e.Problems, "; ")
}

// Validate checks struct tags.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Problems = append(out.Problems, formatFieldError(fe))
	}
	return out
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Settings.")
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}

// Load reads, defaults, overrides from the environment and validates a
// settings file. Supported extensions: .yaml, .yml, .json.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var s Settings
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", ext)
	}

	s.Defaults()
	s.ApplyEnv(os.Getenv)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
