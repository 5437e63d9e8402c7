package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultEventTopic           = "maintenance-events"
	defaultSweepInterval        = 5 * time.Minute
	defaultSignedURLTTL         = 15 * time.Minute
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200

	defaultEmergencyResponse   = 30 * time.Minute
	defaultEmergencyResolution = 4 * time.Hour
	defaultHighResponse        = 2 * time.Hour
	defaultHighResolution      = 24 * time.Hour
	defaultMediumResponse      = 8 * time.Hour
	defaultMediumResolution    = 72 * time.Hour
	defaultLowResponse         = 24 * time.Hour
	defaultLowResolution       = 7 * 24 * time.Hour
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firestore   FirestoreConfig
	PubSub      PubSubConfig
	Storage     StorageConfig
	SLA         SLAConfig
	Maintenance MaintenanceConfig
	Idempotency IdempotencyConfig
	Environment string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig stores event bus parameters.
type PubSubConfig struct {
	ProjectID    string
	EventTopic   string
	EmulatorHost string
}

// StorageConfig lists bucket names and signing parameters used for work order
// attachments.
type StorageConfig struct {
	AttachmentsBucket string
	SignedURLKey      string
	SignedURLTTL      time.Duration
}

// SLAWindowConfig holds the deadline pair for one priority.
type SLAWindowConfig struct {
	Response   time.Duration
	Resolution time.Duration
}

// SLAConfig maps priorities to deadline windows and controls the breach sweep.
type SLAConfig struct {
	Emergency     SLAWindowConfig
	High          SLAWindowConfig
	Medium        SLAWindowConfig
	Low           SLAWindowConfig
	SweepInterval time.Duration
}

// MaintenanceConfig groups business-rule knobs for the work order engine.
type MaintenanceConfig struct {
	// CostApprovalThreshold gates completion when the reported cost (in minor
	// units) exceeds it; zero disables the gate.
	CostApprovalThreshold int64
	DefaultCurrency       string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "MAINT_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "MAINT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "MAINT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "MAINT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "MAINT_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "MAINT_FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:    stringWithDefault(lookup, "MAINT_PUBSUB_PROJECT_ID", ""),
			EventTopic:   stringWithDefault(lookup, "MAINT_PUBSUB_EVENT_TOPIC", defaultEventTopic),
			EmulatorHost: stringWithDefault(lookup, "MAINT_PUBSUB_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			AttachmentsBucket: stringWithDefault(lookup, "MAINT_STORAGE_ATTACHMENTS_BUCKET", ""),
			SignedURLKey:      stringWithDefault(lookup, "MAINT_STORAGE_SIGNED_URL_KEY", ""),
			SignedURLTTL:      durationWithDefault(lookup, "MAINT_STORAGE_SIGNED_URL_TTL", defaultSignedURLTTL),
		},
		SLA: SLAConfig{
			Emergency: SLAWindowConfig{
				Response:   durationWithDefault(lookup, "MAINT_SLA_EMERGENCY_RESPONSE", defaultEmergencyResponse),
				Resolution: durationWithDefault(lookup, "MAINT_SLA_EMERGENCY_RESOLUTION", defaultEmergencyResolution),
			},
			High: SLAWindowConfig{
				Response:   durationWithDefault(lookup, "MAINT_SLA_HIGH_RESPONSE", defaultHighResponse),
				Resolution: durationWithDefault(lookup, "MAINT_SLA_HIGH_RESOLUTION", defaultHighResolution),
			},
			Medium: SLAWindowConfig{
				Response:   durationWithDefault(lookup, "MAINT_SLA_MEDIUM_RESPONSE", defaultMediumResponse),
				Resolution: durationWithDefault(lookup, "MAINT_SLA_MEDIUM_RESOLUTION", defaultMediumResolution),
			},
			Low: SLAWindowConfig{
				Response:   durationWithDefault(lookup, "MAINT_SLA_LOW_RESPONSE", defaultLowResponse),
				Resolution: durationWithDefault(lookup, "MAINT_SLA_LOW_RESOLUTION", defaultLowResolution),
			},
			SweepInterval: durationWithDefault(lookup, "MAINT_SLA_SWEEP_INTERVAL", defaultSweepInterval),
		},
		Maintenance: MaintenanceConfig{
			CostApprovalThreshold: int64WithDefault(lookup, "MAINT_COST_APPROVAL_THRESHOLD", 0),
			DefaultCurrency:       stringWithDefault(lookup, "MAINT_DEFAULT_CURRENCY", "USD"),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "MAINT_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "MAINT_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "MAINT_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "MAINT_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
		Environment: strings.ToLower(stringWithDefault(lookup, "MAINT_ENVIRONMENT", "local")),
	}

	// Pub/Sub project defaults to the Firestore project when unspecified.
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if strings.TrimSpace(cfg.PubSub.EventTopic) == "" {
		missing = append(missing, "PubSub.EventTopic")
	}
	if cfg.Maintenance.CostApprovalThreshold < 0 {
		missing = append(missing, "Maintenance.CostApprovalThreshold")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.SLA.SweepInterval <= 0 {
		missing = append(missing, "SLA.SweepInterval")
	}
	for _, window := range []struct {
		name string
		cfg  SLAWindowConfig
	}{
		{"SLA.Emergency", cfg.SLA.Emergency},
		{"SLA.High", cfg.SLA.High},
		{"SLA.Medium", cfg.SLA.Medium},
		{"SLA.Low", cfg.SLA.Low},
	} {
		if window.cfg.Response <= 0 {
			missing = append(missing, window.name+".Response")
		}
		if window.cfg.Resolution <= 0 {
			missing = append(missing, window.name+".Resolution")
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
