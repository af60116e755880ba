package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/fridge-monitor/internal/logger"
)

// Duration is a time.Duration written as an ISO-8601 duration (PT15M).
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration in ISO-8601.
func (d Duration) String() string {
	return duration.Format(time.Duration(d))
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDuration parses an ISO-8601 duration string.
func ParseDuration(s string) (Duration, error) {
	parsed, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return Duration(parsed.ToTimeDuration()), nil
}

// GPIO holds the input line assignment.
type GPIO struct {
	Chip     string `yaml:"chip"`
	DoorPin  int    `yaml:"door_pin"`
	PowerPin int    `yaml:"power_pin"`
}

// Sensors holds the temperature sensor paths. An empty path disables the
// channel and every sample reports it as faulted.
type Sensors struct {
	VaccinePath string `yaml:"vaccine_path"`
	AmbientPath string `yaml:"ambient_path"`
}

// Config is the daemon configuration.
type Config struct {
	DeviceID       string   `yaml:"device_id"`
	Broker         string   `yaml:"broker"`
	ClientID       string   `yaml:"client_id"`
	TopicPrefix    string   `yaml:"topic_prefix"`
	HTTPAddr       string   `yaml:"http_addr"`
	Poll           Duration `yaml:"poll"`
	Debounce       Duration `yaml:"debounce"`
	SampleInterval Duration `yaml:"sample_interval"`
	Heartbeat      Duration `yaml:"heartbeat"`
	GPIO           GPIO     `yaml:"gpio"`
	Sensors        Sensors  `yaml:"sensors"`
	DatabaseDSN    string   `yaml:"database_dsn"`
	MailboxSize    int      `yaml:"mailbox_size"`
	OfflineBuffer  int      `yaml:"offline_buffer"`
	LogLevel       string   `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is looked up when no path is given.
	DefaultConfigFilename = "fridge-monitor.yaml"

	DefaultBroker         = "tcp://127.0.0.1:1883"
	DefaultClientID       = "fridge-monitor"
	DefaultTopicPrefix    = "fridge"
	DefaultHTTPAddr       = ":8080"
	DefaultPoll           = Duration(100 * time.Millisecond)
	DefaultDebounce       = Duration(250 * time.Millisecond)
	DefaultSampleInterval = Duration(10 * time.Second)
	DefaultHeartbeat      = Duration(15 * time.Minute)
	DefaultGPIOChip       = "gpiochip0"
	DefaultDoorPin        = 26
	DefaultPowerPin       = 16
	DefaultMailboxSize    = 8
	DefaultOfflineBuffer  = 256

	// DefaultFilePermissions applies to saved settings files.
	DefaultFilePermissions = 0o600
)

var (
	errConfigIsNotSet  = errors.New("configuration is not set")
	errBrokerRequired  = errors.New("broker must be provided")
	errSamePins        = errors.New("door and power pins must differ")
	errNegativePin     = errors.New("gpio pins must not be negative")
	errNonPositive     = errors.New("poll and sample intervals must be positive")
	errNegativeSetting = errors.New("debounce, heartbeat and buffer sizes must not be negative")
)

// Default returns a configuration populated with defaults. Debounce and
// Heartbeat are only defaulted here: zero is a valid setting for both
// (confirm on the next poll, no heartbeat).
func Default() *Config {
	cfg := &Config{
		Debounce:  DefaultDebounce,
		Heartbeat: DefaultHeartbeat,
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	// Keys missing from the file keep their defaults.
	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path after validating it.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills unset fields with defaults and checks the rest.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if cfg.Broker == "" {
		return errBrokerRequired
	}
	if _, err := url.ParseRequestURI(cfg.Broker); err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	if cfg.Poll <= 0 || cfg.SampleInterval <= 0 {
		return errNonPositive
	}
	if cfg.Debounce < 0 || cfg.Heartbeat < 0 || cfg.MailboxSize < 0 || cfg.OfflineBuffer < 0 {
		return errNegativeSetting
	}

	if cfg.GPIO.DoorPin < 0 || cfg.GPIO.PowerPin < 0 {
		return errNegativePin
	}
	if cfg.GPIO.DoorPin == cfg.GPIO.PowerPin {
		return errSamePins
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Broker == "" {
		cfg.Broker = DefaultBroker
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = cfg.ClientID
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Poll == 0 {
		cfg.Poll = DefaultPoll
	}
	if cfg.SampleInterval == 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	if cfg.GPIO.Chip == "" {
		cfg.GPIO.Chip = DefaultGPIOChip
	}
	if cfg.GPIO.DoorPin == 0 && cfg.GPIO.PowerPin == 0 {
		cfg.GPIO.DoorPin = DefaultDoorPin
		cfg.GPIO.PowerPin = DefaultPowerPin
	}
	if cfg.MailboxSize == 0 {
		cfg.MailboxSize = DefaultMailboxSize
	}
	if cfg.OfflineBuffer == 0 {
		cfg.OfflineBuffer = DefaultOfflineBuffer
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
