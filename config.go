package mqttsub

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no other configuration source is given.
const DefaultConfigPath = "config.yaml"

const (
	defaultKeepAlive         = 20 * time.Second
	defaultConnectTimeout    = 15 * time.Second
	defaultReconnectAttempts = 12
	defaultReconnectInterval = 5 * time.Second
	defaultPollErrorDelay    = time.Second
	clientIDPrefix           = "mqttsub-"
)

// Config is the configuration snapshot used for the lifetime of a Client.
type Config struct {
	Scheme        string   `yaml:"scheme"`
	BrokerAddress string   `yaml:"broker_address"`
	BrokerPort    uint16   `yaml:"broker_port"`
	ClientID      string   `yaml:"client_id"`
	Topics        []string `yaml:"topics"`
	QOS           []int    `yaml:"qos"`
	QOSPadding    string   `yaml:"qos_padding"`
	CleanSession  *bool    `yaml:"clean_session"`
	Username      *string  `yaml:"username"`
	Password      *string  `yaml:"password"`

	CACertPath         string `yaml:"ca_cert_path"`
	ClientCombinedPath string `yaml:"client_combined_path"`

	KeepAlive         time.Duration `yaml:"keep_alive"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	PollErrorDelay    time.Duration `yaml:"poll_error_delay"`
	MaxPollErrors     int           `yaml:"max_poll_errors"`

	Will *WillConfig `yaml:"will"`

	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	LogDirectory   string `yaml:"log_directory"`
	MetricsAddress string `yaml:"metrics_address"`

	// BrokerURI overrides the URL derived from Scheme, BrokerAddress and BrokerPort.
	// It is never read from YAML.
	BrokerURI string `yaml:"-"`
}

// WillConfig is the last will registered with the broker at connect time.
type WillConfig struct {
	Topic    string `yaml:"topic"`
	Payload  string `yaml:"payload"`
	QOS      int    `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

// LoadConfig reads and validates the YAML document at path.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening config file '%s': %w", ErrInvalidConfig, path, err)
	}

	cfg, err := ParseConfig(b)
	if err != nil {
		return nil, fmt.Errorf("parsing config file '%s': %w", path, err)
	}

	return cfg, nil
}

// ParseConfig decodes a YAML document, applies defaults and validates the result.
func ParseConfig(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scheme == "" {
		c.Scheme = "tcp"
	}

	if c.ClientID == "" {
		c.ClientID = clientIDPrefix + uuid.NewString()
	}

	if c.CleanSession == nil {
		clean := true
		c.CleanSession = &clean
	}

	if c.KeepAlive == 0 {
		c.KeepAlive = defaultKeepAlive
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}

	if c.ReconnectAttempts == 0 {
		c.ReconnectAttempts = defaultReconnectAttempts
	}

	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = defaultReconnectInterval
	}

	if c.PollErrorDelay == 0 {
		c.PollErrorDelay = defaultPollErrorDelay
	}
}

// Validate reports the first problem found in the configuration.
// QoS values are validated when they are normalized against the topic list.
func (c *Config) Validate() error {
	switch {
	case c.BrokerAddress == "" && c.BrokerURI == "":
		return fmt.Errorf("%w: broker_address is required", ErrInvalidConfig)
	case c.BrokerPort == 0 && c.BrokerURI == "":
		return fmt.Errorf("%w: broker_port is required", ErrInvalidConfig)
	case c.ReconnectAttempts < 0:
		return fmt.Errorf("%w: reconnect_attempts must not be negative", ErrInvalidConfig)
	case c.MaxPollErrors < 0:
		return fmt.Errorf("%w: max_poll_errors must not be negative", ErrInvalidConfig)
	}

	if _, err := normalizeScheme(c.Scheme); err != nil {
		return err
	}

	if _, err := ParsePaddingPolicy(c.QOSPadding); err != nil {
		return err
	}

	for i, topic := range c.Topics {
		if strings.TrimSpace(topic) == "" {
			return fmt.Errorf("%w: topics[%d] is empty", ErrInvalidConfig, i)
		}
	}

	if c.Will != nil {
		if c.Will.Topic == "" {
			return fmt.Errorf("%w: will.topic is required", ErrInvalidConfig)
		}

		if _, err := ParseQOS(c.Will.QOS); err != nil {
			return fmt.Errorf("%w: will: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// Encrypted reports whether the scheme requires a TLS transport.
func (c *Config) Encrypted() bool {
	s, _ := normalizeScheme(c.Scheme)

	return s == "ssl"
}

// BrokerURL returns the URL handed to the transport.
func (c *Config) BrokerURL() string {
	if c.BrokerURI != "" {
		return c.BrokerURI
	}

	scheme := "tcp"
	if c.Encrypted() {
		scheme = "ssl"
	}

	return fmt.Sprintf("%s://%s:%d", scheme, c.BrokerAddress, c.BrokerPort)
}

// NormalizedQOS pairs every configured topic with its QoS level.
func (c *Config) NormalizedQOS() ([]QOSLevel, error) {
	policy, err := ParsePaddingPolicy(c.QOSPadding)
	if err != nil {
		return nil, err
	}

	levels, err := NormalizeQOS(c.Topics, c.QOS, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return levels, nil
}

// Credentials returns the username and password to present at connect time.
// ok is false when no username is configured.
func (c *Config) Credentials() (username, password string, ok bool) {
	if c.Username == nil {
		return "", "", false
	}

	if c.Password != nil {
		password = *c.Password
	}

	return *c.Username, password, true
}

func normalizeScheme(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tcp", "mqtt":
		return "tcp", nil
	case "ssl", "mqtts", "tls":
		return "ssl", nil
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidConfig, s)
	}
}
