package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the dashboard server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Email      EmailConfig      `yaml:"email"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Redis      RedisConfig      `yaml:"redis"`
	Log        LogConfig        `yaml:"log"`
	Assets     AssetsConfig     `yaml:"assets"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	WindowSize      int           `yaml:"window_size"`
	HistoryRows     int           `yaml:"history_rows"`
	NotifyTimeout   time.Duration `yaml:"notify_timeout"`
	TLSCert         string        `yaml:"tls_cert"`
	TLSKey          string        `yaml:"tls_key"`
}

// AuthConfig holds the single operator account. PasswordHash wins over Password when both are set.
type AuthConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name"`
	TTL           time.Duration `yaml:"ttl"`
	Secure        bool          `yaml:"secure"`
	MasterKeyFile string        `yaml:"master_key_file"`
}

type ThresholdsConfig struct {
	TemperatureHigh float64 `yaml:"temperature_high"`
	TemperatureWarm float64 `yaml:"temperature_warm"`
	HumidityHigh    float64 `yaml:"humidity_high"`
	PressureLow     float64 `yaml:"pressure_low"`
	CO2High         float64 `yaml:"co2_high"`
	CO2Moderate     float64 `yaml:"co2_moderate"`
	PM25Moderate    float64 `yaml:"pm25_moderate"`
}

type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// RedisConfig switches session state to Redis when URL is set.
type RedisConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type AssetsConfig struct {
	Logo         []string `yaml:"logo"`
	AlarmSound   string   `yaml:"alarm_sound"`
	SuccessSound string   `yaml:"success_sound"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RefreshInterval: 3 * time.Second,
			WindowSize:      20,
			HistoryRows:     30,
			NotifyTimeout:   10 * time.Second,
		},
		Auth: AuthConfig{
			Username: "admin",
			Password: "CSMS@2024",
		},
		Session: SessionConfig{
			CookieName:    "csms-session",
			TTL:           8 * time.Hour,
			MasterKeyFile: "master.key",
		},
		Thresholds: ThresholdsConfig{
			TemperatureHigh: 34,
			TemperatureWarm: 26,
			HumidityHigh:    60,
			PressureLow:     990,
			CO2High:         1200,
			CO2Moderate:     800,
			PM25Moderate:    35,
		},
		Email: EmailConfig{
			Port: 587,
		},
		MQTT: MQTTConfig{
			Broker:   "localhost:1883",
			Topic:    "csms/alerts",
			ClientID: "csms-dashboard",
		},
		Log: LogConfig{
			Level:    "info",
			Format:   "console",
			Output:   "stdout",
			FilePath: "logs/csms.log",
		},
		Assets: AssetsConfig{
			Logo:         []string{"logo.png", "Logo.png", "LOGO.png"},
			AlarmSound:   "beep-02.mp3",
			SuccessSound: "success.mp3",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies .env and
// CSMS_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing YAML: %w", err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "CSMS_ADDR")
	setString(&c.Auth.Username, "CSMS_USERNAME")
	setString(&c.Auth.Password, "CSMS_PASSWORD")
	setString(&c.Auth.PasswordHash, "CSMS_PASSWORD_HASH")
	setString(&c.Email.Host, "CSMS_SMTP_HOST")
	setString(&c.Email.Username, "CSMS_SMTP_USERNAME")
	setString(&c.Email.Password, "CSMS_SMTP_PASSWORD")
	setString(&c.Email.From, "CSMS_EMAIL_FROM")
	setString(&c.MQTT.Broker, "CSMS_MQTT_BROKER")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Log.Level, "CSMS_LOG_LEVEL")

	if v := strings.TrimSpace(os.Getenv("CSMS_EMAIL_TO")); v != "" {
		c.Email.To = splitList(v)
		c.Email.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("CSMS_SMTP_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CSMS_SMTP_PORT %q: %w", v, err)
		}
		c.Email.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("CSMS_REFRESH_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CSMS_REFRESH_INTERVAL %q: %w", v, err)
		}
		c.Server.RefreshInterval = d
	}
	return nil
}

// Validate clamps out-of-range values and rejects configurations that cannot start.
func (c *Config) Validate() error {
	if c.Server.RefreshInterval < 500*time.Millisecond {
		c.Server.RefreshInterval = 500 * time.Millisecond
	}
	if c.Server.WindowSize < 2 {
		c.Server.WindowSize = 2
	}
	if c.Server.HistoryRows < 1 {
		c.Server.HistoryRows = 1
	}
	if c.Server.NotifyTimeout <= 0 {
		c.Server.NotifyTimeout = 10 * time.Second
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 8 * time.Hour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "csms-session"
	}
	if c.Auth.Username == "" {
		return errors.New("auth.username is required")
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return errors.New("auth.password or auth.password_hash is required")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("server.tls_cert and server.tls_key must be set together")
	}
	if c.Email.Enabled {
		if c.Email.Host == "" || len(c.Email.To) == 0 {
			return errors.New("email.host and email.to are required when email is enabled")
		}
		if c.Email.From == "" {
			c.Email.From = c.Email.Username
		}
	}
	if c.MQTT.Enabled && (c.MQTT.Broker == "" || c.MQTT.Topic == "") {
		return errors.New("mqtt.broker and mqtt.topic are required when mqtt is enabled")
	}
	return c.Thresholds.Validate()
}

// Validate rejects limits that would classify readings inconsistently.
func (t ThresholdsConfig) Validate() error {
	switch {
	case t.TemperatureWarm >= t.TemperatureHigh:
		return fmt.Errorf("thresholds.temperature_warm (%g) must be below temperature_high (%g)", t.TemperatureWarm, t.TemperatureHigh)
	case t.CO2Moderate <= 0 || t.CO2Moderate >= t.CO2High:
		return fmt.Errorf("thresholds.co2_moderate (%g) must be positive and below co2_high (%g)", t.CO2Moderate, t.CO2High)
	case t.HumidityHigh <= 0 || t.HumidityHigh > 100:
		return fmt.Errorf("thresholds.humidity_high (%g) must be within (0, 100]", t.HumidityHigh)
	case t.PressureLow <= 0:
		return fmt.Errorf("thresholds.pressure_low (%g) must be positive", t.PressureLow)
	case t.PM25Moderate <= 0:
		return fmt.Errorf("thresholds.pm25_moderate (%g) must be positive", t.PM25Moderate)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
