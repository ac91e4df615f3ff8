package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"contactless-ordering/internal/models"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ORDERING_"

// Config holds all configuration for the ordering system
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Workers  WorkersConfig  `yaml:"workers"`
	Orders   OrdersConfig   `yaml:"orders"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	NATS     NATSConfig     `yaml:"nats"`
	Ops      OpsConfig      `yaml:"ops"`
}

type ServiceConfig struct {
	Name string `yaml:"name"`
}

// LogConfig configures the operational logger and the audit log
type LogConfig struct {
	Level     string        `yaml:"level"`
	AuditFile string        `yaml:"audit_file"`
	AuditPoll time.Duration `yaml:"audit_poll"`
}

// StorageConfig locates the snapshot files. Relative file names are resolved
// against DataDir.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	MenuFile   string `yaml:"menu_file"`
	TablesFile string `yaml:"tables_file"`
	OrdersFile string `yaml:"orders_file"`
	BackupDir  string `yaml:"backup_dir"`
}

// WorkersConfig holds the timing of every background worker
type WorkersConfig struct {
	ProcessingDelay   time.Duration `yaml:"processing_delay"`
	NotifierPacing    time.Duration `yaml:"notifier_pacing"`
	AdminSaveInterval time.Duration `yaml:"admin_save_interval"`
	OrderSaveInterval time.Duration `yaml:"order_save_interval"`
	BackupInterval    time.Duration `yaml:"backup_interval"`
}

type OrdersConfig struct {
	FirstID int `yaml:"first_id"`
}

// DatabaseConfig holds the optional Postgres mirror connection
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds the optional notification exchange connection
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Exchange string `yaml:"exchange"`
}

// NATSConfig holds the optional NATS notification subject
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// OpsConfig configures the health and metrics endpoint
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Service: ServiceConfig{Name: "contactless-ordering"},
		Log: LogConfig{
			Level:     "info",
			AuditFile: "system.log",
			AuditPoll: time.Second,
		},
		Storage: StorageConfig{
			DataDir:    ".",
			MenuFile:   "menu.txt",
			TablesFile: "tables.txt",
			OrdersFile: "orders.txt",
			BackupDir:  ".",
		},
		Workers: WorkersConfig{
			ProcessingDelay:   2500 * time.Millisecond,
			NotifierPacing:    500 * time.Millisecond,
			AdminSaveInterval: 30 * time.Second,
			OrderSaveInterval: 15 * time.Second,
			BackupInterval:    60 * time.Second,
		},
		Orders: OrdersConfig{FirstID: models.FirstOrderID},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "ordering",
			Password: "ordering",
			Database: "ordering",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			Exchange: "staff_notifications",
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Subject: "ordering.notifications",
		},
		Ops: OpsConfig{Addr: ":9090"},
	}
}

// Load reads configuration from a YAML file on top of the defaults. A missing
// file yields the defaults. Environment overrides are applied last.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		raw, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
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

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables already set. A missing file is ignored.
func LoadEnvFile(filename string) error {
	if filename == "" {
		return nil
	}
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate rejects values the workers cannot run with
func (c *Config) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"workers.processing_delay", c.Workers.ProcessingDelay},
		{"workers.notifier_pacing", c.Workers.NotifierPacing},
		{"workers.admin_save_interval", c.Workers.AdminSaveInterval},
		{"workers.order_save_interval", c.Workers.OrderSaveInterval},
		{"workers.backup_interval", c.Workers.BackupInterval},
		{"log.audit_poll", c.Log.AuditPoll},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("invalid %s: %s must not be negative", d.name, d.value)
		}
	}
	if c.Workers.AdminSaveInterval == 0 || c.Workers.OrderSaveInterval == 0 || c.Workers.BackupInterval == 0 {
		return fmt.Errorf("invalid workers config: save and backup intervals must be positive")
	}
	if c.Orders.FirstID < 1 {
		return fmt.Errorf("invalid orders.first_id: %d", c.Orders.FirstID)
	}
	return nil
}

// Resolve returns name joined to the data directory unless it is absolute
func (s StorageConfig) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DATA_DIR":          &c.Storage.DataDir,
		"BACKUP_DIR":        &c.Storage.BackupDir,
		"LOG_LEVEL":         &c.Log.Level,
		"DB_HOST":           &c.Database.Host,
		"DB_USER":           &c.Database.User,
		"DB_PASSWORD":       &c.Database.Password,
		"DB_NAME":           &c.Database.Database,
		"RABBITMQ_HOST":     &c.RabbitMQ.Host,
		"RABBITMQ_USER":     &c.RabbitMQ.User,
		"RABBITMQ_PASSWORD": &c.RabbitMQ.Password,
		"NATS_URL":          &c.NATS.URL,
		"OPS_ADDR":          &c.Ops.Addr,
	}
	for key, target := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*target = v
		}
	}

	ints := map[string]*int{
		"DB_PORT":       &c.Database.Port,
		"RABBITMQ_PORT": &c.RabbitMQ.Port,
	}
	for key, target := range ints {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s value: %w", EnvPrefix, key, err)
		}
		*target = n
	}

	bools := map[string]*bool{
		"DB_ENABLED":       &c.Database.Enabled,
		"RABBITMQ_ENABLED": &c.RabbitMQ.Enabled,
		"NATS_ENABLED":     &c.NATS.Enabled,
		"OPS_ENABLED":      &c.Ops.Enabled,
	}
	for key, target := range bools {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s value: %w", EnvPrefix, key, err)
		}
		*target = b
	}
	return nil
}
