package config

import (
	"github.com/spf13/pflag"
)

// Options are the command-line flags of the binary
type Options struct {
	ConfigFile string
	EnvFile    string
	DataDir    string
	LogLevel   string
	OpsAddr    string
	Console    bool

	fs *pflag.FlagSet
}

// NewOptions returns options initialized with default values
func NewOptions() *Options {
	return &Options{
		ConfigFile: "config.yaml",
		EnvFile:    ".env",
		Console:    true,
	}
}

// AddFlags binds the options to flags on fs
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}
	o.fs = fs

	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the YAML configuration file.")
	fs.StringVar(&o.EnvFile, "env-file", o.EnvFile, "Path to a dotenv file with ORDERING_* overrides.")
	fs.StringVar(&o.DataDir, "data-dir", o.DataDir, "Directory holding menu, tables, orders and the audit log.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Operational log level (debug, info, warn, error).")
	fs.StringVar(&o.OpsAddr, "ops-addr", o.OpsAddr, "Serve /healthz and /metrics on this address.")
	fs.BoolVar(&o.Console, "console", o.Console, "Read staff and admin commands from stdin.")
}

// Apply overrides cfg with the flags that were set explicitly
func (o *Options) Apply(cfg *Config) {
	if o.changed("data-dir") {
		cfg.Storage.DataDir = o.DataDir
	}
	if o.changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if o.changed("ops-addr") {
		cfg.Ops.Enabled = true
		cfg.Ops.Addr = o.OpsAddr
	}
}

func (o *Options) changed(name string) bool {
	if o.fs == nil {
		return false
	}
	f := o.fs.Lookup(name)
	return f != nil && f.Changed
}
