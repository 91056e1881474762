package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigPath = "PIPEPLAN_CONFIG"

// Config represents the pipeplan configuration file (~/.config/pipeplan/config.yaml).
// Values only apply when the matching flag was not set.
type Config struct {
	BaseDir    string `yaml:"base_dir"`
	OutputDir  string `yaml:"output_dir"`
	NodeMemory string `yaml:"node_memory"`
	Workers    *int64 `yaml:"workers"`
	Format     string `yaml:"format"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`

	Trace       TraceConfig       `yaml:"trace"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
}

type TraceConfig struct {
	Exporter string   `yaml:"exporter"`
	Endpoint string   `yaml:"endpoint"`
	Insecure *bool    `yaml:"insecure"`
	Ratio    *float64 `yaml:"ratio"`
}

// ObjectStoreConfig holds upload target settings. Credentials are better
// supplied through PIPEPLAN_S3_ACCESS_KEY and PIPEPLAN_S3_SECRET_KEY.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    *bool  `yaml:"use_ssl"`
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pipeplan", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config;
// a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyPlannerConfig fills profile, planner and output settings from cfg.
// Flags a command does not define are never reported as set, so it is safe
// to call from any command.
func applyPlannerConfig(c *cli.Command, cfg Config) {
	if cfg.BaseDir != "" && !c.IsSet("base-dir") {
		baseDir = cfg.BaseDir
	}
	if cfg.OutputDir != "" && !c.IsSet("out") {
		outputDir = cfg.OutputDir
	}
	if cfg.NodeMemory != "" && !c.IsSet("node-memory") {
		nodeMemory = cfg.NodeMemory
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
	if cfg.Format != "" && !c.IsSet("format") {
		planFormat = cfg.Format
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyPlannerConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

func applyTraceConfig(c *cli.Command, cfg TraceConfig) {
	if cfg.Exporter != "" && !c.IsSet("trace") {
		traceExporter = cfg.Exporter
	}
	if cfg.Endpoint != "" && !c.IsSet("trace-endpoint") {
		traceEndpoint = cfg.Endpoint
	}
	if cfg.Insecure != nil && !c.IsSet("trace-insecure") {
		traceInsecure = *cfg.Insecure
	}
	if cfg.Ratio != nil && !c.IsSet("trace-ratio") {
		traceRatio = *cfg.Ratio
	}
}

func applyObjectStoreConfig(c *cli.Command, cfg ObjectStoreConfig) {
	set := func(flag string, dst *string, v string) {
		if v != "" && !c.IsSet(flag) {
			*dst = v
		}
	}
	set("s3-endpoint", &s3Endpoint, cfg.Endpoint)
	set("s3-bucket", &s3Bucket, cfg.Bucket)
	set("s3-prefix", &s3Prefix, cfg.Prefix)
	set("s3-region", &s3Region, cfg.Region)
	set("s3-access-key", &s3AccessKey, cfg.AccessKey)
	set("s3-secret-key", &s3SecretKey, cfg.SecretKey)
	if cfg.UseSSL != nil && !c.IsSet("s3-ssl") {
		s3UseSSL = *cfg.UseSSL
	}
}
