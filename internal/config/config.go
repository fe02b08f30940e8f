// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables, a
// .env file and an optional JSON or YAML config file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Token store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

const (
	DefaultAPIURL   = "http://localhost:8000"
	DefaultTimeout  = 15 * time.Second
	DefaultLogLevel = "warn"
)

// Options holds the configuration values for the application.
type Options struct {
	// APIURL is the backend root, e.g. http://localhost:8000.
	APIURL string `json:"api_url" yaml:"api_url"`

	// CAFile is an extra PEM bundle to trust for HTTPS backends.
	CAFile string `json:"ca_file" yaml:"ca_file"`

	// TokenStore selects where credentials persist: "file" or "sqlite".
	TokenStore string `json:"token_store" yaml:"token_store"`

	// TokenPath is the token file or SQLite database. Empty picks the
	// store's default.
	TokenPath string `json:"token_path" yaml:"token_path"`

	Timeout time.Duration `json:"-" yaml:"-"`

	LogLevel string `json:"log_level" yaml:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`

	// EnvFile is the dotenv file read before the environment.
	EnvFile string `json:"-" yaml:"-"`

	Version bool `json:"-" yaml:"-"`
}

// fileOptions is the config file layout. Timeout is a duration string.
type fileOptions struct {
	Options `yaml:",inline"`
	Timeout string `json:"timeout" yaml:"timeout"`
}

// Parse builds Options from args (without the program name) and the
// environment as seen through getenv. Precedence, lowest first: defaults,
// config file, .env file, environment, flags given on the command line.
func Parse(args []string, getenv func(string) string) (*Options, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	options := &Options{}
	fs := flag.NewFlagSet("quizdesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&options.APIURL, "url", DefaultAPIURL, "backend base URL")
	fs.StringVar(&options.CAFile, "ca", "", "path to an extra CA certificate (PEM)")
	fs.StringVar(&options.TokenStore, "store", StoreFile, "token store: file | sqlite")
	fs.StringVar(&options.TokenPath, "tokens", "", "token file or database path")
	fs.DurationVar(&options.Timeout, "timeout", DefaultTimeout, "HTTP request timeout")
	fs.StringVar(&options.LogLevel, "log-level", DefaultLogLevel, "log level: debug | info | warn | error")
	fs.StringVar(&options.Config, "config", "", "path to config file")
	fs.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
	fs.StringVar(&options.EnvFile, "env", ".env", "path to dotenv file")
	fs.BoolVar(&options.Version, "version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	// Flags win; remember their values to reapply after the other sources.
	fromFlags := *options

	dotenv, err := readDotEnv(options.EnvFile, explicit["env"])
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	if configPath := lookup("CONFIG"); configPath != "" && !explicit["config"] && !explicit["c"] {
		options.Config = configPath
	}
	if options.Config != "" {
		if err := loadFile(options.Config, options); err != nil {
			return nil, err
		}
	}

	if v := lookup("QUIZ_API_URL"); v != "" {
		options.APIURL = v
	}
	if v := lookup("QUIZ_CA_FILE"); v != "" {
		options.CAFile = v
	}
	if v := lookup("QUIZ_TOKEN_STORE"); v != "" {
		options.TokenStore = v
	}
	if v := lookup("QUIZ_TOKEN_PATH"); v != "" {
		options.TokenPath = v
	}
	if v := lookup("QUIZ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("QUIZ_TIMEOUT: %w", err)
		}
		options.Timeout = d
	}
	if v := lookup("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}

	for name := range explicit {
		switch name {
		case "url":
			options.APIURL = fromFlags.APIURL
		case "ca":
			options.CAFile = fromFlags.CAFile
		case "store":
			options.TokenStore = fromFlags.TokenStore
		case "tokens":
			options.TokenPath = fromFlags.TokenPath
		case "timeout":
			options.Timeout = fromFlags.Timeout
		case "log-level":
			options.LogLevel = fromFlags.LogLevel
		}
	}

	if err := options.validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func (o *Options) validate() error {
	o.TokenStore = strings.ToLower(strings.TrimSpace(o.TokenStore))
	switch o.TokenStore {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown token store %q (want %s or %s)", o.TokenStore, StoreFile, StoreSQLite)
	}
	if strings.TrimSpace(o.APIURL) == "" {
		return errors.New("api url is required")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	return nil
}

// readDotEnv returns the variables of a dotenv file. A missing file is only
// an error when it was asked for explicitly.
func readDotEnv(path string, required bool) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error while reading env file: %w", err)
	}
	return vars, nil
}

// loadFile overlays the config file onto options. The format follows the
// extension: .yaml/.yml is YAML, anything else JSON.
func loadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	file := fileOptions{Options: *options}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	timeout := options.Timeout
	if file.Timeout != "" {
		timeout, err = time.ParseDuration(file.Timeout)
		if err != nil {
			return fmt.Errorf("error while parsing config file: timeout: %w", err)
		}
	}
	config, envFile, version := options.Config, options.EnvFile, options.Version
	*options = file.Options
	options.Timeout = timeout
	options.Config, options.EnvFile, options.Version = config, envFile, version
	return nil
}
