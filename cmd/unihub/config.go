package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/unihub-app/unihub-go/internal/logger"
)

const (
	defaultAPIAddress   = "http://localhost:8000"
	defaultSessionFile  = ".unihub/session.json"
	defaultPollInterval = 10 * time.Second
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// UniHub backend to connect to
	APIAddress string

	// Where the session record lives on disk
	SessionFile string

	// How often the quote feed is polled
	PollInterval time.Duration

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:     defaultLoggingLevel,
		APIAddress:   defaultAPIAddress,
		SessionFile:  defaultSessionFile,
		PollInterval: defaultPollInterval,
		Environment:  defaultEnvironment,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if parsed, err := time.ParseDuration(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"UNIHUB_API_ADDRESS":  setString(&c.APIAddress),
		"UNIHUB_SESSION_FILE": setString(&c.SessionFile),
		"LOG_LEVEL":           setString(&c.LogLevel),
		"POLL_INTERVAL":       setDuration(&c.PollInterval),
		"ENVIRONMENT":         setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("unihub", pflag.ContinueOnError)

	fs.StringVarP(&c.APIAddress, "address", "a", c.APIAddress, "UniHub backend address")
	fs.StringVarP(&c.SessionFile, "session-file", "s", c.SessionFile, "Path of the persisted session record")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.DurationVarP(&c.PollInterval, "interval", "i", c.PollInterval, "Quote polling interval")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
