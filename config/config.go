// Package config loads runtime configuration from flags, an optional yaml
// file and the environment. The Telegram token is env-only so it never ends
// up in a config file.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultCheckInterval = 5 * time.Minute
	defaultFetchTimeout  = 60 * time.Second
	defaultBalanceURL    = "https://www.dnb.no/kort/kronekort/saldo/"
	defaultDataDir       = "data"
	defaultWebAddr       = ":8080"

	tokenEnv = "TELEGRAM_BOT_TOKEN"
)

// Config holds everything the process needs to run.
type Config struct {
	// TelegramBotToken authorizes the bot. Populated from TELEGRAM_BOT_TOKEN.
	TelegramBotToken string
	// CheckInterval is the time between periodic balance sweeps.
	CheckInterval time.Duration
	// FetchTimeout bounds one balance check against the portal.
	FetchTimeout time.Duration
	// BalanceURL is the saldo page the fetcher scrapes.
	BalanceURL string
	// DataDir is where the WAL segments live.
	DataDir string
	// WebAddr is the dashboard listen address. Empty disables the dashboard.
	WebAddr string
}

type configYaml struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	BalanceURL    string        `yaml:"balance_url"`
	DataDir       string        `yaml:"data_dir"`
	WebAddr       string        `yaml:"web_addr"`
}

// Flags are parsed here once; Setup is consumed by main before Get runs.
var (
	configPath = flag.String("config", "", "path to yaml config")
	// Setup requests the interactive configuration wizard.
	Setup = flag.Bool("setup", false, "run interactive setup and exit")

	checkInterval = flag.Duration("checkinterval", defaultCheckInterval, "time between balance checks")
	fetchTimeout  = flag.Duration("fetchtimeout", defaultFetchTimeout, "timeout for a single balance check")
	balanceURL    = flag.String("balanceurl", defaultBalanceURL, "saldo page URL")
	dataDir       = flag.String("datadir", defaultDataDir, "directory for WAL state")
	webAddr       = flag.String("webaddr", defaultWebAddr, "dashboard listen address, empty disables")
)

// Get parses flags, merges the optional yaml file and reads the token from
// the environment (a .env file is honored when present).
func Get() (Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}

	// missing .env is fine, the token may come from the real environment
	_ = godotenv.Load()

	cfg := Config{
		CheckInterval: *checkInterval,
		FetchTimeout:  *fetchTimeout,
		BalanceURL:    *balanceURL,
		DataDir:       *dataDir,
		WebAddr:       *webAddr,
	}

	if *configPath != "" {
		if err := applyYaml(&cfg, *configPath); err != nil {
			return Config{}, err
		}
	}

	cfg.TelegramBotToken = os.Getenv(tokenEnv)
	if cfg.TelegramBotToken == "" {
		return Config{}, errors.Errorf("%s is not set; create a .env file with %s=<token> or export it", tokenEnv, tokenEnv)
	}

	if cfg.CheckInterval <= 0 {
		return Config{}, errors.New("check interval must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return Config{}, errors.New("fetch timeout must be positive")
	}
	if cfg.BalanceURL == "" {
		return Config{}, errors.New("balance URL is required")
	}
	if cfg.DataDir == "" {
		return Config{}, errors.New("data dir is required")
	}

	return cfg, nil
}

func applyYaml(cfg *Config, path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	var y configYaml
	if err := yaml.Unmarshal(f, &y); err != nil {
		return errors.Wrap(err, "parse config file")
	}

	if y.CheckInterval != 0 {
		cfg.CheckInterval = y.CheckInterval
	}
	if y.FetchTimeout != 0 {
		cfg.FetchTimeout = y.FetchTimeout
	}
	if y.BalanceURL != "" {
		cfg.BalanceURL = y.BalanceURL
	}
	if y.DataDir != "" {
		cfg.DataDir = y.DataDir
	}
	if y.WebAddr != "" {
		cfg.WebAddr = y.WebAddr
	}

	return nil
}
