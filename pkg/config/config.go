package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const ConfigFileName = ".prism.json"

// Environment overrides, applied after the config file.
const (
	EnvAPIURL        = "PRISM_API_URL"
	EnvWSURL         = "PRISM_WS_URL"
	EnvStatePath     = "PRISM_STATE_PATH"
	EnvWalletKeypair = "PRISM_WALLET_KEYPAIR"
	EnvLogLevel      = "PRISM_LOG_LEVEL"
	EnvEthRPCURLs    = "PRISM_ETH_RPC_URLS"
)

var DefaultWatchList = []string{"ETH", "BTC", "SOL", "USDC", "USDT"}

// Config holds application-wide settings.
type Config struct {
	APIURL                string   `json:"api_url"`
	WSURL                 string   `json:"ws_url,omitempty"`
	EthRPCURLs            []string `json:"eth_rpc_urls,omitempty"`
	WatchList             []string `json:"watch_list"`
	PriceIntervalSeconds  int      `json:"price_interval_seconds"`
	FeedIntervalSeconds   int      `json:"feed_interval_seconds"`
	FeedLimit             int      `json:"feed_limit"`
	HoldingsLimit         int      `json:"holdings_limit"`
	TopTokens             int      `json:"top_tokens"`
	StatePath             string   `json:"state_path"`
	WalletKeypair         string   `json:"wallet_keypair,omitempty"`
	LogLevel              string   `json:"log_level"`
	LogFile               string   `json:"log_file"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds"`
	EthExplorerURL        string   `json:"eth_explorer_url"`
	SolExplorerURL        string   `json:"sol_explorer_url"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = "http://localhost:3001"
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if len(c.WatchList) == 0 {
		c.WatchList = append([]string{}, DefaultWatchList...)
	}
	if c.PriceIntervalSeconds <= 0 {
		c.PriceIntervalSeconds = 30
	}
	if c.FeedIntervalSeconds <= 0 {
		c.FeedIntervalSeconds = 30
	}
	if c.FeedLimit <= 0 {
		c.FeedLimit = 20
	}
	if c.HoldingsLimit <= 0 {
		c.HoldingsLimit = 12
	}
	if c.TopTokens <= 0 {
		c.TopTokens = 10
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 15
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.StatePath == "" {
		c.StatePath = homePath(".prism", "state.db")
	}
	if c.LogFile == "" {
		c.LogFile = homePath(".prism.log")
	}
	if c.EthExplorerURL == "" {
		c.EthExplorerURL = "https://etherscan.io"
	}
	if c.SolExplorerURL == "" {
		c.SolExplorerURL = "https://solscan.io"
	}
	c.StatePath = expandHome(c.StatePath)
	c.LogFile = expandHome(c.LogFile)
	c.WalletKeypair = expandHome(c.WalletKeypair)
}

func homePath(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(elem...)
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// WebSocketURL is ws_url, or the api_url with a ws scheme and /ws path.
func (c Config) WebSocketURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	return DeriveWSURL(c.APIURL)
}

// DeriveWSURL maps http(s)://host/base to ws(s)://host/base/ws.
func DeriveWSURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String()
}

func (c Config) PriceInterval() time.Duration {
	return time.Duration(c.PriceIntervalSeconds) * time.Second
}

func (c Config) FeedInterval() time.Duration {
	return time.Duration(c.FeedIntervalSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ExplorerTxURL links a transaction hash on the explorer of the given chain
// kind ("eth" or "sol").
func (c Config) ExplorerTxURL(kind, hash string) string {
	if kind == "sol" {
		return strings.TrimRight(c.SolExplorerURL, "/") + "/tx/" + hash
	}
	return strings.TrimRight(c.EthExplorerURL, "/") + "/tx/" + hash
}

// Validate returns one message per structural problem.
func (c Config) Validate() []string {
	var errs []string
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("api_url %q is not an http(s) URL", c.APIURL))
	}
	if c.WSURL != "" {
		if u, err := url.Parse(c.WSURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("ws_url %q is not a ws(s) URL", c.WSURL))
		}
	}
	for i, rpc := range c.EthRPCURLs {
		if strings.TrimSpace(rpc) == "" {
			errs = append(errs, fmt.Sprintf("eth_rpc_urls[%d] is empty", i))
		}
	}
	for i, sym := range c.WatchList {
		if strings.TrimSpace(sym) == "" {
			errs = append(errs, fmt.Sprintf("watch_list[%d] is empty", i))
		}
	}
	return errs
}

func GetConfigPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

func LoadConfigFromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

// LoadConfig decodes a config file. Absent fields keep their defaults.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv loads envFile (if present) into the environment and applies the
// PRISM_* overrides.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvWSURL); v != "" {
		cfg.WSURL = v
	}
	if v := os.Getenv(EnvStatePath); v != "" {
		cfg.StatePath = expandHome(v)
	}
	if v := os.Getenv(EnvWalletKeypair); v != "" {
		cfg.WalletKeypair = expandHome(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvEthRPCURLs); v != "" {
		var urls []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				urls = append(urls, part)
			}
		}
		cfg.EthRPCURLs = urls
	}
	return nil
}

func SaveConfig(cfg Config, path string) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("validation failed: encoded configuration is empty")
	}

	// Create a backup of the existing file
	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to write backup config: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func RestoreLastBackup(configPath string) error {
	matches, err := filepath.Glob(configPath + ".*.bak")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}
	sort.Strings(matches)
	lastBackup := matches[len(matches)-1]

	data, err := os.ReadFile(lastBackup)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
