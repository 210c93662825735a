package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the hitcase configuration
type Config struct {
	DefaultEnvironment string                  `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	Environments       map[string]*Environment `json:"environments,omitempty" yaml:"environments,omitempty"`
	BaseURLs           map[string]string       `json:"baseUrls,omitempty" yaml:"baseUrls,omitempty"` // platform -> base URL
	Timeout            int                     `json:"timeout,omitempty" yaml:"timeout,omitempty"`   // milliseconds
	Retries            int                     `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelay         int                     `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`       // milliseconds
	MaxRetryDelay      int                     `json:"maxRetryDelay,omitempty" yaml:"maxRetryDelay,omitempty"` // milliseconds
	RetryOn            []int                   `json:"retryOn,omitempty" yaml:"retryOn,omitempty"`
	FollowRedirects    *bool                   `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int                     `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool                   `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy              string                  `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers            map[string]string       `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Concurrency        int                     `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	RateLimit          float64                 `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second, 0 = unlimited
	Bail               *bool                   `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose            *bool                   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor            *bool                   `json:"noColor,omitempty" yaml:"noColor,omitempty"`

	Cases     []string       `json:"cases,omitempty" yaml:"cases,omitempty"`
	Sheet     string         `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	EnvFile   string         `json:"envFile,omitempty" yaml:"envFile,omitempty"`

	LogPath     string `json:"logPath,omitempty" yaml:"logPath,omitempty"`
	LogLevel    string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	ReportPath  string `json:"reportPath,omitempty" yaml:"reportPath,omitempty"`
	ReportTitle string `json:"reportTitle,omitempty" yaml:"reportTitle,omitempty"`
	HistoryDB   string `json:"historyDb,omitempty" yaml:"historyDb,omitempty"`

	Notify  *NotifyConfig  `json:"notify,omitempty" yaml:"notify,omitempty"`
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// path is the file the config was read from, if any
	path string
}

// Environment overrides base URLs and variables when selected by name.
type Environment struct {
	BaseURLs  map[string]string `json:"baseUrls,omitempty" yaml:"baseUrls,omitempty"`
	Variables map[string]any    `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// NotifyConfig configures result notifications
type NotifyConfig struct {
	On    string       `json:"on,omitempty" yaml:"on,omitempty"` // always, failure, success, recovery
	Slack *SlackConfig `json:"slack,omitempty" yaml:"slack,omitempty"`
	Teams *TeamsConfig `json:"teams,omitempty" yaml:"teams,omitempty"`
	Email *EmailConfig `json:"email,omitempty" yaml:"email,omitempty"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhookUrl" yaml:"webhookUrl"`
	Channel    string `json:"channel,omitempty" yaml:"channel,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
}

type TeamsConfig struct {
	WebhookURL string `json:"webhookUrl" yaml:"webhookUrl"`
}

type EmailConfig struct {
	Host     string   `json:"host" yaml:"host"`
	Port     int      `json:"port,omitempty" yaml:"port,omitempty"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	From     string   `json:"from" yaml:"from"`
	To       []string `json:"to" yaml:"to"`
	// AttachReport attaches the HTML report when one was written
	AttachReport *bool `json:"attachReport,omitempty" yaml:"attachReport,omitempty"`
}

// MetricsConfig configures metric export after a run
type MetricsConfig struct {
	PrometheusFile string `json:"prometheusFile,omitempty" yaml:"prometheusFile,omitempty"`
	JSONFile       string `json:"jsonFile,omitempty" yaml:"jsonFile,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetAttachReport returns the attach report setting, defaulting to true
func (e *EmailConfig) GetAttachReport() bool {
	return getBool(e.AttachReport, true)
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c *Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Millisecond
}

func (c *Config) MaxRetryDelayDuration() time.Duration {
	return time.Duration(c.MaxRetryDelay) * time.Millisecond
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory relative paths in the config resolve against.
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// Resolve returns p relative to the config file directory unless it is
// already absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitcase.yaml",
	".hitcase.yml",
	"hitcase.yaml",
	"hitcase.yml",
	".hitcase.json",
	"hitcase.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file. The format
// follows the extension; anything that is not .json is read as YAML.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	config.path = path
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks values that cannot be corrected by defaults.
func (c *Config) Validate() error {
	if c.Timeout < 0 || c.Retries < 0 || c.RetryDelay < 0 || c.MaxRetryDelay < 0 {
		return fmt.Errorf("timeout, retries and retry delays must not be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit must not be negative")
	}
	for _, code := range c.RetryOn {
		if code < 100 || code > 599 {
			return fmt.Errorf("retryOn: invalid status code %d", code)
		}
	}
	if c.Notify != nil {
		switch c.Notify.On {
		case "", "always", "failure", "success", "recovery":
		default:
			return fmt.Errorf("notify.on: unknown policy %q", c.Notify.On)
		}
	}
	return nil
}

// WithEnvironment returns a copy of c with the named environment's base URLs
// and variables laid over the top level ones. An empty name selects
// DefaultEnvironment; a name not in Environments is an error unless it is
// the default.
func (c *Config) WithEnvironment(name string) (*Config, error) {
	if name == "" {
		name = c.DefaultEnvironment
	}
	env, ok := c.Environments[name]
	if !ok {
		if name == c.DefaultEnvironment {
			return c, nil
		}
		return nil, fmt.Errorf("unknown environment %q", name)
	}

	result := *c
	result.BaseURLs = mergeMap(c.BaseURLs, env.BaseURLs)
	result.Variables = mergeMap(c.Variables, env.Variables)
	return &result, nil
}

func mergeMap[V any](base, over map[string]V) map[string]V {
	if len(over) == 0 {
		return base
	}
	result := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range over {
		result[k] = v
	}
	return result
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Retries > 0 {
		result.Retries = other.Retries
	}
	if other.RetryDelay > 0 {
		result.RetryDelay = other.RetryDelay
	}
	if other.MaxRetryDelay > 0 {
		result.MaxRetryDelay = other.MaxRetryDelay
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.Sheet != "" {
		result.Sheet = other.Sheet
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.LogPath != "" {
		result.LogPath = other.LogPath
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.ReportPath != "" {
		result.ReportPath = other.ReportPath
	}
	if other.ReportTitle != "" {
		result.ReportTitle = other.ReportTitle
	}
	if other.HistoryDB != "" {
		result.HistoryDB = other.HistoryDB
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Lists replace, maps merge key by key
	if len(other.RetryOn) > 0 {
		result.RetryOn = other.RetryOn
	}
	if len(other.Cases) > 0 {
		result.Cases = other.Cases
	}
	result.Headers = mergeMap(c.Headers, other.Headers)
	result.BaseURLs = mergeMap(c.BaseURLs, other.BaseURLs)
	result.Variables = mergeMap(c.Variables, other.Variables)

	if other.Notify != nil {
		result.Notify = other.Notify
	}
	if other.Metrics != nil {
		result.Metrics = other.Metrics
	}

	return &result
}

// SaveConfig saves the configuration to a file, as JSON when the path ends
// in .json and YAML otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
