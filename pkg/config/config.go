package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the config layer reads
const EnvPrefix = "LEADSCOUT_"

// Dedup policies select which seen-set gates a lead run
const (
	DedupByPost = "post"
	DedupByUser = "user"
	DedupByBoth = "both"
)

// Ranking keys for the active users report
const (
	RankByKarma    = "karma"
	RankByActivity = "activity"
)

// Config holds all configuration options for leadscout
type Config struct {
	Reddit     RedditConfig     `yaml:"reddit" json:"reddit"`
	Fetch      FetchConfig      `yaml:"fetch" json:"fetch"`
	Leads      LeadsConfig      `yaml:"leads" json:"leads"`
	Activity   ActivityConfig   `yaml:"activity" json:"activity"`
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`
	Telegram   TelegramConfig   `yaml:"telegram" json:"telegram"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Schedule   ScheduleConfig   `yaml:"schedule" json:"schedule"`
	API        APIConfig        `yaml:"api" json:"api"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// RedditConfig holds upstream access settings
type RedditConfig struct {
	// Source is "api" for the OAuth JSON API or "rss" for public feeds
	Source       string        `yaml:"source" json:"source"`
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	AuthURL      string        `yaml:"auth_url" json:"auth_url"`
	FeedURL      string        `yaml:"feed_url" json:"feed_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// FetchConfig holds listing and throttling settings
type FetchConfig struct {
	Listing           string        `yaml:"listing" json:"listing"`
	Period            string        `yaml:"period" json:"period"`
	Limit             int           `yaml:"limit" json:"limit"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	Cooldown          time.Duration `yaml:"cooldown" json:"cooldown"`
	SubredditDelay    time.Duration `yaml:"subreddit_delay" json:"subreddit_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LeadsConfig holds settings for the classified lead job
type LeadsConfig struct {
	Subreddits       []string      `yaml:"subreddits" json:"subreddits"`
	DedupPolicy      string        `yaml:"dedup_policy" json:"dedup_policy"`
	ItemDelay        time.Duration `yaml:"item_delay" json:"item_delay"`
	Classify         bool          `yaml:"classify" json:"classify"`
	RememberRejected bool          `yaml:"remember_rejected" json:"remember_rejected"`
}

// ActivityConfig holds settings for the active users job
type ActivityConfig struct {
	Subreddits      []string      `yaml:"subreddits" json:"subreddits"`
	IncludeComments bool          `yaml:"include_comments" json:"include_comments"`
	Limit           int           `yaml:"limit" json:"limit"`
	MinPosts        int           `yaml:"min_posts" json:"min_posts"`
	MinKarma        int           `yaml:"min_karma" json:"min_karma"`
	RankBy          string        `yaml:"rank_by" json:"rank_by"`
	NotifyTop       int           `yaml:"notify_top" json:"notify_top"`
	NotifyDelay     time.Duration `yaml:"notify_delay" json:"notify_delay"`
	SkipSeenUsers   bool          `yaml:"skip_seen_users" json:"skip_seen_users"`
	Summary         bool          `yaml:"summary" json:"summary"`

	// Pitch names the product in outreach suggestions
	Pitch string `yaml:"pitch" json:"pitch"`
}

// ClassifierConfig holds AI qualification settings
type ClassifierConfig struct {
	// Provider is "openai" or "claude"
	Provider    string        `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"api_key"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	Rubric      RubricConfig  `yaml:"rubric" json:"rubric"`
}

// RubricConfig describes the qualification criteria rendered into the system prompt
type RubricConfig struct {
	Product       string   `yaml:"product" json:"product"`
	IdealCustomer []string `yaml:"ideal_customer" json:"ideal_customer"`
	Niche         []string `yaml:"niche" json:"niche"`
	Signals       []string `yaml:"signals" json:"signals"`
	BudgetSignals []string `yaml:"budget_signals" json:"budget_signals"`
	ValueProps    []string `yaml:"value_props" json:"value_props"`
}

// TelegramConfig holds notifier settings
type TelegramConfig struct {
	BotToken  string        `yaml:"bot_token" json:"bot_token"`
	ChatID    string        `yaml:"chat_id" json:"chat_id"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	ParseMode string        `yaml:"parse_mode" json:"parse_mode"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// StorageConfig holds persisted state locations
type StorageConfig struct {
	// Backend is "json" or "sqlite"
	Backend      string `yaml:"backend" json:"backend"`
	DataDir      string `yaml:"data_dir" json:"data_dir"`
	PostsFile    string `yaml:"posts_file" json:"posts_file"`
	UsersFile    string `yaml:"users_file" json:"users_file"`
	SnapshotFile string `yaml:"snapshot_file" json:"snapshot_file"`
	SQLitePath   string `yaml:"sqlite_path" json:"sqlite_path"`
}

// ScheduleConfig holds the recurring trigger
type ScheduleConfig struct {
	Cron       string        `yaml:"cron" json:"cron"`
	Interval   time.Duration `yaml:"interval" json:"interval"`
	RunOnStart bool          `yaml:"run_on_start" json:"run_on_start"`
}

// APIConfig holds the status server settings
type APIConfig struct {
	Listen string `yaml:"listen" json:"listen"`

	// AccessKey, when set, is required in X-API-Key on every route but /healthz
	AccessKey string `yaml:"access_key" json:"access_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// Format is "console" (default) or "json"
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultSubreddits are monitored when no list is configured
var DefaultSubreddits = []string{
	"LeadGeneration",
	"smallbusiness",
	"GrowthHacking",
	"Entrepreneur",
	"startups",
	"marketing",
	"digitalmarketing",
	"socialmedia",
	"content_marketing",
	"business",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			Source:    "api",
			UserAgent: "leadscout/1.0",
			BaseURL:   "https://oauth.reddit.com",
			AuthURL:   "https://www.reddit.com/api/v1/access_token",
			FeedURL:   "https://www.reddit.com",
			Timeout:   30 * time.Second,
		},
		Fetch: FetchConfig{
			Listing:           "new",
			Period:            "day",
			Limit:             100,
			MaxRetries:        5,
			Cooldown:          60 * time.Second,
			SubredditDelay:    2500 * time.Millisecond,
			RequestsPerMinute: 60,
		},
		Leads: LeadsConfig{
			Subreddits:  append([]string(nil), DefaultSubreddits...),
			DedupPolicy: DedupByBoth,
			ItemDelay:   1500 * time.Millisecond,
			Classify:    true,
		},
		Activity: ActivityConfig{
			Subreddits:      append([]string(nil), DefaultSubreddits...),
			IncludeComments: true,
			Limit:           50,
			RankBy:          RankByActivity,
			NotifyTop:       5,
			NotifyDelay:     time.Second,
			Summary:         true,
			Pitch:           "Post Content",
		},
		Classifier: ClassifierConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   150,
			Timeout:     30 * time.Second,
			Rubric: RubricConfig{
				Product: "Post Content, a Reddit post scheduling service",
				Signals: []string{
					"Users who are actively posting on Reddit",
					"Users who mention struggling with time management for social media",
					"Users who want to grow their business or personal brand",
					"Users who mention needing help with content scheduling",
					"Users who are looking for marketing solutions",
					"Users who mention spending too much time on social media management",
				},
				ValueProps: []string{
					"Schedule and automate Reddit posts",
					"Save time on social media management",
					"Grow their audience consistently",
					"Cross-post to multiple subreddits",
				},
			},
		},
		Telegram: TelegramConfig{
			BaseURL: "https://api.telegram.org",
			Timeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:      "json",
			DataDir:      "./data",
			PostsFile:    "processed_posts.json",
			UsersFile:    "processed_users.json",
			SnapshotFile: "active_users.json",
			SQLitePath:   "leadscout.db",
		},
		Schedule: ScheduleConfig{
			Cron: "0 */6 * * *",
		},
		API: APIConfig{
			Listen: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.Reddit.Source, "REDDIT_SOURCE")
	setString(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	setString(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	setString(&c.Reddit.Username, "REDDIT_USERNAME")
	setString(&c.Reddit.Password, "REDDIT_PASSWORD")
	setString(&c.Reddit.UserAgent, "REDDIT_USER_AGENT")

	setString(&c.Fetch.Listing, "LISTING")
	setString(&c.Fetch.Period, "PERIOD")
	errs = append(errs, setInt(&c.Fetch.Limit, "LIMIT"))
	errs = append(errs, setInt(&c.Fetch.MaxRetries, "MAX_RETRIES"))
	errs = append(errs, setDuration(&c.Fetch.Cooldown, "COOLDOWN"))
	errs = append(errs, setInt(&c.Fetch.RequestsPerMinute, "REQUESTS_PER_MINUTE"))

	setList(&c.Leads.Subreddits, "SUBREDDITS")
	setString(&c.Leads.DedupPolicy, "DEDUP_POLICY")
	errs = append(errs, setBool(&c.Leads.Classify, "CLASSIFY"))

	setList(&c.Activity.Subreddits, "ACTIVITY_SUBREDDITS")
	errs = append(errs, setInt(&c.Activity.MinPosts, "MIN_POSTS"))
	errs = append(errs, setInt(&c.Activity.MinKarma, "MIN_KARMA"))
	setString(&c.Activity.RankBy, "RANK_BY")

	setString(&c.Classifier.Provider, "CLASSIFIER_PROVIDER")
	setString(&c.Classifier.Model, "CLASSIFIER_MODEL")
	setString(&c.Classifier.APIKey, "CLASSIFIER_API_KEY")
	if c.Classifier.APIKey == "" {
		switch c.Classifier.Provider {
		case "claude":
			c.Classifier.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			c.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.DataDir, "DATA_DIR")

	setString(&c.Schedule.Cron, "SCHEDULE")
	setString(&c.API.Listen, "API_LISTEN")
	setString(&c.API.AccessKey, "API_ACCESS_KEY")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Logging.File, "LOG_FILE")

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".leadscout.yaml",
		".leadscout.yml",
		"leadscout.yaml",
		filepath.Join(home, ".config", "leadscout", "config.yaml"),
		filepath.Join(home, ".config", "leadscout", "config.yml"),
		filepath.Join(home, ".leadscout.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Reddit.Source {
	case "api":
		if c.Reddit.UserAgent == "" {
			errs = append(errs, errors.New("reddit user agent is required"))
		}
	case "rss":
	default:
		errs = append(errs, fmt.Errorf("unknown reddit source %q", c.Reddit.Source))
	}

	switch c.Fetch.Listing {
	case "new", "hot", "top", "controversial":
	default:
		errs = append(errs, fmt.Errorf("unknown listing %q", c.Fetch.Listing))
	}
	switch c.Fetch.Period {
	case "hour", "day", "week", "month", "year", "all":
	default:
		errs = append(errs, fmt.Errorf("unknown listing period %q", c.Fetch.Period))
	}
	if c.Fetch.Limit <= 0 || c.Fetch.Limit > 100 {
		errs = append(errs, errors.New("fetch limit must be between 1 and 100"))
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Fetch.Cooldown < 0 || c.Fetch.SubredditDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.Fetch.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	switch c.Leads.DedupPolicy {
	case DedupByPost, DedupByUser, DedupByBoth:
	default:
		errs = append(errs, fmt.Errorf("unknown dedup policy %q", c.Leads.DedupPolicy))
	}

	switch c.Activity.RankBy {
	case RankByKarma, RankByActivity:
	default:
		errs = append(errs, fmt.Errorf("unknown ranking key %q", c.Activity.RankBy))
	}
	if c.Activity.Limit < 0 || c.Activity.NotifyTop < 0 {
		errs = append(errs, errors.New("activity limits cannot be negative"))
	}
	if c.Activity.MinPosts < 0 || c.Activity.MinKarma < 0 {
		errs = append(errs, errors.New("activity thresholds cannot be negative"))
	}

	switch c.Classifier.Provider {
	case "openai", "claude":
	default:
		errs = append(errs, fmt.Errorf("unknown classifier provider %q", c.Classifier.Provider))
	}

	switch c.Storage.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}

	if c.Schedule.Cron == "" && c.Schedule.Interval <= 0 {
		errs = append(errs, errors.New("a cron schedule or a positive interval is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "console" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateCredentials checks the secrets a live run needs
func (c *Config) ValidateCredentials() error {
	var errs []error
	if c.Reddit.Source == "api" {
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
			errs = append(errs, errors.New("reddit client id and secret are required"))
		}
		if c.Reddit.Username == "" || c.Reddit.Password == "" {
			errs = append(errs, errors.New("reddit username and password are required"))
		}
	}
	if c.Telegram.BotToken == "" || c.Telegram.ChatID == "" {
		errs = append(errs, errors.New("telegram bot token and chat id are required"))
	}
	if c.Leads.Classify && c.Classifier.APIKey == "" {
		errs = append(errs, errors.New("classifier api key is required when classification is enabled"))
	}
	return errors.Join(errs...)
}

// StatePath resolves a storage file name inside the data directory
func (c *Config) StatePath(name string) string {
	return c.Storage.Path(name)
}

// Path resolves a state file name against the data directory
func (s StorageConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}

// Redacted returns a copy with every secret masked
func (c *Config) Redacted() *Config {
	out := *c
	out.Reddit.ClientSecret = mask(c.Reddit.ClientSecret)
	out.Reddit.Password = mask(c.Reddit.Password)
	out.Classifier.APIKey = mask(c.Classifier.APIKey)
	out.Telegram.BotToken = mask(c.Telegram.BotToken)
	out.API.AccessKey = mask(c.API.AccessKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if subs, ok := flags["subreddits"].([]string); ok && len(subs) > 0 {
		c.Leads.Subreddits = subs
		c.Activity.Subreddits = subs
	}
	if listing, ok := flags["listing"].(string); ok && listing != "" {
		c.Fetch.Listing = listing
	}
	if period, ok := flags["period"].(string); ok && period != "" {
		c.Fetch.Period = period
	}
	if limit, ok := flags["limit"].(int); ok && limit > 0 {
		c.Fetch.Limit = limit
	}
	if policy, ok := flags["dedup-policy"].(string); ok && policy != "" {
		c.Leads.DedupPolicy = policy
	}
	if classify, ok := flags["classify"].(bool); ok {
		c.Leads.Classify = classify
	}
	if source, ok := flags["source"].(string); ok && source != "" {
		c.Reddit.Source = source
	}
	if backend, ok := flags["storage"].(string); ok && backend != "" {
		c.Storage.Backend = backend
	}
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Storage.DataDir = dataDir
	}
	if schedule, ok := flags["schedule"].(string); ok && schedule != "" {
		c.Schedule.Cron = schedule
	}
	if interval, ok := flags["interval"].(time.Duration); ok && interval > 0 {
		c.Schedule.Interval = interval
		c.Schedule.Cron = ""
	}
	if runOnStart, ok := flags["run-on-start"].(bool); ok {
		c.Schedule.RunOnStart = runOnStart
	}
	if listen, ok := flags["listen"].(string); ok && listen != "" {
		c.API.Listen = listen
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".leadscout.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
