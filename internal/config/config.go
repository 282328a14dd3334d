package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultListingURL is the search page used when a discovery run is given no URL
const DefaultListingURL = "https://arbetsformedlingen.se/platsbanken/annonser?q=excel&l=3:PVZL_BQT_XtL"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`

		// Hunter operations fetch many pages in sequence and get a longer budget
		HunterTimeout  time.Duration `yaml:"hunter_timeout" default:"15m"`
		AllowedOrigins []string      `yaml:"allowed_origins" default:"*"`
	} `yaml:"server"`

	BackgroundTasks struct {
		MaxWorkers      int           `yaml:"max_workers" default:"2"`
		QueueSize       int           `yaml:"queue_size" default:"20"`
		TaskTimeout     time.Duration `yaml:"task_timeout" default:"30m"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxTaskAge      time.Duration `yaml:"max_task_age" default:"24h"`
	} `yaml:"background_tasks"`

	Hunter struct {
		DefaultURL      string        `yaml:"default_url"`
		BatchURLs       []string      `yaml:"batch_urls"`
		RequestDelay    time.Duration `yaml:"request_delay" default:"2s"`
		SiteHost        string        `yaml:"site_host" default:"https://arbetsformedlingen.se"`
		PostingsPath    string        `yaml:"postings_path" default:"/platsbanken/annonser/"`
		ListingMarker   string        `yaml:"listing_marker" default:"/annonser?"`
		AnalyzeLimit    int           `yaml:"analyze_limit" default:"10"`
		BackfillLimit   int           `yaml:"backfill_limit" default:"100"`
		RunLockTTL      time.Duration `yaml:"run_lock_ttl" default:"30m"`
		PlaceholderMail string        `yaml:"placeholder_email" default:"pending@inventing.se"`
	} `yaml:"hunter"`

	LLM struct {
		Provider    string        `yaml:"provider" default:"claude"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"claude-3-5-haiku-latest"`
		MaxTokens   int           `yaml:"max_tokens" default:"4096"`
		Temperature float64       `yaml:"temperature" default:"0.2"`
		Timeout     time.Duration `yaml:"timeout" default:"120s"`
		// MaxInputChars bounds the job description sent to the model
		MaxInputChars int `yaml:"max_input_chars" default:"24000"`
	} `yaml:"llm"`

	Scraper struct {
		Engine         string        `yaml:"engine" default:"firecrawl"`
		UserAgent      string        `yaml:"user_agent"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
		HeadlessMode   bool          `yaml:"headless_mode" default:"true"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes" default:"5242880"`
	} `yaml:"scraper"`

	Firecrawl struct {
		APIKey     string        `yaml:"api_key"`
		APIURL     string        `yaml:"api_url" default:"https://api.firecrawl.dev"`
		Timeout    time.Duration `yaml:"timeout" default:"60s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		Formats    []string      `yaml:"formats" default:"markdown,html"`
	} `yaml:"firecrawl"`

	Store struct {
		Driver      string `yaml:"driver" default:"sqlite"`
		SQLitePath  string `yaml:"sqlite_path" default:"data/leads.db"`
		PostgresURL string `yaml:"postgres_url"`
		MaxConns    int32  `yaml:"max_conns" default:"10"`
	} `yaml:"store"`

	Redis struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// Default returns a configuration populated with built-in defaults only
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.HunterTimeout = 15 * time.Minute
	config.Server.AllowedOrigins = []string{"*"}

	config.BackgroundTasks.MaxWorkers = 2
	config.BackgroundTasks.QueueSize = 20
	config.BackgroundTasks.TaskTimeout = 30 * time.Minute
	config.BackgroundTasks.CleanupInterval = time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.Hunter.DefaultURL = DefaultListingURL
	config.Hunter.RequestDelay = 2 * time.Second
	config.Hunter.SiteHost = "https://arbetsformedlingen.se"
	config.Hunter.PostingsPath = "/platsbanken/annonser/"
	config.Hunter.ListingMarker = "/annonser?"
	config.Hunter.AnalyzeLimit = 10
	config.Hunter.BackfillLimit = 100
	config.Hunter.RunLockTTL = 30 * time.Minute
	config.Hunter.PlaceholderMail = "pending@inventing.se"

	config.LLM.Provider = "claude"
	config.LLM.Model = "claude-3-5-haiku-latest"
	config.LLM.MaxTokens = 4096
	config.LLM.Temperature = 0.2
	config.LLM.Timeout = 120 * time.Second
	config.LLM.MaxInputChars = 24000

	config.Scraper.Engine = "firecrawl"
	config.Scraper.RequestTimeout = 30 * time.Second
	config.Scraper.HeadlessMode = true
	config.Scraper.MaxBodyBytes = 5 << 20
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Firecrawl.MaxRetries = 3
	config.Firecrawl.Timeout = 60 * time.Second
	config.Firecrawl.Formats = []string{"markdown", "html"}

	config.Store.Driver = "sqlite"
	config.Store.SQLitePath = "data/leads.db"
	config.Store.MaxConns = 10

	config.Redis.Timeout = 5 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		}
	}

	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	} else if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = apiKey
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if apiKey := os.Getenv("FIRECRAWL_API_KEY"); apiKey != "" {
		c.Firecrawl.APIKey = apiKey
	}

	if apiURL := os.Getenv("FIRECRAWL_API_URL"); apiURL != "" {
		c.Firecrawl.APIURL = apiURL
	}

	if engine := os.Getenv("SCRAPER_ENGINE"); engine != "" {
		c.Scraper.Engine = engine
	}

	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}

	if path := os.Getenv("SQLITE_PATH"); path != "" {
		c.Store.SQLitePath = path
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Store.PostgresURL = dsn
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if defaultURL, ok := os.LookupEnv("HUNTER_DEFAULT_URL"); ok {
		c.Hunter.DefaultURL = strings.TrimSpace(defaultURL)
	}

	if batch := os.Getenv("HUNTER_BATCH_URLS"); batch != "" {
		c.Hunter.BatchURLs = splitList(batch)
	}

	if delay := os.Getenv("HUNTER_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			c.Hunter.RequestDelay = d
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
}

// Validate reports settings that make the service unusable.
// Missing API credentials are checked by the components that need them.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url (DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if c.Hunter.RequestDelay < 0 {
		return fmt.Errorf("hunter.request_delay must not be negative")
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
