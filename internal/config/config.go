package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// LLMConfig selects and configures the text inference provider.
type LLMConfig struct {
	Provider        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Timeout         time.Duration
}

// SearchConfig configures the search aggregator and its cache.
type SearchConfig struct {
	GoogleAPIKey string
	GoogleCX     string
	Pages        int
	Timeout      time.Duration
	RedisAddr    string
	CacheTTL     time.Duration
}

// ScraperConfig configures the browser-automation session manager and the listing source.
type ScraperConfig struct {
	Mode               string
	BaseURL            string
	ChromeWSURL        string
	ListingURLTemplate string
	FetchTimeout       time.Duration
	PageDelay          time.Duration
	PageJitter         time.Duration
	MaxPages           int
	MaxEmptyPages      int
}

// DiscoveryConfig holds pipeline tuning knobs.
type DiscoveryConfig struct {
	InterCompanyDelay    time.Duration
	DefaultLocation      string
	GeoIPBaseURL         string
	PhoneRegion          string
	ContactMaxResults    int
	ContactMinConfidence float64
	EmailsPerContact     int
	PatternBatchSize     int
	ContactExtraction    string
	ValidateEmails       bool
	DNSServers           []string
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL       string
	Port              string
	LogMode           string
	LogLevel          string
	RateLimitDiscover RateLimitConfig
	LLM               LLMConfig
	Search            SearchConfig
	Scraper           ScraperConfig
	Discovery         DiscoveryConfig
}

const defaultListingURLTemplate = "https://www.yellowpages.com/search?search_terms={term}&geo_location_terms={location}&page={page}"

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getEnv("PORT", "8080"),
		LogMode:     getEnv("LOG_MODE", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		},
		Search: SearchConfig{
			GoogleAPIKey: os.Getenv("GOOGLE_SEARCH_API_KEY"),
			GoogleCX:     os.Getenv("GOOGLE_SEARCH_CX"),
			RedisAddr:    os.Getenv("REDIS_ADDR"),
		},
		Scraper: ScraperConfig{
			Mode:               strings.ToLower(getEnv("SCRAPER_MODE", "remote")),
			BaseURL:            os.Getenv("SCRAPER_BASE_URL"),
			ChromeWSURL:        os.Getenv("CHROME_WS_URL"),
			ListingURLTemplate: getEnv("LISTING_URL_TEMPLATE", defaultListingURLTemplate),
		},
		Discovery: DiscoveryConfig{
			DefaultLocation:   getEnv("DEFAULT_LOCATION", "United States"),
			GeoIPBaseURL:      getEnv("GEOIP_BASE_URL", "http://ip-api.com/json"),
			PhoneRegion:       strings.ToUpper(getEnv("PHONE_REGION", "US")),
			ContactExtraction: strings.ToLower(getEnv("CONTACT_EXTRACTION", "title")),
			DNSServers:        splitList(os.Getenv("DNS_SERVERS")),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_DISCOVER", "5/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_DISCOVER value: %w", err)
	}
	cfg.RateLimitDiscover = rl

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"LLM_TIMEOUT", "30s", &cfg.LLM.Timeout},
		{"SEARCH_CACHE_TTL", "24h", &cfg.Search.CacheTTL},
		{"SEARCH_TIMEOUT", "10s", &cfg.Search.Timeout},
		{"FETCH_TIMEOUT", "10s", &cfg.Scraper.FetchTimeout},
		{"PAGE_DELAY", "1500ms", &cfg.Scraper.PageDelay},
		{"PAGE_JITTER", "1000ms", &cfg.Scraper.PageJitter},
		{"INTER_COMPANY_DELAY", "500ms", &cfg.Discovery.InterCompanyDelay},
	}
	for _, d := range durations {
		value, err := parseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", d.key, err)
		}
		*d.dst = value
	}

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"SEARCH_PAGES", 2, &cfg.Search.Pages},
		{"MAX_PAGES", 50, &cfg.Scraper.MaxPages},
		{"MAX_EMPTY_PAGES", 3, &cfg.Scraper.MaxEmptyPages},
		{"CONTACT_MAX_RESULTS", 15, &cfg.Discovery.ContactMaxResults},
		{"EMAILS_PER_CONTACT", 4, &cfg.Discovery.EmailsPerContact},
		{"PATTERN_BATCH_SIZE", 10, &cfg.Discovery.PatternBatchSize},
	}
	for _, i := range ints {
		value, err := parsePositiveInt(getEnv(i.key, strconv.Itoa(i.fallback)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", i.key, err)
		}
		*i.dst = value
	}

	minConfidence, err := parseUnitFloat(getEnv("CONTACT_MIN_CONFIDENCE", "0.3"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONTACT_MIN_CONFIDENCE value: %w", err)
	}
	cfg.Discovery.ContactMinConfidence = minConfidence

	validate, err := strconv.ParseBool(getEnv("VALIDATE_EMAILS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALIDATE_EMAILS value: %w", err)
	}
	cfg.Discovery.ValidateEmails = validate

	switch cfg.Scraper.Mode {
	case "remote", "chrome", "http":
	default:
		return nil, fmt.Errorf("unsupported SCRAPER_MODE: %s", cfg.Scraper.Mode)
	}
	switch cfg.LLM.Provider {
	case "openai", "anthropic":
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER: %s", cfg.LLM.Provider)
	}
	switch cfg.Discovery.ContactExtraction {
	case "title", "model":
	default:
		return nil, fmt.Errorf("unsupported CONTACT_EXTRACTION: %s", cfg.Discovery.ContactExtraction)
	}

	return cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(input))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", input)
	}
	return d, nil
}

func parsePositiveInt(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func parseUnitFloat(input string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("must be within [0,1], got %v", f)
	}
	return f, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
