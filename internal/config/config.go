// Package config handles loading and validation of service configuration.
// Supports both development (env vars, .env, CONFIG_FILE) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
	"acp-proxy/internal/translate"
)

// UCPVersion is the UCP protocol version the proxy speaks to engines.
const UCPVersion = "2026-01-11"

// Config holds all service configuration.
// Environment determines whether merchant settings load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	MerchantID string

	// ProxyBaseURL is the public URL advertised in discovery.
	// Empty derives it from each request.
	ProxyBaseURL string

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string

	// Merchant-specific configuration (loaded from secrets)
	Merchant MerchantConfig
}

// MerchantConfig contains merchant-specific settings.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type MerchantConfig struct {
	Name         string `json:"merchant_name,omitempty"`
	SupportEmail string `json:"support_email,omitempty"`

	// Checkout engine
	EngineURL            string `json:"engine_url"`
	EngineAPIKey         string `json:"engine_api_key,omitempty"`
	EngineTLSFingerprint string `json:"engine_tls_fingerprint,omitempty"` // chrome, firefox, safari or empty
	AgentProfileURL      string `json:"agent_profile_url,omitempty"`

	// Catalog attached to sessions. Empty lists fall back to the stock catalog.
	Currency           string                  `json:"currency,omitempty"`
	FulfillmentOptions []acp.FulfillmentOption `json:"fulfillment_options,omitempty"`
	PaymentOptions     []acp.PaymentOption     `json:"payment_options,omitempty"`

	// PaymentHandlers maps ACP payment providers to engine payment handler ids.
	// Used when the engine profile offers no match.
	PaymentHandlers map[string]string `json:"payment_handlers,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Outside production a .env file in the working directory seeds the environment.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	// If CONFIG_FILE is set, load everything from the file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// Otherwise, use ENV vars / Secret Manager approach
	cfg := &Config{
		Port:         envOrDefault("PORT", "8080"),
		Environment:  envOrDefault("ENVIRONMENT", "development"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		GCPProject:   os.Getenv("GCP_PROJECT"),
		MerchantID:   os.Getenv("MERCHANT_ID"),
		ProxyBaseURL: os.Getenv("PROXY_BASE_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	// MerchantID required in all environments
	if cfg.MerchantID == "" {
		return nil, fmt.Errorf("MERCHANT_ID environment variable required")
	}

	// Load merchant config based on environment
	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading merchant config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileConfig matches the CONFIG_FILE layout for both JSON and YAML.
type fileConfig struct {
	Port         string         `json:"port"`
	Environment  string         `json:"environment"`
	LogLevel     string         `json:"log_level"`
	MerchantID   string         `json:"merchant_id"`
	ProxyBaseURL string         `json:"proxy_base_url"`
	OTLPEndpoint string         `json:"otlp_endpoint"`
	Merchant     MerchantConfig `json:"merchant"`
}

// loadFromFile reads all configuration from a JSON or YAML file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:         withDefault(fc.Port, "8080"),
		Environment:  withDefault(fc.Environment, "development"),
		LogLevel:     withDefault(fc.LogLevel, "info"),
		MerchantID:   fc.MerchantID,
		ProxyBaseURL: fc.ProxyBaseURL,
		OTLPEndpoint: fc.OTLPEndpoint,
		Merchant:     fc.Merchant,
	}

	if cfg.MerchantID == "" {
		return nil, fmt.Errorf("merchant_id is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// yamlToJSON re-encodes a YAML document as JSON so one set of json tags
// describes both file formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches merchant config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{merchant_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.MerchantID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Merchant); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads merchant config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Merchant = MerchantConfig{
		Name:                 os.Getenv("MERCHANT_NAME"),
		SupportEmail:         os.Getenv("MERCHANT_SUPPORT_EMAIL"),
		EngineURL:            os.Getenv("ENGINE_URL"),
		EngineAPIKey:         os.Getenv("ENGINE_API_KEY"),
		EngineTLSFingerprint: os.Getenv("ENGINE_TLS_FINGERPRINT"),
		AgentProfileURL:      os.Getenv("AGENT_PROFILE_URL"),
		Currency:             os.Getenv("CURRENCY"),
	}

	jsonVars := []struct {
		name string
		dst  any
	}{
		{"FULFILLMENT_OPTIONS", &c.Merchant.FulfillmentOptions},
		{"PAYMENT_OPTIONS", &c.Merchant.PaymentOptions},
		{"PAYMENT_HANDLERS", &c.Merchant.PaymentHandlers},
	}
	for _, v := range jsonVars {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), v.dst); err != nil {
			return fmt.Errorf("parsing %s JSON: %w", v.name, err)
		}
	}

	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Merchant.EngineURL == "" {
		return fmt.Errorf("engine_url is required")
	}
	u, err := url.Parse(c.Merchant.EngineURL)
	if err != nil {
		return fmt.Errorf("invalid engine_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid engine_url %q: must be an absolute http(s) URL", c.Merchant.EngineURL)
	}

	for i, o := range c.Merchant.FulfillmentOptions {
		if o.ID == "" {
			return fmt.Errorf("fulfillment_options[%d]: id is required", i)
		}
	}
	for i, o := range c.Merchant.PaymentOptions {
		if o.Provider == "" {
			return fmt.Errorf("payment_options[%d]: provider is required", i)
		}
	}

	if c.ProxyBaseURL != "" {
		if u, err := url.Parse(c.ProxyBaseURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid proxy_base_url %q", c.ProxyBaseURL)
		}
	}

	return nil
}

// BuildCatalog creates the catalog attached to assembled sessions.
// Unset parts fall back to the stock catalog.
func (c *Config) BuildCatalog() translate.Catalog {
	catalog := translate.DefaultCatalog()
	if c.Merchant.Currency != "" {
		catalog.Currency = strings.ToUpper(c.Merchant.Currency)
	}
	if len(c.Merchant.FulfillmentOptions) > 0 {
		catalog.FulfillmentOptions = c.Merchant.FulfillmentOptions
	}
	if len(c.Merchant.PaymentOptions) > 0 {
		catalog.PaymentOptions = c.Merchant.PaymentOptions
	}
	return catalog
}

// Providers returns the distinct payment providers of the catalog, in order.
func (c *Config) Providers() []string {
	var providers []string
	seen := make(map[string]bool)
	for _, o := range c.BuildCatalog().PaymentOptions {
		if !seen[o.Provider] {
			seen[o.Provider] = true
			providers = append(providers, o.Provider)
		}
	}
	return providers
}

// AgentProfileURL returns the profile advertised to the engine in UCP-Agent.
// Defaults to the proxy's discovery document when a base URL is configured.
func (c *Config) AgentProfileURL() string {
	if c.Merchant.AgentProfileURL != "" {
		return c.Merchant.AgentProfileURL
	}
	if c.ProxyBaseURL != "" {
		return strings.TrimSuffix(c.ProxyBaseURL, "/") + "/.well-known/acp"
	}
	return ""
}

// PlatformMetadata describes what the proxy drives on the engine side:
// the UCP version and the capabilities it understands.
func PlatformMetadata() model.UCPMetadata {
	return model.UCPMetadata{
		Version:      UCPVersion,
		Capabilities: defaultCapabilities(),
	}
}

// defaultCapabilities returns the UCP capabilities this proxy translates.
// Uses registry pattern: map keyed by reverse-domain capability name.
func defaultCapabilities() map[string][]model.Capability {
	return map[string][]model.Capability{
		model.CapabilityCheckout: {
			{
				Version: UCPVersion,
				Spec:    "https://ucp.dev/specs/shopping/checkout",
				Schema:  "https://ucp.dev/schemas/shopping/checkout.json",
			},
		},
		"dev.ucp.shopping.fulfillment": {
			{
				Version: UCPVersion,
				Extends: model.NewSingleExtends(model.CapabilityCheckout),
				Spec:    "https://ucp.dev/specs/shopping/fulfillment",
				Schema:  "https://ucp.dev/schemas/shopping/fulfillment.json",
			},
		},
	}
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
