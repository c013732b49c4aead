package config

// Config represents the core zxplorer configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Renderer   RendererConfig   `mapstructure:"renderer"`
	Generation GenerationConfig `mapstructure:"generation"`
	Vars       VarsConfig       `mapstructure:"vars"`
}

// DatabaseConfig configures the SQLite run-history database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the zxplorer web server
type ServerConfig struct {
	Port           *int     `mapstructure:"port"` // nil = default, 0 is invalid (omit for default)
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// GenerateRatePerMinute caps POST /api/generate requests per client
	GenerateRatePerMinute int `mapstructure:"generate_rate_per_minute"`
}

// DefaultServerPort is above the privileged range and easy to type
const DefaultServerPort = 8787

// RendererConfig selects and configures the image-generation backend
type RendererConfig struct {
	Backend        string `mapstructure:"backend"`         // "stub" or "external"
	Endpoint       string `mapstructure:"endpoint"`        // external backend URL
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // per-image render timeout
}

// GenerationConfig holds per-request generation defaults
type GenerationConfig struct {
	DefaultSteps  int    `mapstructure:"default_steps"`
	DefaultWidth  int    `mapstructure:"default_width"`
	DefaultHeight int    `mapstructure:"default_height"`
	DefaultCount  int    `mapstructure:"default_count"`
	OutputDir     string `mapstructure:"output_dir"`
}

// VarsConfig configures the prompt-variable store
type VarsConfig struct {
	Dir string `mapstructure:"dir"` // directory of per-variable TOML files
}

// PortOrDefault returns the configured server port or the default
func (c *ServerConfig) PortOrDefault() int {
	if c.Port == nil || *c.Port <= 0 {
		return DefaultServerPort
	}
	return *c.Port
}
