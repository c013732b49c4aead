package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "zxplorer.db")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.generate_rate_per_minute", 12)

	// Renderer defaults
	v.SetDefault("renderer.backend", "stub")
	v.SetDefault("renderer.timeout_seconds", 300)

	// Generation defaults
	v.SetDefault("generation.default_steps", 20)
	v.SetDefault("generation.default_width", 1024)
	v.SetDefault("generation.default_height", 1024)
	v.SetDefault("generation.default_count", 1)
	v.SetDefault("generation.output_dir", "outputs")

	// Prompt-variable defaults
	v.SetDefault("vars.dir", "vars")
}
