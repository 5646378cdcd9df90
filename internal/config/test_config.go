package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "http://127.0.0.1",
			Timeout:      2 * time.Second,
			UserAgent:    "quip-test/1.0",
			RateInterval: 0, // No throttling in tests
			RateBurst:    1,
			AllowLocal:   true,
		},
		Jokes: JokesConfig{
			BatchSize:      2,
			MaxPerCategory: 6,
			RefreshFloor:   1 * time.Second,
			MaxConcurrent:  4,
		},
		Log:  LogConfig{Level: "off"},
		UI:   defaultConfig().UI,
		Keys: defaultConfig().Keys,
	}
}
