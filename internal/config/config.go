// internal/config/config.go
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	// OutputDir is where composed mantra audio lands when a mantra has no
	// explicit file path of its own.
	OutputDir string

	QueuerURL string
	RedisAddr string
}

// Load reads .env (if present) and the process environment. Missing values
// fall back to development defaults; RedisAddr stays empty when unset.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		OutputDir: getEnv("MANTRA_OUTPUT_DIR", "/var/lib/mantra-fm/output"),
		QueuerURL: getEnv("QUEUER_URL", "http://localhost:9100"),
		RedisAddr: strings.TrimSpace(os.Getenv("REDIS_ADDR")),
	}
}

func getEnv(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}
