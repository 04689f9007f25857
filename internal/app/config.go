package app

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPAddr string

	CORSAllow []string

	ExecURL     string // Piston-compatible execute endpoint
	ExecTimeout time.Duration

	// Per-connection inbound event budget
	WSEventsPerSec float64
	WSEventBurst   int
}

func LoadConfig() Config {
	cfg := Config{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		ExecURL:  getEnv("EXEC_URL", "https://emkc.org/api/v2/piston/execute"),
	}
	cfg.ExecTimeout = time.Duration(getEnvInt("EXEC_TIMEOUT_SEC", 30)) * time.Second
	cfg.WSEventsPerSec = float64(getEnvInt("WS_EVENTS_PER_SEC", 50))
	cfg.WSEventBurst = getEnvInt("WS_EVENT_BURST", 100)

	// The socket protocol is origin-open, default the HTTP layer to match
	cfg.CORSAllow = splitCSV(getEnv("CORS_ALLOW", "*"))
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
