package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// LoadEnv reads a .env file and returns a map of key-value pairs.
// It ignores comments (starting with #) and empty lines.
func LoadEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove inline comments
		if idx := strings.Index(value, " #"); idx != -1 {
			value = strings.TrimSpace(value[:idx])
		}

		// Remove quotes if present
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		env[key] = value
	}

	return env, scanner.Err()
}

// ApplyEnvOverrides updates the configuration based on environment variables.
func ApplyEnvOverrides(cfg *Config, env map[string]string) {
	// API
	if val, ok := env["API_KEY"]; ok {
		cfg.API.Key = val
	}
	if val, ok := env["API_BASE_URL"]; ok {
		cfg.API.BaseURL = val
	}
	if val, ok := env["MODEL_NAME"]; ok {
		cfg.API.Model = val
	}

	// Server
	if val, ok := env["SERVER_PORT"]; ok {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}

	// Results
	if val, ok := env["RESULTS_DIR"]; ok {
		cfg.Results.Dir = val
	}
	if val, ok := env["DATA_DIR"]; ok {
		cfg.Results.DataDir = val
	}

	// Defaults
	if val, ok := env["DEFAULT_STRATEGY"]; ok {
		cfg.Defaults.Strategy = val
	}
	if val, ok := env["DEFAULT_BENCHMARK"]; ok {
		cfg.Defaults.Benchmark = val
	}
	if val, ok := env["PACING_SECONDS"]; ok {
		if pacing, err := strconv.ParseFloat(val, 64); err == nil && pacing >= 0 {
			cfg.Defaults.PacingSeconds = pacing
		}
	}
}
