package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
)

// EnvCommand returns the command reporting environment configuration.
func EnvCommand() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Check environment variables the router and backend read",
		Action: func(c *cli.Context) error {
			result := CheckEnv()
			PrintEnvCheck(result)
			if len(result.Missing) > 0 {
				return fmt.Errorf("missing required environment variables")
			}
			return nil
		},
	}
}

// EnvCheckResult holds the result of environment validation
type EnvCheckResult struct {
	Missing  []string          // Required variables that are missing
	Present  map[string]string // Variables that are set (secrets masked)
	Warnings []string          // Non-fatal warnings
}

// CheckEnv inspects the NORTHROUTE_* variables (plus the bare
// OPENAI_API_KEY) and reports what is set, what is missing, and what the
// consequences of absent optional settings are.
func CheckEnv() *EnvCheckResult {
	result := &EnvCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	// The model key is optional: without it classification runs on the
	// keyword heuristic and replies come from the canned fallbacks.
	haveKey := false
	for _, v := range []string{"NORTHROUTE_OPENAI_API_KEY", "OPENAI_API_KEY"} {
		if val := os.Getenv(v); val != "" {
			result.Present[v] = maskSecret(val)
			haveKey = true
		}
	}
	if !haveKey {
		result.Warnings = append(result.Warnings,
			"no OpenAI API key set; classification and replies use heuristics and canned fallbacks")
	}

	optionalVars := []string{
		"NORTHROUTE_BACKEND_BASE_URL",
		"NORTHROUTE_BACKEND_TIMEOUT_SECONDS",
		"NORTHROUTE_BACKEND_MAX_RETRIES",
		"NORTHROUTE_STORAGE_DRIVER",
		"NORTHROUTE_STORAGE_PATH",
		"NORTHROUTE_ROUTER_FALLBACK_LOCATION",
		"NORTHROUTE_ROUTER_RESOLVER_CONTEXT_MESSAGES",
		"NORTHROUTE_SERVER_PORT",
		"NORTHROUTE_SERVER_RATE_LIMIT_RPS",
		"NORTHROUTE_OPENAI_MODEL",
		"NORTHROUTE_OPENAI_LOCATION_MODEL",
		"NORTHROUTE_OPENAI_BASE_URL",
		"NORTHROUTE_LOGGING_LEVEL",
		"NORTHROUTE_LOGGING_TRACE_FILE",
	}
	for _, v := range optionalVars {
		if val := os.Getenv(v); val != "" {
			result.Present[v] = val
		}
	}

	// The DSN is a secret and required once the driver is postgres.
	if dsn := os.Getenv("NORTHROUTE_STORAGE_POSTGRES_DSN"); dsn != "" {
		result.Present["NORTHROUTE_STORAGE_POSTGRES_DSN"] = maskSecret(dsn)
	} else if os.Getenv("NORTHROUTE_STORAGE_DRIVER") == "postgres" {
		result.Missing = append(result.Missing, "NORTHROUTE_STORAGE_POSTGRES_DSN")
	}

	return result
}

// PrintEnvCheck prints the environment check results
func PrintEnvCheck(result *EnvCheckResult) {
	fmt.Println("=== Environment Check ===")
	fmt.Println("")

	if len(result.Missing) > 0 {
		fmt.Println("❌ Missing required variables:")
		for _, v := range result.Missing {
			fmt.Printf("   - %s\n", v)
		}
		fmt.Println("")
	}

	if len(result.Present) > 0 {
		fmt.Println("✓ Configured variables:")
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("   - %s = %s\n", k, result.Present[k])
		}
		fmt.Println("")
	}

	for _, w := range result.Warnings {
		fmt.Printf("⚠ Warning: %s\n", w)
	}

	if len(result.Missing) == 0 {
		fmt.Println("✓ All required configuration is present")
	}

	fmt.Println("=========================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads environment variables from a file, overwriting existing ones.
func LoadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

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

		// Remove quotes if present
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		// Overwrite environment variable
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return nil
}
