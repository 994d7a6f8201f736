package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvGoogleAPIKey = "GOOGLE_AI_API_KEY"
	EnvJobAPIKey    = "IMAGE_JOB_API_KEY"
)

// Credentials are the provider API keys. They never touch the config file.
type Credentials struct {
	GoogleAPIKey string
	JobAPIKey    string
}

// LoadCredentials reads the provider keys from the environment after loading
// any of envFiles that exist. Variables already set in the process take
// precedence over the files.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Credentials{}, fmt.Errorf("loading env files: %w", err)
		}
	}
	return Credentials{
		GoogleAPIKey: os.Getenv(EnvGoogleAPIKey),
		JobAPIKey:    os.Getenv(EnvJobAPIKey),
	}, nil
}
