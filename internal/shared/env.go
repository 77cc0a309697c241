package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Keys recognised in the environment and in .env files, most specific first.
var (
	envClientID     = []string{"SPOTIFY_ID", "cid"}
	envClientSecret = []string{"SPOTIFY_SECRET", "secret"}
	envUser         = []string{"SPOTIFY_USER", "user"}
	envDestination  = []string{"PLBOP_DESTINATION", "pl_add"}
)

// ApplyEnv overlays credentials and targets from the process environment and the dotenv file at envFile onto config.
//
// The process environment wins over the file, and either wins over TOML values.
// A missing envFile is not an error.
func ApplyEnv(config *Config, envFile string) error {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVals = vals
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("%w: failed to read %s: %v", ErrInvalidConfig, envFile, err)
		}
	}

	lookup := func(keys []string) string {
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok && v != "" {
				return v
			}
		}
		for _, k := range keys {
			if v := fileVals[k]; v != "" {
				return v
			}
		}
		return ""
	}

	set := func(dst *string, keys []string) {
		if v := lookup(keys); v != "" {
			*dst = v
		}
	}

	set(&config.Credentials.Spotify.ClientID, envClientID)
	set(&config.Credentials.Spotify.ClientSecret, envClientSecret)
	set(&config.Spotify.User, envUser)
	set(&config.Spotify.Destination, envDestination)

	return nil
}
