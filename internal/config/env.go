package config

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; earlier files win because godotenv never
// overwrites variables that are already set.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the dotenv files that exist and returns their names.
func loadEnvFiles(paths ...string) ([]string, error) {
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		loaded = append(loaded, p)
	}
	if len(loaded) > 0 {
		slog.Debug("Loaded environment files", "files", loaded)
	}
	return loaded, nil
}
