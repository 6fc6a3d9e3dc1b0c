// Package config loads application configuration from environment variables,
// optional .env files and YAML files into plain Go structs.
//
// It wraps `github.com/joho/godotenv`, `github.com/caarlos0/env/v11` and
// `gopkg.in/yaml.v3`:
//
//   - LoadEnv / MustLoadEnv read one or more `.env` files into the process
//     environment (the default `.env` is picked up lazily by Load).
//   - Load / MustLoad parse the environment into a struct annotated with
//     `env` tags and cache the result per type.
//   - LoadFile reads a YAML file into a struct annotated with `yaml` tags.
//   - ResetCache and ForceReload exist for tests.
//
// # Usage
//
//	type Settings struct {
//	    Clusters map[string]string `yaml:"-" env:"SEARCH_CLUSTERS" envSeparator:";" envKeyValSeparator:"="`
//	}
//
//	var s Settings
//	if err := config.Load(&s); err != nil {
//	    log.Fatalf("parsing env: %v", err)
//	}
//
//	var fromFile Settings
//	if err := config.LoadFile("search.yaml", &fromFile); err != nil {
//	    log.Fatalf("reading config: %v", err)
//	}
//
// # Error Handling
//
// Errors are joined with package sentinels and can be checked with errors.Is:
// ErrParsingConfig, ErrReadingFile, ErrParsingFile, ErrLoadingEnvFile,
// ErrConfigNotLoaded and ErrNilPointer.
package config
