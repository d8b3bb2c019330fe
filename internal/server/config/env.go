package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/vidtube/internal/flagx"
	"github.com/dmitrijs2005/vidtube/internal/timex"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv loads an optional dotenv file and then overlays variables from the
// process environment onto config. Variables that are not set leave the
// corresponding field untouched. Values already present in the process
// environment win over the dotenv file.
//
// The dotenv path comes from the -env flag; without it ".env" in the working
// directory is tried and silently skipped when absent.
func parseEnv(config *Config) error {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return timex.ParseDuration(v)
			},
		},
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
