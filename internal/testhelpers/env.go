package testhelpers

import (
	"log/slog"
	"os"
	"path"

	"github.com/joho/godotenv"
)

// EnvCollector is a collector that live replay tests send to, host:port.
const EnvCollector = "RAWDUMP_TEST_COLLECTOR"

type TestEnv struct {
	Collector string
	LiveTests bool
}

// LoadEnv loads the .env file in dir (or the current directory, if dir is empty) and
// checks if live tests can run.
func LoadEnv(dir string) TestEnv {
	var envs []string

	if dir != "" {
		envs = []string{path.Join(dir, ".env")}
	}

	if err := godotenv.Load(envs...); err != nil {
		slog.Warn("No .env file - live tests will not run")
		return TestEnv{LiveTests: false}
	}

	te := TestEnv{Collector: os.Getenv(EnvCollector)}

	if te.Collector == "" {
		slog.Error(EnvCollector + " must be defined in the environment")
		return TestEnv{LiveTests: false}
	}

	te.LiveTests = true
	return te
}
