package cli

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/graphsink/graphsink/pkg/errors"
)

// fileConfig holds connection defaults loadable from a TOML file, so that
// credentials do not have to travel on the command line. Flags set
// explicitly on the command line win over file values.
type fileConfig struct {
	URI      string `toml:"uri"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	Backend  string `toml:"backend"`
}

// loadConfig decodes a TOML config file. A missing file is an error; the
// flag is explicit, so silence would hide a typo in the path.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	return cfg, nil
}

// apply fills unset option fields from the file config.
func (c fileConfig) apply(o *pushOpts) {
	if o.uri == "" {
		o.uri = c.URI
	}
	if o.username == "" {
		o.username = c.Username
	}
	if o.password == "" {
		o.password = c.Password
	}
	if o.database == "" {
		o.database = c.Database
	}
	if c.Backend != "" && !o.backendSet {
		o.backend = c.Backend
	}
}
