// Package config handles the station configuration: built-in defaults, a
// JSON file (comments allowed) that is created or completed on first use,
// and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/dialect"
	"github.com/dmitrijs2005/chiplogic/internal/flagx"
)

// Config holds the runtime settings of one station.
//
// Fields:
//   - Driver: "sqlite" (default), "postgres" or "mysql".
//   - ConnectionString: DSN for the driver; for sqlite a file path.
//   - IsDatabaseCreated: set after the first successful bootstrap.
//   - Debug: log everything instead of errors only.
//   - StationNumber: identifies the station in logs.
//   - LogDir: directory of the daily log files.
//   - DefaultLoginFile: where the seeded credentials are written.
type Config struct {
	Driver            string
	ConnectionString  string
	IsDatabaseCreated bool
	Debug             bool
	StationNumber     int
	LogDir            string
	DefaultLoginFile  string

	path string
}

// LoadDefaults populates c with values suitable for a stand-alone station.
func (c *Config) LoadDefaults() {
	c.Driver = "sqlite"
	c.ConnectionString = "chiplogic.db"
	c.IsDatabaseCreated = false
	c.Debug = false
	c.StationNumber = 1
	c.LogDir = "logs"
	c.DefaultLoginFile = "defaultlogin.txt"
}

// Load builds a Config from defaults, the file named by -c/--config (created
// or completed as needed) and finally the flags in args. The result is
// validated.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.path = flagx.ConfigPath(args)

	if err := loadFile(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path is the file Save writes to.
func (c *Config) Path() string { return c.path }

// Validate rejects settings the station cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if !dialect.Supported(c.Driver) {
		problems = append(problems, fmt.Sprintf("unsupported driver %q", c.Driver))
	}
	if strings.TrimSpace(c.ConnectionString) == "" {
		problems = append(problems, "connection string is empty")
	}
	if c.StationNumber < 0 {
		problems = append(problems, "station number is negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrConfigurationInvalid, strings.Join(problems, "; "))
	}
	return nil
}
