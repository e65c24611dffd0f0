package config

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/flagx"
	"github.com/spf13/pflag"
)

var (
	valueFlags = []string{"-d", "--driver", "--dsn", "--station", "--log-dir", "--default-login-file"}
	boolFlags  = []string{"--debug"}
)

// parseFlags overrides Config fields from args.
//
// Supported flags:
//
//	-d, --driver string           sqlite, postgres or mysql
//	    --dsn string              connection string
//	    --debug                   log at debug level
//	    --station int             station number
//	    --log-dir string          directory for daily log files
//	    --default-login-file str  where seeded credentials are written
//
// Other arguments are ignored so callers can mix in their own flags.
func parseFlags(c *Config, args []string) error {
	fs := pflag.NewFlagSet("station", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVarP(&c.Driver, "driver", "d", c.Driver, "database driver")
	fs.StringVar(&c.ConnectionString, "dsn", c.ConnectionString, "connection string")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "debug logging")
	fs.IntVar(&c.StationNumber, "station", c.StationNumber, "station number")
	fs.StringVar(&c.LogDir, "log-dir", c.LogDir, "log directory")
	fs.StringVar(&c.DefaultLoginFile, "default-login-file", c.DefaultLoginFile, "seeded credentials file")

	if err := fs.Parse(flagx.FilterArgs(args, valueFlags, boolFlags)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrConfigurationInvalid, err)
	}
	return nil
}
