// Package support implements the support tool that provisions an
// administrator account directly in the credential store.
//
// Usage:
//
//	support -n <user> [-p <password>] [-c config.json] [--dsn ...]
//
// When --pass is omitted and stdin is a terminal the password is read
// without echo.
package support

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/chiplogic/internal/app"
	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/config"
	"github.com/dmitrijs2005/chiplogic/internal/flagx"
	"github.com/dmitrijs2005/chiplogic/internal/logging"
	"github.com/dmitrijs2005/chiplogic/internal/prompt"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

type provisioner interface {
	ProvisionAdmin(ctx context.Context, userName, password string) error
	Close() error
}

// test seams
var (
	openApp = func(c *config.Config, l logging.Logger) (provisioner, error) {
		return app.NewApp(c, l)
	}
	isTerminal   = prompt.Interactive
	readPassword = func(w io.Writer) ([]byte, error) { return prompt.Password(w, "Password") }
)

type options struct {
	name string
	pass string
	help bool
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	fs := pflag.NewFlagSet("support", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVarP(&o.name, "name", "n", "", "username to add")
	fs.StringVarP(&o.pass, "pass", "p", "", "password for the new user")
	fs.BoolVarP(&o.help, "help", "h", false, "show usage")

	filtered := flagx.FilterArgs(args, []string{"-n", "--name", "-p", "--pass"}, []string{"-h", "--help"})
	if err := fs.Parse(filtered); err != nil {
		return nil, err
	}
	if o.help {
		fs.PrintDefaults()
		return o, nil
	}
	if o.name == "" {
		fs.PrintDefaults()
		return nil, errors.New("--name is required")
	}
	return o, nil
}

// Run executes the tool with args (without the program name) and returns
// the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseOptions(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsage
	}
	if o.help {
		return ExitOK
	}

	if o.pass == "" {
		if !isTerminal() {
			fmt.Fprintln(stderr, "Error: --pass is required when stdin is not a terminal")
			return ExitUsage
		}
		pw, err := readPassword(stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitError
		}
		o.pass = string(pw)
		common.WipeByteArray(pw)
	}

	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}

	logger, closeLog, err := logging.NewFileLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	defer closeLog()

	a, err := openApp(cfg, logger.With("tool", "support", "station", cfg.StationNumber))
	if err != nil {
		fmt.Fprintf(stdout, "Error adding user: %v\n", err)
		return ExitError
	}
	defer a.Close()

	if err := a.ProvisionAdmin(ctx, o.name, o.pass); err != nil {
		fmt.Fprintln(stdout, describe(err))
		return ExitError
	}

	fmt.Fprintf(stdout, "User %s added successfully.\n", o.name)
	return ExitOK
}

// describe separates database trouble from everything else.
func describe(err error) string {
	if errors.Is(err, common.ErrCredentialStoreFault) || errors.Is(err, common.ErrConnectionFailure) {
		return fmt.Sprintf("SQL error: %v", err)
	}
	return fmt.Sprintf("Error adding user: %v", err)
}
