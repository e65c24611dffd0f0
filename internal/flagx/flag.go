// Package flagx lets several components parse their own command-line flags
// from one argument list without tripping over each other's flags.
package flagx

import (
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// DefaultConfigFile is used when neither -c nor --config is given.
const DefaultConfigFile = "config.json"

// FilterArgs keeps the arguments that belong to the listed flags.
//
// valueFlags take a value, either inline ("--dsn=x", "-c=x") or as the next
// argument, which is consumed even when it starts with "-" as pflag does
// for string flags. boolFlags never consume the next argument; an inline
// "--debug=false" is kept as is.
// Flag names are given with their dashes, e.g. "-c", "--config".
func FilterArgs(args, valueFlags, boolFlags []string) []string {
	kind := make(map[string]bool, len(valueFlags)+len(boolFlags))
	for _, f := range valueFlags {
		kind[f] = true
	}
	for _, f := range boolFlags {
		kind[f] = false
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, inline := strings.Cut(arg, "=")
		takesValue, ok := kind[name]
		if !ok {
			continue
		}

		out = append(out, arg)
		if takesValue && !inline && i+1 < len(args) {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath returns the value of -c/--config in args, or
// DefaultConfigFile. The last occurrence wins.
func ConfigPath(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	path := fs.StringP("config", "c", DefaultConfigFile, "path to config file")
	if err := fs.Parse(FilterArgs(args, []string{"-c", "--config"}, nil)); err != nil || *path == "" {
		return DefaultConfigFile
	}
	return *path
}
