// Package cmdutil holds helpers shared by the command packages.
package cmdutil

import (
	"errors"
	"strings"

	"github.com/andrei-cloud/go_onecode/internal/app"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errNoApp = errors.New("application context is not initialized")

// App returns the application the root command attached to cmd.
func App(cmd *cobra.Command) (*app.App, error) {
	if a := app.FromContext(cmd.Context()); a != nil {
		return a, nil
	}

	return nil, errNoApp
}

// FlagArgs converts the flags the user set into plugin arguments. Flag names
// map to argument keys with dashes replaced by underscores. Flags left at
// their default are omitted so plugins fall back to configuration.
func FlagArgs(cmd *cobra.Command, names ...string) plugins.Args {
	args := plugins.Args{}
	for _, name := range names {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		args[strings.ReplaceAll(name, "-", "_")] = flagValue(f)
	}

	return args
}

func flagValue(f *pflag.Flag) any {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.GetSlice()
	}

	return f.Value.String()
}

// ParseKeyValues turns "key=value" words into plugin arguments. A key given
// more than once collects its values into a list.
func ParseKeyValues(words []string) (plugins.Args, error) {
	args := plugins.Args{}
	for _, w := range words {
		key, value, ok := strings.Cut(w, "=")
		if !ok || key == "" {
			return nil, errors.New("arguments must be key=value, got " + w)
		}

		switch prev := args[key].(type) {
		case nil:
			args[key] = value
		case string:
			args[key] = []string{prev, value}
		case []string:
			args[key] = append(prev, value)
		}
	}

	return args, nil
}
