// internal/cli/cli.go
package cli

import (
	"flag"
	"fmt"

	"github.com/logannye/rosalind/internal/version"
)

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name, oneLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: %s

Version: %s

Usage of %s:
`, name, oneLine, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}
