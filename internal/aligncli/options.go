// internal/aligncli/options.go
package aligncli

import (
	"errors"
	"flag"
	"fmt"

	"github.com/logannye/rosalind/internal/cli"
)

// Options holds all flags for the align subcommand.
type Options struct {
	Reference string
	Reads     string
	Format    string
	Output    string

	MaxMismatches   int
	ReferenceOffset int
	BlockSize       int // reads per evaluator block; 0 = √(total reads)

	Config string
	Quiet  bool

	Version bool
}

// NewFlagSet returns the align flag set.
func NewFlagSet() *flag.FlagSet {
	return cli.NewFlagSet("rosalind align", "FM-index read alignment in O(√t) working memory")
}

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.StringVar(&opt.Reference, "reference", "", "reference FASTA [*]")
	fs.StringVar(&opt.Reads, "reads", "", "reads: FASTQ or one read per line [*]")
	fs.StringVar(&opt.Format, "format", "sam", "output format: sam | bam [sam]")
	fs.StringVar(&opt.Output, "output", "", "output path (default stdout)")

	fs.IntVar(&opt.MaxMismatches, "max-mismatches", 0, "max mismatches per read [0]")
	fs.IntVar(&opt.ReferenceOffset, "reference-offset", 0, "shift reported positions by N bases [0]")
	fs.IntVar(&opt.BlockSize, "block-size", 0, "reads per block (0 = √reads) [0]")

	fs.StringVar(&opt.Config, "config", "", "engine tuning YAML")
	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress progress logging [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}

	// Validation
	if opt.Reference == "" {
		return opt, errors.New("--reference is required")
	}
	if opt.Reads == "" {
		return opt, errors.New("--reads is required")
	}
	if opt.Format != "sam" && opt.Format != "bam" {
		return opt, fmt.Errorf("invalid --format %q", opt.Format)
	}
	if opt.MaxMismatches < 0 {
		return opt, errors.New("--max-mismatches must be ≥ 0")
	}
	if opt.ReferenceOffset < 0 {
		return opt, errors.New("--reference-offset must be ≥ 0")
	}
	if opt.BlockSize < 0 {
		return opt, errors.New("--block-size must be ≥ 0")
	}
	return opt, nil
}
