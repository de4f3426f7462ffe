// internal/variantcli/options.go
package variantcli

import (
	"errors"
	"flag"

	"github.com/logannye/rosalind/internal/cli"
)

// Options holds all flags for the variants subcommand.
type Options struct {
	Reference  string
	Alignments string
	Output     string

	MapQThreshold int
	RegionStart   int
	RegionEnd     int // 0 = reference length
	MinQuality    float64
	MinDepth      int
	Prior         float64
	BlockSize     int // b_v; 0 = √(region length)

	Config string
	Quiet  bool

	Version bool
}

// NewFlagSet returns the variants flag set.
func NewFlagSet() *flag.FlagSet {
	return cli.NewFlagSet("rosalind variants", "streaming Bayesian variant calling in O(√t) working memory")
}

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.StringVar(&opt.Reference, "reference", "", "reference FASTA [*]")
	fs.StringVar(&opt.Alignments, "alignments", "", "coordinate-sorted SAM/BAM input [*]")
	fs.StringVar(&opt.Output, "output", "", "output VCF path (default stdout)")

	fs.IntVar(&opt.MapQThreshold, "mapq-threshold", 0, "skip reads below this mapping quality [0]")
	fs.IntVar(&opt.RegionStart, "region-start", 0, "region start, 0-based [0]")
	fs.IntVar(&opt.RegionEnd, "region-end", 0, "region end, exclusive (0 = reference length) [0]")
	fs.Float64Var(&opt.MinQuality, "min-quality", 10, "minimum emitted variant quality [10]")
	fs.IntVar(&opt.MinDepth, "min-depth", 5, "minimum column depth for scoring [5]")
	fs.Float64Var(&opt.Prior, "prior", 1e-6, "flat prior for variant genotypes [1e-6]")
	fs.IntVar(&opt.BlockSize, "block-size", 0, "bases per variant block (0 = √region) [0]")

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
	if opt.Alignments == "" {
		return opt, errors.New("--alignments is required")
	}
	if opt.MapQThreshold < 0 || opt.MapQThreshold > 255 {
		return opt, errors.New("--mapq-threshold must be in [0,255]")
	}
	if opt.RegionStart < 0 {
		return opt, errors.New("--region-start must be ≥ 0")
	}
	if opt.RegionEnd < 0 || (opt.RegionEnd > 0 && opt.RegionEnd <= opt.RegionStart) {
		return opt, errors.New("--region-end must be 0 or > --region-start")
	}
	if opt.MinQuality < 0 {
		return opt, errors.New("--min-quality must be ≥ 0")
	}
	if opt.MinDepth < 1 {
		return opt, errors.New("--min-depth must be ≥ 1")
	}
	if opt.Prior <= 0 || opt.Prior >= 0.5 {
		return opt, errors.New("--prior must be in (0, 0.5)")
	}
	if opt.BlockSize < 0 {
		return opt, errors.New("--block-size must be ≥ 0")
	}
	return opt, nil
}
