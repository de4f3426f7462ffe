// internal/variantapp/app.go
package variantapp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"

	"github.com/logannye/rosalind/internal/cmdutil"
	"github.com/logannye/rosalind/internal/config"
	"github.com/logannye/rosalind/internal/fasta"
	"github.com/logannye/rosalind/internal/pileup"
	"github.com/logannye/rosalind/internal/refseq"
	"github.com/logannye/rosalind/internal/rerr"
	"github.com/logannye/rosalind/internal/samio"
	"github.com/logannye/rosalind/internal/space"
	"github.com/logannye/rosalind/internal/varcall"
	"github.com/logannye/rosalind/internal/variantcli"
	"github.com/logannye/rosalind/internal/vcfio"
	"github.com/logannye/rosalind/internal/version"
	"github.com/logannye/rosalind/internal/workspace"
	"github.com/logannye/rosalind/internal/writers"
	"github.com/logannye/rosalind/pkg/blockproc"
)

// RunContext executes the variants subcommand.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	fs := variantcli.NewFlagSet()
	fs.SetOutput(io.Discard)

	opts, err := variantcli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(stdout)
			fs.Usage()
			return 0
		}
		fmt.Fprintln(stderr, err)
		fs.SetOutput(stderr)
		fs.Usage()
		return 1
	}
	if opts.Version {
		fmt.Fprintf(stdout, "rosalind version %s\n", version.Version)
		return 0
	}

	log := cmdutil.NewLogger(stderr, opts.Quiet)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return cmdutil.Fail(log, err)
	}

	records, err := fasta.ReadContigs(opts.Reference)
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	// Calling runs against the first contig; reads mapped elsewhere are
	// skipped by the processor.
	contig := records[0]
	seq, err := refseq.Encode(contig.Seq)
	if err != nil {
		return cmdutil.Fail(log, fmt.Errorf("contig %s: %w", contig.ID, err))
	}

	regionStart := opts.RegionStart
	regionEnd := opts.RegionEnd
	if regionEnd == 0 {
		regionEnd = seq.Len()
	}
	if regionEnd > seq.Len() {
		regionEnd = seq.Len()
	}
	if regionStart >= regionEnd {
		return cmdutil.Fail(log, rerr.Invalidf("region [%d,%d) is empty for contig %s of length %d",
			regionStart, regionEnd, contig.ID, seq.Len()))
	}

	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = cfg.VariantBlock
	}
	if blockSize == 0 {
		blockSize = int(math.Ceil(math.Sqrt(float64(regionEnd - regionStart))))
	}
	if blockSize < 1 {
		blockSize = 1
	}

	// Workspace: the pileup window for one variant block is the dynamic
	// working set and is reserved up front. The pool holds at least 4·b_v
	// cells, so the pileup region fits one block under the default shares;
	// a share table giving pileup less than a quarter of the pool can make
	// this fail with WorkspaceExhausted at startup.
	acct := space.New()
	wsCap := workspace.Capacity(regionEnd-regionStart, cfg.PoolFactor)
	pool, err := workspace.New(maxInt(wsCap, blockSize*4), cfg.PoolShares, acct)
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	_, releasePileup, err := pool.Acquire("pileup", blockSize)
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	defer releasePileup()

	out, err := writers.OpenOutput(stdout, opts.Output)
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	sink, writeErr := writers.StartVCFWriter(out.W, vcfio.Meta{Chrom: contig.ID, Length: seq.Len()}, 64)

	type readItem struct {
		read pileup.Read
		err  error
	}
	feed := make(chan readItem, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(feed)
		err := samio.ForEachAligned(opts.Alignments, func(r pileup.Read) error {
			select {
			case feed <- readItem{read: r}:
				return nil
			case <-done:
				return context.Canceled
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			select {
			case feed <- readItem{err: err}:
			case <-done:
			}
		}
	}()

	proc := &varcall.Processor{
		Cfg: varcall.Config{
			Chrom:       contig.ID,
			Ref:         seq,
			RegionStart: regionStart,
			RegionEnd:   regionEnd,
			BlockSize:   blockSize,
			MinQuality:  opts.MinQuality,
			MinDepth:    opts.MinDepth,
			Prior:       opts.Prior,
			MinMapQ:     opts.MapQThreshold,
		},
		Next: func() (pileup.Read, bool, error) {
			item, ok := <-feed
			if !ok {
				return pileup.Read{}, false, nil
			}
			if item.err != nil {
				return pileup.Read{}, false, item.err
			}
			return item.read, true, nil
		},
		Emit: func(v varcall.Variant) error {
			if parent.Err() != nil {
				return parent.Err()
			}
			sink <- v
			return nil
		},
	}

	summary, err := blockproc.Execute[varcall.Boundary, varcall.Summary](proc, blockproc.Options[varcall.Boundary]{
		Blocks:        proc.Blocks(),
		BoundaryCells: blockSize,
		Acct:          acct,
		Hash:          varcall.HashBoundary,
	})
	close(sink)
	werr := <-writeErr
	if err != nil {
		out.Abort()
		return cmdutil.Fail(log, err)
	}
	if writers.IsBrokenPipe(werr) {
		out.Abort()
		return 0
	}
	if werr != nil {
		out.Abort()
		return cmdutil.Fail(log, werr)
	}
	if err := out.Commit(); err != nil {
		return cmdutil.Fail(log, err)
	}

	log.WithField("columns", summary.Columns).
		WithField("variants", summary.Variants).
		WithField("peak_cells", acct.Peak()).
		Info("variant calling complete")
	return 0
}

// Run executes variants with a background context.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
