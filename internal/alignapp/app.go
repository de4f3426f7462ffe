// internal/alignapp/app.go
package alignapp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/logannye/rosalind/internal/align"
	"github.com/logannye/rosalind/internal/aligncli"
	"github.com/logannye/rosalind/internal/cmdutil"
	"github.com/logannye/rosalind/internal/config"
	"github.com/logannye/rosalind/internal/fasta"
	"github.com/logannye/rosalind/internal/fastq"
	"github.com/logannye/rosalind/internal/fmindex"
	"github.com/logannye/rosalind/internal/refseq"
	"github.com/logannye/rosalind/internal/samio"
	"github.com/logannye/rosalind/internal/space"
	"github.com/logannye/rosalind/internal/version"
	"github.com/logannye/rosalind/internal/workspace"
	"github.com/logannye/rosalind/internal/writers"
	"github.com/logannye/rosalind/pkg/blockproc"
)

// RunContext executes the align subcommand.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	fs := aligncli.NewFlagSet()
	fs.SetOutput(io.Discard)

	opts, err := aligncli.ParseArgs(fs, argv)
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

	// Reference: whole contigs, 2-bit encoded, FM-indexed. Index builds are
	// independent per contig and may run concurrently; evaluation below
	// stays single-threaded.
	records, err := fasta.ReadContigs(opts.Reference)
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	contigs := make([]align.IndexedContig, len(records))
	totalBases := 0
	{
		buildErrs := make([]error, len(records))
		pool, perr := ants.NewPool(runtime.NumCPU())
		if perr != nil {
			return cmdutil.Fail(log, perr)
		}
		var wg sync.WaitGroup
		for i, rec := range records {
			i, rec := i, rec
			totalBases += len(rec.Seq)
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				seq, err := refseq.Encode(rec.Seq)
				if err != nil {
					buildErrs[i] = fmt.Errorf("contig %s: %w", rec.ID, err)
					return
				}
				idx, err := fmindex.Build(seq, cfg.FMBlockSize, cfg.SASampleRate)
				if err != nil {
					buildErrs[i] = fmt.Errorf("contig %s: %w", rec.ID, err)
					return
				}
				contigs[i] = align.IndexedContig{Name: rec.ID, Len: seq.Len(), Index: idx}
			}); err != nil {
				wg.Done()
				buildErrs[i] = err
			}
		}
		wg.Wait()
		pool.Release()
		for _, err := range buildErrs {
			if err != nil {
				return cmdutil.Fail(log, err)
			}
		}
	}

	// First pass sizes the evaluator: T = ⌈reads / batch⌉ with batch ≈ √reads.
	readCount, err := fastq.Count(opts.Reads)
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	batch := opts.BlockSize
	if batch == 0 {
		batch = cfg.ReadBatch
	}
	if batch == 0 {
		batch = int(math.Ceil(math.Sqrt(float64(readCount))))
	}
	if batch < 1 {
		batch = 1
	}
	blocks := (readCount + batch - 1) / batch
	if blocks < 1 {
		blocks = 1
	}

	// Workspace: the read buffer slice bounds single-read size; acquiring
	// it through the pool is what makes InputTooLarge enforceable.
	acct := space.New()
	wsCap := workspace.Capacity(maxInt(totalBases, readCount), cfg.PoolFactor)
	pool, err := workspace.New(maxInt(wsCap, cfg.MaxReadLength*2+batch), cfg.PoolShares, acct)
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	readBuf, releaseReadBuf, err := pool.Acquire("reads", minInt(cfg.MaxReadLength, pool.RegionSize("reads")))
	if err != nil {
		return cmdutil.Fail(log, err)
	}
	defer releaseReadBuf()

	aligner := align.New(align.Config{
		MaxMismatches: opts.MaxMismatches,
		CandidateCap:  cfg.CandidateCap,
		MinReadLength: cfg.MinReadLength,
		MaxReadLength: len(readBuf),
	}, contigs)

	out, err := writers.OpenOutput(stdout, opts.Output)
	if err != nil {
		return cmdutil.Fail(log, err)
	}

	headerContigs := make([]samio.ContigInfo, len(contigs))
	for i, c := range contigs {
		headerContigs[i] = samio.ContigInfo{Name: c.Name, Length: c.Len + opts.ReferenceOffset}
	}
	sink, writeErr := writers.StartAlignmentWriter(out.W, opts.Format, headerContigs, batch)

	// Second pass streams reads into the evaluator.
	type readItem struct {
		read fastq.Read
		err  error
	}
	feed := make(chan readItem, batch)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(feed)
		err := fastq.ForEach(opts.Reads, func(r fastq.Read) error {
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

	proc := &align.Processor{
		Aligner:   aligner,
		BatchSize: batch,
		Next: func() (fastq.Read, bool, error) {
			item, ok := <-feed
			if !ok {
				return fastq.Read{}, false, nil
			}
			if item.err != nil {
				return fastq.Read{}, false, item.err
			}
			return item.read, true, nil
		},
		Emit: func(al align.Aligned) error {
			if parent.Err() != nil {
				return parent.Err()
			}
			if opts.ReferenceOffset != 0 {
				shifted := make([]align.Candidate, len(al.Candidates))
				for i, c := range al.Candidates {
					c.Pos += opts.ReferenceOffset
					shifted[i] = c
				}
				al.Candidates = shifted
			}
			sink <- al
			return nil
		},
	}

	summary, err := blockproc.Execute[align.Boundary, align.Summary](proc, blockproc.Options[align.Boundary]{
		Blocks:        blocks,
		BoundaryCells: batch,
		Acct:          acct,
		Hash:          align.HashBoundary,
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

	log.WithField("reads", summary.Reads).
		WithField("placed", summary.Placed).
		WithField("peak_cells", acct.Peak()).
		Info("alignment complete")
	return 0
}

// Run executes align with a background context.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
