// internal/writers/writers.go
//
// Writer goroutines: each Start* spins up a goroutine consuming items from a
// channel and returns the channel plus a one-shot error channel. Emission
// happens at the evaluator's output seam, never inside block evaluation.
package writers

import (
	"io"

	"github.com/biogo/hts/sam"

	"github.com/logannye/rosalind/internal/align"
	"github.com/logannye/rosalind/internal/samio"
	"github.com/logannye/rosalind/internal/varcall"
	"github.com/logannye/rosalind/internal/vcfio"
)

// StartAlignmentWriter writes aligned reads as SAM (streamed in input order)
// or BAM (collected and coordinate-sorted).
func StartAlignmentWriter(out io.Writer, format string, contigs []samio.ContigInfo, bufSize int) (chan<- align.Aligned, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan align.Aligned, bufSize)
	errCh := make(chan error, 1)

	go func() {
		errCh <- writeAlignments(out, format, contigs, in)
	}()
	return in, errCh
}

func writeAlignments(out io.Writer, format string, contigs []samio.ContigInfo, in <-chan align.Aligned) error {
	header, refs, err := samio.Header(contigs, format == "bam")
	if err != nil {
		drain(in)
		return err
	}

	switch format {
	case "bam":
		// BAM output is coordinate-sorted; records buffer outside the
		// evaluator's accounted working set.
		var recs []*sam.Record
		for al := range in {
			rec, err := samio.Record(refs, al)
			if err != nil {
				drain(in)
				return err
			}
			recs = append(recs, rec)
		}
		samio.SortRecords(recs)
		w, err := samio.NewRecordWriter(out, header, format)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := w.Write(rec); err != nil {
				_ = w.Close()
				return err
			}
		}
		return w.Close()

	default: // sam
		w, err := samio.NewRecordWriter(out, header, format)
		if err != nil {
			drain(in)
			return err
		}
		for al := range in {
			rec, err := samio.Record(refs, al)
			if err != nil {
				drain(in)
				return err
			}
			if err := w.Write(rec); err != nil {
				drain(in)
				return err
			}
		}
		return w.Close()
	}
}

// StartVCFWriter writes variants in the order received.
func StartVCFWriter(out io.Writer, meta vcfio.Meta, bufSize int) (chan<- varcall.Variant, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan varcall.Variant, bufSize)
	errCh := make(chan error, 1)

	go func() {
		w := vcfio.NewWriter(out, meta)
		for v := range in {
			if err := w.Write(v); err != nil {
				drainVariants(in)
				errCh <- err
				return
			}
		}
		errCh <- w.Flush()
	}()
	return in, errCh
}

func drain(in <-chan align.Aligned) {
	for range in {
	}
}

func drainVariants(in <-chan varcall.Variant) {
	for range in {
	}
}
