// internal/samio/samio.go
//
// SAM/BAM plumbing over biogo/hts. Alignment emission builds spec-compliant
// records from candidate sets; the reader side feeds the variant caller.
package samio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/logannye/rosalind/internal/align"
	"github.com/logannye/rosalind/internal/pileup"
	"github.com/logannye/rosalind/internal/rerr"
)

// ContigInfo names one reference contig for the header.
type ContigInfo struct {
	Name   string
	Length int
}

// Header builds a SAM header for the given contigs.
func Header(contigs []ContigInfo, sorted bool) (*sam.Header, map[string]*sam.Reference, error) {
	refs := make([]*sam.Reference, 0, len(contigs))
	byName := make(map[string]*sam.Reference, len(contigs))
	for _, c := range contigs {
		ref, err := sam.NewReference(c.Name, "", "", c.Length, nil, nil)
		if err != nil {
			return nil, nil, err
		}
		refs = append(refs, ref)
		byName[c.Name] = ref
	}
	h, err := sam.NewHeader(nil, refs)
	if err != nil {
		return nil, nil, err
	}
	if sorted {
		h.SortOrder = sam.Coordinate
	} else {
		h.SortOrder = sam.Unsorted
	}
	return h, byName, nil
}

// Record converts an aligned read into a SAM record using its best
// candidate; reads without candidates become unmapped records.
func Record(refs map[string]*sam.Reference, al align.Aligned) (*sam.Record, error) {
	qual := al.Read.Qual
	if qual == nil {
		qual = make([]byte, len(al.Read.Seq))
		for i := range qual {
			qual[i] = 0xff
		}
	} else {
		// FASTQ qualities arrive Phred+33; records carry raw scores.
		raw := make([]byte, len(qual))
		for i, q := range qual {
			if q >= 33 {
				raw[i] = q - 33
			}
		}
		qual = raw
	}

	if len(al.Candidates) == 0 {
		rec, err := sam.NewRecord(al.Read.ID, nil, nil, -1, -1, 0, 0, nil, al.Read.Seq, qual, nil)
		if err != nil {
			return nil, err
		}
		rec.Flags |= sam.Unmapped
		return rec, nil
	}

	best := al.Candidates[0]
	ref, ok := refs[best.Contig]
	if !ok {
		return nil, fmt.Errorf("contig %q missing from header", best.Contig)
	}
	cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(al.Read.Seq))}
	rec, err := sam.NewRecord(al.Read.ID, ref, nil, best.Pos, -1, 0, al.MapQ(), cigar, al.Read.Seq, qual, nil)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordWriter abstracts the SAM and BAM writers.
type RecordWriter interface {
	Write(*sam.Record) error
	Close() error
}

type samWriter struct{ w *sam.Writer }

func (s samWriter) Write(r *sam.Record) error { return s.w.Write(r) }
func (s samWriter) Close() error              { return nil }

// NewRecordWriter opens a record writer for format "sam" or "bam".
func NewRecordWriter(w io.Writer, h *sam.Header, format string) (RecordWriter, error) {
	switch format {
	case "sam":
		sw, err := sam.NewWriter(w, h, sam.FlagDecimal)
		if err != nil {
			return nil, err
		}
		return samWriter{w: sw}, nil
	case "bam":
		bw, err := bam.NewWriter(w, h, 1)
		if err != nil {
			return nil, err
		}
		return bw, nil
	}
	return nil, fmt.Errorf("%w: unsupported alignment format %q", rerr.ErrInvalidInput, format)
}

// SortRecords orders records by (reference, position, name) for coordinate-
// sorted BAM output. Unmapped records go last.
func SortRecords(recs []*sam.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		ai, bi := refID(a), refID(b)
		if ai != bi {
			return ai < bi
		}
		if a.Pos != b.Pos {
			return a.Pos < b.Pos
		}
		return a.Name < b.Name
	})
}

func refID(r *sam.Record) int {
	if r.Ref == nil {
		return 1 << 30
	}
	return r.Ref.ID()
}

// ForEachAligned streams records from a SAM or BAM file (by extension) in
// file order, converted for the pileup. Unmapped records are skipped.
func ForEachAligned(path string, visit func(pileup.Read) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: alignments %s: %v", rerr.ErrInvalidInput, path, err)
	}
	defer f.Close()

	var read func() (*sam.Record, error)
	if strings.HasSuffix(path, ".bam") {
		br, err := bam.NewReader(f, 1)
		if err != nil {
			return fmt.Errorf("%w: alignments %s: %v", rerr.ErrInvalidInput, path, err)
		}
		defer br.Close()
		read = br.Read
	} else {
		sr, err := sam.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: alignments %s: %v", rerr.ErrInvalidInput, path, err)
		}
		read = sr.Read
	}

	record := 0
	for {
		rec, err := read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: alignments %s record %d: %v", rerr.ErrInvalidInput, path, record+1, err)
		}
		record++
		if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			continue
		}
		pr, err := toPileupRead(rec)
		if err != nil {
			return fmt.Errorf("%w: alignments %s record %d (%s): %v", rerr.ErrInvalidInput, path, record, rec.Name, err)
		}
		if err := visit(pr); err != nil {
			return err
		}
	}
}

func toPileupRead(rec *sam.Record) (pileup.Read, error) {
	ops := make([]pileup.CigarOp, 0, len(rec.Cigar))
	for _, op := range rec.Cigar {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			ops = append(ops, pileup.CigarOp{Kind: pileup.Match, Len: op.Len()})
		case sam.CigarInsertion:
			ops = append(ops, pileup.CigarOp{Kind: pileup.Ins, Len: op.Len()})
		case sam.CigarDeletion:
			ops = append(ops, pileup.CigarOp{Kind: pileup.Del, Len: op.Len()})
		case sam.CigarSkipped:
			ops = append(ops, pileup.CigarOp{Kind: pileup.RefSkip, Len: op.Len()})
		case sam.CigarSoftClipped:
			ops = append(ops, pileup.CigarOp{Kind: pileup.SoftClip, Len: op.Len()})
		case sam.CigarHardClipped, sam.CigarPadded:
			// no read or reference bases
		default:
			return pileup.Read{}, fmt.Errorf("unsupported CIGAR op %v", op.Type())
		}
	}
	return pileup.Read{
		Name:  rec.Name,
		Chrom: rec.Ref.Name(),
		Pos:   rec.Pos,
		MapQ:  rec.MapQ,
		Cigar: ops,
		Seq:   rec.Seq.Expand(),
	}, nil
}
