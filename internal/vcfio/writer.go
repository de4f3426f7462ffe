// internal/vcfio/writer.go
package vcfio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/logannye/rosalind/internal/varcall"
)

// Meta describes the reference a VCF stream was called against.
type Meta struct {
	Chrom  string
	Length int
}

// Writer emits spec-compliant VCF records in the order received.
type Writer struct {
	w           *bufio.Writer
	wroteHeader bool
	meta        Meta
}

// NewWriter wraps out.
func NewWriter(out io.Writer, meta Meta) *Writer {
	return &Writer{w: bufio.NewWriter(out), meta: meta}
}

func (w *Writer) header() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	_, err := fmt.Fprintf(w.w,
		"##fileformat=VCFv4.2\n"+
			"##source=rosalind\n"+
			"##contig=<ID=%s,length=%d>\n"+
			"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Total depth\">\n"+
			"##INFO=<ID=AF,Number=A,Type=Float,Description=\"Allele fraction\">\n"+
			"##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n"+
			"##FORMAT=<ID=GQ,Number=1,Type=Integer,Description=\"Genotype quality\">\n"+
			"##FORMAT=<ID=DP,Number=1,Type=Integer,Description=\"Read depth\">\n"+
			"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tsample\n",
		w.meta.Chrom, w.meta.Length)
	return err
}

// Write emits one variant. POS is 1-based.
func (w *Writer) Write(v varcall.Variant) error {
	if err := w.header(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.w, "%s\t%d\t.\t%s\t%s\t%.2f\tPASS\tDP=%d;AF=%.3f\tGT:GQ:DP\t%s:%d:%d\n",
		v.Chrom, v.Pos+1, v.Ref, v.Alt, v.Qual, v.Depth, v.AF, v.GT, v.GQ, v.Depth)
	return err
}

// Flush writes the header even for empty call sets and drains the buffer.
func (w *Writer) Flush() error {
	if err := w.header(); err != nil {
		return err
	}
	return w.w.Flush()
}
