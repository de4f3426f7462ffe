// internal/varcall/varcall.go
//
// Streaming variant calling over pileup columns: a biallelic Bayesian
// genotype model for SNVs plus threshold-based indel emission. Variants come
// out strictly ordered by (position, SNV<INS<DEL, alt allele).
package varcall

import (
	"fmt"
	"math"
	"sort"

	"github.com/logannye/rosalind/internal/pileup"
	"github.com/logannye/rosalind/internal/refseq"
)

// Class orders co-located variants: SNV before insertion before deletion.
type Class int

const (
	ClassSNV Class = iota
	ClassIns
	ClassDel
)

// Variant is one call.
type Variant struct {
	Chrom string
	Pos   int // 0-based anchor position
	Ref   string
	Alt   string
	Class Class
	Qual  float64
	Depth int
	AF    float64
	GT    string
	GQ    int
}

// Config parameterizes one calling run.
type Config struct {
	Chrom       string
	Ref         *refseq.Sequence
	RegionStart int
	RegionEnd   int
	BlockSize   int // b_v
	MinQuality  float64
	MinDepth    int
	Prior       float64
	MinMapQ     int
}

const (
	log10Third = -0.47712125471966244 // log10(1/3)
	maxQual    = 9999.99
	maxGQ      = 99

	// Indel emission thresholds: a dominant allele needs at least this
	// fraction of the column depth and this many reads.
	indelMinFraction = 0.20
	indelMinSupport  = 3
)

// CallColumn scores one pileup column and returns its variants in emission
// order. Columns on ambiguous reference positions yield nothing.
func CallColumn(cfg Config, c *pileup.Column) []Variant {
	if c.Pos >= cfg.Ref.Len() {
		return nil
	}
	refCode, ambiguous := cfg.Ref.Code(c.Pos)
	if ambiguous {
		return nil
	}
	var out []Variant
	if v, ok := callSNV(cfg, c, refCode); ok {
		out = append(out, v)
	}
	if v, ok := callInsertion(cfg, c, refCode); ok {
		out = append(out, v)
	}
	if v, ok := callDeletion(cfg, c, refCode); ok {
		out = append(out, v)
	}
	return out
}

func callSNV(cfg Config, c *pileup.Column, refCode uint8) (Variant, bool) {
	if c.Depth < cfg.MinDepth {
		return Variant{}, false
	}
	// Candidate alt: the most supported non-reference symbol, lowest code
	// on ties.
	alt := -1
	for sym := 0; sym < 4; sym++ {
		if uint8(sym) == refCode {
			continue
		}
		if c.Counts[sym] > 0 && (alt < 0 || c.Counts[sym] > c.Counts[alt]) {
			alt = sym
		}
	}
	if alt < 0 {
		return Variant{}, false
	}

	// log10 P(D|g) for g ∈ {RR, RA, AA}; observations off both alleles are
	// errors with probability ε/3.
	othersErr := func(exclude ...uint8) float64 {
		sum := 0.0
		for sym := uint8(0); sym < 4; sym++ {
			skip := false
			for _, e := range exclude {
				if sym == e {
					skip = true
				}
			}
			if skip {
				continue
			}
			sum += c.LogErr[sym] + float64(c.Counts[sym])*log10Third
		}
		return sum
	}
	lRR := c.LogMatch[refCode] + othersErr(refCode)
	lAA := c.LogMatch[alt] + othersErr(uint8(alt))
	lRA := c.LogHet[refCode] + c.LogHet[alt] + othersErr(refCode, uint8(alt))

	// Flat prior π for each variant genotype.
	pi := cfg.Prior
	lRR += math.Log10(math.Max(1-2*pi, 1e-300))
	lRA += math.Log10(pi)
	lAA += math.Log10(pi)

	logs := [3]float64{lRR, lRA, lAA}
	maxLog := logs[0]
	for _, l := range logs[1:] {
		if l > maxLog {
			maxLog = l
		}
	}
	sum := 0.0
	for _, l := range logs {
		sum += math.Pow(10, l-maxLog)
	}
	logSum := maxLog + math.Log10(sum)

	qual := -10 * (lRR - logSum)
	if qual > maxQual {
		qual = maxQual
	}
	best := 0
	for g := 1; g < 3; g++ {
		if logs[g] > logs[best] {
			best = g
		}
	}
	if best == 0 || qual < cfg.MinQuality {
		return Variant{}, false
	}

	gq := -10 * math.Log10(math.Max(1-math.Pow(10, logs[best]-logSum), 1e-300))
	if gq > maxGQ {
		gq = maxGQ
	}
	gt := "0/1"
	if best == 2 {
		gt = "1/1"
	}
	return Variant{
		Chrom: cfg.Chrom,
		Pos:   c.Pos,
		Ref:   string(refseq.BaseOf(refCode)),
		Alt:   string(refseq.BaseOf(uint8(alt))),
		Class: ClassSNV,
		Qual:  qual,
		Depth: c.Depth,
		AF:    float64(c.Counts[alt]) / float64(c.Depth),
		GT:    gt,
		GQ:    int(gq),
	}, true
}

// dominant returns the uniquely most supported allele in evidence, if its
// support clears the indel thresholds against depth.
func dominant[K comparable](evidence map[K]int, depth int, less func(a, b K) bool) (K, int, bool) {
	var bestKey K
	bestCount, ties := 0, 0
	keys := make([]K, 0, len(evidence))
	for k := range evidence {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	for _, k := range keys {
		if n := evidence[k]; n > bestCount {
			bestKey, bestCount, ties = k, n, 0
		} else if n == bestCount {
			ties++
		}
	}
	if bestCount < indelMinSupport || ties > 0 {
		var zero K
		return zero, 0, false
	}
	if depth == 0 || float64(bestCount) < indelMinFraction*float64(depth) {
		var zero K
		return zero, 0, false
	}
	return bestKey, bestCount, true
}

func indelCall(cfg Config, c *pileup.Column, support int) (float64, string, int) {
	qual := math.Min(60, 3*float64(support))
	af := float64(support) / float64(c.Depth)
	gt := "0/1"
	if af >= 0.8 {
		gt = "1/1"
	}
	return qual, gt, int(qual)
}

func callInsertion(cfg Config, c *pileup.Column, refCode uint8) (Variant, bool) {
	if len(c.Inserts) == 0 || c.Depth < cfg.MinDepth {
		return Variant{}, false
	}
	seq, support, ok := dominant(c.Inserts, c.Depth, func(a, b string) bool { return a < b })
	if !ok {
		return Variant{}, false
	}
	qual, gt, gq := indelCall(cfg, c, support)
	if qual < cfg.MinQuality {
		return Variant{}, false
	}
	refBase := string(refseq.BaseOf(refCode))
	return Variant{
		Chrom: cfg.Chrom,
		Pos:   c.Pos,
		Ref:   refBase,
		Alt:   refBase + seq,
		Class: ClassIns,
		Qual:  qual,
		Depth: c.Depth,
		AF:    float64(support) / float64(c.Depth),
		GT:    gt,
		GQ:    gq,
	}, true
}

func callDeletion(cfg Config, c *pileup.Column, refCode uint8) (Variant, bool) {
	if len(c.Dels) == 0 || c.Depth < cfg.MinDepth {
		return Variant{}, false
	}
	length, support, ok := dominant(c.Dels, c.Depth, func(a, b int) bool { return a < b })
	if !ok {
		return Variant{}, false
	}
	// The deleted run must stay inside the reference.
	if c.Pos+length+1 > cfg.Ref.Len() {
		return Variant{}, false
	}
	qual, gt, gq := indelCall(cfg, c, support)
	if qual < cfg.MinQuality {
		return Variant{}, false
	}
	ref := make([]byte, 0, length+1)
	for i := 0; i <= length; i++ {
		ref = append(ref, cfg.Ref.Base(c.Pos+i))
	}
	return Variant{
		Chrom: cfg.Chrom,
		Pos:   c.Pos,
		Ref:   string(ref),
		Alt:   string(ref[:1]),
		Class: ClassDel,
		Qual:  qual,
		Depth: c.Depth,
		AF:    float64(support) / float64(c.Depth),
		GT:    gt,
		GQ:    gq,
	}, true
}

// Less orders variants for emission: ascending position, SNV before
// insertion before deletion, then alternate allele lexicographically.
func Less(a, b Variant) bool {
	if a.Pos != b.Pos {
		return a.Pos < b.Pos
	}
	if a.Class != b.Class {
		return a.Class < b.Class
	}
	return a.Alt < b.Alt
}

// ID renders a stable identity for diagnostics.
func (v Variant) ID() string {
	return fmt.Sprintf("%s:%d:%s>%s", v.Chrom, v.Pos+1, v.Ref, v.Alt)
}
