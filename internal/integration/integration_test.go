// internal/integration/integration_test.go
package integration

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logannye/rosalind/internal/alignapp"
	"github.com/logannye/rosalind/internal/variantapp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func samRecords(t *testing.T) []string {
	t.Helper()
	// 20 reads of length 10 over an all-A reference, each carrying G at
	// position 50 (0-based), MAPQ 30, coordinate sorted.
	type rec struct {
		name string
		pos  int // 0-based
	}
	var recs []rec
	for i := 0; i < 20; i++ {
		recs = append(recs, rec{name: fmt.Sprintf("r%02d", i), pos: 41 + i%10})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].pos < recs[j].pos })

	lines := []string{
		"@HD\tVN:1.6\tSO:coordinate",
		"@SQ\tSN:chr1\tLN:100",
	}
	for _, r := range recs {
		seq := []byte("AAAAAAAAAA")
		seq[50-r.pos] = 'G'
		lines = append(lines, fmt.Sprintf("%s\t0\tchr1\t%d\t30\t10M\t*\t0\t0\t%s\t*",
			r.name, r.pos+1, seq))
	}
	return lines
}

func runVariants(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.fa", ">chr1\n"+strings.Repeat("A", 100)+"\n")
	aln := writeFile(t, dir, "in.sam", strings.Join(samRecords(t), "\n")+"\n")

	var stdout, stderr bytes.Buffer
	argv := append([]string{
		"--reference", ref,
		"--alignments", aln,
		"--min-quality", "10",
		"--quiet",
	}, extra...)
	code := variantapp.Run(argv, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	return stdout.String()
}

func TestVariantsSNVGolden(t *testing.T) {
	got := runVariants(t, "--block-size", "16")

	golden := filepath.Join("testdata", "snv_golden.vcf")
	if os.Getenv("ROSALIND_UPDATE_SNAPSHOTS") == "1" {
		require.NoError(t, os.WriteFile(golden, []byte(got), 0o644))
	}
	want, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, string(want), got)
}

func TestVariantsPartitionInvariance(t *testing.T) {
	a := runVariants(t, "--block-size", "16")
	b := runVariants(t, "--block-size", "64")
	assert.Equal(t, a, b, "VCF output must be byte-identical across block sizes")
}

func TestVariantsDeterministicReplay(t *testing.T) {
	a := runVariants(t, "--block-size", "16")
	b := runVariants(t, "--block-size", "16")
	assert.Equal(t, a, b)
}

func TestVariantsUnsortedInputExitsOne(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.fa", ">chr1\n"+strings.Repeat("A", 100)+"\n")
	lines := []string{
		"@SQ\tSN:chr1\tLN:100",
		"a\t0\tchr1\t40\t30\t4M\t*\t0\t0\tAAAA\t*",
		"b\t0\tchr1\t10\t30\t4M\t*\t0\t0\tAAAA\t*",
	}
	aln := writeFile(t, dir, "bad.sam", strings.Join(lines, "\n")+"\n")

	var stdout, stderr bytes.Buffer
	code := variantapp.Run([]string{"--reference", ref, "--alignments", aln, "--quiet"},
		&stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unsorted")
}

func TestVariantsNoPartialOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.fa", ">chr1\n"+strings.Repeat("A", 100)+"\n")
	lines := []string{
		"@SQ\tSN:chr1\tLN:100",
		"a\t0\tchr1\t40\t30\t4M\t*\t0\t0\tAAAA\t*",
		"b\t0\tchr1\t10\t30\t4M\t*\t0\t0\tAAAA\t*",
	}
	aln := writeFile(t, dir, "bad.sam", strings.Join(lines, "\n")+"\n")
	out := filepath.Join(dir, "out.vcf")

	var stdout, stderr bytes.Buffer
	code := variantapp.Run([]string{
		"--reference", ref, "--alignments", aln, "--output", out, "--quiet",
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "failed run must not leave an output file")
}

func TestAlignEndToEndSAM(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.fa", ">ref\nACGTACGTACGTACGT\n")
	reads := writeFile(t, dir, "reads.fq", "@r1\nCGTA\n+\nIIII\n@r2\nTTTT\n+\nIIII\n")

	var stdout, stderr bytes.Buffer
	code := alignapp.Run([]string{
		"--reference", ref, "--reads", reads, "--quiet",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "@SQ")
	var records []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "@") {
			records = append(records, line)
		}
	}
	require.Len(t, records, 2)
	// r1 places at 0-based 1 (first of {1,5,9}); SAM POS is 1-based.
	fields := strings.Split(records[0], "\t")
	assert.Equal(t, "r1", fields[0])
	assert.Equal(t, "2", fields[3])
	assert.Equal(t, "4M", fields[5])
	// r2 has no placement.
	fields = strings.Split(records[1], "\t")
	assert.Equal(t, "r2", fields[0])
	assert.Equal(t, "4", fields[1])
}

func TestAlignDeterministicAcrossBatchSizes(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.fa", ">ref\nACGTACGTACGTACGT\n")
	var sb strings.Builder
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&sb, "@q%d\nGTAC\n+\nIIII\n", i)
	}
	reads := writeFile(t, dir, "reads.fq", sb.String())

	run := func(batch string) string {
		var stdout, stderr bytes.Buffer
		code := alignapp.Run([]string{
			"--reference", ref, "--reads", reads, "--block-size", batch, "--quiet",
		}, &stdout, &stderr)
		require.Equal(t, 0, code, "stderr: %s", stderr.String())
		return stdout.String()
	}
	assert.Equal(t, run("2"), run("5"), "SAM output must be byte-identical across block sizes")
}

func TestAlignMissingReferenceExitsOne(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := alignapp.Run([]string{
		"--reference", "/no/such.fa", "--reads", "/no/such.fq", "--quiet",
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr.String())
}

func TestAlignMaxMismatches(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.fa", ">ref\nAAAACGTTTTGGGG\n")
	reads := writeFile(t, dir, "reads.txt", "ACGA\n")

	run := func(mm string) string {
		var stdout, stderr bytes.Buffer
		code := alignapp.Run([]string{
			"--reference", ref, "--reads", reads, "--max-mismatches", mm, "--quiet",
		}, &stdout, &stderr)
		require.Equal(t, 0, code, "stderr: %s", stderr.String())
		return stdout.String()
	}
	strict := run("0")
	loose := run("1")

	recordOf := func(out string) []string {
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			if !strings.HasPrefix(line, "@") {
				return strings.Split(line, "\t")
			}
		}
		return nil
	}
	assert.Equal(t, "4", recordOf(strict)[1], "no budget: unmapped")
	assert.Equal(t, "4", recordOf(loose)[3], "one mismatch places at 0-based 3")
}
