// cmd/rosalind/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/logannye/rosalind/internal/alignapp"
	"github.com/logannye/rosalind/internal/variantapp"
	"github.com/logannye/rosalind/internal/version"
)

const usage = `rosalind: genome-scale alignment and variant calling in O(√t) memory

Usage:
  rosalind align    --reference <fasta> --reads <fastq> [options]
  rosalind variants --reference <fasta> --alignments <sam|bam> [options]

Run a subcommand with -h for its options.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	switch os.Args[1] {
	case "align":
		os.Exit(alignapp.RunContext(ctx, os.Args[2:], os.Stdout, os.Stderr))
	case "variants":
		os.Exit(variantapp.RunContext(ctx, os.Args[2:], os.Stdout, os.Stderr))
	case "version", "--version", "-v":
		fmt.Fprintf(os.Stdout, "rosalind version %s\n", version.Version)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}
}
