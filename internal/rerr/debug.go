//go:build rosalind_debug

package rerr

// Debug enables panicking on internal invariant violations.
const Debug = true
