// internal/fmindex/sais.go
//
// Linear-time suffix array construction (SA-IS). The input is a slice of
// symbol codes with a unique, smallest sentinel (0) in the final position.
package fmindex

// suffixArray returns the suffix array of s over alphabet size k. s must end
// with the sentinel 0, which appears nowhere else.
func suffixArray(s []int32, k int) []int32 {
	n := len(s)
	return sais(s, k, make([]int32, n), make([]int32, n))
}

func sais(s []int32, k int, sa, lmsNames []int32) []int32 {
	n := len(s)
	sa = sa[:n]
	for i := range sa {
		sa[i] = -1
	}
	if n == 0 {
		return sa
	}
	if n == 1 {
		sa[0] = 0
		return sa
	}

	// Classify suffixes: t[i] true means S-type.
	t := make([]bool, n)
	t[n-1] = true
	for i := n - 2; i >= 0; i-- {
		switch {
		case s[i] < s[i+1]:
			t[i] = true
		case s[i] > s[i+1]:
			t[i] = false
		default:
			t[i] = t[i+1]
		}
	}

	var lmsPositions []int32
	for i := 1; i < n; i++ {
		if t[i] && !t[i-1] {
			lmsPositions = append(lmsPositions, int32(i))
		}
	}

	sa = induceSort(s, sa, t, k, lmsPositions)

	var sortedLMS []int32
	for _, pos := range sa {
		if pos > 0 && t[pos] && !t[pos-1] {
			sortedLMS = append(sortedLMS, pos)
		}
	}

	lmsNames = lmsNames[:n]
	for i := range lmsNames {
		lmsNames[i] = -1
	}
	var name int32
	prev := int32(-1)
	for _, pos := range sortedLMS {
		if prev >= 0 && !lmsSubstringEqual(s, t, prev, pos) {
			name++
		}
		lmsNames[pos] = name
		prev = pos
	}
	numNames := int(name) + 1

	reduced := make([]int32, 0, len(lmsPositions))
	for _, pos := range lmsPositions {
		reduced = append(reduced, lmsNames[pos])
	}

	var reducedSA []int32
	if numNames < len(reduced) {
		reducedSA = sais(reduced, numNames, sa, lmsNames)
	} else {
		reducedSA = make([]int32, len(reduced))
		for i, nm := range reduced {
			reducedSA[nm] = int32(i)
		}
	}

	orderedLMS := make([]int32, len(reducedSA))
	for i, idx := range reducedSA {
		orderedLMS[i] = lmsPositions[idx]
	}
	sa = sa[:n]
	for i := range sa {
		sa[i] = -1
	}
	return induceSort(s, sa, t, k, orderedLMS)
}

func induceSort(s []int32, sa []int32, t []bool, k int, lms []int32) []int32 {
	bs := bucketSizes(s, k)

	tails := bucketTails(bs)
	for i := len(lms) - 1; i >= 0; i-- {
		pos := lms[i]
		c := s[pos]
		sa[tails[c]] = pos
		tails[c]--
	}

	heads := bucketHeads(bs)
	for i := range sa {
		pos := sa[i]
		if pos > 0 && !t[pos-1] {
			c := s[pos-1]
			sa[heads[c]] = pos - 1
			heads[c]++
		}
	}

	tails = bucketTails(bs)
	for i := len(sa) - 1; i >= 0; i-- {
		pos := sa[i]
		if pos > 0 && t[pos-1] {
			c := s[pos-1]
			sa[tails[c]] = pos - 1
			tails[c]--
		}
	}
	return sa
}

func bucketSizes(s []int32, k int) []int32 {
	bs := make([]int32, k)
	for _, c := range s {
		bs[c]++
	}
	return bs
}

func bucketHeads(bs []int32) []int32 {
	heads := make([]int32, len(bs))
	var sum int32
	for i, v := range bs {
		heads[i] = sum
		sum += v
	}
	return heads
}

func bucketTails(bs []int32) []int32 {
	tails := make([]int32, len(bs))
	var sum int32
	for i, v := range bs {
		sum += v
		tails[i] = sum - 1
	}
	return tails
}

func lmsSubstringEqual(s []int32, t []bool, i, j int32) bool {
	n := int32(len(s))
	for k := int32(0); i+k < n && j+k < n; k++ {
		a, b := i+k, j+k
		if s[a] != s[b] || t[a] != t[b] {
			return false
		}
		aIsLMS := a > 0 && t[a] && !t[a-1]
		bIsLMS := b > 0 && t[b] && !t[b-1]
		if k > 0 && (aIsLMS || bIsLMS) {
			return aIsLMS && bIsLMS
		}
	}
	return false
}
