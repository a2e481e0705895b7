// Package shamir implements the combine side of Shamir's secret sharing over
// GF(2^128): ordinary Lagrange interpolation at x=0, evaluated independently
// on each 16-byte block of a split secret. The split side is out of scope
// (spec §1: "the dual write-side is out of scope") — only reconstruction
// from a quorum of shares is implemented.
package shamir

import (
	"fmt"
	"sort"
)

// BlockSize is the size in bytes of one Shamir evaluation block (spec §4.4,
// §6.6 SHARD_BLOCK_SIZE).
const BlockSize = 16

// Share is one participant's evaluation of every block's polynomial at x =
// Index. Bytes must be a multiple of BlockSize.
type Share struct {
	Index byte
	Bytes []byte
}

// Combine reconstructs a secret_len-byte secret from shares using exactly
// threshold lowest-indexed distinct shares, per spec §4.4. It is an error to
// call Combine with fewer than threshold distinct shares, a zero index, or
// shares whose length is not ceil(secretLen/16)*16.
func Combine(threshold int, secretLen int, shares []Share) ([]byte, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("shamir: threshold must be positive")
	}
	if secretLen <= 0 {
		return nil, fmt.Errorf("shamir: secretLen must be positive")
	}
	blockCount := (secretLen + BlockSize - 1) / BlockSize
	expectedLen := blockCount * BlockSize

	distinct := make(map[byte]Share, len(shares))
	for _, s := range shares {
		if s.Index == 0 {
			return nil, fmt.Errorf("shamir: share index 0 is not valid (indices run 1..255)")
		}
		if len(s.Bytes) != expectedLen {
			return nil, fmt.Errorf("shamir: share %d has length %d, want %d", s.Index, len(s.Bytes), expectedLen)
		}
		if _, dup := distinct[s.Index]; dup {
			continue // duplicate redelivery of the same share index: keep the first.
		}
		distinct[s.Index] = s
	}
	if len(distinct) < threshold {
		return nil, fmt.Errorf("shamir: have %d distinct shares, need threshold %d", len(distinct), threshold)
	}

	selected := make([]Share, 0, len(distinct))
	for _, s := range distinct {
		selected = append(selected, s)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Index < selected[j].Index })
	selected = selected[:threshold]

	secret := make([]byte, 0, expectedLen)
	for block := 0; block < blockCount; block++ {
		blockShares := make([]blockShare, len(selected))
		for i, s := range selected {
			var b [16]byte
			copy(b[:], s.Bytes[block*BlockSize:(block+1)*BlockSize])
			blockShares[i] = blockShare{index: s.Index, value: b}
		}
		out, err := combineBlock(blockShares)
		if err != nil {
			return nil, fmt.Errorf("shamir: block %d: %w", block, err)
		}
		secret = append(secret, out[:]...)
	}
	return secret[:secretLen], nil
}

type blockShare struct {
	index byte
	value [16]byte
}

// combineBlock performs Lagrange interpolation at x=0 for a single 16-byte
// block across the given shares.
func combineBlock(shares []blockShare) ([16]byte, error) {
	xs := make([]elem, len(shares))
	ys := make([]elem, len(shares))
	for i, s := range shares {
		xs[i] = elemFromIndex(s.index)
		ys[i] = elemFromBytes(s.value)
	}

	var secret elem
	for i := range shares {
		coeff := oneElem
		for j := range shares {
			if j == i {
				continue
			}
			denom := gfAdd(xs[j], xs[i])
			inv, err := gfInverse(denom)
			if err != nil {
				return [16]byte{}, fmt.Errorf("duplicate share index %d", shares[i].index)
			}
			coeff = gfMul(coeff, gfMul(xs[j], inv))
		}
		secret = gfAdd(secret, gfMul(coeff, ys[i]))
	}
	return secret.bytes(), nil
}
