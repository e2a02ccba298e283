// Package palm derives reusable payment credentials ("palm codes") from
// captured frames and recognizes returning hands via a local sample registry.
//
// The derivation is a rolling hash over the frame's lossy encoding and the
// match test is positional character overlap between hashes. Neither is
// similarity-preserving or collision-resistant: two captures of the same hand
// usually hash differently, and short hashes can coincidentally clear the
// match threshold. This reproduces the deployed behavior exactly; it is not a
// cryptographic or biometric-grade identity mechanism.
package palm

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// MatchThreshold is the positional similarity at or above which a capture is
// judged a repeat of a registered sample.
const MatchThreshold = 0.8

const codePrefix = "PALM_"

// HashFrame folds the encoded frame bytes through the rolling hash
// h = h*31 + b, wrapping in signed 32-bit space, and renders the magnitude
// base-36. Identical input bytes always yield an identical hash.
func HashFrame(encoded []byte) string {
	var h int32
	for _, b := range encoded {
		h = h*31 + int32(b)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}

// Similarity is the fraction of equal-position characters between two hashes.
// Hashes of unequal length are never similar.
func Similarity(h1, h2 string) float64 {
	if len(h1) != len(h2) {
		return 0
	}
	if len(h1) == 0 {
		return 1
	}
	matches := 0
	for i := 0; i < len(h1); i++ {
		if h1[i] == h2[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(h1))
}

// MintCode issues a fresh process-unique palm code: the prefix, the capture
// time in milliseconds and a short random base-36 suffix. The format is
// distinct from any hash so a minted code is recognizable at a glance.
func MintCode(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", codePrefix, now.UnixMilli(), randomSuffix(9))
}

const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = base36Digits[rand.IntN(len(base36Digits))]
	}
	return string(buf)
}
