package signals

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Hash computes the signal uniqueness key: MD5(pattern|entry|target|stop|
// currentPrice) with all prices rounded to 2 decimal places, truncated to
// its first 12 hex characters (§4.C7 — kept as the reference stack's
// verbatim redesign note specifies, not swapped for a non-cryptographic
// hash).
func Hash(pattern string, entry, target, stop, currentPrice float64) string {
	input := fmt.Sprintf("%s|%.2f|%.2f|%.2f|%.2f", pattern, entry, target, stop, currentPrice)
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:12]
}
