package template

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	legacyDigestElements = 10
	legacyDigestLength   = 16
	digestV2Length       = 32
)

// computeDigest derives the integrity digest for a feature vector under the
// given scheme version.
func computeDigest(version string, data []float64) (string, error) {
	switch version {
	case DigestV1:
		return digestLegacy(data), nil
	case DigestV2:
		return digestSHA256(data), nil
	default:
		return "", fmt.Errorf("unknown digest version %q", version)
	}
}

// digestLegacy reproduces the historical digest: the first ten elements
// formatted to six decimal places, comma-joined, base64-encoded and truncated
// to sixteen characters. It is not collision-resistant: sixteen base64
// characters keep only the first twelve bytes of the joined string, so any
// mutation past roughly the first element and a half goes unseen. Kept only
// so templates written under the old scheme remain verifiable.
func digestLegacy(data []float64) string {
	n := legacyDigestElements
	if len(data) < n {
		n = len(data)
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.FormatFloat(data[i], 'f', 6, 64)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, ",")))
	if len(encoded) > legacyDigestLength {
		encoded = encoded[:legacyDigestLength]
	}
	return encoded
}

// digestSHA256 hashes every element of the vector, formatted the same way as
// the legacy scheme, so any single-element mutation changes the digest.
func digestSHA256(data []float64) string {
	h := sha256.New()
	for i, v := range data {
		if i > 0 {
			h.Write([]byte{','})
		}
		h.Write([]byte(strconv.FormatFloat(v, 'f', 6, 64)))
	}
	return hex.EncodeToString(h.Sum(nil))[:digestV2Length]
}
