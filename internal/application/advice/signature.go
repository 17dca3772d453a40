package advice

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SignatureInput is one named numeric input to advice generation: calorie
// targets, macro splits, weight trend, whatever the generator consumed.
type SignatureInput struct {
	Name  string
	Value decimal.Decimal
}

// Signature returns a deterministic fingerprint of the inputs behind a
// generated advice artifact. Inputs are ordered by name and values rendered
// at fixed two-decimal precision, so semantically equal input sets always
// fingerprint identically regardless of arrival order or float noise
// beyond the stored precision.
func Signature(inputs []SignatureInput) string {
	sorted := make([]SignatureInput, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for i, in := range sorted {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%s", in.Name, in.Value.StringFixed(2))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
