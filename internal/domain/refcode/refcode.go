// Package refcode generates the human-shareable identifiers stamped on
// accounts and transactions.
//
// Uniqueness is enforced by the store, not here: callers retry generation
// and insert when the store reports a collision.
package refcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	// AccountCodeLength is the number of digits in an account link code.
	AccountCodeLength = 6

	accountCodeMin   = 100000
	accountCodeRange = 900000

	suffixLength   = 6
	suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generator produces account link codes and transaction reference codes.
type Generator struct {
	now    func() time.Time
	random io.Reader
}

// New returns a Generator backed by the wall clock and crypto/rand.
func New() *Generator {
	return &Generator{now: time.Now, random: rand.Reader}
}

// NewWithSource returns a Generator using the given clock and random source.
func NewWithSource(now func() time.Time, random io.Reader) *Generator {
	return &Generator{now: now, random: random}
}

// AccountCode returns a uniformly distributed 6-digit code in [100000, 999999].
func (g *Generator) AccountCode() (string, error) {
	n, err := rand.Int(g.random, big.NewInt(accountCodeRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate account code: %w", err)
	}
	return strconv.FormatInt(accountCodeMin+n.Int64(), 10), nil
}

// Reference returns PREFIX-<base36 unix millis>-<random suffix>, upper-cased.
// Codes generated later sort after earlier ones with the same prefix as long
// as the base36 time component keeps its width.
func (g *Generator) Reference(prefix string) (string, error) {
	var b strings.Builder
	b.WriteString(strings.ToUpper(prefix))
	b.WriteByte('-')
	b.WriteString(strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36)))
	b.WriteByte('-')

	max := big.NewInt(int64(len(suffixAlphabet)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reference code: %w", err)
		}
		b.WriteByte(suffixAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// NormalizeAccountCode strips everything but ASCII digits from raw input.
func NormalizeAccountCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsAccountCode reports whether s is exactly six ASCII digits.
func IsAccountCode(s string) bool {
	if len(s) != AccountCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
