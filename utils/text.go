package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders n with thousands separators, e.g. 1250000 -> "1,250,000".
func FormatAmount(n int64) string {
	return amountPrinter.Sprintf("%d", n)
}

// Slugify lower-cases s, strips diacritics and collapses whitespace into
// single dashes. Characters other than letters, digits, '-' and '_' are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(folded)) {
		switch {
		case unicode.IsSpace(r):
			pendingDash = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if pendingDash {
				b.WriteByte('-')
				pendingDash = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomToken returns n random base36 characters.
func RandomToken(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range out {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = base36[i%len(base36)]
			continue
		}
		out[i] = base36[v.Int64()]
	}
	return string(out)
}
