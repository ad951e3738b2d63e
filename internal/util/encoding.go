package util

import (
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC normalization so that visually identical login
// names compare equal regardless of how the client composed them.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}
