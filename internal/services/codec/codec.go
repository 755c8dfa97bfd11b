// Package codec decodes the quote provider's wire dialects into domain
// records. Every decoder is total: malformed input produces empty or zero
// values, never an error.
package codec

import (
	"regexp"

	"StockPulse/internal/services/session"
)

// Compiled once; regexp values are safe for concurrent use.
var (
	assignmentPattern = regexp.MustCompile(`v_([^=]+)="([^"]+)";`)
	cnSearchPattern   = regexp.MustCompile(`~(\d{5,6})~([^~]+)~([a-z]{2}\d{5,6})~`)
	usSearchPattern   = regexp.MustCompile(`~([A-Z]{1,5})~([^~]+)~`)
)

// Decoder holds the session classifier used to flag quotes as closed.
type Decoder struct {
	session *session.Classifier
}

// NewDecoder returns a Decoder; a nil classifier means the wall clock.
func NewDecoder(c *session.Classifier) *Decoder {
	if c == nil {
		c = session.New()
	}
	return &Decoder{session: c}
}

var std = NewDecoder(nil)

// Default returns the wall-clock decoder behind the package-level functions.
func Default() *Decoder { return std }
