package rewriter

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Encoding is a resolved charset handle: the label the caller asked for,
// its canonical WHATWG name, and the golang.org/x/text codec backing it.
// Text tokens carry an Encoding so TextChunk.AsStr can decode non-UTF-8
// documents. Inserted content is not converted into this charset:
// ContentType-Text insertions are HTML-escaped and written as given.
type Encoding struct {
	Label     string
	Canonical string
	Codec     encoding.Encoding
}

// resolveEncoding maps a charset label (e.g. "utf-8", "windows-1251") to an
// Encoding using the same WHATWG label table browsers use. An unknown
// label is a configuration-time error (EncodingUnknown), never a
// stream-time one.
func resolveEncoding(label string) (Encoding, error) {
	if label == "" {
		label = "utf-8"
	}
	canonical, err := htmlindex.Name(label)
	if err != nil {
		return Encoding{}, errEncodingUnknown(label)
	}
	codec, err := htmlindex.Get(label)
	if err != nil {
		return Encoding{}, errEncodingUnknown(label)
	}
	return Encoding{Label: label, Canonical: canonical, Codec: codec}, nil
}
