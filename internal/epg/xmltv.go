package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// maxDocumentSize bounds guide documents read from an untrusted upstream.
const maxDocumentSize = 64 * 1024 * 1024

// Parse decodes an XMLTV document defensively: the input is capped to
// maxDocumentSize, decoding is strict, and entity expansion is disabled to
// rule out XXE. The Snapshot Builder treats a malformed document like any
// other guide failure and substitutes an empty guide.
func Parse(r io.Reader) (*TV, error) {
	dec := xml.NewDecoder(io.LimitReader(r, maxDocumentSize))
	dec.Strict = true
	dec.Entity = map[string]string{}

	var doc TV
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("epg: decode xmltv: %w", err)
	}
	return &doc, nil
}
