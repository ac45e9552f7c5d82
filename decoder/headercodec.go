package decoder

import (
	"fmt"

	"golang.org/x/net/http2/hpack"

	"github.com/i4oolish/h2decode/listener"
)

// defaultHeaderDecoder is the HeaderDecoder the builder installs when the
// caller supplies none: a thin wrapper over golang.org/x/net/http2/hpack,
// grounded on the teacher's HeaderDecoder but returning the listener
// package's HeaderField type instead of raw string tuples.
type defaultHeaderDecoder struct {
	dec *hpack.Decoder
}

func newDefaultHeaderDecoder(maxHeaderListSize uint32) *defaultHeaderDecoder {
	return &defaultHeaderDecoder{dec: hpack.NewDecoder(maxHeaderListSize, nil)}
}

func (d *defaultHeaderDecoder) Decode(block []byte) ([]listener.HeaderField, error) {
	var out []listener.HeaderField
	d.dec.SetEmitFunc(func(hf hpack.HeaderField) {
		out = append(out, listener.HeaderField{Name: hf.Name, Value: hf.Value})
	})
	if _, err := d.dec.Write(block); err != nil {
		return nil, fmt.Errorf("hpack decode: %w", err)
	}
	return out, nil
}

// SetMaxDynamicTableSize resizes the dynamic table. Nothing in this
// module calls it when a SETTINGS frame changes SETTINGS_HEADER_TABLE_SIZE.
func (d *defaultHeaderDecoder) SetMaxDynamicTableSize(size uint32) {
	d.dec.SetMaxDynamicTableSize(size)
}
