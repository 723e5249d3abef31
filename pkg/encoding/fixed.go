package encoding

import "bytes"

// DecodeFixed converts a fixed-size, null-padded byte field to a UTF-8 string.
// VMD track names are truncated at 15 bytes by every known producer, which can
// split a multi-byte character; the broken tail decodes to U+FFFD.
func DecodeFixed(c *Codec, data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return c.DecodeLenient(data)
}

// EncodeFixed converts a UTF-8 string to a fixed-size byte field, truncating
// the encoded form at size bytes and padding with null bytes.
func EncodeFixed(c *Codec, s string, size int) []byte {
	out := make([]byte, size)
	copy(out, c.EncodeLenient(s))
	return out
}
