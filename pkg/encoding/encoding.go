// Package encoding provides text encoding utilities for MMD file formats.
// PMX strings are UTF-16LE or UTF-8 depending on the header, while VMD and
// VPD files use Shift-JIS (cp932).
package encoding

import (
	"errors"
	"strings"
	"unicode/utf8"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Text encoding errors.
var (
	ErrDecode = errors.New("undecodable byte sequence")
	ErrEncode = errors.New("unencodable text")
)

// Codec converts between Go (UTF-8) strings and an external byte encoding.
type Codec struct {
	name  string
	enc   xencoding.Encoding // nil means plain UTF-8
	valid func([]byte) bool  // nil: substitution in the decoded output proves malformed input
}

// Supported codecs.
var (
	UTF16    = &Codec{name: "utf16le", enc: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), valid: validUTF16LE}
	UTF8     = &Codec{name: "utf8", valid: utf8.Valid}
	ShiftJIS = &Codec{name: "shift-jis", enc: japanese.ShiftJIS}
)

// Name returns the codec's identifier.
func (c *Codec) Name() string { return c.name }

// Decode converts encoded bytes to a UTF-8 string, failing on malformed input.
func (c *Codec) Decode(data []byte) (string, error) {
	if c.valid != nil {
		if !c.valid(data) {
			return "", ErrDecode
		}
		return c.DecodeLenient(data), nil
	}
	s := c.DecodeLenient(data)
	// cp932 has no encoding for U+FFFD, so its presence in the output can
	// only come from the decoder substituting a malformed sequence.
	if strings.ContainsRune(s, utf8.RuneError) {
		return "", ErrDecode
	}
	return s, nil
}

// validUTF16LE reports whether data is well-formed UTF-16LE: even length and
// correctly paired surrogates.
func validUTF16LE(data []byte) bool {
	if len(data)%2 != 0 {
		return false
	}
	for i := 0; i < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+3 >= len(data) {
				return false
			}
			lo := uint16(data[i+2]) | uint16(data[i+3])<<8
			if lo < 0xDC00 || lo >= 0xE000 {
				return false
			}
			i += 2
		case u >= 0xDC00 && u < 0xE000:
			return false
		}
	}
	return true
}

// DecodeLenient converts encoded bytes to a UTF-8 string, substituting U+FFFD
// for malformed sequences.
func (c *Codec) DecodeLenient(data []byte) string {
	if c.enc == nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	out, _, err := transform.Bytes(c.enc.NewDecoder(), data)
	if err != nil {
		// Transformer substitutes on its own; an error here means something
		// unexpected, fall back to the raw bytes.
		return string(data)
	}
	return string(out)
}

// Encode converts a UTF-8 string to encoded bytes, failing on characters the
// target encoding cannot represent.
func (c *Codec) Encode(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, ErrEncode
	}
	if c.enc == nil {
		return []byte(s), nil
	}
	out, _, err := transform.Bytes(c.enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, ErrEncode
	}
	return out, nil
}

// EncodeLenient converts a UTF-8 string to encoded bytes, substituting
// unrepresentable characters.
func (c *Codec) EncodeLenient(s string) []byte {
	if c.enc == nil {
		return []byte(strings.ToValidUTF8(s, string(utf8.RuneError)))
	}
	out, _, err := transform.Bytes(xencoding.ReplaceUnsupported(c.enc.NewEncoder()), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
