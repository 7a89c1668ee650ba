package core

// encoding.go turns uploaded bytes into text before parsing.
//
// Spreadsheet exports arrive as UTF-8 (often with a BOM from Windows tools)
// or as Latin-1. Anything that is not valid UTF-8 is read as ISO-8859-1.

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodingError is returned when the file cannot be decoded at all.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: unable to decode file: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// NormalizeEncoding decodes data into a string.
// A leading UTF-8 BOM is stripped and the remainder is read as UTF-8, with
// invalid sequences replaced by U+FFFD. Without a BOM, valid UTF-8 is used as
// is and anything else is decoded as ISO-8859-1.
func NormalizeEncoding(data []byte) (string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(sanitizeUTF8(data[len(utf8BOM):])), nil
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", &EncodingError{Err: err}
	}
	return string(decoded), nil
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode replacement character.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
