package compress

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedInput is matched by every error returned from Decompress.
var ErrMalformedInput = errors.New("malformed compressed input")

// SyntaxError describes where compressed input stopped making sense.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("compress: %s at offset %d", e.Msg, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformedInput
}

// Decompress reverses Compress.
func Decompress(s string) (string, error) {
	out := make([]byte, 0, len(s)*2)

	for i := 0; i < len(s); {
		c := s[i]
		if c != escape {
			if c < 0x20 || c > 0x7e {
				return "", &SyntaxError{Offset: i, Msg: "non-printable byte"}
			}
			out = append(out, c)
			i++
			continue
		}

		if i+1 >= len(s) {
			return "", &SyntaxError{Offset: i, Msg: "dangling escape"}
		}

		switch code := s[i+1]; code {
		case escape:
			out = append(out, escape)
			i += 2

		case codeByte:
			v, err := readHex(s, i, 2)
			if err != nil {
				return "", err
			}
			out = append(out, byte(v))
			i += 4

		case codeRune:
			v, err := readHex(s, i, 4)
			if err != nil {
				return "", err
			}
			r := rune(v)
			if r < 0x80 || !utf8.ValidRune(r) {
				return "", &SyntaxError{Offset: i, Msg: "invalid rune escape"}
			}
			out = utf8.AppendRune(out, r)
			i += 6

		case codeWide:
			v, err := readHex(s, i, 6)
			if err != nil {
				return "", err
			}
			r := rune(v)
			if r <= 0xffff || !utf8.ValidRune(r) {
				return "", &SyntaxError{Offset: i, Msg: "invalid rune escape"}
			}
			out = utf8.AppendRune(out, r)
			i += 8

		case codeRepeat:
			if i+5 > len(s) {
				return "", &SyntaxError{Offset: i, Msg: "truncated back-reference"}
			}
			l, hi, lo := digitValue[s[i+2]], digitValue[s[i+3]], digitValue[s[i+4]]
			if l < 0 || hi < 0 || lo < 0 {
				return "", &SyntaxError{Offset: i, Msg: "invalid back-reference digit"}
			}
			length := int(l) + minMatch
			dist := int(hi)*digitBase + int(lo) + 1
			if dist > len(out) {
				return "", &SyntaxError{Offset: i, Msg: "back-reference before start of output"}
			}
			start := len(out) - dist
			for k := 0; k < length; k++ {
				out = append(out, out[start+k])
			}
			i += 5

		default:
			v := controlValue[code]
			if v < 0 {
				return "", &SyntaxError{Offset: i, Msg: fmt.Sprintf("unknown escape %q", code)}
			}
			out = append(out, byte(v))
			i += 2
		}
	}

	return string(out), nil
}

// readHex parses the width hex digits that follow the escape at offset i.
func readHex(s string, i, width int) (uint32, error) {
	start := i + 2
	if start+width > len(s) {
		return 0, &SyntaxError{Offset: i, Msg: "truncated escape"}
	}

	var v uint32
	for k := start; k < start+width; k++ {
		h := hexValue[s[k]]
		if h < 0 {
			return 0, &SyntaxError{Offset: k, Msg: "invalid hex digit"}
		}
		v = v<<4 | uint32(h)
	}

	return v, nil
}
