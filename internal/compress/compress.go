// Package compress implements a small LZ77 text compressor whose output is
// printable ASCII, so it can be placed into a URL query value after
// percent-encoding.
//
// Every byte of the input survives a round trip, including control bytes
// and invalid UTF-8. Escapes and back-references are introduced by '~':
//
//	~~          literal '~'
//	~A .. ~f    control byte 0x00..0x1F
//	~xHH        single raw byte (0x7F, bytes of invalid UTF-8)
//	~uHHHH      rune U+0080..U+FFFF
//	~wHHHHHH    rune above U+FFFF
//	~rLDD       copy L+6 bytes from DD+1 bytes back (base-64 digits)
package compress

import (
	"strings"
	"unicode/utf8"
)

const (
	escape = '~'

	codeByte   = 'x'
	codeRune   = 'u'
	codeWide   = 'w'
	codeRepeat = 'r'

	digitBase  = 64
	minMatch   = 6
	maxMatch   = minMatch + digitBase - 1
	windowSize = digitBase * digitBase

	// hash chain walk limit per position
	maxChain = 48
)

const (
	digits       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"
	hexDigits    = "0123456789abcdef"
	controlCodes = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdef"
)

var (
	digitValue   [256]int8
	hexValue     [256]int8
	controlValue [256]int8
)

func init() {
	for i := 0; i < 256; i++ {
		digitValue[i] = -1
		hexValue[i] = -1
		controlValue[i] = -1
	}
	for i := 0; i < len(digits); i++ {
		digitValue[digits[i]] = int8(i)
	}
	for i := 0; i < len(hexDigits); i++ {
		hexValue[hexDigits[i]] = int8(i)
		if c := hexDigits[i]; c >= 'a' {
			hexValue[c-32] = int8(i)
		}
	}
	for i := 0; i < len(controlCodes); i++ {
		controlValue[controlCodes[i]] = int8(i)
	}
}

// Compress encodes s into printable ASCII. Input without repetitions may
// grow, but Decompress always restores it exactly.
func Compress(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	m := newMatcher(s)
	for i := 0; i < len(s); {
		if length, dist := m.find(i); length >= minMatch {
			writeRepeat(&b, length, dist)
			for j := i; j < i+length; j++ {
				m.insert(j)
			}
			i += length
			continue
		}

		n := writeLiteral(&b, s, i)
		for j := i; j < i+n; j++ {
			m.insert(j)
		}
		i += n
	}

	return b.String()
}

// writeLiteral emits the symbol starting at s[i] and returns how many input
// bytes it consumed.
func writeLiteral(b *strings.Builder, s string, i int) int {
	c := s[i]
	switch {
	case c == escape:
		b.WriteByte(escape)
		b.WriteByte(escape)
		return 1
	case c < 0x20:
		b.WriteByte(escape)
		b.WriteByte(controlCodes[c])
		return 1
	case c < 0x7f:
		b.WriteByte(c)
		return 1
	case c == 0x7f:
		writeHex(b, codeByte, uint32(c), 2)
		return 1
	}

	r, size := utf8.DecodeRuneInString(s[i:])
	if r == utf8.RuneError && size <= 1 {
		writeHex(b, codeByte, uint32(c), 2)
		return 1
	}
	if r <= 0xffff {
		writeHex(b, codeRune, uint32(r), 4)
	} else {
		writeHex(b, codeWide, uint32(r), 6)
	}
	return size
}

func writeHex(b *strings.Builder, code byte, v uint32, width int) {
	b.WriteByte(escape)
	b.WriteByte(code)
	for shift := (width - 1) * 4; shift >= 0; shift -= 4 {
		b.WriteByte(hexDigits[(v>>uint(shift))&0xf])
	}
}

func writeRepeat(b *strings.Builder, length, dist int) {
	d := dist - 1
	b.WriteByte(escape)
	b.WriteByte(codeRepeat)
	b.WriteByte(digits[length-minMatch])
	b.WriteByte(digits[d/digitBase])
	b.WriteByte(digits[d%digitBase])
}

// matcher finds earlier occurrences of the bytes at a position using hash
// chains over 4-byte prefixes.
type matcher struct {
	src  string
	head map[uint32]int
	prev []int
}

func newMatcher(s string) *matcher {
	return &matcher{
		src:  s,
		head: make(map[uint32]int),
		prev: make([]int, len(s)),
	}
}

func (m *matcher) key(i int) uint32 {
	s := m.src
	return uint32(s[i]) | uint32(s[i+1])<<8 | uint32(s[i+2])<<16 | uint32(s[i+3])<<24
}

func (m *matcher) insert(i int) {
	if i+4 > len(m.src) {
		return
	}
	h := m.key(i)
	if p, ok := m.head[h]; ok {
		m.prev[i] = p
	} else {
		m.prev[i] = -1
	}
	m.head[h] = i
}

func (m *matcher) find(i int) (length, dist int) {
	if i+minMatch > len(m.src) {
		return 0, 0
	}
	p, ok := m.head[m.key(i)]
	if !ok {
		return 0, 0
	}

	limit := len(m.src) - i
	if limit > maxMatch {
		limit = maxMatch
	}

	for chain := 0; p >= 0 && chain < maxChain; chain++ {
		d := i - p
		if d > windowSize {
			break
		}

		n := 0
		for n < limit && m.src[p+n] == m.src[i+n] {
			n++
		}
		if n > length {
			length, dist = n, d
			if n == limit {
				break
			}
		}
		p = m.prev[p]
	}

	return length, dist
}
