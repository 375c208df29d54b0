package value

import (
	"strconv"
	"strings"
)

var simpleEscapes = map[byte]byte{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
	'0':  0,
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'v':  '\v',
}

// Unescape decodes backslash escape sequences in s.
//
// Recognized: \n \t \r \\ \" \' \0 \a \b \f \v and \xHH. Any other sequence,
// including a trailing lone backslash, is kept literally.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}

		next := s[i+1]
		if decoded, ok := simpleEscapes[next]; ok {
			sb.WriteByte(decoded)
			i++
			continue
		}
		if next == 'x' && i+3 < len(s) {
			if b, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				sb.WriteByte(byte(b))
				i += 3
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
