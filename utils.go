package emuera

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

//
// Pad a string with spaces if needed. Widths count runes, so wide
// script text lines up the way it reads
//

func padString(str string, minlen int, leftPad bool) string {

	n := utf8.RuneCountInString(str)
	if n >= minlen {
		return str
	}
	if leftPad {
		return strings.Repeat(" ", minlen-n) + str
	}
	return str + strings.Repeat(" ", minlen-n)
}

// leftPad formats n with leading zeros to width digits.
func leftPad(n int, width int) string {

	s := strconv.Itoa(n)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

//
// Strip a trailing ; comment. A semicolon inside a quoted string is
// text, and so is one escaped with a backslash
//

func stripComment(line string) string {

	var quoting bool

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			quoting = !quoting
		case ';':
			if !quoting {
				return line[:i]
			}
		}
	}
	return line
}

//
// Pluralize appends "s" to word unless n is exactly 1, so a count of
// zero reads as plural
//

func Pluralize(word string, n int64) string {

	if n == 1 {
		return word
	}
	return word + "s"
}
