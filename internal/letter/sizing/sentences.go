package sizing

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]bool{
	"u.s.": true, "u.s.a.": true, "mr.": true, "mrs.": true, "ms.": true, "dr.": true,
	"e.g.": true, "i.e.": true, "no.": true, "st.": true, "jr.": true, "sr.": true,
	"inc.": true, "ltd.": true, "co.": true, "vs.": true, "approx.": true, "dept.": true,
}

// endsWithAbbreviation reports whether the last word of fields is an
// abbreviation rather than the end of a sentence.
func endsWithAbbreviation(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	w := strings.ToLower(strings.TrimLeft(fields[len(fields)-1], `("'“‘[`))
	if abbreviations[w] {
		return true
	}
	// Initials such as the "A." in "Roberto A. Lima", but not "Exhibit A."
	r := []rune(w)
	if len(r) != 2 || !unicode.IsLetter(r[0]) || r[1] != '.' {
		return false
	}
	if len(fields) >= 2 {
		switch strings.ToLower(strings.Trim(fields[len(fields)-2], `(,`)) {
		case "exhibit", "exhibits", "and", "&":
			return false
		}
	}
	return true
}

func isCloser(r rune) bool {
	switch r {
	case ')', ']', '"', '\'', '”', '’':
		return true
	}
	return false
}

// Sentences splits text on terminal punctuation followed by whitespace.
// Line breaks always end a sentence, so labelled summary lines stay intact.
func Sentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		for i+1 < len(runes) && (isCloser(runes[i+1]) || runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
			i++
			cur.WriteRune(runes[i])
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' {
			if endsWithAbbreviation(strings.Fields(cur.String())) {
				continue
			}
		}
		flush()
	}
	flush()
	return out
}
