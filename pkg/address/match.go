package address

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedPattern reports a pattern whose character class or
// alternation group is missing its closing byte.
var ErrUnterminatedPattern = errors.New("unterminated pattern")

// Match reports whether name matches pattern.
//
// Exactly one side of the comparison may carry pattern syntax. When
// name itself contains pattern characters the comparison degrades to
// byte equality, so two patterns never glob against each other. A
// pattern-free pattern likewise compares by byte equality.
//
// The matcher is a single pass over both strings with one backtrack
// point for the most recent `*`, O(n*m) in the worst case.
func Match(name, pattern Address) (bool, error) {
	if name.HasPattern() || !pattern.HasPattern() {
		return name.str == pattern.str, nil
	}
	return globMatch(name.str, pattern.str)
}

// MatchString is Match over raw strings.
func MatchString(name, pattern string) (bool, error) {
	return Match(New(name), New(pattern))
}

func globMatch(name, pat string) (bool, error) {
	var (
		ni, pi int
		starPi = -1 // pattern position just past the most recent '*'
		starNi int  // name position to resume from after a mismatch
	)
	for ni < len(name) {
		matched := false
		if pi < len(pat) {
			switch pat[pi] {
			case '*':
				starPi, starNi = pi+1, ni
				pi++
				continue
			case '?':
				pi++
				ni++
				continue
			case '[':
				ok, w, err := matchClass(pat[pi:], name[ni])
				if err != nil {
					return false, err
				}
				if ok {
					pi += w
					ni++
					matched = true
				}
			case '{':
				n, w, err := matchAlternatives(pat[pi:], name[ni:])
				if err != nil {
					return false, err
				}
				if n >= 0 {
					pi += w
					ni += n
					matched = true
				}
			default:
				if pat[pi] == name[ni] {
					pi++
					ni++
					matched = true
				}
			}
		}
		if matched {
			continue
		}
		if starPi < 0 {
			return false, nil
		}
		// Re-feed one more name byte to the star and retry.
		starNi++
		ni = starNi
		pi = starPi
	}
	// Name exhausted: only trailing stars may remain in the pattern.
	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat), nil
}

// matchClass matches one byte against the [...] class at the start of
// pat. It returns whether b is in the class and the class width in
// pattern bytes, including both brackets.
func matchClass(pat string, b byte) (matched bool, width int, err error) {
	i := 1
	negate := false
	if i < len(pat) && pat[i] == '!' {
		negate = true
		i++
	}
	in := false
	for {
		if i >= len(pat) {
			return false, 0, fmt.Errorf("%w: missing ']' in %q", ErrUnterminatedPattern, pat)
		}
		if pat[i] == ']' {
			i++
			break
		}
		// a-b is a range unless the '-' is the last byte before ']'.
		if i+2 < len(pat) && pat[i+1] == '-' && pat[i+2] != ']' {
			if pat[i] <= b && b <= pat[i+2] {
				in = true
			}
			i += 3
		} else {
			if pat[i] == b {
				in = true
			}
			i++
		}
	}
	if negate {
		in = !in
	}
	return in, i, nil
}

// matchAlternatives matches the {a,b,c} group at the start of pat
// against the head of name. It returns the number of name bytes the
// first matching alternative consumes (-1 when none match) and the
// group width in pattern bytes, including both braces.
func matchAlternatives(pat, name string) (consumed, width int, err error) {
	end := strings.IndexByte(pat, '}')
	if end < 0 {
		return 0, 0, fmt.Errorf("%w: missing '}' in %q", ErrUnterminatedPattern, pat)
	}
	for _, alt := range strings.Split(pat[1:end], ",") {
		if strings.HasPrefix(name, alt) {
			return len(alt), end + 1, nil
		}
	}
	return -1, end + 1, nil
}
