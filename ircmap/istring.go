// written by Daniel Oaks <daniel@danieloaks.net>
// released under the ISC license

package ircmap

import (
	"strings"

	"golang.org/x/text/secure/precis"

	"github.com/DanielOaks/go-idn/idna2003/stringprep"
)

// MappingType values represent the types of IRC casemapping we support.
type MappingType int

const (
	// NONE represents no casemapping.
	NONE MappingType = 0 + iota

	// ASCII represents the traditional "ascii" casemapping.
	ASCII

	// RFC1459 represents the casemapping defined by "rfc1459", where []\~
	// are the upper-case forms of {}|^.
	RFC1459

	// StrictRFC1459 is "strict-rfc1459", which is RFC1459 without the ~/^ pair.
	StrictRFC1459

	// RFC3454 represents the UTF-8 nameprep casefolding.
	RFC3454

	// RFC7613 represents the PRECIS UsernameCaseMapped casefolding.
	RFC7613
)

var (
	// Mappings is a mapping of ISUPPORT CASEMAPPING strings to our MappingTypes.
	Mappings = map[string]MappingType{
		"ascii":          ASCII,
		"rfc1459":        RFC1459,
		"strict-rfc1459": StrictRFC1459,
		"rfc1459-strict": StrictRFC1459,
		"rfc3454":        RFC3454,
		"rfc7613":        RFC7613,
		"precis":         RFC7613,
	}
)

// ParseMapping returns the MappingType named by an ISUPPORT CASEMAPPING
// value. Unknown names fall back to RFC1459, the protocol default.
func ParseMapping(name string) MappingType {
	if mapping, ok := Mappings[strings.ToLower(name)]; ok {
		return mapping
	}
	return RFC1459
}

// rfc1459Fold casefolds only the special chars defined by RFC1459 -- the
// others are handled by the strings.ToLower earlier.
func rfc1459Fold(r rune) rune {
	if '[' <= r && r <= '^' {
		r += '{' - '['
	}
	return r
}

func strictRFC1459Fold(r rune) rune {
	if '[' <= r && r <= ']' {
		r += '{' - '['
	}
	return r
}

// Casefold returns a string, lowercased/casefolded according to the given
// mapping as defined by this package (or an error if the given string is not
// valid in the chosen mapping).
func Casefold(mapping MappingType, input string) (string, error) {
	switch mapping {
	case ASCII:
		return asciiLower(input), nil
	case RFC1459:
		return strings.Map(rfc1459Fold, asciiLower(input)), nil
	case StrictRFC1459:
		return strings.Map(strictRFC1459Fold, asciiLower(input)), nil
	case RFC3454:
		return stringprep.Nameprep(input)
	case RFC7613:
		return precis.UsernameCaseMapped.CompareKey(input)
	}
	return input, nil
}

// Fold is Casefold for use as a lookup key: input that is invalid in the
// mapping is folded as ascii instead of failing.
func Fold(mapping MappingType, input string) string {
	out, err := Casefold(mapping, input)
	if err != nil {
		return asciiLower(input)
	}
	return out
}

func asciiLower(input string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			r += 'a' - 'A'
		}
		return r
	}, input)
}
