package common

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var imdbTitleIDRE = regexp.MustCompile(`^tt\d+$`)

// ValidateIMDBTitleID checks that ID is an IMDb title ID, 'tt' followed by digits.
// Only the IMDb provider requires this format; other identifiers are opaque.
func ValidateIMDBTitleID(ID string) error {
	if !imdbTitleIDRE.MatchString(ID) {
		return errors.New("invalid IMDB title")
	}

	return nil
}

// ValidateIdentifier checks that an opaque catalog identifier is safe to forward upstream.
// Identifiers are not required to be IMDb IDs, they only must be non-empty printable tokens.
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.New("empty identifier")
	}
	if len(id) > 64 {
		return errors.New("identifier too long")
	}
	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || !unicode.IsPrint(r) }) >= 0 {
		return errors.New("identifier contains whitespace or control characters")
	}

	return nil
}

// ValidateSearchType checks if the search type filter is valid.
// It expects 'movie', 'series' and 'episode', or empty for no filter.
func ValidateSearchType(t string) error {
	switch t {
	case "", "movie", "series", "episode":
		return nil
	}

	return errors.New("invalid search type, only movie, series and episode are supported")
}

// ValidateYear checks if the year filter is a four digit number, or empty for no filter.
func ValidateYear(year string) error {
	if year == "" {
		return nil
	}
	if len(year) != 4 {
		return errors.New("invalid year, expected four digits")
	}
	if _, err := strconv.Atoi(year); err != nil {
		return errors.New("invalid year, not a number")
	}

	return nil
}
