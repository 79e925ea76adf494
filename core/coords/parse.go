package coords

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bonimy/ibe/core/ibeerr"
)

// floatPrefix matches the longest valid floating point literal at the
// start of a string, the same job strtod's end-pointer does.
var floatPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// Unit-matching table. Case-sensitive, anchored, trailing whitespace
// allowed.
var (
	pixRe    = regexp.MustCompile(`^(?:px?|pix(?:els?)?)\s*$`)
	arcsecRe = regexp.MustCompile(`^(?:"|a(?:rc)?-?sec(?:onds?)?)\s*$`)
	arcminRe = regexp.MustCompile(`^(?:'|a(?:rc)?-?min(?:utes?)?)\s*$`)
	degRe    = regexp.MustCompile(`^(?:d(?:eg(?:rees?)?)?)\s*$`)
	radRe    = regexp.MustCompile(`^rad(?:ians?)?\s*$`)
)

// Parse turns value (the raw query-string parameter) into a Coords.
// key is used only for diagnostic messages. defaultUnits is used when
// value has no trailing unit token. requirePair forces a comma-separated
// pair; without it a single number is broadcast to both components.
func Parse(key, value string, defaultUnits Units, requirePair bool) (Coords, error) {
	badf := func() error {
		n := "1 or 2"
		if requirePair {
			n = "2"
		}
		return ibeerr.BadRequestf(
			"value of %s parameter must consist of %s comma separated floating point numbers, "+
				"followed by an optional units specification", key, n)
	}

	comma := strings.IndexByte(value, ',')
	if comma < 0 && requirePair {
		return Coords{}, badf()
	}

	m := floatPrefix.FindString(value)
	if m == "" {
		return Coords{}, badf()
	}
	c0, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return Coords{}, badf()
	}
	rest := value[len(m):]

	var c1 float64
	if requirePair || comma >= 0 {
		pos := len(m)
		skip := 0
		for skip < len(rest) && isSpace(rest[skip]) {
			skip++
		}
		if pos+skip != comma {
			return Coords{}, badf()
		}
		tail := value[comma+1:]
		m2 := floatPrefix.FindString(tail)
		if m2 == "" {
			return Coords{}, badf()
		}
		c1, err = strconv.ParseFloat(m2, 64)
		if err != nil {
			return Coords{}, badf()
		}
		rest = tail[len(m2):]
	} else {
		c1 = c0
	}

	i := 0
	for i < len(rest) && isSpace(rest[i]) {
		i++
	}
	unitTok := rest[i:]

	units := defaultUnits
	if unitTok != "" {
		u, ok := matchUnit(unitTok)
		if !ok {
			return Coords{}, ibeerr.BadRequestf(
				"value of %s parameter has invalid trailing unit specification", key)
		}
		units = u
	}

	return Coords{C: [2]float64{c0, c1}, Units: units}, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func matchUnit(s string) (Units, bool) {
	switch {
	case pixRe.MatchString(s):
		return PIX, true
	case arcsecRe.MatchString(s):
		return ARCSEC, true
	case arcminRe.MatchString(s):
		return ARCMIN, true
	case degRe.MatchString(s):
		return DEG, true
	case radRe.MatchString(s):
		return RAD, true
	default:
		return 0, false
	}
}

// unitToken returns the canonical trailing-unit token Format emits for u.
func unitToken(u Units) string {
	switch u {
	case PIX:
		return "pix"
	case ARCSEC:
		return "arcsec"
	case ARCMIN:
		return "arcmin"
	case DEG:
		return "deg"
	case RAD:
		return "rad"
	default:
		return ""
	}
}

// Format is the inverse of Parse for the canonical unit tokens: it never
// emits the single-letter or symbolic aliases (p, ", ' ...), only the
// long form, so Parse(Format(c)) round-trips for every Coords value
// regardless of which alias a caller originally used.
func Format(c Coords) string {
	return fmt.Sprintf("%v,%v %s", c.C[0], c.C[1], unitToken(c.Units))
}
