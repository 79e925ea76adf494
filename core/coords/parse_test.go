package coords

import (
	"math"
	"testing"
)

func TestParsePairWithUnit(t *testing.T) {
	c, err := Parse("center", "10.5,20.25 deg", DEG, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.C[0] != 10.5 || c.C[1] != 20.25 || c.Units != DEG {
		t.Errorf("got %+v", c)
	}
}

func TestParseSingleValueBroadcast(t *testing.T) {
	c, err := Parse("size", "50 pix", DEG, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.C[0] != 50 || c.C[1] != 50 || c.Units != PIX {
		t.Errorf("got %+v", c)
	}
}

func TestParseRequiresPairWithoutComma(t *testing.T) {
	_, err := Parse("center", "10.5 deg", DEG, true)
	if err == nil {
		t.Fatal("expected error for missing comma on required pair")
	}
}

func TestParseDefaultUnit(t *testing.T) {
	c, err := Parse("center", "1,2", ARCMIN, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Units != ARCMIN {
		t.Errorf("Units = %v, want ARCMIN", c.Units)
	}
}

func TestParseMisalignedUnitGap(t *testing.T) {
	// Only whitespace may sit between the first number and the comma -
	// this input has a unit token in that gap, so the comma is misaligned.
	_, err := Parse("center", "10.5 deg,20", DEG, true)
	if err == nil {
		t.Fatal("expected error for misaligned comma")
	}
}

func TestParseBadNumber(t *testing.T) {
	_, err := Parse("center", "abc,20", DEG, true)
	if err == nil {
		t.Fatal("expected error for unparsable number")
	}
}

func TestParseUnknownUnit(t *testing.T) {
	_, err := Parse("size", "10,10 furlongs", DEG, true)
	if err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestUnitAliases(t *testing.T) {
	cases := []struct {
		tok  string
		want Units
	}{
		{"p", PIX}, {"px", PIX}, {"pix", PIX}, {"pixel", PIX}, {"pixels", PIX},
		{"\"", ARCSEC}, {"asec", ARCSEC}, {"arcsec", ARCSEC}, {"arc-sec", ARCSEC}, {"arcseconds", ARCSEC},
		{"'", ARCMIN}, {"amin", ARCMIN}, {"arcmin", ARCMIN}, {"arc-min", ARCMIN}, {"arcminutes", ARCMIN},
		{"d", DEG}, {"deg", DEG}, {"degree", DEG}, {"degrees", DEG},
		{"rad", RAD}, {"radian", RAD}, {"radians", RAD},
	}
	for _, c := range cases {
		got, ok := matchUnit(c.tok)
		if !ok {
			t.Errorf("matchUnit(%q) did not match", c.tok)
			continue
		}
		if got != c.want {
			t.Errorf("matchUnit(%q) = %v, want %v", c.tok, got, c.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, u := range []Units{PIX, ARCSEC, ARCMIN, DEG, RAD} {
		c := Coords{C: [2]float64{1.25, -3.5}, Units: u}
		s := Format(c)
		got, err := Parse("x", s, DEG, true)
		if err != nil {
			t.Fatalf("Parse(Format(%v)) failed: %v", c, err)
		}
		if math.Abs(got.C[0]-c.C[0]) > 1e-12 || math.Abs(got.C[1]-c.C[1]) > 1e-12 || got.Units != c.Units {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, c)
		}
	}
}
