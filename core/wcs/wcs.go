// Package wcs implements a world-coordinate-system adapter covering the
// gnomonic (TAN) projection family plus the SIP polynomial distortion
// convention - the subset of the FITS WCS standard cutout headers
// typically carry. Headers using any other projection (anything but
// TAN/TAN-SIP) are rejected with an Internal-class error rather than
// silently mishandled.
package wcs

import (
	"math"
	"strconv"
	"strings"

	"github.com/bonimy/ibe/core/fitsio"
	"github.com/bonimy/ibe/core/ibeerr"
)

// WCS holds the parsed, ready-to-use coordinate transform for one image
// HDU: a reference pixel/value pair, a linear plate-scale matrix, and an
// optional SIP distortion polynomial.
type WCS struct {
	crpix [2]float64
	crval [2]float64 // degrees
	cd    [2][2]float64
	cdInv [2][2]float64

	sip *sipTerms
}

// FromHeader parses the WCS keywords out of cards and finalizes a usable
// transform. It fails with an Internal-class error when the header
// doesn't carry a TAN or TAN-SIP projection - a WCS that cannot be built
// from the header at all, as distinct from a BadRequest-class rejection
// of a pixel/sky value once a WCS already exists.
func FromHeader(cards []fitsio.Card) (*WCS, error) {
	ctype1, _ := value(cards, "CTYPE1")
	ctype2, _ := value(cards, "CTYPE2")
	if ctype1 == "" || ctype2 == "" {
		return nil, ibeerr.Internalf("wcs: header has no CTYPE1/CTYPE2")
	}
	isSIP := strings.HasSuffix(ctype1, "-SIP") && strings.HasSuffix(ctype2, "-SIP")
	base1 := strings.TrimSuffix(ctype1, "-SIP")
	base2 := strings.TrimSuffix(ctype2, "-SIP")
	if !strings.HasPrefix(base1, "RA---TAN") && !strings.HasPrefix(base1, "GLON-TAN") {
		return nil, ibeerr.Internalf("wcs: unsupported projection %q (only TAN/TAN-SIP)", ctype1)
	}
	if !strings.HasPrefix(base2, "DEC--TAN") && !strings.HasPrefix(base2, "GLAT-TAN") {
		return nil, ibeerr.Internalf("wcs: unsupported projection %q (only TAN/TAN-SIP)", ctype2)
	}

	w := &WCS{}
	w.crpix[0] = floatValue(cards, "CRPIX1", 0)
	w.crpix[1] = floatValue(cards, "CRPIX2", 0)
	w.crval[0] = floatValue(cards, "CRVAL1", 0)
	w.crval[1] = floatValue(cards, "CRVAL2", 0)

	w.cd = buildCDMatrix(cards)
	det := w.cd[0][0]*w.cd[1][1] - w.cd[0][1]*w.cd[1][0]
	if det == 0 {
		return nil, ibeerr.Internalf("wcs: singular CD matrix")
	}
	w.cdInv = [2][2]float64{
		{w.cd[1][1] / det, -w.cd[0][1] / det},
		{-w.cd[1][0] / det, w.cd[0][0] / det},
	}

	// PVi_ma distortion cards are never read. When both axes carry -SIP
	// only the SIP terms are applied, so SIP wins over any PVi_ma cards
	// in the header; a plain TAN header gets no distortion at all.
	if isSIP {
		w.sip = parseSIP(cards)
	}

	return w, nil
}

// buildCDMatrix derives the 2x2 plate-scale matrix from either an explicit
// CDi_j card set or the older CDELTi + CROTA2 convention.
func buildCDMatrix(cards []fitsio.Card) [2][2]float64 {
	if _, ok := valueOK(cards, "CD1_1"); ok {
		return [2][2]float64{
			{floatValue(cards, "CD1_1", 1), floatValue(cards, "CD1_2", 0)},
			{floatValue(cards, "CD2_1", 0), floatValue(cards, "CD2_2", 1)},
		}
	}
	cdelt1 := floatValue(cards, "CDELT1", 1)
	cdelt2 := floatValue(cards, "CDELT2", 1)
	crota2 := floatValue(cards, "CROTA2", 0) * math.Pi / 180
	cos, sin := math.Cos(crota2), math.Sin(crota2)
	return [2][2]float64{
		{cdelt1 * cos, -cdelt2 * sin},
		{cdelt1 * sin, cdelt2 * cos},
	}
}

// PixelToSky maps a FITS 1-based pixel coordinate (pixel 1's center sits
// at coordinate 1.0, matching CRPIX) to (ra, dec) in degrees.
func (w *WCS) PixelToSky(pix [2]float64) ([2]float64, error) {
	u := pix[0] - w.crpix[0]
	v := pix[1] - w.crpix[1]
	if w.sip != nil {
		du, dv := w.sip.forward(u, v)
		u += du
		v += dv
	}

	xiDeg := w.cd[0][0]*u + w.cd[0][1]*v
	etaDeg := w.cd[1][0]*u + w.cd[1][1]*v

	ra, dec, ok := deproject(xiDeg, etaDeg, w.crval[0], w.crval[1])
	if !ok {
		return [2]float64{}, ibeerr.BadRequestf("wcs: pixel maps to an invalid sky position")
	}
	return [2]float64{ra, dec}, nil
}

// SkyToPixel maps (ra, dec) in degrees to a FITS 1-based pixel coordinate.
func (w *WCS) SkyToPixel(sky [2]float64) ([2]float64, error) {
	xiDeg, etaDeg, ok := project(sky[0], sky[1], w.crval[0], w.crval[1])
	if !ok {
		return [2]float64{}, ibeerr.BadRequestf("wcs: sky position is not on the tangent plane")
	}

	u := w.cdInv[0][0]*xiDeg + w.cdInv[0][1]*etaDeg
	v := w.cdInv[1][0]*xiDeg + w.cdInv[1][1]*etaDeg

	if w.sip != nil {
		u, v = w.sip.invert(u, v)
	}

	return [2]float64{u + w.crpix[0], v + w.crpix[1]}, nil
}

// deproject is the TAN (gnomonic) inverse: standard coordinates (xi, eta,
// in degrees) to celestial (ra, dec, in degrees), relative to tangent
// point (ra0, dec0). ok is false when the standard coordinates describe a
// point behind the tangent plane, which callers map to BadRequest.
func deproject(xiDeg, etaDeg, ra0, dec0 float64) (ra, dec float64, ok bool) {
	xi := xiDeg * math.Pi / 180
	eta := etaDeg * math.Pi / 180
	ra0r := ra0 * math.Pi / 180
	dec0r := dec0 * math.Pi / 180

	d := math.Cos(dec0r) - eta*math.Sin(dec0r)
	if d == 0 && xi == 0 {
		return 0, 0, false
	}
	raR := ra0r + math.Atan2(xi, d)
	decR := math.Atan2(math.Sin(dec0r)+eta*math.Cos(dec0r), math.Hypot(xi, d))

	if math.IsNaN(raR) || math.IsNaN(decR) {
		return 0, 0, false
	}
	ra = math.Mod(raR*180/math.Pi+360, 360)
	dec = decR * 180 / math.Pi
	if math.Abs(dec) > 90 {
		return 0, 0, false
	}
	return ra, dec, true
}

// project is the TAN forward transform: celestial (ra, dec, degrees) to
// standard coordinates (xi, eta, degrees) about tangent point (ra0, dec0).
func project(ra, dec, ra0, dec0 float64) (xiDeg, etaDeg float64, ok bool) {
	raR := ra * math.Pi / 180
	decR := dec * math.Pi / 180
	ra0r := ra0 * math.Pi / 180
	dec0r := dec0 * math.Pi / 180

	dra := raR - ra0r
	denom := math.Sin(decR)*math.Sin(dec0r) + math.Cos(decR)*math.Cos(dec0r)*math.Cos(dra)
	if denom <= 0 {
		return 0, 0, false
	}
	xi := math.Cos(decR) * math.Sin(dra) / denom
	eta := (math.Sin(decR)*math.Cos(dec0r) - math.Cos(decR)*math.Sin(dec0r)*math.Cos(dra)) / denom

	if math.IsNaN(xi) || math.IsNaN(eta) {
		return 0, 0, false
	}
	return xi * 180 / math.Pi, eta * 180 / math.Pi, true
}

func value(cards []fitsio.Card, keyword string) (string, bool) {
	for _, c := range cards {
		if c.Keyword == keyword {
			v := strings.TrimSpace(c.Value)
			if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
				return strings.TrimRight(v[1:len(v)-1], " "), true
			}
			return v, true
		}
	}
	return "", false
}

func valueOK(cards []fitsio.Card, keyword string) (string, bool) {
	return value(cards, keyword)
}

func floatValue(cards []fitsio.Card, keyword string, def float64) float64 {
	v, ok := value(cards, keyword)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
