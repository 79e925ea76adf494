package wcs

import (
	"fmt"
	"math"
	"net/http"
	"testing"

	"github.com/bonimy/ibe/core/fitsio"
	"github.com/bonimy/ibe/core/ibeerr"
)

func card(keyword, value string) fitsio.Card {
	return fitsio.Card{Keyword: keyword, Value: value}
}

func tanCards() []fitsio.Card {
	return []fitsio.Card{
		card("CTYPE1", "'RA---TAN'"),
		card("CTYPE2", "'DEC--TAN'"),
		card("CRPIX1", "512.0"),
		card("CRPIX2", "512.0"),
		card("CRVAL1", "10.0"),
		card("CRVAL2", "20.0"),
		card("CD1_1", "-0.0002777777778"),
		card("CD1_2", "0.0"),
		card("CD2_1", "0.0"),
		card("CD2_2", "0.0002777777778"),
	}
}

func TestPixelSkyRoundTrip(t *testing.T) {
	w, err := FromHeader(tanCards())
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	pixels := [][2]float64{{512, 512}, {100, 200}, {800, 50}, {300, 900}}
	for _, p := range pixels {
		sky, err := w.PixelToSky(p)
		if err != nil {
			t.Fatalf("PixelToSky(%v): %v", p, err)
		}
		back, err := w.SkyToPixel(sky)
		if err != nil {
			t.Fatalf("SkyToPixel(%v): %v", sky, err)
		}
		if math.Abs(back[0]-p[0]) > 1e-6 || math.Abs(back[1]-p[1]) > 1e-6 {
			t.Errorf("round trip for pix %v: got %v via sky %v", p, back, sky)
		}
	}
}

func TestCenterPixelMapsToReferenceValue(t *testing.T) {
	w, err := FromHeader(tanCards())
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	sky, err := w.PixelToSky([2]float64{512, 512})
	if err != nil {
		t.Fatalf("PixelToSky: %v", err)
	}
	if math.Abs(sky[0]-10.0) > 1e-9 || math.Abs(sky[1]-20.0) > 1e-9 {
		t.Errorf("reference pixel mapped to %v, want (10, 20)", sky)
	}
}

func TestRejectsUnsupportedProjection(t *testing.T) {
	cards := tanCards()
	cards[0] = card("CTYPE1", "'RA---SIN'")
	_, err := FromHeader(cards)
	if err == nil {
		t.Fatalf("expected an error for an unsupported projection")
	}
	se, ok := err.(ibeerr.Error)
	if !ok || se.Status() != http.StatusInternalServerError {
		t.Errorf("FromHeader error = %v, want an Internal-class error (the WCS could not be built at all)", err)
	}
}

func sipCards() []fitsio.Card {
	cards := tanCards()
	cards[0] = card("CTYPE1", "'RA---TAN-SIP'")
	cards[1] = card("CTYPE2", "'DEC--TAN-SIP'")
	// Distortion cards are deliberately small-magnitude, matching what
	// real SIP headers carry, so the iterative inverse converges.
	cards = append(cards,
		card("A_2_0", "1.2e-6"),
		card("A_0_2", "-0.8e-6"),
		card("B_2_0", "-0.6e-6"),
		card("B_0_2", "1.1e-6"),
		// A PVi_ma distortion card the -SIP suffix means this adapter
		// must ignore in favor of the SIP terms above.
		card("PV1_1", "999"),
	)
	return cards
}

func TestSIPDistortionRoundTrip(t *testing.T) {
	w, err := FromHeader(sipCards())
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	if w.sip == nil {
		t.Fatalf("expected SIP terms to be parsed")
	}
	pixels := [][2]float64{{512, 512}, {200, 700}, {900, 150}}
	for _, p := range pixels {
		sky, err := w.PixelToSky(p)
		if err != nil {
			t.Fatalf("PixelToSky(%v): %v", p, err)
		}
		back, err := w.SkyToPixel(sky)
		if err != nil {
			t.Fatalf("SkyToPixel(%v): %v", sky, err)
		}
		if math.Abs(back[0]-p[0]) > 1e-4 || math.Abs(back[1]-p[1]) > 1e-4 {
			t.Errorf("SIP round trip for pix %v: got %v", p, back)
		}
	}
}

func TestSIPDistortsAwayFromLinear(t *testing.T) {
	linear, _ := FromHeader(tanCards())
	distorted, _ := FromHeader(sipCards())

	p := [2]float64{900, 150}
	skyLinear, _ := linear.PixelToSky(p)
	skyDistorted, _ := distorted.PixelToSky(p)
	if skyLinear == skyDistorted {
		t.Errorf("SIP-distorted sky position should differ from the pure linear one")
	}
}

func TestMissingCTYPEIsInternal(t *testing.T) {
	_, err := FromHeader(nil)
	if err == nil {
		t.Fatalf("expected an error for a header with no CTYPE cards")
	}
	se, ok := err.(ibeerr.Error)
	if !ok || se.Status() != http.StatusInternalServerError {
		t.Errorf("FromHeader error = %v, want an Internal-class error (the WCS could not be built at all)", err)
	}
}

func TestSkyToPixelOffTangentPlaneFailsCleanly(t *testing.T) {
	w, err := FromHeader(tanCards())
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	// A sky position on the far side of the sphere from the tangent
	// point has no corresponding pixel.
	if _, err := w.SkyToPixel([2]float64{190, -20}); err == nil {
		t.Errorf("expected an error for a sky position off the tangent plane")
	}
}

func TestCROTAFallbackMatchesCDMatrix(t *testing.T) {
	cdCards := tanCards()
	cdWCS, err := FromHeader(cdCards)
	if err != nil {
		t.Fatalf("FromHeader (CD): %v", err)
	}

	croCards := []fitsio.Card{
		card("CTYPE1", "'RA---TAN'"),
		card("CTYPE2", "'DEC--TAN'"),
		card("CRPIX1", "512.0"),
		card("CRPIX2", "512.0"),
		card("CRVAL1", "10.0"),
		card("CRVAL2", "20.0"),
		card("CDELT1", "-0.0002777777778"),
		card("CDELT2", "0.0002777777778"),
		card("CROTA2", "0.0"),
	}
	croWCS, err := FromHeader(croCards)
	if err != nil {
		t.Fatalf("FromHeader (CROTA2): %v", err)
	}

	for _, p := range [][2]float64{{512, 512}, {300, 700}} {
		skyCD, _ := cdWCS.PixelToSky(p)
		skyCRO, _ := croWCS.PixelToSky(p)
		if math.Abs(skyCD[0]-skyCRO[0]) > 1e-9 || math.Abs(skyCD[1]-skyCRO[1]) > 1e-9 {
			t.Errorf("pixel %v: CD=%v CROTA2=%v", p, skyCD, skyCRO)
		}
	}
}

func ExampleWCS_PixelToSky() {
	w, _ := FromHeader(tanCards())
	sky, _ := w.PixelToSky([2]float64{512, 512})
	fmt.Printf("%.4f,%.4f\n", sky[0], sky[1])
	// Output: 10.0000,20.0000
}
