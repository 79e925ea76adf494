package pixelbox

import (
	"math"
	"testing"

	"github.com/bonimy/ibe/core/coords"
	"github.com/bonimy/ibe/core/fitsio"
	"github.com/bonimy/ibe/core/wcs"
)

func card(keyword, value string) fitsio.Card {
	return fitsio.Card{Keyword: keyword, Value: value}
}

// linearWCS returns a TAN WCS with a 1 arcsec/pixel scale, no rotation,
// centered at (ra=10, dec=20) on a 1000x1000 pixel grid.
func linearWCS(t *testing.T) *wcs.WCS {
	t.Helper()
	cards := []fitsio.Card{
		card("CTYPE1", "'RA---TAN'"),
		card("CTYPE2", "'DEC--TAN'"),
		card("CRPIX1", "500.0"),
		card("CRPIX2", "500.0"),
		card("CRVAL1", "10.0"),
		card("CRVAL2", "20.0"),
		card("CD1_1", "-0.0002777777778"),
		card("CD1_2", "0.0"),
		card("CD2_1", "0.0"),
		card("CD2_2", "0.0002777777778"),
	}
	w, err := wcs.FromHeader(cards)
	if err != nil {
		t.Fatalf("wcs.FromHeader: %v", err)
	}
	return w
}

func TestSolvePixUnits(t *testing.T) {
	center := coords.Coords{C: [2]float64{500, 500}, Units: coords.PIX}
	size := coords.Coords{C: [2]float64{10, 10}, Units: coords.PIX}
	box, ok, err := Solve(nil, center, size, 1000, 1000)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !ok {
		t.Fatalf("Solve reported no overlap")
	}
	want := Box{XMin: 495, YMin: 495, XMax: 505, YMax: 505}
	if box != want {
		t.Errorf("box = %+v, want %+v", box, want)
	}
}

func TestSolveDegreeUnitsNearIdentity(t *testing.T) {
	w := linearWCS(t)
	center := coords.Coords{C: [2]float64{10, 20}, Units: coords.DEG}
	size := coords.Coords{C: [2]float64{10, 10}, Units: coords.ARCMIN}
	box, ok, err := Solve(w, center, size, 1000, 1000)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !ok {
		t.Fatalf("Solve reported no overlap")
	}
	// 1 arcsec/px, 10 arcmin = 600 arcsec = 600 px across, centered on 500.
	if math.Abs(float64(box.XMax-box.XMin)-600) > 2 {
		t.Errorf("box width = %d, want ~600", box.XMax-box.XMin)
	}
	if math.Abs(float64(box.YMax-box.YMin)-600) > 2 {
		t.Errorf("box height = %d, want ~600", box.YMax-box.YMin)
	}
	centerX := float64(box.XMin+box.XMax) / 2
	centerY := float64(box.YMin+box.YMax) / 2
	if math.Abs(centerX-500) > 2 || math.Abs(centerY-500) > 2 {
		t.Errorf("box center = (%v, %v), want ~(500, 500)", centerX, centerY)
	}
}

func TestSolveRejectsOutOfRangeDeclination(t *testing.T) {
	w := linearWCS(t)
	center := coords.Coords{C: [2]float64{10, 120}, Units: coords.DEG}
	size := coords.Coords{C: [2]float64{1, 1}, Units: coords.ARCMIN}
	if _, _, err := Solve(w, center, size, 1000, 1000); err == nil {
		t.Errorf("expected an error for declination out of range")
	}
}

func TestSolveRejectsNegativeSize(t *testing.T) {
	w := linearWCS(t)
	center := coords.Coords{C: [2]float64{10, 20}, Units: coords.DEG}
	size := coords.Coords{C: [2]float64{-1, 1}, Units: coords.ARCMIN}
	if _, _, err := Solve(w, center, size, 1000, 1000); err == nil {
		t.Errorf("expected an error for a negative cutout size")
	}
}

func TestSolveNoOverlapReturnsFalse(t *testing.T) {
	center := coords.Coords{C: [2]float64{5000, 5000}, Units: coords.PIX}
	size := coords.Coords{C: [2]float64{10, 10}, Units: coords.PIX}
	box, ok, err := Solve(nil, center, size, 1000, 1000)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if ok {
		t.Errorf("Solve reported overlap for box = %+v, want none", box)
	}
}

func TestSolveClipsToImageBounds(t *testing.T) {
	center := coords.Coords{C: [2]float64{5, 5}, Units: coords.PIX}
	size := coords.Coords{C: [2]float64{20, 20}, Units: coords.PIX}
	box, ok, err := Solve(nil, center, size, 1000, 1000)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !ok {
		t.Fatalf("Solve reported no overlap")
	}
	if box.XMin != 1 || box.YMin != 1 {
		t.Errorf("box = %+v, want XMin=YMin=1", box)
	}
}

func TestSearchSymmetryForLinearWCS(t *testing.T) {
	w := linearWCS(t)
	sky := [2]float64{10, 20}
	pix := [2]float64{500, 500}
	sizeRad := 300 * radPerArcsec

	plus, err := search(w, sky, pix, sizeRad, 0, +1)
	if err != nil {
		t.Fatalf("search(+1): %v", err)
	}
	minus, err := search(w, sky, pix, sizeRad, 0, -1)
	if err != nil {
		t.Fatalf("search(-1): %v", err)
	}
	offPlus := plus - pix[0]
	offMinus := pix[0] - minus
	if math.Abs(offPlus-offMinus) > 1 {
		t.Errorf("asymmetric search offsets: +%v vs -%v", offPlus, offMinus)
	}
}
