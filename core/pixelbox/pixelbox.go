// Package pixelbox implements the pixel-box solver: given a cutout center
// and size (in whatever units the caller used) plus an image's WCS and
// axis extents, it produces a clipped integer pixel rectangle to read.
// The spherical-geometry search is expressed over
// gonum.org/v1/gonum/spatial/r3 rather than hand-rolled 3-vector math.
package pixelbox

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/bonimy/ibe/core/coords"
	"github.com/bonimy/ibe/core/ibeerr"
	"github.com/bonimy/ibe/core/wcs"
)

const (
	radPerDeg    = math.Pi / 180
	degPerRad    = 180 / math.Pi
	radPerArcmin = radPerDeg / 60
	radPerArcsec = radPerDeg / 3600
)

// Box is a 1-based, inclusive pixel-space rectangle, already clipped to
// an image's axis extents.
type Box struct {
	XMin, YMin, XMax, YMax int64
}

// pixcen returns the center coordinate of the pixel containing x, FITS
// convention: pixel N has center coordinate N and spans [N-0.5, N+0.5).
func pixcen(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Solve maps center/size to a pixel-space box for a cutout of an image
// naxis1 x naxis2 pixels. ok is false when the requested cutout doesn't
// overlap the image at all.
func Solve(w *wcs.WCS, center, size coords.Coords, naxis1, naxis2 int64) (box Box, ok bool, err error) {
	var xmin, xmax, ymin, ymax float64

	if center.Units == coords.PIX && size.Units == coords.PIX {
		xmin = pixcen(center.C[0] - size.C[0]*0.5)
		xmax = pixcen(center.C[0] + size.C[0]*0.5)
		ymin = pixcen(center.C[1] - size.C[1]*0.5)
		ymax = pixcen(center.C[1] + size.C[1]*0.5)
	} else {
		var sky [2]float64
		var pix [2]float64
		if center.Units == coords.PIX {
			pix = center.C
			sky, err = w.PixelToSky(pix)
			if err != nil {
				return Box{}, false, err
			}
		} else {
			sky, err = normalizeCenterToSky(center)
			if err != nil {
				return Box{}, false, err
			}
			pix, err = w.SkyToPixel(sky)
			if err != nil {
				return Box{}, false, err
			}
		}

		if size.C[0] < 0 || size.C[1] < 0 {
			return Box{}, false, ibeerr.BadRequestf("pixelbox: negative cutout size")
		}

		if size.Units != coords.PIX {
			sizeRad := toRadiansPair(size)
			if xmin, err = search(w, sky, pix, sizeRad[0]*0.5, 0, -1); err != nil {
				return Box{}, false, err
			}
			if xmax, err = search(w, sky, pix, sizeRad[0]*0.5, 0, +1); err != nil {
				return Box{}, false, err
			}
			if ymin, err = search(w, sky, pix, sizeRad[1]*0.5, 1, -1); err != nil {
				return Box{}, false, err
			}
			if ymax, err = search(w, sky, pix, sizeRad[1]*0.5, 1, +1); err != nil {
				return Box{}, false, err
			}
		} else {
			xmin = pixcen(pix[0] - size.C[0]*0.5)
			xmax = pixcen(pix[0] + size.C[0]*0.5)
			ymin = pixcen(pix[1] - size.C[1]*0.5)
			ymax = pixcen(pix[1] + size.C[1]*0.5)
		}
	}

	if xmin > float64(naxis1) || ymin > float64(naxis2) || xmax < 1 || ymax < 1 {
		return Box{}, false, nil
	}

	box = Box{
		XMin: int64(math.Max(1, xmin)),
		YMin: int64(math.Max(1, ymin)),
		XMax: int64(math.Min(float64(naxis1), xmax)),
		YMax: int64(math.Min(float64(naxis2), ymax)),
	}
	return box, true, nil
}

// normalizeCenterToSky converts a non-pixel center to degrees, rejects an
// out-of-range declination, and wraps right ascension into [0, 360).
func normalizeCenterToSky(center coords.Coords) ([2]float64, error) {
	ra, dec := center.C[0], center.C[1]
	switch center.Units {
	case coords.ARCSEC:
		ra /= 3600
		dec /= 3600
	case coords.ARCMIN:
		ra /= 60
		dec /= 60
	case coords.RAD:
		ra *= degPerRad
		dec *= degPerRad
	}
	if dec < -90 || dec > 90 {
		return [2]float64{}, ibeerr.BadRequestf("pixelbox: center declination %v out of range [-90, 90] deg", dec)
	}
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	return [2]float64{ra, dec}, nil
}

func toRadiansPair(size coords.Coords) [2]float64 {
	switch size.Units {
	case coords.ARCSEC:
		return [2]float64{size.C[0] * radPerArcsec, size.C[1] * radPerArcsec}
	case coords.ARCMIN:
		return [2]float64{size.C[0] * radPerArcmin, size.C[1] * radPerArcmin}
	case coords.DEG:
		return [2]float64{size.C[0] * radPerDeg, size.C[1] * radPerDeg}
	default: // RAD
		return size.C
	}
}

// s2c converts spherical coordinates (ra, dec, degrees) to a unit vector.
func s2c(sky [2]float64) r3.Vec {
	ra := sky[0] * radPerDeg
	dec := sky[1] * radPerDeg
	return r3.Vec{
		X: math.Cos(ra) * math.Cos(dec),
		Y: math.Sin(ra) * math.Cos(dec),
		Z: math.Sin(dec),
	}
}

// angularDist returns the angular separation in radians between two unit
// vectors, via atan2(|cross|, dot) - numerically stable across the whole
// range including near-antipodal vectors.
func angularDist(v1, v2 r3.Vec) float64 {
	cs := r3.Dot(v1, v2)
	cross := r3.Cross(v1, v2)
	ss := r3.Norm(cross)
	if ss != 0 || cs != 0 {
		return math.Atan2(ss, cs)
	}
	return 0
}

// search returns the closest pixel coordinate along axis dim, direction
// dir (+1 or -1), separated by at least sizeRad radians from sky on the
// curved sky - an outward bisection: it doubles its step while still
// inside the target radius, then halves it once it overshoots.
func search(w *wcs.WCS, sky [2]float64, pix [2]float64, sizeRad float64, dim int, dir float64) (float64, error) {
	cen := s2c(sky)
	other := 1 - dim
	p := [2]float64{}
	p[other] = pix[other]
	p[dim] = pixcen(pix[dim]) + 0.5*dir

	inc := dir
	scale := 2.0
	for math.Abs(inc) >= 1.0 && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0) {
		s, err := w.PixelToSky(p)
		if err != nil {
			return 0, err
		}
		v := s2c(s)
		d := angularDist(cen, v)
		switch {
		case d < sizeRad:
			inc *= scale
			p[dim] += inc
		case d > sizeRad:
			scale = 0.5
			inc *= 0.5
			p[dim] -= inc
		default:
			return pixcen(p[dim]), nil
		}
	}
	return pixcen(p[dim]), nil
}
