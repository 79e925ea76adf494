// Package coords parses the "ra,dec [unit]" and "w,h [unit]" request
// parameters into a canonical (x, y, unit) tuple, and enumerates the
// small set of angular units the rest of the cutout core understands.
package coords

// Units identifies the angular (or pixel) unit a Coords value is
// expressed in.
type Units int

const (
	PIX Units = iota
	ARCSEC
	ARCMIN
	DEG
	RAD
)

func (u Units) String() string {
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
		return "unknown"
	}
}

// Coords is a pair of numbers plus the unit they are expressed in. Used
// both for a cutout center (always eventually normalized to DEG for sky
// positions) and a cutout size (normalized to RAD for the solver).
type Coords struct {
	C     [2]float64
	Units Units
}
