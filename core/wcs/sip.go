package wcs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bonimy/ibe/core/fitsio"
)

// sipCoeff is one term of a SIP polynomial: coefficient * u^p * v^q.
type sipCoeff struct {
	p, q  int
	value float64
}

// sipTerms holds the forward (A/B) and, when present, inverse (AP/BP)
// SIP distortion polynomials for one WCS.
type sipTerms struct {
	a, b   []sipCoeff
	ap, bp []sipCoeff
	hasInv bool
}

// parseSIP reads the Ap_q/Bp_q (and, if present, APp_q/BPp_q) coefficient
// cards following the SIP convention (Shupe et al. 2005).
func parseSIP(cards []fitsio.Card) *sipTerms {
	s := &sipTerms{
		a: collectSIPTerms(cards, "A"),
		b: collectSIPTerms(cards, "B"),
	}
	s.ap = collectSIPTerms(cards, "AP")
	s.bp = collectSIPTerms(cards, "BP")
	s.hasInv = len(s.ap) > 0 || len(s.bp) > 0
	return s
}

func collectSIPTerms(cards []fitsio.Card, prefix string) []sipCoeff {
	var terms []sipCoeff
	for p := 0; p < 10; p++ {
		for q := 0; q < 10; q++ {
			keyword := fmt.Sprintf("%s_%d_%d", prefix, p, q)
			v, ok := value(cards, keyword)
			if !ok {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}
			terms = append(terms, sipCoeff{p: p, q: q, value: f})
		}
	}
	return terms
}

func evalPoly(terms []sipCoeff, u, v float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t.value * ipow(u, t.p) * ipow(v, t.q)
	}
	return sum
}

func ipow(x float64, n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= x
	}
	return r
}

// forward applies the SIP distortion, returning the (du, dv) correction
// to add to the linear pixel offset (u, v) before the CD matrix.
func (s *sipTerms) forward(u, v float64) (du, dv float64) {
	return evalPoly(s.a, u, v), evalPoly(s.b, u, v)
}

// invert undoes the SIP distortion: given an intermediate pixel offset
// (u, v) that already has the CD matrix's inverse applied, recovers the
// undistorted offset. When the header carries AP/BP inverse coefficients
// those are used directly; otherwise it fixed-point-iterates the forward
// polynomial, which converges quickly for the small distortion
// coefficients real SIP headers carry.
func (s *sipTerms) invert(u, v float64) (float64, float64) {
	if s.hasInv {
		return u + evalPoly(s.ap, u, v), v + evalPoly(s.bp, u, v)
	}
	ou, ov := u, v
	for i := 0; i < 16; i++ {
		du, dv := s.forward(ou, ov)
		nu := u - du
		nv := v - dv
		if absDiff(nu, ou) < 1e-10 && absDiff(nv, ov) < 1e-10 {
			ou, ov = nu, nv
			break
		}
		ou, ov = nu, nv
	}
	return ou, ov
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}
