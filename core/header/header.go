// Package header implements the cutout header rewriter: given an HDU's
// cards and the pixel-space box a cutout resolved to, it produces the
// rewritten header bytes for the cutout HDU - NAXIS1/NAXIS2, LTV1/LTV2,
// and CRPIX1/CRPIX2 (plus alternate-WCS-axis suffixes) substitution, the
// CHECKSUM/DATASUM drop, and the compressed-image XTENSION substitution
// with its EXTEND/citation-comment skip and PCOUNT/GCOUNT resynthesis.
package header

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bonimy/ibe/core/fitsio"
	"github.com/bonimy/ibe/core/pixelbox"
)

const cardSize = 80
const blockSize = 2880

// citationPrefixes are the standard cfitsio-generated COMMENT cards
// present in every primary header; these are dropped when converting a
// compressed-image's synthesized primary header into an extension
// header, since they'd otherwise be duplicated from the primary HDU the
// cutout's own primary header already carries them in.
var citationPrefixes = []string{
	"FITS (Flexible Image Transport System) format is",
	"and Astrophysics', volume 376, page 3",
}

// Rewrite produces the on-wire header bytes for the cutout of one image
// HDU: box gives the pixel-space rectangle the cutout resolved to
// (core/pixelbox), isCompressed indicates the source HDU used the
// tile-compression convention (in which case cards is already the
// synthesized plain-image form of the header, from
// (*fitsio.Unit).HeaderCards).
func Rewrite(cards []fitsio.Card, box pixelbox.Box, isCompressed bool) []byte {
	var out []fitsio.Card
	start := 0
	if isCompressed {
		out = append(out, fitsio.Card{Keyword: "XTENSION", Value: "'IMAGE   '", Comment: "IMAGE extension"})
		start = 1 // the synthesized SIMPLE card is replaced, not copied
	}

	for i := start; i < len(cards); i++ {
		c := cards[i]

		if isCompressed {
			if c.Keyword == "EXTEND" || isCitationComment(c) {
				continue
			}
		}
		if c.Keyword == "CHECKSUM" || c.Keyword == "DATASUM" {
			continue
		}

		if axis, ok := naxisAxis(c.Keyword); ok {
			out = append(out, fitsio.Card{Keyword: c.Keyword, Value: strconv.FormatInt(axisSize(box, axis), 10), Comment: c.Comment})
			if isCompressed && axis == 1 {
				out = append(out, fitsio.Card{Keyword: "PCOUNT", Value: "0", Comment: "number of random group parameters"})
				out = append(out, fitsio.Card{Keyword: "GCOUNT", Value: "1", Comment: "number of random groups"})
			}
			continue
		}
		if axis, ok := ltvAxis(c.Keyword); ok {
			old := parseFloat(c.Value)
			shifted := old + float64(axisMin(box, axis)-1)
			out = append(out, fitsio.Card{Keyword: c.Keyword, Value: formatFloat(shifted), Comment: c.Comment})
			continue
		}
		if axis, ok := crpixAxis(c.Keyword); ok {
			old := parseFloat(c.Value)
			shifted := old + 1 - float64(axisMin(box, axis))
			out = append(out, fitsio.Card{Keyword: c.Keyword, Value: formatFloat(shifted), Comment: c.Comment})
			continue
		}

		out = append(out, c)
	}

	return render(out)
}

func isCitationComment(c fitsio.Card) bool {
	if c.Keyword != "COMMENT" {
		return false
	}
	comment := strings.TrimSpace(c.Comment)
	for _, p := range citationPrefixes {
		if strings.HasPrefix(comment, p) {
			return true
		}
	}
	return false
}

// naxisAxis matches NAXIS1/NAXIS2 exactly (not NAXIS itself, not NAXIS10+).
func naxisAxis(keyword string) (axis int, ok bool) {
	if len(keyword) == 6 && keyword[:5] == "NAXIS" && (keyword[5] == '1' || keyword[5] == '2') {
		return int(keyword[5] - '1'), true
	}
	return 0, false
}

// ltvAxis matches LTV1/LTV2 exactly.
func ltvAxis(keyword string) (axis int, ok bool) {
	if len(keyword) == 4 && keyword[:3] == "LTV" && (keyword[3] == '1' || keyword[3] == '2') {
		return int(keyword[3] - '1'), true
	}
	return 0, false
}

// crpixAxis matches CRPIX1/CRPIX2, and their alternate-WCS-representation
// forms CRPIX1A..CRPIX1Z / CRPIX2A..CRPIX2Z.
func crpixAxis(keyword string) (axis int, ok bool) {
	if len(keyword) != 6 && len(keyword) != 7 {
		return 0, false
	}
	if keyword[:5] != "CRPIX" {
		return 0, false
	}
	if keyword[5] != '1' && keyword[5] != '2' {
		return 0, false
	}
	if len(keyword) == 7 && (keyword[6] < 'A' || keyword[6] > 'Z') {
		return 0, false
	}
	return int(keyword[5] - '1'), true
}

func axisSize(box pixelbox.Box, axis int) int64 {
	if axis == 0 {
		return box.XMax - box.XMin + 1
	}
	return box.YMax - box.YMin + 1
}

func axisMin(box pixelbox.Box, axis int) int64 {
	if axis == 0 {
		return box.XMin
	}
	return box.YMin
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'G', 15, 64)
}

// RenderVerbatim serializes cards unchanged, plus an END card and block
// padding - used for the HDUs core/cutout passes through without
// rewriting: non-image units and image units with no pixel data.
func RenderVerbatim(cards []fitsio.Card) []byte {
	return render(cards)
}

// render serializes cards into on-wire header bytes: one 80-byte line per
// card (cards that still carry their original Raw text reuse it
// unmodified), an END card, and space padding to the next FITS block
// boundary.
func render(cards []fitsio.Card) []byte {
	var buf []byte
	for _, c := range cards {
		buf = append(buf, []byte(renderCard(c))...)
	}
	buf = append(buf, []byte("END")...)
	if rem := len(buf) % blockSize; rem != 0 {
		buf = append(buf, repeatByte(blockSize-rem, ' ')...)
	}
	return buf
}

func renderCard(c fitsio.Card) string {
	var line string
	switch {
	case c.Raw != "":
		line = c.Raw
	case c.Keyword == "COMMENT" || c.Keyword == "HISTORY" || c.Keyword == "":
		line = fmt.Sprintf("%-8s", c.Keyword) + c.Comment
	default:
		line = fmt.Sprintf("%-8s", c.Keyword) + "= " + c.Value
		if c.Comment != "" {
			line += " / " + c.Comment
		}
	}
	if len(line) > cardSize {
		line = line[:cardSize]
	}
	return line + strings.Repeat(" ", cardSize-len(line))
}

func repeatByte(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
