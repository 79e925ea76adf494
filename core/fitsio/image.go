package fitsio

import (
	"github.com/bonimy/ibe/core/ibeerr"
)

// ImageParams describes the pixel grid of one HDU.
type ImageParams struct {
	BITPIX int
	Axes   []int64 // NAXIS1, NAXIS2, ... in FITS (column-major) order
}

// ImageParams returns the BITPIX/NAXIS description of u's pixel grid. A
// zero-axis (data-less) image HDU reports an empty Axes slice rather than
// an error - core/cutout treats that as its own case (header-only copy),
// not a failure.
func (u *Unit) ImageParams() (ImageParams, error) {
	if u.isCompressed {
		cards := u.HeaderCards()
		return ImageParams{
			BITPIX: cardInt(cards, "BITPIX", 8),
			Axes:   []int64{int64(cardInt(cards, "NAXIS1", 0)), int64(cardInt(cards, "NAXIS2", 0))},
		}, nil
	}
	return ImageParams{BITPIX: u.bitpix, Axes: u.axes}, nil
}

// IsCompressedImage reports whether this HDU stores its pixel data using
// the tile-compression convention (XTENSION=BINTABLE, ZIMAGE=T) rather
// than as a plain image array.
func (u *Unit) IsCompressedImage() bool {
	return u.isCompressed
}

// IsImageHDU reports whether this HDU is one core/cutout's image pipeline
// handles: the primary HDU, a plain XTENSION=IMAGE extension, or a
// tile-compressed image masquerading as a BINTABLE. Any other extension
// type (a plain BINTABLE, an ASCII table, ...) gets a verbatim passthrough
// instead.
func (u *Unit) IsImageHDU() bool {
	return u.isImage
}

// SetPixelScale records the BSCALE/BZERO pair a caller wants applied when
// interpreting pixel values. ReadImageWindow transfers raw on-disk pixel
// bytes unscaled - BSCALE/BZERO are left for downstream consumers that
// actually need physical values - so this is bookkeeping only and never
// consulted by ReadImageWindow itself.
func (u *Unit) SetPixelScale(scale, zero float64) {
	u.pixelScale = scale
	u.pixelZero = zero
}

// PixelScale returns the scale/zero pair set by SetPixelScale, or (1, 0)
// if none was set.
func (u *Unit) PixelScale() (scale, zero float64) {
	return u.pixelScale, u.pixelZero
}

// ReadImageWindow reads the rectangular sub-image [x0,x1) x [y0,y1) (0-based,
// FITS axis order: x along NAXIS1, y along NAXIS2) and returns it as raw
// big-endian pixel bytes, row-major starting at the lowest y. Exactly one
// decompression pass covers the whole window for a tile-compressed image,
// regardless of how many rows it spans - the tile grid is decoded tile by
// tile and only the tiles the window actually touches are decompressed.
func (u *Unit) ReadImageWindow(r readerAt, x0, x1, y0, y1 int64) ([]byte, error) {
	params, err := u.ImageParams()
	if err != nil {
		return nil, err
	}
	if len(params.Axes) != 2 {
		return nil, ibeerr.BadRequestf("fitsio: ReadImageWindow requires a 2-D image, got NAXIS=%d", len(params.Axes))
	}
	naxis1, naxis2 := params.Axes[0], params.Axes[1]
	if x0 < 0 || y0 < 0 || x1 > naxis1 || y1 > naxis2 || x0 >= x1 || y0 >= y1 {
		return nil, ibeerr.BadRequestf("fitsio: window [%d,%d)x[%d,%d) out of bounds for %dx%d image", x0, x1, y0, y1, naxis1, naxis2)
	}
	pixSize := int(abs(params.BITPIX) / 8)
	width := x1 - x0
	height := y1 - y0
	out := make([]byte, width*height*int64(pixSize))

	if u.isCompressed {
		return u.readCompressedWindow(r, x0, x1, y0, y1, pixSize, out)
	}

	rowBytes := naxis1 * int64(pixSize)
	for row := y0; row < y1; row++ {
		rowStart := u.dataStart + row*rowBytes + x0*int64(pixSize)
		dst := out[(row-y0)*width*int64(pixSize) : (row-y0+1)*width*int64(pixSize)]
		if _, err := r.ReadAt(dst, rowStart); err != nil {
			return nil, ibeerr.Internal(err)
		}
	}
	return out, nil
}

// DataBlockRange returns the [start, end) byte range of this HDU's data
// area (end padded up to the FITS block boundary), for callers that need
// to copy a non-image HDU's data verbatim rather than interpret it.
func (u *Unit) DataBlockRange() (start, end int64) {
	return u.dataStart, u.dataEnd
}
