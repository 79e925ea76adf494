package fitsio

import (
	"github.com/bonimy/ibe/core/ibeerr"
)

// tileLayout describes how a compressed-image HDU's BINTABLE lays tiles
// out, derived from the raw (non-synthesized) header cards.
type tileLayout struct {
	imageNAXIS1, imageNAXIS2 int64
	tile1, tile2             int64
	tilesX, tilesY           int64
	bytePix                  int64
	rowBytes                 int64 // BINTABLE NAXIS1: bytes per table row
	heapStart                int64 // file offset of the variable-length-array heap
}

func (u *Unit) tileLayout() tileLayout {
	zbitpix := cardInt(u.cards, "ZBITPIX", 16)
	naxis1 := int64(cardInt(u.cards, "ZNAXIS1", 0))
	naxis2 := int64(cardInt(u.cards, "ZNAXIS2", 0))
	tile1 := int64(cardInt(u.cards, "ZTILE1", int(naxis1)))
	tile2 := int64(cardInt(u.cards, "ZTILE2", 1))
	if tile1 <= 0 {
		tile1 = naxis1
	}
	if tile2 <= 0 {
		tile2 = 1
	}
	tilesX := (naxis1 + tile1 - 1) / tile1
	tilesY := (naxis2 + tile2 - 1) / tile2

	rowBytes := int64(cardInt(u.cards, "NAXIS1", 0))
	theap := int64(cardInt(u.cards, "THEAP", 0))
	nrows := int64(cardInt(u.cards, "NAXIS2", 0))
	if theap == 0 {
		theap = rowBytes * nrows
	}

	return tileLayout{
		imageNAXIS1: naxis1, imageNAXIS2: naxis2,
		tile1: tile1, tile2: tile2,
		tilesX: tilesX, tilesY: tilesY,
		bytePix:   abs(zbitpix) / 8,
		rowBytes:  rowBytes,
		heapStart: u.dataStart + theap,
	}
}

// tileIndex maps a tile's (column, row) grid position to its row number in
// the BINTABLE (row-major, tiles numbered left-to-right then top-to-bottom
// like the FITS tile-compression convention requires).
func (t tileLayout) tileIndex(tx, ty int64) int64 {
	return ty*t.tilesX + tx
}

// tileBounds returns the pixel-space rectangle [x0,x1) x [y0,y1) covered by
// tile (tx, ty), clipped to the image extent (the last tile in a row or
// column is often smaller than ZTILE1/ZTILE2).
func (t tileLayout) tileBounds(tx, ty int64) (x0, x1, y0, y1 int64) {
	x0 = tx * t.tile1
	y0 = ty * t.tile2
	x1 = x0 + t.tile1
	if x1 > t.imageNAXIS1 {
		x1 = t.imageNAXIS1
	}
	y1 = y0 + t.tile2
	if y1 > t.imageNAXIS2 {
		y1 = t.imageNAXIS2
	}
	return
}

// readTile reads and Rice-decodes one tile's pixel data.
func (u *Unit) readTile(r readerAt, layout tileLayout, tx, ty int64) ([]int64, error) {
	row := layout.tileIndex(tx, ty)
	descOff := u.dataStart + row*layout.rowBytes

	desc := make([]byte, 8)
	if _, err := r.ReadAt(desc, descOff); err != nil {
		return nil, ibeerr.Internal(err)
	}
	count := int64(be32(desc[0:4]))
	offset := int64(be32(desc[4:8]))

	compressed := make([]byte, count)
	if _, err := r.ReadAt(compressed, layout.heapStart+offset); err != nil {
		return nil, ibeerr.Internal(err)
	}

	x0, x1, y0, y1 := layout.tileBounds(tx, ty)
	n := int((x1 - x0) * (y1 - y0))
	return riceDecode(compressed, n, int(layout.bytePix))
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// readCompressedWindow satisfies ReadImageWindow for a tile-compressed
// image: every tile overlapping the requested window is decompressed
// exactly once, cached, and copied from - no tile is decoded twice even
// when the window spans many of its rows.
func (u *Unit) readCompressedWindow(r readerAt, x0, x1, y0, y1 int64, pixSize int, out []byte) ([]byte, error) {
	if ztype, _ := cardString(u.cards, "ZCMPTYPE"); ztype != "RICE_1" {
		return nil, ibeerr.Internalf("fitsio: unsupported tile compression %q (only RICE_1)", ztype)
	}
	layout := u.tileLayout()
	width := x1 - x0

	tileCache := map[int64][]int64{}

	txStart, txEnd := x0/layout.tile1, (x1-1)/layout.tile1
	tyStart, tyEnd := y0/layout.tile2, (y1-1)/layout.tile2

	for ty := tyStart; ty <= tyEnd; ty++ {
		for tx := txStart; tx <= txEnd; tx++ {
			key := layout.tileIndex(tx, ty)
			if _, ok := tileCache[key]; ok {
				continue
			}
			pixels, err := u.readTile(r, layout, tx, ty)
			if err != nil {
				return nil, err
			}
			tileCache[key] = pixels
		}
	}

	for row := y0; row < y1; row++ {
		ty := row / layout.tile2
		_, _, tileY0, _ := layout.tileBounds(0, ty)
		localY := row - tileY0
		for col := x0; col < x1; col++ {
			tx := col / layout.tile1
			tileX0, tileX1, _, _ := layout.tileBounds(tx, ty)
			localX := col - tileX0
			tileWidth := tileX1 - tileX0
			pixels := tileCache[layout.tileIndex(tx, ty)]
			val := pixels[localY*tileWidth+localX]
			dstOff := ((row-y0)*width + (col - x0)) * int64(pixSize)
			putBigEndian(out[dstOff:dstOff+int64(pixSize)], val, pixSize)
		}
	}
	return out, nil
}

func putBigEndian(dst []byte, v int64, pixSize int) {
	u := uint64(v)
	for i := 0; i < pixSize; i++ {
		dst[pixSize-1-i] = byte(u >> uint(8*i))
	}
}
