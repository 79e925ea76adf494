// Package fitsio implements a pure-Go FITS reader that exposes header
// cards and windowed pixel reads without ever holding a whole image in
// memory: same 2880-byte block size, same 80-byte card width, same
// "bytes 8:10 == '= '" rule for telling a value-bearing card from a
// comment or blank one as any other plain FITS header reader, extended
// with random-access windowed reads, tile-compressed image
// decompression, and raw data-block ranges for verbatim passthrough.
package fitsio

import (
	"fmt"
	"io"
	"os"

	"github.com/bonimy/ibe/core/ibeerr"
)

// BlockSize is the FITS physical block size: headers and data areas are
// always padded to a multiple of this many bytes.
const BlockSize = 2880

// CardSize is the fixed width of a FITS header card.
const CardSize = 80

// File is a FITS file opened for random-access reading. Headers for every
// HDU are parsed up front (they're cheap - a few kilobytes each); pixel
// data is never read until ReadImageWindow asks for it.
type File struct {
	r    io.ReaderAt
	size int64
	hdus []*Unit
	f    *os.File // non-nil when Open (not OpenReader) opened it
}

// Unit is one Header-Data Unit: a header plus the byte range of its data
// area in the underlying file.
type Unit struct {
	Index int

	cards []Card

	bitpix int
	naxis  int
	axes   []int64
	pcount int64
	gcount int64

	dataStart int64
	dataEnd   int64 // padded end, i.e. start of the next HDU

	isCompressed bool
	isImage      bool
	pixelScale   float64
	pixelZero    float64
}

// Open opens the FITS file at path for random-access reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ibeerr.NotFound(path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ibeerr.Internal(err)
	}
	file, err := OpenReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	file.f = f
	return file, nil
}

// OpenReader parses a FITS stream already available as a random-access
// reader of the given total size. Callers retain ownership of r; Close is
// a no-op unless the File came from Open.
func OpenReader(r io.ReaderAt, size int64) (*File, error) {
	file := &File{r: r, size: size}
	var off int64
	for off < size {
		u, next, err := parseUnit(r, off, len(file.hdus))
		if err != nil {
			return nil, err
		}
		file.hdus = append(file.hdus, u)
		off = next
		if off >= size {
			break
		}
	}
	if len(file.hdus) == 0 {
		return nil, ibeerr.BadRequestf("fitsio: no HDUs found")
	}
	return file, nil
}

// Close releases the underlying os.File, if Open opened one.
func (f *File) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

// ReadAt satisfies io.ReaderAt by delegating to the underlying source,
// letting a *File stand in wherever a Unit's window/tile reads need a
// random-access reader without the caller tracking a separate handle.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.r.ReadAt(p, off)
}

// Size returns the total byte length of the FITS stream.
func (f *File) Size() int64 {
	return f.size
}

// HDUCount returns the number of Header-Data Units in the file.
func (f *File) HDUCount() int {
	return len(f.hdus)
}

// Seek returns the Unit at the given zero-based HDU index.
func (f *File) Seek(hduIndex int) (*Unit, error) {
	if hduIndex < 0 || hduIndex >= len(f.hdus) {
		return nil, ibeerr.BadRequestf("fitsio: HDU index %d out of range (file has %d)", hduIndex, len(f.hdus))
	}
	return f.hdus[hduIndex], nil
}

// parseUnit reads one header starting at off, classifies it, and returns
// the Unit plus the file offset of the following HDU (the end of this
// unit's data area, rounded up to the next block boundary).
func parseUnit(r io.ReaderAt, off int64, index int) (*Unit, int64, error) {
	cards, headerEnd, err := readCards(r, off)
	if err != nil {
		return nil, 0, err
	}

	u := &Unit{Index: index, cards: cards, pixelScale: 1, pixelZero: 0}

	u.bitpix = cardInt(cards, "BITPIX", 8)
	u.naxis = cardInt(cards, "NAXIS", 0)
	u.axes = make([]int64, u.naxis)
	for i := 0; i < u.naxis; i++ {
		u.axes[i] = int64(cardInt(cards, fmt.Sprintf("NAXIS%d", i+1), 0))
	}
	u.pcount = int64(cardInt(cards, "PCOUNT", 0))
	u.gcount = int64(cardInt(cards, "GCOUNT", 1))

	xtension, hasXtension := cardString(cards, "XTENSION")
	zimage, zok := cardBool(cards, "ZIMAGE")
	u.isCompressed = xtension == "BINTABLE" && zok && zimage
	u.isImage = !hasXtension || xtension == "IMAGE" || u.isCompressed

	var pixelBytes int64 = 1
	if len(u.axes) > 0 {
		pixelBytes = abs(u.bitpix) / 8
		for _, n := range u.axes {
			pixelBytes *= n
		}
	} else {
		pixelBytes = 0
	}
	dataSize := (abs(u.bitpix) / 8) * u.gcount * (u.pcount + product(u.axes))
	u.dataStart = headerEnd
	u.dataEnd = u.dataStart + padUp(dataSize)

	return u, u.dataEnd, nil
}

func product(axes []int64) int64 {
	if len(axes) == 0 {
		return 0
	}
	p := int64(1)
	for _, n := range axes {
		p *= n
	}
	return p
}

func abs(n int) int64 {
	if n < 0 {
		return int64(-n)
	}
	return int64(n)
}

func padUp(n int64) int64 {
	if n%BlockSize == 0 {
		return n
	}
	return n + (BlockSize - n%BlockSize)
}
