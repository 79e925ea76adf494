// Package cutout implements the top-level cutout streamer: the pipeline
// that walks every HDU in a FITS file, resolving and writing a cutout for
// each image unit and passing everything else through unchanged.
package cutout

import (
	"context"

	"github.com/google/uuid"

	"github.com/bonimy/ibe/core/coords"
	"github.com/bonimy/ibe/core/fitsio"
	"github.com/bonimy/ibe/core/header"
	"github.com/bonimy/ibe/core/ibeerr"
	"github.com/bonimy/ibe/core/logger"
	"github.com/bonimy/ibe/core/pixelbox"
	"github.com/bonimy/ibe/core/sink"
	"github.com/bonimy/ibe/core/wcs"
)

var zeroBlock = make([]byte, fitsio.BlockSize)

// Stream runs the cutout pipeline over every HDU in f, writing the
// resulting FITS byte stream to out and calling out.Finish() once done.
// requestID tags log lines for this invocation; an empty string gets one
// generated. f and out are scoped to a single invocation and must not be
// shared across concurrent calls - the core keeps no shared mutable
// state and relies on the caller to give each request its own instances.
// ctx is checked once per HDU so an aborted HTTP request stops the
// pipeline promptly; nothing in the per-HDU work itself suspends on ctx,
// since the pipeline has no suspension points to begin with.
func Stream(ctx context.Context, f *fitsio.File, center, size coords.Coords, out sink.Sink, log logger.ILogger, requestID string) error {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	for i := 0; i < f.HDUCount(); i++ {
		if err := ctx.Err(); err != nil {
			return ibeerr.Internal(err)
		}

		u, err := f.Seek(i)
		if err != nil {
			return err
		}

		if !u.IsImageHDU() {
			log.Debugf("request %s: HDU %d is not an image unit, copying verbatim", requestID, i)
			if err := copyVerbatim(f, u, out); err != nil {
				return err
			}
			continue
		}

		params, err := u.ImageParams()
		if err != nil {
			return err
		}
		if len(params.Axes) == 0 {
			log.Debugf("request %s: HDU %d has no pixel data, copying header only", requestID, i)
			if err := copyHeaderOnly(u, out); err != nil {
				return err
			}
			continue
		}
		if len(params.Axes) != 2 || params.Axes[0] <= 0 || params.Axes[1] <= 0 {
			return ibeerr.Internalf("cutout: HDU %d has an unsupported image shape (NAXIS=%d)", i, len(params.Axes))
		}
		naxis1, naxis2 := params.Axes[0], params.Axes[1]

		cards := u.HeaderCards()
		w, err := wcs.FromHeader(cards)
		if err != nil {
			return err
		}

		box, ok, err := pixelbox.Solve(w, center, size, naxis1, naxis2)
		if err != nil {
			return err
		}
		if !ok {
			return ibeerr.Internalf("cutout: cutout does not overlap image in HDU %d", i)
		}
		log.Debugf("request %s: HDU %d cutout box = %+v", requestID, i, box)

		isCompressed := u.IsCompressedImage()
		if _, err := out.Write(header.Rewrite(cards, box, isCompressed)); err != nil {
			return err
		}

		// Disables BSCALE/BZERO interpretation - the pipeline transfers
		// raw pixel bytes and never touches physical values.
		u.SetPixelScale(1, 0)

		pix, err := u.ReadImageWindow(f, box.XMin-1, box.XMax, box.YMin-1, box.YMax)
		if err != nil {
			return err
		}
		// ReadImageWindow already returns big-endian bytes read straight
		// off disk (the uncompressed path copies FITS's native on-disk
		// byte order verbatim; the compressed path writes decoded pixels
		// back out big-endian) - unlike a cfitsio-backed implementation,
		// nothing here ever decodes pixels into the host's native byte
		// order, so there is no swap-back-to-big-endian step to perform.
		if _, err := out.Write(pix); err != nil {
			return err
		}
		if err := writePadding(out, len(pix)); err != nil {
			return err
		}
	}

	return out.Finish()
}

func writePadding(out sink.Sink, n int) error {
	rem := n % fitsio.BlockSize
	if rem == 0 {
		return nil
	}
	_, err := out.Write(zeroBlock[:fitsio.BlockSize-rem])
	return err
}

// copyHeaderOnly writes an image HDU's header (unmodified) for an HDU
// with no pixel data - nothing downstream needs rewriting since there's
// no box to account for.
func copyHeaderOnly(u *fitsio.Unit, out sink.Sink) error {
	_, err := out.Write(header.RenderVerbatim(u.HeaderCards()))
	return err
}

// copyVerbatim passes a non-image HDU through unchanged: header cards as
// read, then its data area copied byte for byte in block-sized chunks.
func copyVerbatim(f *fitsio.File, u *fitsio.Unit, out sink.Sink) error {
	if _, err := out.Write(header.RenderVerbatim(u.HeaderCards())); err != nil {
		return err
	}

	start, end := u.DataBlockRange()
	buf := make([]byte, fitsio.BlockSize)
	for off := start; off < end; off += fitsio.BlockSize {
		n := fitsio.BlockSize
		if off+int64(n) > end {
			n = int(end - off)
		}
		if _, err := f.ReadAt(buf[:n], off); err != nil {
			return ibeerr.Internal(err)
		}
		if _, err := out.Write(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}
