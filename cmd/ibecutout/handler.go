package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"

	"github.com/bonimy/ibe/core/config"
	"github.com/bonimy/ibe/core/coords"
	"github.com/bonimy/ibe/core/cutout"
	"github.com/bonimy/ibe/core/fileaccess"
	"github.com/bonimy/ibe/core/ibeerr"
	"github.com/bonimy/ibe/core/logger"
	"github.com/bonimy/ibe/core/sink"
)

// cutoutHandler is the one route this host exposes: GET /cutout. It
// performs no authorization and no routing beyond this path - those are
// left to whatever sits in front of this process.
type cutoutHandler struct {
	cfg   config.Config
	s3Api s3iface.S3API
	log   logger.ILogger
}

func (h *cutoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	q := r.URL.Query()

	file := q.Get("file")
	if file == "" {
		ibeerr.LogAndWriteError(ibeerr.BadRequestf("the file parameter is required"), h.log, w, r)
		return
	}

	defaultUnit := unitFromName(h.cfg.DefaultSizeUnit)

	center, err := coords.Parse("center", q.Get("center"), coords.DEG, true)
	if err != nil {
		ibeerr.LogAndWriteError(err, h.log, w, r)
		return
	}

	size, err := coords.Parse("size", q.Get("size"), defaultUnit, false)
	if err != nil {
		ibeerr.LogAndWriteError(err, h.log, w, r)
		return
	}

	gz, err := parseBool(q.Get("gzip"), true)
	if err != nil {
		ibeerr.LogAndWriteError(err, h.log, w, r)
		return
	}

	f, closeFn, err := fileaccess.Resolve(h.s3Api, h.cfg.FileRoot, file)
	if err != nil {
		ibeerr.LogAndWriteError(err, h.log, w, r)
		return
	}
	defer closeFn()

	h.log.Infof("request %s: cutout of %s, center=%v size=%v gzip=%v", requestID, file, center, size, gz)

	// The whole cutout is assembled into memory before anything is
	// written to the response, so a failure partway through (an
	// unbuildable WCS, a non-overlapping box, an unsupported image
	// shape, a sink write failure) still has a real status line and
	// error body available to send - nothing has committed to 200 yet.
	mem := sink.NewMemorySink()
	var s sink.Sink = mem
	if gz {
		s = sink.NewDeflateSink(mem, int(h.cfg.DeflateChunkBytes))
	}

	if err := cutout.Stream(r.Context(), f, center, size, s, h.log, requestID); err != nil {
		ibeerr.LogAndWriteError(err, h.log, w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if gz {
		w.Header().Set("Content-Encoding", "gzip")
	}
	w.Header().Set("Content-Length", strconv.Itoa(mem.BytesWritten()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(mem.Bytes()); err != nil {
		h.log.Errorf("request %s: writing response body: %v", requestID, err)
	}
}

func unitFromName(name string) coords.Units {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pix", "px", "pixel", "pixels":
		return coords.PIX
	case "arcsec", "\"":
		return coords.ARCSEC
	case "arcmin", "'":
		return coords.ARCMIN
	case "rad", "radians":
		return coords.RAD
	default:
		return coords.DEG
	}
}

// parseBool recognizes the usual case-insensitive boolean token set for
// the gzip parameter; an empty value keeps def.
func parseBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	switch strings.ToLower(s) {
	case "1", "y", "t", "on", "true", "yes":
		return true, nil
	case "0", "n", "f", "off", "false", "no":
		return false, nil
	default:
		return false, ibeerr.BadRequestf("value of gzip parameter must be one of 1/0/y/n/t/f/on/off/true/false/yes/no")
	}
}
