package ibeerr

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/bonimy/ibe/core/logger"
)

// statusesOmittingDetail are the status codes that must omit origin
// details (stack traces, internal paths) from the emitted body.
var statusesOmittingDetail = map[int]bool{
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

// WriteErrorResponse emits a minimal HTML error document: status line,
// content-language, content-length, content-type and cache-control
// headers, followed by a small HTML body naming the error class and
// message. Call only when no bytes of a success response have reached w
// yet - the whole point is that this is the entire response.
func WriteErrorResponse(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if se, ok := err.(Error); ok {
		code = se.Status()
	}

	summary := http.StatusText(code)
	if summary == "" {
		summary = "Error"
	}

	body := msg
	if statusesOmittingDetail[code] {
		body = summary
	}

	content := fmt.Sprintf(
		"<!DOCTYPE HTML PUBLIC \"-//W3C//DTD HTML 4.01//EN\" \"http://www.w3.org/TR/html4/strict.dtd\">\n"+
			"<html>\n<head><title>%d %s</title></head>\n<body>\n<h1>%d %s</h1>\n%s\n</body>\n</html>\n",
		code, summary, code, summary, body,
	)

	h := w.Header()
	h.Set("Content-Language", "en")
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Content-Length", fmt.Sprintf("%d", len(content)))
	w.WriteHeader(code)
	_, _ = w.Write([]byte(content))
}

// LogAndWriteError logs err at ERROR level, tagged with the request that
// caused it, reports it to Sentry if it's Internal-class (a 4xx is the
// caller's fault, not an operational failure worth paging on), then emits
// the error-response document.
func LogAndWriteError(err error, log logger.ILogger, w http.ResponseWriter, r *http.Request) {
	code := http.StatusInternalServerError
	if se, ok := err.(Error); ok {
		code = se.Status()
	}
	log.Errorf("Request: %v (%v), Result: status=%v, error=%v", r.URL, r.Method, code, err)
	if code == http.StatusInternalServerError {
		sentry.CaptureException(err)
	}
	WriteErrorResponse(w, err)
}
