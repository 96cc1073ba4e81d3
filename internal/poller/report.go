package poller

import (
	"errors"
	"log/slog"

	"github.com/blueprintdash/blueprintdash/internal/jsonapi"
)

// Reporter receives user-facing error messages. An empty message asks for a
// generic failure indicator.
type Reporter interface {
	ReportError(message string)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(message string)

// ReportError calls f(message).
func (f ReporterFunc) ReportError(message string) { f(message) }

type discardReporter struct{}

func (discardReporter) ReportError(string) {}

// HandleError logs err under tag, then reports one message per JSON:API
// error entry found in the response body, or a single empty message when
// there is no such envelope.
func HandleError(tag string, err error, r Reporter) {
	slog.Error("poller: fetch failed", "tag", tag, "err", err)

	for _, m := range Messages(err) {
		r.ReportError(m)
	}
}

// Messages returns the user-facing messages for err: the details of each
// JSON:API error entry in the response body, in order, or a single empty
// string when the body carries no such envelope.
func Messages(err error) []string {
	errs, ok := jsonapi.DecodeErrors(errorBody(err))
	if !ok {
		return []string{""}
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Details
	}
	return out
}

// errorBody returns the response body carried by err, if any.
func errorBody(err error) []byte {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Body
	}
	var me *MalformedPayloadError
	if errors.As(err, &me) {
		return me.Body
	}
	return nil
}
