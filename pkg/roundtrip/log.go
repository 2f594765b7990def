package roundtrip

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Doer executes a request to completion, following redirects as it sees
// fit. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts an ordinary function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do implements Doer.
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// LogRequests wraps next so that every call logs the request line before it
// is dispatched and exactly one completion line afterwards:
//
//	[RID:<id>]: GET http://host/path
//	[RID:<id>]: STATUS 200 http://host/path
//	[RID:<id>]: ERROR http://host/path <error>
//	[RID:<id>]: EMPTY RESPONSE http://host/path
//
// Both lines carry the URL of the request as passed in, whatever redirects
// next follows. The status line wins when next returns both a response and
// an error. EMPTY RESPONSE is logged when it returns neither.
//
// The request ID is taken from the request context (see WithRequestID); a
// fresh one is generated for requests that carry none.
func LogRequests(lg *zap.Logger, next Doer) Doer {
	if lg == nil {
		lg = zap.NewNop()
	}
	return DoerFunc(func(req *http.Request) (*http.Response, error) {
		rid := RequestIDFromContext(req.Context())
		if rid == "" {
			rid = NewRequestID()
		}
		prefix := "[RID:" + rid + "]: "
		u := req.URL.String()
		fields := traceFields(req.Context())

		lg.Info(prefix+req.Method+" "+u, fields...)

		resp, err := next.Do(req)
		switch {
		case resp != nil:
			lg.Info(prefix+"STATUS "+strconv.Itoa(resp.StatusCode)+" "+u, fields...)
		case err != nil:
			lg.Warn(prefix+"ERROR "+u+" "+err.Error(), fields...)
		default:
			lg.Warn(prefix+"EMPTY RESPONSE "+u, fields...)
		}
		return resp, err
	})
}

func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
