package roundtrip

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrPanic is wrapped by the error Recover returns for a panicking transport.
var ErrPanic = errors.New("round tripper panicked")

// Recover returns a middleware that turns a panic in the wrapped transport
// into an ErrPanic error, logging it with a stack trace.
func Recover(lg *zap.Logger) Middleware {
	if lg == nil {
		lg = zap.NewNop()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(req *http.Request) (resp *http.Response, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					lg.Error("panic recovered",
						zap.String("rid", RequestIDFromContext(req.Context())),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					resp, err = nil, errors.Wrapf(ErrPanic, "%v", rec)
				}
			}()
			return next.RoundTrip(req)
		})
	}
}
