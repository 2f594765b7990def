package client

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"syscall"

	"github.com/go-faster/errors"
)

// Kind is the closed set of API failure categories.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotAuthenticated
	KindUnknownJSONData
	KindNotImposeable
	KindNotificationNotRegistered
	KindNotFound
	KindNoInternet
	KindNetwork
)

var kindNames = [...]string{
	KindUnknown:                   "unknown",
	KindNotAuthenticated:          "not authenticated",
	KindUnknownJSONData:           "unknown json data",
	KindNotImposeable:             "not imposeable",
	KindNotificationNotRegistered: "notification not registered",
	KindNotFound:                  "not found",
	KindNoInternet:                "no internet",
	KindNetwork:                   "network",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Error is the only error type returned by Client operations.
//
// Match on the kind with errors.Is against the sentinels below, or use
// KindOf. NoInternet and Network errors wrap the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

// Sentinels for errors.Is. They carry no cause.
var (
	ErrUnknown                   = &Error{Kind: KindUnknown}
	ErrNotAuthenticated          = &Error{Kind: KindNotAuthenticated}
	ErrUnknownJSONData           = &Error{Kind: KindUnknownJSONData}
	ErrNotImposeable             = &Error{Kind: KindNotImposeable}
	ErrNotificationNotRegistered = &Error{Kind: KindNotificationNotRegistered}
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrNoInternet                = &Error{Kind: KindNoInternet}
	ErrNetwork                   = &Error{Kind: KindNetwork}
)

// ErrNoConnectivity can be returned (or wrapped) by a transport to report
// that the device has no network connection at all.
var ErrNoConnectivity = errors.New("no network connectivity")

func (e *Error) Error() string {
	if e.Err == nil {
		return "api: " + e.Kind.String()
	}
	return "api: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// translate maps a transport-level failure to the public taxonomy. It is
// total: every input yields exactly one *Error.
func translate(err transportError) *Error {
	switch e := err.(type) {
	case *httpNotFoundError:
		return &Error{Kind: KindUnknown, Err: e}
	case *httpStatusError:
		if e.Status == http.StatusUnauthorized {
			return &Error{Kind: KindNotAuthenticated, Err: e}
		}
		return &Error{Kind: KindUnknown, Err: e}
	case *jsonDecodeError:
		return &Error{Kind: KindUnknownJSONData, Err: e.Err}
	case *unknownError:
		return &Error{Kind: classifyCause(e.Err), Err: e.Err}
	default:
		return &Error{Kind: KindUnknown, Err: err}
	}
}

// classifyCause sorts a failure that happened before any response arrived.
func classifyCause(err error) Kind {
	if isNoConnectivity(err) {
		return KindNoInternet
	}

	// *url.Error is the envelope net/http puts around every client error and
	// implements net.Error itself; look at what it wraps instead.
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}

	var netErr net.Error
	if errors.As(cause, &netErr) {
		return KindNetwork
	}

	var (
		errno      syscall.Errno
		syscallErr *os.SyscallError
	)
	if errors.As(cause, &errno) || errors.As(cause, &syscallErr) {
		return KindNetwork
	}

	return KindUnknown
}

func isNoConnectivity(err error) bool {
	return errors.Is(err, ErrNoConnectivity) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ENETDOWN)
}
