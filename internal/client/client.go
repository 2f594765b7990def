// Package client implements the store API client.
//
// A call goes through three stages: the request builder produces an
// *http.Request, the response pipeline classifies the raw outcome into a
// transport-level failure or a decoded value, and the error translator maps
// failures onto the closed *Error taxonomy that callers branch on.
package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/doh/internal/domain/item"
	"github.com/xenking/doh/internal/host"
	"github.com/xenking/doh/pkg/activity"
	"github.com/xenking/doh/pkg/roundtrip"
)

// DefaultMaxResponseBytes bounds how much of a response body is read.
const DefaultMaxResponseBytes = 10 << 20

// DeviceIDSource provides the identifier sent in the Device-Token header.
type DeviceIDSource interface {
	DeviceID(ctx context.Context) (string, error)
}

// Service is the API surface exposed to the application.
type Service interface {
	// GetItems starts fetching the items of a store and returns immediately.
	GetItems(ctx context.Context, storeID string) *Future[[]item.Item]
	// ListItems fetches the items of a store and waits for the result.
	ListItems(ctx context.Context, storeID string) ([]item.Item, error)
}

var _ Service = (*Client)(nil)

// Options holds optional dependencies of the Client. The zero value is valid.
type Options struct {
	// Logger receives request lines and server error diagnostics.
	Logger *zap.Logger
	// Activity is incremented for every dispatched request and decremented
	// when it settles.
	Activity activity.Indicator
	// Transport is the base round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// TracerProvider and MeterProvider instrument the transport. Default to
	// the global providers.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// MaxResponseBytes bounds response bodies. Defaults to
	// DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Activity == nil {
		o.Activity = activity.Nop{}
	}
	if o.Transport == nil {
		o.Transport = http.DefaultTransport
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	if o.MaxResponseBytes <= 0 {
		o.MaxResponseBytes = DefaultMaxResponseBytes
	}
}

// Client talks to the store API.
type Client struct {
	baseURL  string
	http     roundtrip.Doer
	devices  DeviceIDSource
	activity activity.Indicator
	lg       *zap.Logger
	maxBody  int64
}

// NewForHost creates a Client for the API endpoint of h.
func NewForHost(h host.Host, devices DeviceIDSource, opts Options) (*Client, error) {
	return New(h.APIEndpointURL().String(), devices, opts)
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, devices DeviceIDSource, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	if devices == nil {
		return nil, errors.New("device id source is required")
	}
	opts.setDefaults()

	transport := otelhttp.NewTransport(
		roundtrip.Wrap(opts.Transport, roundtrip.Recover(opts.Logger)),
		otelhttp.WithTracerProvider(opts.TracerProvider),
		otelhttp.WithMeterProvider(opts.MeterProvider),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "doh " + r.Method
		}),
	)

	return &Client{
		baseURL:  u.String(),
		http:     roundtrip.LogRequests(opts.Logger, &http.Client{Transport: transport}),
		devices:  devices,
		activity: opts.Activity,
		lg:       opts.Logger,
		maxBody:  opts.MaxResponseBytes,
	}, nil
}

// BaseURL returns the API endpoint the client was created for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes r and decodes a successful response with dec. Every failure
// is returned as *Error.
func Do[T any](ctx context.Context, c *Client, r Request, dec Decoder[T]) (T, error) {
	v, terr := execute(ctx, c, r, dec)
	if terr != nil {
		var zero T
		return zero, translate(terr)
	}
	return v, nil
}

// DoString executes r and returns the raw response body.
func DoString(ctx context.Context, c *Client, r Request) (string, error) {
	return Do(ctx, c, r, StringDecoder)
}
