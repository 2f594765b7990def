package client

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/doh/pkg/roundtrip"
)

const (
	headerDeviceToken   = "Device-Token"
	headerContentType   = "Content-Type"
	headerContentLength = "Content-Length"

	contentTypeJSON = "application/json; charset=UTF-8"
	contentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
)

// Encoding selects where request parameters are placed.
type Encoding uint8

const (
	// EncodingURL puts parameters into the query string for GET, HEAD and
	// DELETE requests, and into a form-encoded body for other methods.
	EncodingURL Encoding = iota
	// EncodingJSON writes parameters as a JSON object body.
	EncodingJSON
)

// Params are request parameters. Supported values are nil, string, bool,
// integer and float kinds, decimal.Decimal and []string; JSON encoding also
// accepts jx.Raw and nested Params or map[string]any.
type Params map[string]any

// Request describes a single API call.
type Request struct {
	Method   string
	URL      string
	Params   Params
	Encoding Encoding
	// Body is sent verbatim as JSON when non-nil. Params and Encoding are
	// ignored in that case.
	Body []byte
}

// Get returns a GET request with URL-encoded params.
func Get(rawURL string, params Params) Request {
	return Request{Method: http.MethodGet, URL: rawURL, Params: params, Encoding: EncodingURL}
}

// PostJSON returns a POST request with a JSON params body.
func PostJSON(rawURL string, params Params) Request {
	return Request{Method: http.MethodPost, URL: rawURL, Params: params, Encoding: EncodingJSON}
}

// PostForm returns a POST request with a form-encoded params body.
func PostForm(rawURL string, params Params) Request {
	return Request{Method: http.MethodPost, URL: rawURL, Params: params, Encoding: EncodingURL}
}

// PutJSON returns a PUT request with a JSON params body.
func PutJSON(rawURL string, params Params) Request {
	return Request{Method: http.MethodPut, URL: rawURL, Params: params, Encoding: EncodingJSON}
}

// PutBody returns a PUT request sending body as-is.
func PutBody(rawURL string, body []byte) Request {
	if body == nil {
		body = []byte{}
	}
	return Request{Method: http.MethodPut, URL: rawURL, Body: body}
}

// DeleteJSON returns a DELETE request with a JSON params body.
func DeleteJSON(rawURL string, params Params) Request {
	return Request{Method: http.MethodDelete, URL: rawURL, Params: params, Encoding: EncodingJSON}
}

// newRequest builds the transport request for r. The returned request
// carries the device token header and a fresh request ID in its context.
func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}

	var (
		body        []byte
		contentType string
	)
	switch {
	case r.Body != nil:
		body, contentType = r.Body, contentTypeJSON
	case len(r.Params) == 0:
	case r.Encoding == EncodingJSON:
		body, err = encodeJSON(r.Params)
		if err != nil {
			return nil, errors.Wrap(err, "encode json params")
		}
		contentType = contentTypeJSON
	default:
		query, err := encodeQuery(r.Params)
		if err != nil {
			return nil, errors.Wrap(err, "encode url params")
		}
		if encodesInURL(method) {
			if u.RawQuery != "" {
				u.RawQuery += "&" + query
			} else {
				u.RawQuery = query
			}
		} else {
			body, contentType = []byte(query), contentTypeForm
		}
	}

	deviceID, err := c.devices.DeviceID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "device id")
	}

	ctx = roundtrip.WithRequestID(ctx, roundtrip.NewRequestID())

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	req.Header.Set(headerDeviceToken, deviceID)
	if contentType != "" {
		req.Header.Set(headerContentType, contentType)
	}
	if r.Body != nil {
		req.Header.Set(headerContentLength, strconv.Itoa(len(body)))
	}

	return req, nil
}

func encodesInURL(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	default:
		return false
	}
}

// encodeQuery form-encodes params, sorted by key.
func encodeQuery(params Params) (string, error) {
	values := make(url.Values, len(params))
	for k, v := range params {
		switch v := v.(type) {
		case nil:
			values.Set(k, "")
		case string:
			values.Set(k, v)
		case bool:
			values.Set(k, strconv.FormatBool(v))
		case []string:
			values[k] = append([]string(nil), v...)
		default:
			s, err := formatNumber(v)
			if err != nil {
				return "", errors.Wrapf(err, "param %q", k)
			}
			values.Set(k, s)
		}
	}
	return values.Encode(), nil
}

func encodeJSON(params Params) ([]byte, error) {
	var e jx.Encoder
	if err := writeObject(&e, params); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func writeObject(e *jx.Encoder, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	e.ObjStart()
	for _, k := range keys {
		e.FieldStart(k)
		if err := writeValue(e, m[k]); err != nil {
			return errors.Wrapf(err, "param %q", k)
		}
	}
	e.ObjEnd()
	return nil
}

func writeValue(e *jx.Encoder, v any) error {
	switch v := v.(type) {
	case nil:
		e.Null()
	case string:
		e.Str(v)
	case bool:
		e.Bool(v)
	case []string:
		e.ArrStart()
		for _, s := range v {
			e.Str(s)
		}
		e.ArrEnd()
	case jx.Raw:
		e.Raw(v)
	case Params:
		return writeObject(e, v)
	case map[string]any:
		return writeObject(e, v)
	default:
		s, err := formatNumber(v)
		if err != nil {
			return err
		}
		e.RawStr(s)
	}
	return nil
}

// formatNumber renders numeric parameter values in their JSON form.
func formatNumber(v any) (string, error) {
	switch v := v.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case decimal.Decimal:
		return v.String(), nil
	default:
		return "", errors.Errorf("unsupported parameter type %T", v)
	}
}

func formatFloat(f float64, bitSize int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.Errorf("unsupported float value %v", f)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize), nil
}
