package client

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/xenking/doh/pkg/roundtrip"
)

// Decoder converts the body of a successful response into a value.
type Decoder[T any] func(body []byte) (T, error)

// StringDecoder returns the body unchanged as a string.
func StringDecoder(body []byte) (string, error) {
	return string(body), nil
}

// execute runs the request and classifies the outcome. The first matching
// rule wins:
//
//  1. no response (build or transport failure): unknownError
//  2. status 404: httpNotFoundError
//  3. status outside 2xx: httpStatusError
//  4. body could not be read: unknownError
//  5. decoder failed: jsonDecodeError
//
// The activity indicator is held while the request is in flight.
func execute[T any](ctx context.Context, c *Client, r Request, dec Decoder[T]) (T, transportError) {
	var zero T

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return zero, &unknownError{Err: err}
	}

	c.activity.Increment()
	defer c.activity.Decrement()

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, &unknownError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := c.readBody(resp)

	var terr transportError
	switch {
	case resp.StatusCode == http.StatusNotFound:
		terr = &httpNotFoundError{Body: body}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		terr = &httpStatusError{Status: resp.StatusCode, Body: body}
	case readErr != nil:
		terr = &unknownError{Err: readErr, Body: body}
	}
	if terr != nil {
		c.logServerError(req.Context(), terr)
		return zero, terr
	}

	v, err := dec(body)
	if err != nil {
		return zero, &jsonDecodeError{Err: err}
	}
	return v, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return body, errors.Wrap(err, "read body")
	}
	if int64(len(body)) > c.maxBody {
		return body[:c.maxBody], errors.Errorf("response body exceeds %d bytes", c.maxBody)
	}
	return body, nil
}

// logServerError writes the body of a 500 response to the log. It is
// best-effort and never changes the outcome of the call.
func (c *Client) logServerError(ctx context.Context, err transportError) {
	statusErr, ok := err.(*httpStatusError)
	if !ok || statusErr.Status != http.StatusInternalServerError || len(statusErr.Body) == 0 {
		return
	}

	fields := []zap.Field{
		zap.String("rid", roundtrip.RequestIDFromContext(ctx)),
		zap.ByteString("body", statusErr.Body),
	}
	if gjson.ValidBytes(statusErr.Body) {
		for _, key := range []string{"message", "error"} {
			if v := gjson.GetBytes(statusErr.Body, key); v.Exists() {
				fields = append(fields, zap.String(key, v.String()))
			}
		}
	}
	c.lg.Error("Server error", fields...)
}
