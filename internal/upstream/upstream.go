// Package upstream holds the error taxonomy and JSON round trip shared by
// the third-party API clients.
package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// NetworkError is a transport level failure: the request never produced a
// response, or the response body could not be read.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + " " + e.URL + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from a third-party API.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return e.Service + " error: " + msg + " status=" + strconv.Itoa(e.Status)
}

// IsUpstream reports whether err came from a failed upstream call, either
// transport or API level.
func IsUpstream(err error) bool {
	var netErr *NetworkError
	var apiErr *UpstreamError
	return errors.As(err, &netErr) || errors.As(err, &apiErr)
}

// ErrorDecoder turns a failed response body into an error message.
type ErrorDecoder func(body []byte) string

// Do executes req and decodes a 2xx JSON body into dst. Non-2xx responses
// become *UpstreamError with the message extracted by decodeErr.
func Do(hc *http.Client, service string, req *http.Request, dst any, decodeErr ErrorDecoder) error {
	resp, err := hc.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, query and api key included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return &NetworkError{Op: req.Method, URL: redact(req), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &UpstreamError{Service: service, Status: resp.StatusCode}
		if rerr == nil && decodeErr != nil {
			apiErr.Message = decodeErr(body)
		}
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(apiErr, cerr)
		}
		return apiErr
	}

	if dst == nil {
		return resp.Body.Close()
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		derr := fmt.Errorf("decode %s response: %w", service, err)
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(derr, cerr)
		}
		return derr
	}
	return resp.Body.Close()
}

// redact strips the query string, which may carry api keys.
func redact(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
