package serp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/FranksOps/stockists/pkg/httpclient"
)

// Failure kinds carried by RequestFailure.
const (
	KindNetwork     = "network"
	KindTimeout     = "timeout"
	KindCanceled    = "canceled"
	KindRateLimit   = "rate_limit"
	KindUpstream5xx = "upstream_5xx"
	KindStatus      = "status"
	KindDecode      = "decode"
)

// RequestFailure reports that a single search request produced no usable
// response. The run treats it as zero results for Query.
type RequestFailure struct {
	Query      string
	Kind       string
	StatusCode int
	Err        error
}

func (e *RequestFailure) Error() string {
	return fmt.Sprintf("API request failed for query '%s' (%s): %v", e.Query, e.Kind, e.Err)
}

func (e *RequestFailure) Unwrap() error { return e.Err }

// IsRequestFailure reports whether err is, or wraps, a *RequestFailure.
func IsRequestFailure(err error) bool {
	var rf *RequestFailure
	return errors.As(err, &rf)
}

func newRequestFailure(query string, err error) *RequestFailure {
	rf := &RequestFailure{Query: query, Kind: classify(err), Err: err}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		rf.StatusCode = statusErr.StatusCode
	}
	return rf
}

func classify(err error) string {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimit
		case statusErr.StatusCode >= 500:
			return KindUpstream5xx
		default:
			return KindStatus
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
