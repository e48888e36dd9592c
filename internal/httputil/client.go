package httputil

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "nordfolio/1.0"

// NewClient returns a resty client for upstream quote APIs. Retries stay
// disabled: the provider fallback chain is the only retry mechanism.
func NewClient(timeout time.Duration) *resty.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return resty.New().
		SetTransport(transport).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
}

// CheckStatus turns a non-2xx response into an error carrying a short
// excerpt of the body.
func CheckStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := resp.Body()
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(body))
}
