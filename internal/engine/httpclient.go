package engine

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// NewHTTPClient builds the client shared by the backends and thumbnail downloads.
// All traffic goes through proxyURL when set. Requests without a User-Agent get
// userAgent, or a browser one when that is empty.
func NewHTTPClient(proxyURL, userAgent string) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     60 * time.Second,
	}
	if proxyURL != "" {
		pu, err := url.Parse(proxyURL)
		if err != nil || pu.Host == "" {
			return nil, fmt.Errorf("%w: invalid proxy URL %q", ErrConfig, proxyURL)
		}
		transport.Proxy = http.ProxyURL(pu)
	}
	if userAgent == "" {
		userAgent = stealth.RandomUserAgent()
	}
	return &http.Client{
		Timeout:   15 * time.Second,
		Transport: &uaTransport{next: transport, ua: userAgent},
	}, nil
}

type uaTransport struct {
	next http.RoundTripper
	ua   string
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}
