package services

import (
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every new token to callback.
//
// last holds the access token the caller already has, so handing it back is not reported.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != r.last {
		r.last = token.AccessToken
		if r.callback != nil {
			r.callback(token)
		}
	}
	return token, nil
}

// pacedTransport spaces outgoing requests according to limiter.
type pacedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func newPacedTransport(base http.RoundTripper, rps float64, burst int) http.RoundTripper {
	if rps <= 0 {
		return base
	}
	if burst < 1 {
		burst = 1
	}
	return &pacedTransport{base: base, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := p.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	base := p.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
