package net

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/oauth2"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "semscore/1 (+https://github.com/mchmarny/semscore)"
)

var (
	reqTransport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		DisableCompression:    false,
		DisableKeepAlives:     false,
		ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
	}
)

// GetHTTPClient returns a plain client over the shared transport.
func GetHTTPClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &http.Client{
		Jar:       jar,
		Transport: reqTransport,
	}, nil
}

// GetOAuthClient returns a client that sends token as a bearer token.
func GetOAuthClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: reqTransport})
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: token,
		},
	)
	return oauth2.NewClient(ctx, ts)
}

func getClient(ctx context.Context, token string) (*http.Client, error) {
	if token != "" {
		return GetOAuthClient(ctx, token), nil
	}
	return GetHTTPClient()
}
