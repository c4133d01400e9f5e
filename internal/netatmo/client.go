package netatmo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Credentials are the four opaque strings the Netatmo OAuth password grant needs.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Client fetches station snapshots from the Netatmo cloud API.
// One FetchSnapshot call is one authenticated round trip: token, then data.
type Client struct {
	creds      Credentials
	authURL    string
	dataURL    string
	httpClient *http.Client
	backoff    backoff
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Client using the given HTTP client for outbound calls.
func NewClient(client *http.Client, creds Credentials) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "netatmo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		creds:      creds,
		authURL:    "https://api.netatmo.com/oauth2/token",
		dataURL:    "https://api.netatmo.com/api/getstationsdata",
		httpClient: client,
		backoff: backoff{
			maxRetries:      3,
			initialInterval: 500 * time.Millisecond,
			maxInterval:     5 * time.Second,
		},
		circuit: cb,
	}
}

// FetchSnapshot returns one raw snapshot of every device on the account.
func (c *Client) FetchSnapshot(ctx context.Context) (StationsData, error) {
	if c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return StationsData{}, fmt.Errorf("netatmo credentials are not configured")
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return StationsData{}, fmt.Errorf("netatmo auth: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.dataURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	resp, err := c.do(ctx, buildRequest)
	if err != nil {
		return StationsData{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Body StationsData `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return StationsData{}, fmt.Errorf("decode stations data: %w", err)
	}

	return payload.Body, nil
}

// fetchToken performs the password-grant token exchange.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	buildRequest := func() (*http.Request, error) {
		form := url.Values{}
		form.Set("grant_type", "password")
		form.Set("client_id", c.creds.ClientID)
		form.Set("client_secret", c.creds.ClientSecret)
		form.Set("username", c.creds.Username)
		form.Set("password", c.creds.Password)
		form.Set("scope", "read_station")

		req, err := http.NewRequest(http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	resp, err := c.do(ctx, buildRequest)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	return payload.AccessToken, nil
}
