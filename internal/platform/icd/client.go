package icd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultTokenURL  = "https://icdaccessmanagement.who.int/connect/token"
	defaultSearchURL = "https://id.who.int/icd/release/11/2022-02/mms/search"

	// CodeNotFound is returned when the terminology service has no entry
	// for a disease name.
	CodeNotFound = "Not_Found"
)

// Client looks up ICD codes from the WHO terminology API. It manages the
// OAuth client-credentials token and caches lookups by lowercased disease
// name for the lifetime of the process.
type Client struct {
	clientID     string
	clientSecret string
	tokenURL     string
	searchURL    string
	httpClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
	cache  map[string]string
}

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultTokenURL,
		searchURL:    defaultSearchURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: make(map[string]string),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// refreshToken fetches a new OAuth token if the current one is missing or
// within five minutes of expiry.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.expiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"icdapi_access"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to refresh ICD token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.Errorf("ICD token endpoint returned %s: %s", resp.Status, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", errors.Wrap(err, "failed to decode ICD token response")
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.expiry = time.Now().Add(time.Duration(tok.ExpiresIn-300) * time.Second)
	c.mu.Unlock()
	return tok.AccessToken, nil
}

type searchResponse struct {
	DestinationEntities []struct {
		TheCode string `json:"theCode"`
	} `json:"destinationEntities"`
}

// Lookup returns the ICD code for a disease name, CodeNotFound when the
// service has no match.
func (c *Client) Lookup(ctx context.Context, disease string) (string, error) {
	key := strings.ToLower(disease)

	c.mu.Lock()
	if code, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return code, nil
	}
	c.mu.Unlock()

	token, err := c.refreshToken(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL, nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("q", disease)
	q.Set("flatResults", "true")
	q.Set("useFlexisearch", "true")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("API-Version", "v2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "ICD lookup failed for %q", disease)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("ICD search returned %s for %q", resp.Status, disease)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, "failed to decode ICD search response")
	}

	code := CodeNotFound
	if len(result.DestinationEntities) > 0 && result.DestinationEntities[0].TheCode != "" {
		code = result.DestinationEntities[0].TheCode
	}

	c.mu.Lock()
	c.cache[key] = code
	c.mu.Unlock()
	return code, nil
}
