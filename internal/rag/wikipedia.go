package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const wikipediaSummaryURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"

// wikipediaClient fetches article summaries from the Wikipedia REST API.
type wikipediaClient struct {
	httpClient *http.Client
	baseURL    string
}

func newWikipediaClient(httpClient *http.Client) *wikipediaClient {
	return &wikipediaClient{httpClient: httpClient, baseURL: wikipediaSummaryURL}
}

// Summary fetches the plain-text extract for the article matching the query.
func (c *wikipediaClient) Summary(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(query), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia summary: status %d", resp.StatusCode)
	}

	var body struct {
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode wikipedia summary: %w", err)
	}
	return body.Extract, nil
}
