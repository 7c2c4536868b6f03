package shopify

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	tokenHeader     = "X-Shopify-Access-Token"
)

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="?next"?`)

// getItems fetches url and returns the array stored under key plus the Link header.
func (c *Client) getItems(ctx context.Context, url, key string) ([]any, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, "", err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	var body map[string]any
	if err := json.NewDecoder(reader).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	items, ok := body[key].([]any)
	if !ok {
		return nil, "", fmt.Errorf("response has no %q list", key)
	}

	return items, resp.Header.Get("Link"), nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func nextPage(link string) string {
	match := nextLinkPattern.FindStringSubmatch(link)
	if match == nil {
		return ""
	}
	return match[1]
}
