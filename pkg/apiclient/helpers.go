package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// getJSON performs a GET request and decodes the JSON body into result.
// The response is returned for header access; its body is already closed.
func (c *Client) getJSON(path string, result any) (*http.Response, error) {
	resp, err := c.do(http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp, nil
}

// listIDs fetches one page of an ID listing. It returns the IDs and the
// marker for the next page; an empty marker means the listing is exhausted.
func (c *Client) listIDs(path, marker string, limit int) ([]string, string, error) {
	var ids []string
	resp, err := c.getJSON(path+listQuery(marker, limit), &ids)
	if err != nil {
		return nil, "", err
	}
	return ids, nextMarker(resp), nil
}

// listQuery builds the marker and limit query string shared by the listing
// endpoints. Zero values are omitted so the server applies its defaults.
func listQuery(marker string, limit int) string {
	q := url.Values{}
	if marker != "" {
		q.Set("marker", marker)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// nextMarker extracts the marker from the X-Next-Batch header, which carries
// an absolute URL for the next page.
func nextMarker(resp *http.Response) string {
	raw := resp.Header.Get(headerNextBatch)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("marker")
}

// intHeader parses a decimal response header, zero when absent.
func intHeader(h http.Header, name string) int64 {
	v, _ := strconv.ParseInt(h.Get(name), 10, 64)
	return v
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
