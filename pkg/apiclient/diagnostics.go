package apiclient

import "net/http"

// Ping checks that the service is up. It touches no backend.
func (c *Client) Ping() error {
	resp, err := c.do(http.MethodGet, "/v1.0/ping", "", nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

// Health fetches the per-component status lines of the deployment.
func (c *Client) Health() ([]string, error) {
	var lines []string
	if _, err := c.getJSON("/v1.0/health", &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// Home fetches the API home document mapping resource names to their URL
// templates.
func (c *Client) Home() (map[string]string, error) {
	var routes map[string]string
	if _, err := c.getJSON("/v1.0/", &routes); err != nil {
		return nil, err
	}
	return routes, nil
}
