package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Fetch requests one page of the feed at path (relative to /i) and decodes
// the JSON envelope.
func (c *Client) Fetch(ctx context.Context, path string, params url.Values) (*Page, error) {
	u := c.cfg.BaseURL + "/i" + path
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	body, err := c.doGET(ctx, endpointFor(path), u, true)
	if err != nil {
		return nil, err
	}
	var p Page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode %s page: %w", path, err)
	}
	return &p, nil
}

// getPage requests a page of the web frontend. xhr asks for the JSON variant
// the frontend scripts load.
func (c *Client) getPage(ctx context.Context, endpoint, path string, params url.Values, xhr bool) (string, error) {
	u := c.cfg.BaseURL + path
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	body, err := c.doGET(ctx, endpoint, u, xhr)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// UnmarshalJSON accepts cursors encoded as strings, numbers or null; user
// timelines send bare tweet ids.
func (p *Page) UnmarshalJSON(data []byte) error {
	type page Page
	var raw struct {
		page
		MinPosition json.RawMessage `json:"min_position"`
		MaxPosition json.RawMessage `json:"max_position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Page(raw.page)

	var err error
	if p.MinPosition, err = cursorString(raw.MinPosition); err != nil {
		return fmt.Errorf("min_position: %w", err)
	}
	if p.MaxPosition, err = cursorString(raw.MaxPosition); err != nil {
		return fmt.Errorf("max_position: %w", err)
	}
	return nil
}

func cursorString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
