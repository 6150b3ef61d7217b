package carbon

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
)

// ListEFs returns the EF catalogue. q filters server-side; limit <= 0 leaves the platform
// default in place.
func (c *Client) ListEFs(ctx context.Context, q string, limit int) ([]EmissionFactor, error) {
	params := url.Values{}
	if q != "" {
		params.Set("q", q)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/efs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var efs []EmissionFactor
	if err := c.get(ctx, path, &efs); err != nil {
		return nil, err
	}
	return efs, nil
}

func (c *Client) GetEF(ctx context.Context, key string) (*EmissionFactor, error) {
	var ef EmissionFactor
	if err := c.get(ctx, "/api/efs/"+url.PathEscape(key), &ef); err != nil {
		return nil, err
	}
	return &ef, nil
}

// UpsertEF creates or replaces the EF identified by ef.Key.
func (c *Client) UpsertEF(ctx context.Context, ef EmissionFactor) error {
	if ef.Key == "" {
		return fmt.Errorf("emission factor has no key")
	}
	return c.post(ctx, "/api/efs", ef, nil)
}

func (c *Client) ImportEFs(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	var out ImportResult
	if err := c.postFile(ctx, "/api/efs/import", filename, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
