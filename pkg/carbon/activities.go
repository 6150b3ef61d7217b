package carbon

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const activitiesPath = "/api/activities"

func (c *Client) ListActivities(ctx context.Context) ([]Activity, error) {
	var acts []Activity
	if err := c.get(ctx, activitiesPath, &acts); err != nil {
		return nil, err
	}
	return acts, nil
}

// CreateActivity submits in and returns the id the platform assigned.
func (c *Client) CreateActivity(ctx context.Context, in ActivityInput) (int64, error) {
	if in.Inputs == nil {
		in.Inputs = map[string]interface{}{}
	}
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.post(ctx, activitiesPath, in, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) DeleteActivity(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", activitiesPath, id), nil, nil)
}

func (c *Client) ImportActivities(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	var out ImportResult
	if err := c.postFile(ctx, activitiesPath+"/import", filename, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
