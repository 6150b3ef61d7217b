package carbon

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

func (c *Client) ListRuns(ctx context.Context) ([]CalculationRun, error) {
	var runs []CalculationRun
	if err := c.get(ctx, "/api/calc/runs", &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Client) CreateRun(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.ActivityIDs == nil {
		req.ActivityIDs = []int64{}
	}
	var out RunResult
	if err := c.post(ctx, "/api/calc/run", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (c *Client) ReviewRun(ctx context.Context, id int64, notes string) (*ReviewResult, error) {
	return c.reviewAction(ctx, id, "review", notes)
}

func (c *Client) ApproveRun(ctx context.Context, id int64, notes string) (*ReviewResult, error) {
	return c.reviewAction(ctx, id, "approve", notes)
}

func (c *Client) reviewAction(ctx context.Context, id int64, action, notes string) (*ReviewResult, error) {
	var out ReviewResult
	if err := c.post(ctx, fmt.Sprintf("/api/runs/%d/%s", id, action), reviewRequest{Notes: notes}, &out); err != nil {
		return nil, err
	}
	if out.RunID == 0 {
		out.RunID = id
	}
	return &out, nil
}

func reportPath(id int64, format ReportFormat) string {
	return fmt.Sprintf("/api/reports/run/%d.%s", id, format)
}

// ReportURL is where the platform serves the rendered report for a run.
func (c *Client) ReportURL(id int64, format ReportFormat) string {
	return c.baseURL + reportPath(id, format)
}

// ExportReport streams the report artifact into w as-is and returns the byte count.
func (c *Client) ExportReport(ctx context.Context, id int64, format ReportFormat, w io.Writer) (int64, error) {
	path := reportPath(id, format)
	res, n, err := c.stream(ctx, path, w)
	if err != nil {
		return n, err
	}
	if !res.OK() {
		return 0, apiError(http.MethodGet, path, res)
	}
	return n, nil
}

func (c *Client) SignRun(ctx context.Context, id int64) (*Signature, error) {
	var out Signature
	if err := c.post(ctx, fmt.Sprintf("/api/reports/run/%d/sign", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyRun(ctx context.Context, id int64) (*SignatureCheck, error) {
	var out SignatureCheck
	if err := c.get(ctx, fmt.Sprintf("/api/reports/run/%d/verify", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
