package carbon

import (
	"context"
	"fmt"
	"net/http"
)

// RunAudit asks the platform to audit a run and returns its report.
func (c *Client) RunAudit(ctx context.Context, runID int64) (*AuditReport, error) {
	path := fmt.Sprintf("/api/audit/run/%d", runID)
	res, err := c.send(ctx, http.MethodPost, path, []byte("{}"), jsonContentType)
	if err != nil {
		return nil, err
	}
	return parseAuditReport(res.BodyString)
}

// EnqueueAudit schedules an audit in the platform's background worker.
func (c *Client) EnqueueAudit(ctx context.Context, runID int64) (*AuditJob, error) {
	var out AuditJob
	if err := c.post(ctx, fmt.Sprintf("/api/audit/enqueue/%d", runID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

const creditProjectsPath = "/api/credit/projects"

func (c *Client) ListProjects(ctx context.Context) ([]CreditProject, error) {
	var projects []CreditProject
	if err := c.get(ctx, creditProjectsPath, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// UpsertProject creates the project or replaces the one with the same code.
func (c *Client) UpsertProject(ctx context.Context, p CreditProject) error {
	if p.ProjectCode == "" {
		return fmt.Errorf("credit project has no code")
	}
	return c.post(ctx, creditProjectsPath, p, nil)
}

func (c *Client) CalcCredit(ctx context.Context, projectCode string) (*CreditCalculation, error) {
	var out CreditCalculation
	req := map[string]string{"project_code": projectCode}
	if err := c.post(ctx, "/api/credit/calc", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := c.get(ctx, "/api/dashboard", &d); err != nil {
		return nil, err
	}
	return &d, nil
}
