package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/HerbHall/labtrack/pkg/models"
)

// ListParams are the optional filters and pagination for List. Empty
// values are never sent.
type ListParams struct {
	Search       string
	Status       string
	UsedFor      string
	MachineType  string
	AllottedTo   string
	HealthStatus string
	Page         int
	PageSize     int
}

// Query encodes p, omitting every empty or zero parameter.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", p.Search)
	set("status", p.Status)
	set("used_for", p.UsedFor)
	set("machine_type", p.MachineType)
	set("allotted_to", p.AllottedTo)
	set("health_status", p.HealthStatus)
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return q
}

func machinePath(id string) string {
	return "/machines/" + url.PathEscape(id)
}

// List returns one filtered page of machines.
func (c *Client) List(ctx context.Context, p ListParams) (*models.MachineList, error) {
	path := "/machines"
	if q := p.Query().Encode(); q != "" {
		path += "?" + q
	}
	var out models.MachineList
	if err := c.do(ctx, "list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.Machine{}
	}
	return &out, nil
}

// Get returns a single machine.
func (c *Client) Get(ctx context.Context, id string) (*models.Machine, error) {
	var out models.Machine
	if err := c.do(ctx, "get", http.MethodGet, machinePath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create registers a new machine and returns the backend's record.
func (c *Client) Create(ctx context.Context, in models.MachineCreate) (*models.Machine, error) {
	var out models.Machine
	if err := c.do(ctx, "create", http.MethodPost, "/machines", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a partial update and returns the backend's record.
func (c *Client) Update(ctx context.Context, id string, patch models.MachineUpdate) (*models.Machine, error) {
	var out models.Machine
	if err := c.do(ctx, "update", http.MethodPatch, machinePath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete decommissions a machine. Any response body is discarded.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, machinePath(id), nil, nil)
}

// HealthCheck triggers a live probe and returns the refreshed snapshot.
func (c *Client) HealthCheck(ctx context.Context, id string) (*models.HealthCheckResult, error) {
	var out models.HealthCheckResult
	if err := c.do(ctx, "health_check", http.MethodPost, machinePath(id)+"/health-check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
