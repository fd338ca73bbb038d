// Package crm syncs qualified leads to the Pilot CRM.
package crm

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	aerrors "github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/lead"
	"github.com/hpungsan/asesor/internal/upstream"
)

const (
	Service        = "crm"
	DefaultTimeout = 10 * time.Second
)

// Vendor is a salesperson covering a zone.
type Vendor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Zone string `json:"zone,omitempty"`
}

// Options configures a Client.
type Options struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder upstream.Recorder
}

// Client talks to the CRM's REST API.
type Client struct {
	up     *upstream.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a CRM client. A zero timeout uses DefaultTimeout.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		up: &upstream.Client{
			Service:  Service,
			BaseURL:  opts.URL,
			APIKey:   opts.APIKey,
			Timeout:  opts.Timeout,
			Logger:   logger,
			Recorder: opts.Recorder,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.up.Configured() }

type createResponse struct {
	ID string `json:"id"`
}

// CreateLead creates l in the CRM and returns the CRM's id for it.
func (c *Client) CreateLead(ctx context.Context, l *lead.Lead) (string, error) {
	var resp createResponse
	if err := c.up.DoJSON(ctx, http.MethodPost, "/leads", NewPayload(l), &resp); err != nil {
		return "", err
	}
	c.logger.Info("lead created in crm", zap.String("lead_id", l.ID), zap.String("crm_id", resp.ID))
	return resp.ID, nil
}

// UpdateLead replaces the CRM record crmID with l's current data.
func (c *Client) UpdateLead(ctx context.Context, crmID string, l *lead.Lead) error {
	if crmID == "" {
		return aerrors.NewInvalidRequest("crm id is required")
	}
	if err := c.up.DoJSON(ctx, http.MethodPut, "/leads/"+url.PathEscape(crmID), NewPayload(l), nil); err != nil {
		return err
	}
	c.logger.Info("lead updated in crm", zap.String("lead_id", l.ID), zap.String("crm_id", crmID))
	return nil
}

type assignRequest struct {
	AssignedTo string `json:"assigned_to"`
	Zone       string `json:"zone"`
	AssignedAt string `json:"assigned_at"`
}

// AssignToVendor assigns the CRM record crmID to vendorID.
func (c *Client) AssignToVendor(ctx context.Context, crmID, vendorID, zona string) error {
	if crmID == "" || vendorID == "" {
		return aerrors.NewInvalidRequest("crm id and vendor id are required")
	}
	body := assignRequest{
		AssignedTo: vendorID,
		Zone:       zona,
		AssignedAt: c.now().UTC().Format(time.RFC3339),
	}
	if err := c.up.DoJSON(ctx, http.MethodPost, "/leads/"+url.PathEscape(crmID)+"/assign", body, nil); err != nil {
		return err
	}
	c.logger.Info("lead assigned", zap.String("crm_id", crmID), zap.String("vendor_id", vendorID))
	return nil
}

// VendorByZone returns the first vendor covering zona, or nil when there is none.
func (c *Client) VendorByZone(ctx context.Context, zona string) (*Vendor, error) {
	var vendors []Vendor
	if err := c.up.DoJSON(ctx, http.MethodGet, "/vendors?zone="+url.QueryEscape(zona), nil, &vendors); err != nil {
		return nil, err
	}
	if len(vendors) == 0 {
		return nil, nil
	}
	return &vendors[0], nil
}

// SyncLead updates l in the CRM when it already has a CRM id and creates it otherwise.
// On a successful create, l.CRMID and l.SyncedToCRM are set.
func (c *Client) SyncLead(ctx context.Context, l *lead.Lead) error {
	if l.CRMID != "" {
		return c.UpdateLead(ctx, l.CRMID, l)
	}
	id, err := c.CreateLead(ctx, l)
	if err != nil {
		return err
	}
	l.CRMID = id
	l.SyncedToCRM = true
	return nil
}
