// Package sharepoint opens sessions against a SharePoint site and writes list
// items through its REST API.
package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/api"
	"go.uber.org/zap"
)

// noRetries disables gosip's built-in retry policies; retrying, if any, is
// configured on the shared transport.
var noRetries = map[int]int{
	http.StatusUnauthorized:        0,
	http.StatusTooManyRequests:     0,
	http.StatusInternalServerError: 0,
	http.StatusServiceUnavailable:  0,
}

// minimalMetadata lets AddItem post plain field JSON without a __metadata type.
var minimalMetadata = map[string]string{
	"Accept":       "application/json;odata=minimalmetadata",
	"Content-Type": "application/json;odata=minimalmetadata;charset=utf-8",
}

// Item is the remote list item created by AddItem.
type Item struct {
	ID    int    `json:"Id"`
	Title string `json:"Title"`
}

// Client connects to one SharePoint site.
type Client struct {
	siteURL   string
	transport http.RoundTripper
	timeout   time.Duration
	userAuth  gosip.AuthCnfg
	logger    *zap.Logger
}

var _ Connector = (*Client)(nil)

// NewClientWithLogger creates a client that authenticates each session with
// the bearer token passed to Connect.
func NewClientWithLogger(siteURL string, transport http.RoundTripper, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		siteURL:   siteURL,
		transport: transport,
		timeout:   timeout,
		logger:    logger,
	}
}

// WithUserAuth makes every session authenticate with auth instead of a token.
func (c *Client) WithUserAuth(auth gosip.AuthCnfg) *Client {
	c.userAuth = auth
	return c
}

// Connect opens a session bound to token.
func (c *Client) Connect(token string) Site {
	var auth gosip.AuthCnfg = NewBearerAuth(c.siteURL, token)
	if c.userAuth != nil {
		auth = c.userAuth
	}

	spClient := &gosip.SPClient{
		AuthCnfg:      auth,
		RetryPolicies: noRetries,
	}
	if c.transport != nil {
		spClient.Transport = c.transport
	}
	if c.timeout > 0 {
		spClient.Timeout = c.timeout
	}

	c.logger.Debug("Opened SharePoint session",
		zap.String("site_url", c.siteURL),
		zap.String("strategy", auth.GetStrategy()))

	return &site{sp: api.NewSP(spClient), auth: auth, siteURL: c.siteURL, logger: c.logger}
}

type site struct {
	sp      *api.SP
	auth    gosip.AuthCnfg
	siteURL string
	logger  *zap.Logger
}

func (s *site) List(title string) List {
	return &list{site: s, title: title}
}

type list struct {
	site  *site
	title string
}

// AddItem creates one list item.
func (l *list) AddItem(ctx context.Context, fields map[string]string) (*Item, error) {
	logger := l.site.logger
	logger.Debug("Adding list item",
		zap.String("list", l.title),
		zap.Int("field_count", len(fields)))

	body, err := json.Marshal(fields)
	if err != nil {
		logger.Error("Failed to marshal list item", zap.Error(err))
		return nil, fmt.Errorf("failed to marshal list item: %w", err)
	}

	resp, err := l.site.sp.Conf(&api.RequestConfig{Context: ctx, Headers: minimalMetadata}).
		Web().Lists().GetByTitle(l.title).Items().Add(body)
	if err != nil {
		logger.Error("Add list item request failed",
			zap.String("site_url", l.site.siteURL),
			zap.String("list", l.title),
			zap.Error(err))
		return nil, fmt.Errorf("add item to list %q failed: %w", l.title, classify(err))
	}

	info := resp.Data()
	item := &Item{ID: info.ID, Title: info.Title}

	logger.Info("Successfully added list item",
		zap.String("list", l.title),
		zap.Int("item_id", item.ID))

	return item, nil
}
