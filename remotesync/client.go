package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CU/gstbilling/models"
)

// ErrRemoteDisabled means no base URL is configured. Callers treat it exactly
// like being offline: the write parks in the outbox and nothing dials out.
var ErrRemoteDisabled = errors.New("remote api base url is not configured")

type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindConflict  ErrorKind = "conflict"
	KindNotFound  ErrorKind = "not_found"
	KindFatal     ErrorKind = "fatal"
)

// APIError carries the HTTP status, a typed classification, and a truncated
// body excerpt for diagnostics. The sync engine branches on Kind only; the
// wire signature of a duplicate insert is this client's business.
type APIError struct {
	Status  int
	Kind    ErrorKind
	Excerpt string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api error %d (%s): %s", e.Status, e.Kind, e.Excerpt)
}

const excerptLimit = 512

func classify(status int, body []byte) ErrorKind {
	switch {
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		// The reference backend surfaces duplicate inserts as a 500 whose
		// detail names the duplicate key; that is "already applied", not a
		// retryable fault.
		if bytes.Contains(bytes.ToLower(body), []byte("duplicate key")) {
			return KindConflict
		}
		return KindTransient
	default:
		return KindFatal
	}
}

// Client is the thin HTTP wrapper the sync engine replays outbox entries
// through. Timeout semantics live entirely in the underlying http.Client.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient() *Client {
	baseURL := strings.TrimSpace(os.Getenv("REMOTE_API_BASE_URL"))
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests and by tools that target a specific
// deployment.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Ping reports whether the remote answers at all. Any HTTP response counts:
// reachability is what the connectivity monitor cares about, not health.
func (c *Client) Ping(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return true
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	if !c.Enabled() {
		return ErrRemoteDisabled
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := strings.TrimSpace(string(body))
		if len(excerpt) > excerptLimit {
			excerpt = excerpt[:excerptLimit]
		}
		return &APIError{
			Status:  resp.StatusCode,
			Kind:    classify(resp.StatusCode, body),
			Excerpt: excerpt,
		}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) CreateShop(ctx context.Context, shop *models.ShopProfile) (*models.ShopProfile, error) {
	var created models.ShopProfile
	if err := c.do(ctx, http.MethodPost, "/api/shop", shop, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetShops(ctx context.Context) ([]*models.ShopProfile, error) {
	shops := make([]*models.ShopProfile, 0)
	if err := c.do(ctx, http.MethodGet, "/api/shop", nil, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

func (c *Client) CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	var created models.Invoice
	if err := c.do(ctx, http.MethodPost, "/api/invoices", invoice, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetInvoices(ctx context.Context, limit int) ([]*models.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	invoices := make([]*models.Invoice, 0)
	path := "/api/invoices?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := c.do(ctx, http.MethodGet, "/api/invoices/"+id, nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/invoices/"+id, nil, nil)
}
