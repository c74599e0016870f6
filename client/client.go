// Package client is a thin gateway to the OPD claims REST API. Every call maps
// one request to one response; nothing is retried or cached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"opd-claims/logger"
	"opd-claims/models"
	"opd-claims/upload"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL points at a sandbox running on the local machine.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// API is the set of backend operations the claim flows depend on.
type API interface {
	ListMembers(ctx context.Context) ([]models.Member, error)
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	SubmitClaim(ctx context.Context, req SubmitClaimRequest) (*models.SubmitResponse, error)
	GetClaim(ctx context.Context, claimID string) (*models.Claim, error)
	ListClaims(ctx context.Context, params ListClaimsParams) ([]models.Claim, error)
	GetClaimDocuments(ctx context.Context, claimID string) ([]models.Document, error)
	GetDecision(ctx context.Context, claimID string) (*models.Decision, error)
}

// Client talks to the claims API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	log        *zap.SugaredLogger
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the API rooted at baseURL (including /api/v1).
// The default HTTP client keeps the transport's own timeouts.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "opd-claims-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetLogger()
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SubmitClaimRequest carries the fields of a claim submission. Files are
// sent in slice order.
type SubmitClaimRequest struct {
	MemberID      string
	TreatmentDate string
	Files         []upload.File
}

// ListClaimsParams are the optional server-side filters of GET /claims.
// Zero values are not sent.
type ListClaimsParams struct {
	MemberID string
	Status   models.ClaimStatus
	Skip     int
	Limit    int
}

func (p ListClaimsParams) query() url.Values {
	q := url.Values{}
	if p.MemberID != "" {
		q.Set("member_id", p.MemberID)
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// ListMembers handles GET /members
func (c *Client) ListMembers(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := c.getJSON(ctx, "/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GetMember handles GET /members/{id}
func (c *Client) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	var m models.Member
	if err := c.getJSON(ctx, "/members/"+url.PathEscape(memberID), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SubmitClaim handles POST /claims as multipart form data.
func (c *Client) SubmitClaim(ctx context.Context, req SubmitClaimRequest) (*models.SubmitResponse, error) {
	body, contentType, err := encodeSubmission(req)
	if err != nil {
		return nil, err
	}

	var resp models.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/claims", nil, body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetClaim handles GET /claims/{id}
func (c *Client) GetClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	var claim models.Claim
	if err := c.getJSON(ctx, "/claims/"+url.PathEscape(claimID), nil, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// ListClaims handles GET /claims
func (c *Client) ListClaims(ctx context.Context, params ListClaimsParams) ([]models.Claim, error) {
	var claims []models.Claim
	if err := c.getJSON(ctx, "/claims", params.query(), &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// GetClaimDocuments handles GET /claims/{id}/documents
func (c *Client) GetClaimDocuments(ctx context.Context, claimID string) ([]models.Document, error) {
	var docs []models.Document
	if err := c.getJSON(ctx, "/claims/"+url.PathEscape(claimID)+"/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDecision handles GET /decisions/{id}. It fails with an error matching
// ErrNotFound while the claim has not been adjudicated.
func (c *Client) GetDecision(ctx context.Context, claimID string) (*models.Decision, error) {
	var d models.Decision
	if err := c.getJSON(ctx, "/decisions/"+url.PathEscape(claimID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Debugw("Sending claims API request", "method", method, "path", path, "requestID", requestID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnw("Claims API request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("failed to execute %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debugw("Claims API response received", "method", method, "path", path, "statusCode", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeRemoteError(resp, method, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response, method, path string) error {
	re := &RemoteError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       path,
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return re
	}
	var body models.ErrorBody
	if json.Unmarshal(data, &body) == nil {
		re.Detail = body.Detail
	}
	return re
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeSubmission(req SubmitClaimRequest) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := w.WriteField("member_id", req.MemberID); err != nil {
		return nil, "", fmt.Errorf("failed to write member_id: %w", err)
	}
	if err := w.WriteField("treatment_date", req.TreatmentDate); err != nil {
		return nil, "", fmt.Errorf("failed to write treatment_date: %w", err)
	}

	for _, f := range req.Files {
		if err := writeFilePart(w, f); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, f upload.File) error {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", f.Name, err)
	}
	if f.Open == nil {
		return fmt.Errorf("file %s has no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return nil
}
