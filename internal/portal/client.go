// Package portal is the client side of the villager and grievance workflows:
// an HTTP client for the portal API and the view controllers that sequence
// each step and keep local state in line with the server.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
)

// EditTokenHeader carries the edit session token on villager edits.
const EditTokenHeader = "X-Edit-Token"

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *appErrors.Error `json:"error"`
}

// Client talks to the portal REST API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBearerToken authenticates every request with token.
func WithBearerToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for the API rooted at baseURL, e.g.
// "https://village.example/api/v1".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SubmitVillager sends a new registration.
func (c *Client) SubmitVillager(ctx context.Context, req dto.VillagerRequest) (*models.Villager, error) {
	var out models.Villager
	if err := c.doJSON(ctx, http.MethodPost, "/villagers", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestEditOTP asks the server to text a code to mobile.
func (c *Client) RequestEditOTP(ctx context.Context, mobile string) (*dto.OTPIssued, error) {
	var out dto.OTPIssued
	if err := c.doJSON(ctx, http.MethodPost, "/villagers/edit/otp", nil, dto.RequestOTPRequest{MobileNumber: mobile}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEditOTP redeems a code for the current record and an edit session.
func (c *Client) VerifyEditOTP(ctx context.Context, mobile, code string) (*dto.EditSession, error) {
	var out dto.EditSession
	if err := c.doJSON(ctx, http.MethodPost, "/villagers/edit/verify", nil, dto.VerifyOTPRequest{MobileNumber: mobile, OTP: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitVillagerEdit sends the edited record under an edit session.
func (c *Client) SubmitVillagerEdit(ctx context.Context, id, editToken string, req dto.VillagerRequest) (*models.Villager, error) {
	header := http.Header{}
	header.Set(EditTokenHeader, editToken)
	var out models.Villager
	if err := c.doJSON(ctx, http.MethodPut, "/villagers/edit/"+url.PathEscape(id), header, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVillagers returns villagers for the admin view.
func (c *Client) ListVillagers(ctx context.Context, query dto.VillagerQuery) ([]models.Villager, error) {
	params := url.Values{}
	statuses := make([]string, 0, len(query.Status))
	for _, s := range query.Status {
		statuses = append(statuses, string(s))
	}
	setParam(params, "status", strings.Join(statuses, ","))
	setParam(params, "requestType", string(query.RequestType))
	setParam(params, "search", query.Search)
	setPage(params, query.Page, query.PageSize)

	var out []models.Villager
	if err := c.doJSON(ctx, http.MethodGet, "/admin/villagers"+encode(params), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReviewVillager approves or rejects a pending villager.
func (c *Client) ReviewVillager(ctx context.Context, id string, status models.VillagerStatus, note string) (*models.Villager, error) {
	var out models.Villager
	body := dto.ReviewVillagerRequest{Status: status, Note: note}
	if err := c.doJSON(ctx, http.MethodPost, "/admin/villagers/"+url.PathEscape(id)+"/review", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitGrievance files a citizen grievance.
func (c *Client) SubmitGrievance(ctx context.Context, req dto.CreateGrievanceRequest) (*models.Grievance, error) {
	var out models.Grievance
	if err := c.doJSON(ctx, http.MethodPost, "/grievances", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGrievances returns grievances for the admin board.
func (c *Client) ListGrievances(ctx context.Context, query dto.GrievanceQuery) ([]models.Grievance, error) {
	params := url.Values{}
	setParam(params, "adminStatus", string(query.AdminStatus))
	setParam(params, "progressStatus", string(query.ProgressStatus))
	setParam(params, "priority", string(query.Priority))
	setParam(params, "category", query.Category)
	setParam(params, "workerId", query.WorkerID)
	setParam(params, "search", query.Search)
	setPage(params, query.Page, query.PageSize)

	var out []models.Grievance
	if err := c.doJSON(ctx, http.MethodGet, "/admin/grievances"+encode(params), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWorkers returns active workers.
func (c *Client) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	var out []models.Worker
	if err := c.doJSON(ctx, http.MethodGet, "/admin/workers?status=active&limit=200", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetAdminStatus approves or rejects a grievance.
func (c *Client) SetAdminStatus(ctx context.Context, id string, status models.AdminStatus, note string) error {
	body := dto.SetAdminStatusRequest{Status: status, Note: note}
	return c.doJSON(ctx, http.MethodPatch, grievancePath(id, "admin-status"), nil, body, nil)
}

// AssignWorker sets the worker, or clears it when workerID is nil.
func (c *Client) AssignWorker(ctx context.Context, id string, workerID *string) error {
	return c.doJSON(ctx, http.MethodPatch, grievancePath(id, "assign"), nil, dto.AssignWorkerRequest{WorkerID: workerID}, nil)
}

// SetProgressStatus moves the progress axis.
func (c *Client) SetProgressStatus(ctx context.Context, id string, status models.ProgressStatus) error {
	return c.doJSON(ctx, http.MethodPatch, grievancePath(id, "progress"), nil, dto.SetProgressRequest{Status: status}, nil)
}

// Resolve marks a grievance resolved with photos.
func (c *Client) Resolve(ctx context.Context, id string, photos []string) error {
	return c.doJSON(ctx, http.MethodPost, grievancePath(id, "resolve"), nil, dto.ResolveGrievanceRequest{Photos: photos}, nil)
}

// Upload sends an image as multipart form data.
func (c *Client) Upload(ctx context.Context, purpose, filename string, data []byte) (*dto.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", purpose); err != nil {
		return nil, &Error{Tier: TierLocal, Code: CodeTransport, Message: "could not build upload", Err: err}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, &Error{Tier: TierLocal, Code: CodeTransport, Message: "could not build upload", Err: err}
	}
	var out dto.UploadResult
	if err := c.do(ctx, http.MethodPost, "/uploads", nil, &body, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, header http.Header, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &Error{Tier: TierLocal, Code: CodeTransport, Message: "could not encode request", Err: err}
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, header, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Tier: TierLocal, Code: CodeTransport, Message: "could not build request", Err: err}
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("portal request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &Error{Tier: TierRemote, Code: CodeTransport, Message: "could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return &Error{Tier: TierRemote, Code: CodeTransport, Status: resp.StatusCode, Message: "could not read the response", Err: err}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Tier: TierRemote, Code: CodeTransport, Status: resp.StatusCode, Message: fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode), Err: err}
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		remote := &Error{Tier: TierRemote, Code: "REQUEST_FAILED", Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			remote.Code = env.Error.Code
			remote.Message = env.Error.Message
		}
		return remote
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Tier: TierRemote, Code: CodeTransport, Status: resp.StatusCode, Message: "could not decode the response", Err: err}
	}
	return nil
}

func grievancePath(id, action string) string {
	return "/admin/grievances/" + url.PathEscape(id) + "/" + action
}

func setParam(params url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		params.Set(key, value)
	}
}

func setPage(params url.Values, page, size int) {
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		params.Set("limit", strconv.Itoa(size))
	}
}

func encode(params url.Values) string {
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// IsCanceled reports whether err came from a cancelled request context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

var (
	_ VillagerBackend     = (*Client)(nil)
	_ GrievanceRepository = (*Client)(nil)
	_ WorkerDirectory     = (*Client)(nil)
	_ Uploader            = (*Client)(nil)
)
