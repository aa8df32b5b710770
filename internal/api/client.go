// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Configuration constants for the service client.
const (
	// DefaultBaseURL is the service root used when none is configured.
	DefaultBaseURL = "http://127.0.0.1:8000/api/"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed JSON response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the scholar service. It is safe for concurrent use.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for non-streaming requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStreamClient replaces the client used for event streams. It should
// not carry a timeout; streams are bounded by their context.
func WithStreamClient(hc *http.Client) Option {
	return func(c *Client) { c.streamClient = hc }
}

// WithTimeout sets the timeout of non-streaming requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
		}
	}
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		baseURL:      u,
		httpClient:   &http.Client{Transport: transport, Timeout: DefaultTimeout},
		streamClient: &http.Client{Transport: transport},
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// endpoint joins path segments onto the base URL, escaping each segment.
func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	ref := &url.URL{
		Path:    strings.Join(segments, "/"),
		RawPath: strings.Join(escaped, "/"),
	}
	return c.baseURL.ResolveReference(ref).String()
}

// DownloadURL returns the direct download link of a document.
func (c *Client) DownloadURL(id string) string {
	return c.endpoint("document_manager", "download", id)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// tagRequest attaches a request id and returns it.
func (c *Client) tagRequest(req *http.Request) string {
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	return id
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// do sends a request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	reqID := c.tagRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newError(resp.StatusCode, data)
		c.logger.Warn("request rejected",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.String("request_id", reqID),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", apiErr.Reason),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, "", out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, method, endpoint, bytes.NewReader(payload), "application/json", out)
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// METADATA
// =============================================================================

// Categories lists the document categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := c.getJSON(ctx, c.endpoint("meta_data", "categories"), &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// SearchPaths lists the known document folders.
func (c *Client) SearchPaths(ctx context.Context) ([]SearchPath, error) {
	var paths []SearchPath
	if err := c.getJSON(ctx, c.endpoint("meta_data", "search_paths"), &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// ListDocuments fetches one page of documents.
func (c *Client) ListDocuments(ctx context.Context, q DocumentQuery) (*DocumentPage, error) {
	var page DocumentPage
	if err := c.sendJSON(ctx, http.MethodPost, c.endpoint("document_manager"), q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DocumentContent fetches the stored excerpts of a document.
func (c *Client) DocumentContent(ctx context.Context, id string) ([]ContentChunk, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	var chunks []ContentChunk
	if err := c.getJSON(ctx, c.endpoint("document_manager", "get_content", id), &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// Download streams a document's bytes into w and returns the file name the
// service suggested, if any.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.tagRequest(req)

	// Downloads may exceed the JSON timeout.
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", newError(resp.StatusCode, body)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download interrupted: %w", err)
	}

	name := ""
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			name = filepath.Base(params["filename"])
		}
	}
	return name, nil
}

// UploadRequest describes a document upload. Empty optional fields are omitted.
type UploadRequest struct {
	FileName    string
	File        io.Reader
	SearchPath  string
	CreatedDate string
	UpdatedDate string
	Author      string
	// Categories maps category id to the selected value.
	Categories map[string]string
}

// UploadDocument posts a multipart upload and returns the service's message.
func (c *Client) UploadDocument(ctx context.Context, up UploadRequest) (string, error) {
	if up.File == nil || up.FileName == "" {
		return "", errors.New("upload requires a file")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, up))
	}()

	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, c.endpoint("document_manager", "upload"), pr, mw.FormDataContentType(), &resp)
	pr.Close()
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func writeUploadForm(mw *multipart.Writer, up UploadRequest) error {
	part, err := mw.CreateFormFile("file", filepath.Base(up.FileName))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.File); err != nil {
		return err
	}

	fields := []struct{ key, value string }{
		{"search_path", up.SearchPath},
		{"created_date", up.CreatedDate},
		{"updated_date", up.UpdatedDate},
		{"file_author", up.Author},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.key, f.value); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(up.Categories))
	for id := range up.Categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if v := up.Categories[id]; v != "" {
			if err := mw.WriteField(id, v); err != nil {
				return err
			}
		}
	}
	return mw.Close()
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return c.do(ctx, http.MethodDelete, c.endpoint("document_manager", id), nil, "", nil)
}

// =============================================================================
// CHAT LIFECYCLE
// =============================================================================

// NewChatID asks the service for a fresh chat id.
func (c *Client) NewChatID(ctx context.Context) (string, error) {
	var resp struct {
		ChatID string `json:"chat_id"`
	}
	if err := c.getJSON(ctx, c.endpoint("chat", "get_new_chat_id"), &resp); err != nil {
		return "", err
	}
	if resp.ChatID == "" {
		return "", errors.New("service returned an empty chat id")
	}
	return resp.ChatID, nil
}

// ChatHistory returns the finished turns of a chat, newest first.
func (c *Client) ChatHistory(ctx context.Context, chatID string) ([]Turn, error) {
	if chatID == "" {
		return nil, ErrEmptyID
	}
	var states []graphState
	if err := c.getJSON(ctx, c.endpoint("chat", chatID), &states); err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(states))
	for _, s := range states {
		if s.LastConversation == nil {
			turns = append(turns, Turn{})
			continue
		}
		turns = append(turns, *s.LastConversation)
	}
	return turns, nil
}

// CurrentState returns the latest turn snapshot. A chat without state
// yields an empty Turn.
func (c *Client) CurrentState(ctx context.Context, chatID string) (*Turn, error) {
	if chatID == "" {
		return nil, ErrEmptyID
	}
	var raw json.RawMessage
	err := c.getJSON(ctx, c.endpoint("chat", chatID, "current_state"), &raw)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		// The service answers a plain "Ok" when no snapshot exists.
		return &Turn{}, nil
	}
	if err != nil {
		return nil, err
	}

	var state graphState
	if err := json.Unmarshal(raw, &state); err != nil || state.LastConversation == nil {
		return &Turn{}, nil
	}
	return state.LastConversation, nil
}

// DeleteChat removes a chat on the service.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		return ErrEmptyID
	}
	return c.do(ctx, http.MethodDelete, c.endpoint("chat", chatID), nil, "", nil)
}

// SendPrompt submits a prompt. The answer arrives on the chat's stream.
func (c *Client) SendPrompt(ctx context.Context, chatID string, req PromptRequest) error {
	if chatID == "" {
		return ErrEmptyID
	}
	if req.SelectedDocuments == nil {
		req.SelectedDocuments = []string{}
	}
	return c.sendJSON(ctx, http.MethodPost, c.endpoint("chat", chatID), req, nil)
}

// InterruptStatus reports whether the chat is waiting on an interrupt.
func (c *Client) InterruptStatus(ctx context.Context, chatID string) (*InterruptStatus, error) {
	if chatID == "" {
		return nil, ErrEmptyID
	}
	var status InterruptStatus
	if err := c.getJSON(ctx, c.endpoint("chat", chatID, "interrupt_status"), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Resume resolves a pending interrupt with payload. Processing continues on
// a new stream.
func (c *Client) Resume(ctx context.Context, chatID string, payload any) error {
	if chatID == "" {
		return ErrEmptyID
	}
	if payload == nil {
		payload = Dismissal{}
	}
	return c.sendJSON(ctx, http.MethodPost, c.endpoint("chat", chatID, "resume"), payload, nil)
}
