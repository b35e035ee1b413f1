package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/askarihq/patrolbot/internal/domain"
)

// errForbidden is internal to the client; Invoke maps it to a Forbidden result.
var errForbidden = errors.New("forbidden")

// MCPClient talks JSON-RPC over streamable HTTP to the patrol MCP server.
type MCPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	nextID  atomic.Int64
}

var (
	_ Dispatcher    = (*MCPClient)(nil)
	_ Authenticator = (*MCPClient)(nil)
)

// NewMCPClient creates a client for the given MCP endpoint. The timeout
// bounds every tool call, including login.
func NewMCPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *MCPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  toolCallParams `json:"params"`
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	Result *toolCallResult `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolCallResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// callTool performs a single tools/call round trip and returns the
// concatenated text content. A permission failure is reported as
// errForbidden; everything else comes back as a plain error.
func (c *MCPClient) callTool(ctx context.Context, token, name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: args},
	})
	if err != nil {
		return "", fmt.Errorf("encode tool call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build tool call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close MCP response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return "", errForbidden
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tool %s: unexpected status %d", name, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read tool response: %w", err)
	}

	var rpc rpcResponse
	if err := json.Unmarshal(payload, &rpc); err != nil {
		return "", fmt.Errorf("decode tool response: %w", err)
	}
	if rpc.Error != nil {
		if isForbiddenMessage(rpc.Error.Message) {
			return "", errForbidden
		}
		return "", fmt.Errorf("tool %s: rpc error %d: %s", name, rpc.Error.Code, rpc.Error.Message)
	}
	if rpc.Result == nil {
		return "", fmt.Errorf("tool %s: empty result", name)
	}

	var sb strings.Builder
	for _, content := range rpc.Result.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	text := sb.String()

	if rpc.Result.IsError {
		if isForbiddenMessage(text) {
			return "", errForbidden
		}
		return "", fmt.Errorf("tool %s reported error: %s", name, text)
	}
	return text, nil
}

// isForbiddenMessage detects the permission-failure shapes the patrol API
// produces through the MCP error channel.
func isForbiddenMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "403") ||
		strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "401") ||
		strings.Contains(lower, "unauthorized")
}

// Invoke implements Dispatcher.
func (c *MCPClient) Invoke(ctx context.Context, token string, action domain.Action) Result {
	text, err := c.callTool(ctx, token, action.Tool, map[string]any{"query": action.Input})
	if err != nil {
		if errors.Is(err, errForbidden) {
			return Forbidden()
		}
		return Failure(err)
	}
	return Success(text)
}

type loginPayload struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// Login implements Authenticator.
func (c *MCPClient) Login(ctx context.Context, username, password string) (string, error) {
	text, err := c.callTool(ctx, "", "login", map[string]any{
		"username": username,
		"password": password,
	})
	if err != nil {
		if errors.Is(err, errForbidden) {
			return "", ErrAuthFailed
		}
		return "", err
	}

	var payload loginPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return "", fmt.Errorf("decode login payload: %w", err)
	}
	if !payload.Success || payload.AccessToken == "" {
		return "", ErrAuthFailed
	}
	return payload.AccessToken, nil
}

// Check implements Authenticator.
func (c *MCPClient) Check(ctx context.Context, token string) (bool, error) {
	text, err := c.callTool(ctx, token, "is_authenticated", nil)
	if err != nil {
		if errors.Is(err, errForbidden) {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(strings.ToLower(text), "true"), nil
}

// Logout implements Authenticator.
func (c *MCPClient) Logout(ctx context.Context, token string) error {
	_, err := c.callTool(ctx, token, "logout", nil)
	if err != nil && !errors.Is(err, errForbidden) {
		return err
	}
	return nil
}

// Healthy reports whether the MCP server answers its health tool.
func (c *MCPClient) Healthy(ctx context.Context) bool {
	text, err := c.callTool(ctx, "", "is_healthy", nil)
	if err != nil {
		c.logger.Warn("MCP health check failed", "error", err)
		return false
	}
	return strings.Contains(strings.ToLower(text), "ok")
}
