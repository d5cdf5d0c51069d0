package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	customErrors "github.com/spellbook-app/session-gateway/internal/domain/session/errors"
	"github.com/spellbook-app/session-gateway/internal/domain/session/model"
	"go.uber.org/zap"
)

// Client is the REST client for the Spellbook backend. The gateway
// never interprets deck or card payloads; those pass through opaquely
// via Forward.
type Client struct {
	baseURL string
	httpCli *http.Client
	log     *zap.Logger
}

// ProxyResponse carries an opaque backend response back to the edge.
type ProxyResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

func New(baseURL string, httpCli *http.Client, logger *zap.Logger) *Client {
	if httpCli == nil {
		httpCli = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCli: httpCli,
		log:     logger,
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (model.TokenGrant, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}

	resp, body, err := c.postJSON(ctx, "/api/v1/auth/login", payload, "")
	if err != nil {
		return model.TokenGrant{}, customErrors.WrapNetwork(err, "login")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var grant model.TokenGrant
		if err := json.Unmarshal(body, &grant); err != nil {
			return model.TokenGrant{}, customErrors.WrapInternal(err, "decode login response")
		}
		return grant, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return model.TokenGrant{}, customErrors.ErrInvalidCredentials

	case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "Inactive"):
		return model.TokenGrant{}, customErrors.ErrAccountSuspended

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return model.TokenGrant{}, customErrors.NewInvalidArgument(errorDetail(body))

	default:
		return model.TokenGrant{}, customErrors.WrapInternal(
			fmt.Errorf("backend returned %d", resp.StatusCode), "login")
	}
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.TokenGrant, error) {
	payload := map[string]string{
		"refresh_token": refreshToken,
	}

	resp, body, err := c.postJSON(ctx, "/api/v1/auth/refresh", payload, "")
	if err != nil {
		return model.TokenGrant{}, customErrors.WrapNetwork(err, "refresh")
	}

	if resp.StatusCode != http.StatusOK {
		return model.TokenGrant{}, fmt.Errorf("%w: backend returned %d",
			customErrors.ErrRefreshFailed, resp.StatusCode)
	}

	var grant model.TokenGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return model.TokenGrant{}, customErrors.WrapInternal(err, "decode refresh response")
	}
	return grant, nil
}

func (c *Client) CurrentUser(ctx context.Context, accessToken string) (model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/users/me", nil)
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, "build users/me request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return model.User{}, customErrors.WrapNetwork(err, "users/me")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.User{}, customErrors.WrapNetwork(err, "read users/me response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var u model.User
		if err := json.Unmarshal(body, &u); err != nil {
			return model.User{}, customErrors.WrapInternal(err, "decode users/me response")
		}
		return u, nil
	case http.StatusUnauthorized:
		return model.User{}, customErrors.ErrInvalidCredentials
	case http.StatusForbidden:
		return model.User{}, customErrors.ErrAccountSuspended
	default:
		return model.User{}, customErrors.WrapInternal(
			fmt.Errorf("backend returned %d", resp.StatusCode), "users/me")
	}
}

// Forward relays a deck or card request to the backend verbatim,
// attaching the bearer token when one is supplied.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, body io.Reader, contentType, accessToken string) (*ProxyResponse, error) {
	url := c.baseURL + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "build proxy request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, customErrors.WrapNetwork(err, method+" "+path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, customErrors.WrapNetwork(err, "read proxy response")
	}

	return &ProxyResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, accessToken string) (*http.Response, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func errorDetail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return "request rejected by backend"
}
