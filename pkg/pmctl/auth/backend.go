package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playmetrics-tools/pmctl/pkg/pmctl/client"
	"github.com/playmetrics-tools/pmctl/pkg/pmctl/config"
)

// ExchangeResult is the classified outcome of a capability-key exchange or a
// backend 2FA validation.
type ExchangeResult struct {
	Outcome       Outcome
	AccessKey     string
	RememberToken string
	Reason        string
}

const backendTimeout = 15 * time.Second

// BackendClient exchanges an identity token for the backend capability key
// and runs the backend's own 2FA round when the device is not remembered.
type BackendClient struct {
	baseURL      string
	buildVersion string
	http         *http.Client
	log          *zap.SugaredLogger
}

func NewBackendClient(cfg config.BackendConfig, log *zap.SugaredLogger) *BackendClient {
	return &BackendClient{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		buildVersion: cfg.BuildVersion,
		http:         &http.Client{Timeout: backendTimeout},
		log:          log,
	}
}

// Exchange logs in to the backend with the identity token. A valid remember
// token lets the backend skip its 2FA round entirely.
func (c *BackendClient) Exchange(ctx context.Context, identityToken, rememberToken string) (*ExchangeResult, error) {
	body := map[string]any{
		"current_role_id": "",
		"verified2fa":     rememberToken,
	}
	resp, err := c.post(ctx, "/firebase/user/login", identityToken, body)
	if err != nil {
		return nil, err
	}
	if needs, _ := resp["needs_2fa"].(bool); needs {
		return &ExchangeResult{Outcome: OutcomeMFARequired}, nil
	}
	key, ok := accessKeyFrom(resp)
	if !ok {
		return &ExchangeResult{Outcome: OutcomeRejected, Reason: "login response carried no access key"}, nil
	}
	return &ExchangeResult{Outcome: OutcomeAuthenticated, AccessKey: key}, nil
}

// SendCode asks the backend to deliver a 2FA code and returns the one-time
// token that must accompany the validation call.
func (c *BackendClient) SendCode(ctx context.Context, identityToken string) (string, error) {
	resp, err := c.post(ctx, "/firebase/user/2fa/send_code", identityToken, map[string]any{})
	if err != nil {
		return "", err
	}
	token, _ := resp["token"].(string)
	if token == "" {
		return "", errors.New("send_code response carried no token")
	}
	return token, nil
}

// ValidateCode submits the operator-supplied code. On success the backend
// issues the capability key and a fresh remember token that replaces the
// stored one.
func (c *BackendClient) ValidateCode(ctx context.Context, identityToken, sendCodeToken, code string) (*ExchangeResult, error) {
	body := map[string]any{
		"token":           sendCodeToken,
		"validation_code": code,
		"remember_device": true,
	}
	resp, err := c.post(ctx, "/firebase/user/2fa/validate", identityToken, body)
	if err != nil {
		return nil, err
	}
	key, ok := accessKeyFrom(resp)
	if !ok {
		return &ExchangeResult{Outcome: OutcomeRejected, Reason: "validate response carried no access key"}, nil
	}
	remember, _ := resp["verified2fa"].(string)
	return &ExchangeResult{Outcome: OutcomeAuthenticated, AccessKey: key, RememberToken: remember}, nil
}

func (c *BackendClient) post(ctx context.Context, endpoint, identityToken string, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("firebase-token", identityToken)
	req.Header.Set("build-version", c.buildVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", client.UserAgent)
	req.Header.Set("Origin", client.WebOrigin)
	req.Header.Set("Referer", client.WebOrigin+"/")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debugw("backend auth response", "endpoint", endpoint, "status", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, &client.HTTPError{StatusCode: resp.StatusCode, Message: client.Truncate(string(raw), 300)}
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("undecodable backend response: %w", err)
	}
	return decoded, nil
}

// accessKeyFrom checks both places the backend is known to put the key: the
// top level of the response and the user sub-object.
func accessKeyFrom(resp map[string]any) (string, bool) {
	if key, ok := resp["access_key"].(string); ok && key != "" {
		return key, true
	}
	if user, ok := resp["user"].(map[string]any); ok {
		if key, ok := user["access_key"].(string); ok && key != "" {
			return key, true
		}
	}
	return "", false
}
