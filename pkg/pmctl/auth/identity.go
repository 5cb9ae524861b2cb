package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/playmetrics-tools/pmctl/pkg/pmctl/client"
	"github.com/playmetrics-tools/pmctl/pkg/pmctl/config"
)

// Outcome classifies an authentication response. Network and decode failures
// are returned as errors instead; the caller treats both the same way.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeAuthenticated
	OutcomeMFARequired
)

// TokenPair is a freshly minted identity token plus the refresh token that
// can mint its successor. The refresh token rotates: the returned value may
// differ from the one that was sent and must replace it in the store.
type TokenPair struct {
	IdentityToken string
	RefreshToken  string
}

// MFAChallenge is the ephemeral correlation state for one provider-side MFA
// round. A challenge is single-use: after FinalizeMFA it must be discarded,
// whatever the outcome.
type MFAChallenge struct {
	PendingCredential string
	EnrollmentID      string
	PhoneHint         string
}

// SignInResult is the classified outcome of a password sign-in attempt.
type SignInResult struct {
	Outcome   Outcome
	Tokens    TokenPair
	Challenge MFAChallenge
	Reason    string
}

const identityTimeout = 15 * time.Second

// IdentityClient speaks the identity provider's REST surface: password
// sign-in, MFA start/finalize, and silent token refresh.
type IdentityClient struct {
	baseURL  string
	tokenURL string
	apiKey   string
	http     *http.Client
	log      *zap.SugaredLogger
}

func NewIdentityClient(cfg config.IdentityConfig, log *zap.SugaredLogger) *IdentityClient {
	return &IdentityClient{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		tokenURL: strings.TrimSuffix(cfg.TokenURL, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: identityTimeout},
		log:      log,
	}
}

// SignIn attempts a password sign-in and classifies the response. MFA is
// detected by a pending-credential handle at the top level of the response or
// nested inside the error detail list; an MFA response without enrollment
// info is a rejection, since there is no factor to challenge.
func (c *IdentityClient) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	resp, err := c.post(ctx, "/v1/accounts:signInWithPassword", body)
	if err != nil {
		return nil, err
	}
	return c.classifySignIn(resp), nil
}

// StartMFA asks the provider to send an out-of-band code to the enrolled
// factor and returns the delivery session handle needed by FinalizeMFA.
func (c *IdentityClient) StartMFA(ctx context.Context, challenge MFAChallenge) (string, error) {
	body := map[string]any{
		"mfaPendingCredential": challenge.PendingCredential,
		"mfaEnrollmentId":      challenge.EnrollmentID,
		"phoneSignInInfo":      map[string]any{},
	}
	resp, err := c.post(ctx, "/v2/accounts/mfaSignIn:start", body)
	if err != nil {
		return "", err
	}
	if reason := errorMessage(resp); reason != "" {
		return "", fmt.Errorf("mfa start rejected: %s", reason)
	}
	if info, ok := resp["phoneResponseInfo"].(map[string]any); ok {
		if session, ok := info["sessionInfo"].(string); ok && session != "" {
			return session, nil
		}
	}
	return "", errors.New("mfa start returned no delivery session")
}

// FinalizeMFA submits the operator-supplied code. The challenge is consumed
// either way; a rejection here must not be retried with the same challenge.
func (c *IdentityClient) FinalizeMFA(ctx context.Context, challenge MFAChallenge, deliverySession, code string) (TokenPair, error) {
	body := map[string]any{
		"mfaPendingCredential": challenge.PendingCredential,
		"phoneVerificationInfo": map[string]any{
			"sessionInfo": deliverySession,
			"code":        code,
		},
	}
	resp, err := c.post(ctx, "/v2/accounts/mfaSignIn:finalize", body)
	if err != nil {
		return TokenPair{}, err
	}
	if reason := errorMessage(resp); reason != "" {
		return TokenPair{}, fmt.Errorf("mfa verification rejected: %s", reason)
	}
	pair, ok := tokensFrom(resp)
	if !ok {
		return TokenPair{}, errors.New("mfa finalize returned no tokens")
	}
	return pair, nil
}

// Refresh silently mints a new identity token. The token endpoint is a plain
// OAuth refresh grant, so it goes through oauth2; the provider returns the
// identity token in the id_token extra beside the access token.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	conf := oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL + "/v1/token?key=" + url.QueryEscape(c.apiKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to refresh identity token: %w", err)
	}
	pair := TokenPair{
		IdentityToken: token.AccessToken,
		RefreshToken:  token.RefreshToken,
	}
	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		pair.IdentityToken = idToken
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if pair.IdentityToken == "" {
		return TokenPair{}, errors.New("refresh returned no identity token")
	}
	return pair, nil
}

func (c *IdentityClient) post(ctx context.Context, endpoint string, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqURL := c.baseURL + endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", client.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Rejections arrive as a 4xx with an error object in the body; the body
	// is decoded regardless of status so they can be classified.
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("undecodable identity response (%d): %w", resp.StatusCode, err)
	}
	c.log.Debugw("identity provider response", "endpoint", endpoint, "status", resp.StatusCode)
	return decoded, nil
}

func (c *IdentityClient) classifySignIn(resp map[string]any) *SignInResult {
	if _, ok := resp["mfaPendingCredential"].(string); ok {
		return c.challengeResult(resp)
	}
	if pair, ok := tokensFrom(resp); ok {
		return &SignInResult{Outcome: OutcomeAuthenticated, Tokens: pair}
	}
	if errObj, ok := resp["error"].(map[string]any); ok {
		message, _ := errObj["message"].(string)
		upper := strings.ToUpper(message)
		if strings.Contains(upper, "MFA") || strings.Contains(upper, "SECOND_FACTOR") {
			if details, ok := errObj["errors"].([]any); ok {
				for _, detail := range details {
					m, ok := detail.(map[string]any)
					if !ok {
						continue
					}
					if _, ok := m["mfaPendingCredential"].(string); ok {
						return c.challengeResult(m)
					}
				}
			}
			return &SignInResult{Outcome: OutcomeRejected, Reason: "mfa required but response carried no pending credential: " + message}
		}
		return &SignInResult{Outcome: OutcomeRejected, Reason: message}
	}
	return &SignInResult{Outcome: OutcomeRejected, Reason: "unexpected sign-in response"}
}

func (c *IdentityClient) challengeResult(m map[string]any) *SignInResult {
	pending, _ := m["mfaPendingCredential"].(string)
	infos, _ := m["mfaInfo"].([]any)
	if len(infos) == 0 {
		return &SignInResult{Outcome: OutcomeRejected, Reason: "mfa required but no enrolled factors returned"}
	}
	// Only the first enrolled factor is challenged.
	first, ok := infos[0].(map[string]any)
	if !ok {
		return &SignInResult{Outcome: OutcomeRejected, Reason: "mfa required but enrollment info is malformed"}
	}
	challenge := MFAChallenge{PendingCredential: pending}
	challenge.EnrollmentID, _ = first["mfaEnrollmentId"].(string)
	if phone, ok := first["phoneInfo"].(string); ok {
		challenge.PhoneHint = phone
	} else if phone, ok := first["unobfuscatedPhoneInfo"].(string); ok {
		challenge.PhoneHint = phone
	}
	return &SignInResult{Outcome: OutcomeMFARequired, Challenge: challenge}
}

func tokensFrom(resp map[string]any) (TokenPair, bool) {
	idToken, _ := resp["idToken"].(string)
	refreshToken, _ := resp["refreshToken"].(string)
	if idToken == "" || refreshToken == "" {
		return TokenPair{}, false
	}
	return TokenPair{IdentityToken: idToken, RefreshToken: refreshToken}, true
}

func errorMessage(resp map[string]any) string {
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		return ""
	}
	if message, ok := errObj["message"].(string); ok && message != "" {
		return message
	}
	return "unknown error"
}
