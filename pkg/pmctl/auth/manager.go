package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CodePrompter supplies the out-of-band MFA code. It is the only suspension
// point in the whole flow; headless callers plug in their own source instead
// of terminal I/O.
type CodePrompter interface {
	PromptCode(ctx context.Context, prompt string) (string, error)
}

// Prober confirms a capability key is still accepted by the backend.
type Prober interface {
	Probe(ctx context.Context, identityToken, accessKey string) error
}

// Manager drives the two-tier credential chain: identity token (refresh or
// password sign-in, with provider MFA), then capability key (cached-and-probed
// or exchanged, with backend MFA), then persistence.
type Manager struct {
	store    *Store
	identity *IdentityClient
	backend  *BackendClient
	prober   Prober
	prompter CodePrompter
	email    string
	password string
	log      *zap.SugaredLogger
}

func NewManager(store *Store, identity *IdentityClient, backend *BackendClient, prober Prober, prompter CodePrompter, email, password string, log *zap.SugaredLogger) *Manager {
	return &Manager{
		store:    store,
		identity: identity,
		backend:  backend,
		prober:   prober,
		prompter: prompter,
		email:    email,
		password: password,
		log:      log,
	}
}

// EnsureSession returns a session whose capability key was either just issued
// or probed valid in this call. Nothing is persisted on failure; on success
// the finalized session replaces the stored one.
func (m *Manager) EnsureSession(ctx context.Context) (SessionState, error) {
	state, found := m.store.Load()

	if found && state.RefreshToken != "" {
		m.log.Infow("refreshing identity token")
		pair, err := m.identity.Refresh(ctx, state.RefreshToken)
		if err != nil {
			// A rejected refresh is equivalent to having no session at all.
			m.log.Infow("refresh rejected, falling back to full sign-in", "error", err)
			if err := m.signIn(ctx, &state); err != nil {
				return SessionState{}, err
			}
		} else {
			state.IdentityToken = pair.IdentityToken
			state.RefreshToken = pair.RefreshToken
			m.log.Infow("identity token refreshed")
		}
	} else {
		m.log.Infow("no saved session, performing full sign-in")
		if err := m.signIn(ctx, &state); err != nil {
			return SessionState{}, err
		}
	}

	if state.AccessKey != "" {
		if err := m.prober.Probe(ctx, state.IdentityToken, state.AccessKey); err == nil {
			m.log.Infow("saved capability key still valid")
			if err := m.store.Save(state); err != nil {
				return SessionState{}, err
			}
			return state, nil
		}
		m.log.Infow("saved capability key expired, re-exchanging")
	}

	if err := m.exchange(ctx, &state); err != nil {
		return SessionState{}, err
	}

	if err := m.prober.Probe(ctx, state.IdentityToken, state.AccessKey); err != nil {
		m.log.Warnw("capability key failed probe right after issue", "error", err)
	}
	if err := m.store.Save(state); err != nil {
		return SessionState{}, err
	}
	return state, nil
}

// signIn performs the full password sign-in, handling the provider's MFA
// round inline. The remember token and access key already in state survive so
// a later exchange can still skip backend MFA.
func (m *Manager) signIn(ctx context.Context, state *SessionState) error {
	m.log.Infow("signing in", "email", m.email)
	result, err := m.identity.SignIn(ctx, m.email, m.password)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	var tokens TokenPair
	switch result.Outcome {
	case OutcomeAuthenticated:
		tokens = result.Tokens
	case OutcomeMFARequired:
		tokens, err = m.runIdentityMFA(ctx, result.Challenge)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("sign-in rejected: %s", result.Reason)
	}

	state.IdentityToken = tokens.IdentityToken
	state.RefreshToken = tokens.RefreshToken
	state.CapturedAt = time.Now()
	return nil
}

func (m *Manager) runIdentityMFA(ctx context.Context, challenge MFAChallenge) (TokenPair, error) {
	hint := challenge.PhoneHint
	if hint == "" {
		hint = "your enrolled factor"
	}
	m.log.Infow("provider mfa required, sending code", "factor", hint)
	deliverySession, err := m.identity.StartMFA(ctx, challenge)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to start mfa: %w", err)
	}
	code, err := m.prompter.PromptCode(ctx, fmt.Sprintf("Enter the 6-digit verification code sent to %s", hint))
	if err != nil {
		return TokenPair{}, err
	}
	tokens, err := m.identity.FinalizeMFA(ctx, challenge, deliverySession, code)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mfa verification failed: %w", err)
	}
	m.log.Infow("provider mfa verified")
	return tokens, nil
}

// exchange obtains a capability key from the backend, handling its own MFA
// round inline. On a successful validation the rotated remember token
// replaces the stored one.
func (m *Manager) exchange(ctx context.Context, state *SessionState) error {
	m.log.Infow("exchanging identity token for capability key")
	result, err := m.backend.Exchange(ctx, state.IdentityToken, state.RememberToken)
	if err != nil {
		return fmt.Errorf("backend login failed: %w", err)
	}

	switch result.Outcome {
	case OutcomeAuthenticated:
		state.AccessKey = result.AccessKey
		m.log.Infow("capability key obtained, backend mfa skipped")
		return nil
	case OutcomeMFARequired:
		return m.runBackendMFA(ctx, state)
	default:
		return fmt.Errorf("backend login rejected: %s", result.Reason)
	}
}

func (m *Manager) runBackendMFA(ctx context.Context, state *SessionState) error {
	m.log.Infow("backend mfa required, sending code")
	sendCodeToken, err := m.backend.SendCode(ctx, state.IdentityToken)
	if err != nil {
		return fmt.Errorf("failed to send backend mfa code: %w", err)
	}
	code, err := m.prompter.PromptCode(ctx, "Enter the 6-digit verification code sent to your phone")
	if err != nil {
		return err
	}
	result, err := m.backend.ValidateCode(ctx, state.IdentityToken, sendCodeToken, code)
	if err != nil {
		return fmt.Errorf("backend mfa validation failed: %w", err)
	}
	if result.Outcome != OutcomeAuthenticated {
		return fmt.Errorf("backend mfa rejected: %s", result.Reason)
	}
	state.AccessKey = result.AccessKey
	if result.RememberToken != "" {
		state.RememberToken = result.RememberToken
	}
	m.log.Infow("backend mfa verified, capability key obtained")
	return nil
}
