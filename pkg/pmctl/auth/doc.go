// Package auth acquires and maintains the two-tier credential chain for the
// PlayMetrics backend: an identity-provider token (password sign-in or silent
// refresh, with an optional provider MFA round) exchanged for a backend
// capability key (with an optional backend MFA round), persisted to a file or
// the system keychain between runs.
package auth
