// Package identity implements the identity, session, and token lifecycle
// for the EITSA lead-management platform: credential verification, bearer
// token issuance and validation, out-of-band verification tokens for email
// confirmation and password reset, multi-device session tracking with
// expiry and pruning, and role-based authorization gating.
//
// All identity state lives in a single record per account, reached through
// the UserStore port; the package itself holds no mutable process-wide
// state beyond configuration handed in at construction time.
package identity
