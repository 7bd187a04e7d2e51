package identity

import "time"

// DefaultSessionTTL is the device session lifetime, fixed at creation.
const DefaultSessionTTL = 30 * 24 * time.Hour

// CreateSession appends a new device session to the user's ledger and
// returns its opaque token. Expired entries are pruned first, which is the
// only bound on ledger growth.
func (u *User) CreateSession(device, ip string) string {
	return u.createSessionAt(device, ip, time.Now())
}

func (u *User) createSessionAt(device, ip string, now time.Time) string {
	u.pruneSessionsAt(now)

	token := GenerateOpaqueToken()
	u.Sessions = append(u.Sessions, Session{
		Token:      token,
		Device:     device,
		IP:         ip,
		LastActive: now,
		ExpiresAt:  now.Add(DefaultSessionTTL),
	})

	return token
}

// TouchSession refreshes the last-active timestamp for the session matching
// the token. An expired session is treated identically to an absent one and
// is never revived.
func (u *User) TouchSession(token string) bool {
	return u.touchSessionAt(token, time.Now())
}

func (u *User) touchSessionAt(token string, now time.Time) bool {
	for i := range u.Sessions {
		if u.Sessions[i].Token != token {
			continue
		}
		if u.Sessions[i].Expired(now) {
			return false
		}
		u.Sessions[i].LastActive = now
		return true
	}
	return false
}

// PruneSessions removes every session whose expiry is in the past. Invoked
// opportunistically before reads and appends; there is no background timer.
func (u *User) PruneSessions() {
	u.pruneSessionsAt(time.Now())
}

func (u *User) pruneSessionsAt(now time.Time) {
	if len(u.Sessions) == 0 {
		return
	}

	kept := u.Sessions[:0]
	for _, s := range u.Sessions {
		if !s.Expired(now) {
			kept = append(kept, s)
		}
	}
	u.Sessions = kept
}

// RevokeSession removes the session matching the token. A missing match is
// not an error; logout is idempotent.
func (u *User) RevokeSession(token string) {
	kept := u.Sessions[:0]
	for _, s := range u.Sessions {
		if s.Token != token {
			kept = append(kept, s)
		}
	}
	u.Sessions = kept
}

// RevokeAllSessions drops the entire ledger, forcing re-login on every
// device. Used after a password reset.
func (u *User) RevokeAllSessions() {
	u.Sessions = nil
}

// SessionSummary is the client-facing view of a session. The opaque token
// stays server-side; listing sessions must never hand out credentials for
// other devices.
type SessionSummary struct {
	Device     string    `json:"device"`
	IP         string    `json:"ip"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ActiveSessionSummaries returns the non-expired sessions as token-free
// summaries, in creation order.
func (u *User) ActiveSessionSummaries() []SessionSummary {
	active := u.ActiveSessions()
	summaries := make([]SessionSummary, 0, len(active))
	for _, s := range active {
		summaries = append(summaries, SessionSummary{
			Device:     s.Device,
			IP:         s.IP,
			LastActive: s.LastActive,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	return summaries
}

// ActiveSessions returns the non-expired sessions in creation order.
func (u *User) ActiveSessions() []Session {
	now := time.Now()
	active := make([]Session, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		if !s.Expired(now) {
			active = append(active, s)
		}
	}
	return active
}
