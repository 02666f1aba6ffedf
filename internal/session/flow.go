package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"platefinder/internal/otp"
)

const (
	flowKey = "flow"
	// flowTTL bounds how long an abandoned flow lingers. Individual challenges
	// and verified markers carry their own, shorter expiries.
	flowTTL = 30 * time.Minute
)

// Kind tags which verification flow the session currently carries.
type Kind string

const (
	KindNone              Kind = ""
	KindRegistration      Kind = "registration"
	KindPasswordReset     Kind = "password_reset"
	KindCredentialRefresh Kind = "credential_refresh"
)

// PendingRegistration holds the identity captured at OTP request time. The
// password is hashed before it ever reaches session state.
type PendingRegistration struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// PendingReset holds the email a password reset was requested for.
type PendingReset struct {
	Email string `json:"email"`
}

// PendingRefresh holds the authenticated account a credential refresh runs for.
type PendingRefresh struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
}

// verifiedMarkerTTL bounds how long a successful OTP check authorizes the
// flow's commit step.
const verifiedMarkerTTL = 5 * time.Minute

// VerifiedMarker replaces a consumed challenge after a successful OTP check.
// It expires on its own: a verified-but-stale marker must not authorize a
// later commit.
type VerifiedMarker struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// NewVerifiedMarker returns a marker valid for the commit window.
func NewVerifiedMarker() *VerifiedMarker {
	return &VerifiedMarker{ExpiresAt: time.Now().Add(verifiedMarkerTTL)}
}

// Expired reports whether the marker's window has elapsed.
func (m *VerifiedMarker) Expired() bool {
	return m == nil || time.Now().After(m.ExpiresAt)
}

// Flow is the tagged variant a session carries for its (single) in-progress
// verification flow. Exactly the payload matching Kind is non-nil, which keeps
// a reset commit from ever reading registration fields.
type Flow struct {
	Kind         Kind                 `json:"kind"`
	Registration *PendingRegistration `json:"registration,omitempty"`
	Reset        *PendingReset        `json:"reset,omitempty"`
	Refresh      *PendingRefresh      `json:"refresh,omitempty"`
	Challenge    *otp.Challenge       `json:"challenge,omitempty"`
	Verified     *VerifiedMarker      `json:"verified,omitempty"`
}

// Empty reports whether no flow is pending.
func (f *Flow) Empty() bool {
	return f == nil || f.Kind == KindNone
}

// Destination returns the notification address for the flow's identity.
func (f *Flow) Destination() string {
	switch f.Kind {
	case KindRegistration:
		if f.Registration != nil {
			return f.Registration.Email
		}
	case KindPasswordReset:
		if f.Reset != nil {
			return f.Reset.Email
		}
	case KindCredentialRefresh:
		if f.Refresh != nil {
			return f.Refresh.Email
		}
	}
	return ""
}

// Flows is the typed accessor over a Store for flow payloads.
type Flows struct {
	store Store
}

// NewFlows wraps a Store.
func NewFlows(store Store) *Flows {
	return &Flows{store: store}
}

// Load returns the session's current flow, or an empty Flow if none is pending.
func (f *Flows) Load(ctx context.Context, sid string) (*Flow, error) {
	data, err := f.store.Get(ctx, sid, flowKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &Flow{}, nil
	}
	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	return &flow, nil
}

// Save overwrites the session's flow.
func (f *Flows) Save(ctx context.Context, sid string, flow *Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	return f.store.Set(ctx, sid, flowKey, data, flowTTL)
}

// Clear removes the session's flow, leaving other session keys intact.
func (f *Flows) Clear(ctx context.Context, sid string) error {
	return f.store.Delete(ctx, sid, flowKey)
}

// Destroy removes the whole session.
func (f *Flows) Destroy(ctx context.Context, sid string) error {
	return f.store.Destroy(ctx, sid)
}
