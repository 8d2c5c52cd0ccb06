package upload

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
)

// Handle is a revocable reference to a selected file, usable for display.
// The zero value is the empty handle.
type Handle string

const handlePrefix = "blob:"

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return h == ""
}

// ID returns the handle without its scheme prefix.
func (h Handle) ID() string {
	return strings.TrimPrefix(string(h), handlePrefix)
}

// HandleFromID rebuilds a handle from the identifier returned by ID.
func HandleFromID(id string) Handle {
	return Handle(handlePrefix + id)
}

// PreviewOption configures a PreviewManager.
type PreviewOption func(*PreviewManager)

// WithRevokeHook registers fn to be called once for every handle revoked.
// fn runs outside the manager's lock and may call back into it.
func WithRevokeHook(fn func(Handle)) PreviewOption {
	return func(m *PreviewManager) {
		m.onRevoke = fn
	}
}

// WithHandleGenerator overrides how new handle identifiers are minted.
func WithHandleGenerator(fn func() string) PreviewOption {
	return func(m *PreviewManager) {
		m.newID = fn
	}
}

// PreviewManager owns at most one live preview handle per side.
type PreviewManager struct {
	mu       sync.Mutex
	slots    map[domain.Side]Handle
	live     map[Handle]*File
	onRevoke func(Handle)
	newID    func() string
}

// NewPreviewManager creates an empty manager.
func NewPreviewManager(opts ...PreviewOption) *PreviewManager {
	m := &PreviewManager{
		slots: make(map[domain.Side]Handle, 2),
		live:  make(map[Handle]*File, 2),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Assign revokes the side's current handle, if any, then creates a new one
// for f. The revoke hook for the old handle has returned before the new
// identifier is generated.
func (m *PreviewManager) Assign(side domain.Side, f *File) (Handle, error) {
	if !side.Valid() {
		return "", domain.ValidationError(fmt.Sprintf("unknown side %q", side), nil)
	}
	if f == nil {
		return "", domain.ValidationError("no file to preview", nil)
	}

	// The old handle is released, hook included, before the new one exists.
	for {
		m.mu.Lock()
		revoked := m.revokeLocked(m.slots[side])
		if len(revoked) == 0 {
			break
		}
		m.mu.Unlock()
		m.notify(revoked)
	}
	h := Handle(handlePrefix + m.newID())
	m.slots[side] = h
	m.live[h] = f
	m.mu.Unlock()

	return h, nil
}

// Revoke invalidates h. Revoking an empty or already revoked handle is a no-op.
func (m *PreviewManager) Revoke(h Handle) {
	m.mu.Lock()
	revoked := m.revokeLocked(h)
	m.mu.Unlock()

	m.notify(revoked)
}

// Release revokes whatever handle side currently holds.
func (m *PreviewManager) Release(side domain.Side) {
	m.mu.Lock()
	revoked := m.revokeLocked(m.slots[side])
	m.mu.Unlock()

	m.notify(revoked)
}

// RevokeAll revokes the handles of both sides.
func (m *PreviewManager) RevokeAll() {
	m.mu.Lock()
	var revoked []Handle
	for _, side := range domain.Sides {
		revoked = append(revoked, m.revokeLocked(m.slots[side])...)
	}
	m.mu.Unlock()

	m.notify(revoked)
}

// Current returns the live handle for side, or the empty handle.
func (m *PreviewManager) Current(side domain.Side) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[side]
}

// Resolve returns the file behind a live handle.
func (m *PreviewManager) Resolve(h Handle) (*File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.live[h]
	return f, ok
}

// Live returns the number of handles not yet revoked.
func (m *PreviewManager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

func (m *PreviewManager) revokeLocked(h Handle) []Handle {
	if h.IsZero() {
		return nil
	}
	if _, ok := m.live[h]; !ok {
		return nil
	}
	delete(m.live, h)
	for side, cur := range m.slots {
		if cur == h {
			delete(m.slots, side)
		}
	}
	return []Handle{h}
}

func (m *PreviewManager) notify(revoked []Handle) {
	if m.onRevoke == nil {
		return
	}
	for _, h := range revoked {
		m.onRevoke(h)
	}
}
