package upload

import (
	"fmt"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
)

// MaxFileSize is the default per-image size limit.
const MaxFileSize int64 = 5 * 1024 * 1024

// Reason names why a file was rejected.
type Reason string

const (
	ReasonInvalidType Reason = "invalid-type"
	ReasonTooLarge    Reason = "too-large"
)

// Rejection is returned by Validate for files that fail the policy.
type Rejection struct {
	Reason   Reason
	MIMEType string
	Size     int64
	Limit    int64
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonInvalidType:
		return fmt.Sprintf("%s: %q is not an accepted image type", r.Reason, r.MIMEType)
	case ReasonTooLarge:
		return fmt.Sprintf("%s: %d bytes exceeds limit of %d bytes", r.Reason, r.Size, r.Limit)
	}
	return string(r.Reason)
}

// UserMessage is the text shown to the user for this rejection.
func (r *Rejection) UserMessage() string {
	switch r.Reason {
	case ReasonInvalidType:
		return "Please upload a valid image (JPEG or PNG)"
	case ReasonTooLarge:
		return fmt.Sprintf("File size exceeds %s limit", formatLimit(r.Limit))
	}
	return "Invalid file"
}

// Policy holds the accepted types and size limit.
type Policy struct {
	AllowedTypes []string
	MaxSize      int64
}

// DefaultPolicy accepts JPEG and PNG up to 5 MiB.
func DefaultPolicy() Policy {
	return Policy{
		AllowedTypes: []string{"image/jpeg", "image/png"},
		MaxSize:      MaxFileSize,
	}
}

// Validator checks candidate files against a Policy.
type Validator struct {
	policy Policy
}

// NewValidator creates a validator. Zero-valued policy fields fall back to
// DefaultPolicy.
func NewValidator(policy Policy) *Validator {
	def := DefaultPolicy()
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = def.AllowedTypes
	}
	if policy.MaxSize <= 0 {
		policy.MaxSize = def.MaxSize
	}
	return &Validator{policy: policy}
}

// Policy returns the policy in effect.
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate returns nil if f is acceptable. The type rule is checked before the
// size rule; the first failure is returned as a *Rejection.
func (v *Validator) Validate(f *File) error {
	if f == nil {
		return domain.ValidationError("no file selected", nil)
	}

	if !v.allowed(f.MIMEType) {
		return &Rejection{Reason: ReasonInvalidType, MIMEType: f.MIMEType, Size: f.Size, Limit: v.policy.MaxSize}
	}

	if f.Size > v.policy.MaxSize {
		return &Rejection{Reason: ReasonTooLarge, MIMEType: f.MIMEType, Size: f.Size, Limit: v.policy.MaxSize}
	}

	return nil
}

func (v *Validator) allowed(mimeType string) bool {
	for _, t := range v.policy.AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// formatLimit renders a byte limit the way the form states it: whole
// megabytes as "5MB", anything smaller or fractional with its own unit.
func formatLimit(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case n >= mb && n%mb == 0:
		return fmt.Sprintf("%dMB", n/mb)
	case n >= mb:
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	case n >= kb && n%kb == 0:
		return fmt.Sprintf("%dKB", n/kb)
	case n >= kb:
		return fmt.Sprintf("%.1fKB", float64(n)/kb)
	}
	return fmt.Sprintf("%d bytes", n)
}
