package upload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
)

func sized(mimeType string, size int64) *File {
	return NewFileFromOpener("card", mimeType, size, nil)
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(DefaultPolicy())

	tests := []struct {
		name       string
		file       *File
		wantReason Reason
	}{
		{name: "jpeg within limit", file: sized("image/jpeg", 1024)},
		{name: "png exactly at limit", file: sized("image/png", MaxFileSize)},
		{name: "empty png", file: sized("image/png", 0)},
		{name: "gif rejected", file: sized("image/gif", 10), wantReason: ReasonInvalidType},
		{name: "pdf rejected", file: sized("application/pdf", 10), wantReason: ReasonInvalidType},
		{name: "type match is exact", file: sized("image/JPEG", 10), wantReason: ReasonInvalidType},
		{name: "parameters not accepted", file: sized("image/png; q=1", 10), wantReason: ReasonInvalidType},
		{name: "empty type rejected", file: sized("", 10), wantReason: ReasonInvalidType},
		{name: "one byte over limit", file: sized("image/jpeg", MaxFileSize+1), wantReason: ReasonTooLarge},
		{name: "type checked before size", file: sized("image/webp", MaxFileSize*3), wantReason: ReasonInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.file)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			var rej *Rejection
			require.True(t, errors.As(err, &rej), "expected *Rejection, got %v", err)
			assert.Equal(t, tt.wantReason, rej.Reason)
		})
	}
}

func TestValidator_NilFile(t *testing.T) {
	err := NewValidator(Policy{}).Validate(nil)

	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrorTypeValidation, de.Type)
}

func TestValidator_ZeroPolicyUsesDefaults(t *testing.T) {
	v := NewValidator(Policy{})
	assert.Equal(t, DefaultPolicy(), v.Policy())
}

func TestRejection_UserMessage(t *testing.T) {
	v := NewValidator(DefaultPolicy())

	var rej *Rejection
	require.True(t, errors.As(v.Validate(sized("text/plain", 1)), &rej))
	assert.Equal(t, "Please upload a valid image (JPEG or PNG)", rej.UserMessage())

	require.True(t, errors.As(v.Validate(sized("image/png", MaxFileSize+1)), &rej))
	assert.Equal(t, "File size exceeds 5MB limit", rej.UserMessage())
	assert.Contains(t, rej.Error(), "too-large")
}

func TestRejection_SizeMessageUnits(t *testing.T) {
	tests := []struct {
		limit int64
		want  string
	}{
		{5 * 1024 * 1024, "File size exceeds 5MB limit"},
		{10 * 1024 * 1024, "File size exceeds 10MB limit"},
		{1536 * 1024, "File size exceeds 1.5MB limit"},
		{512 * 1024, "File size exceeds 512KB limit"},
		{1500, "File size exceeds 1.5KB limit"},
		{4, "File size exceeds 4 bytes limit"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			v := NewValidator(Policy{MaxSize: tt.limit})

			var rej *Rejection
			require.True(t, errors.As(v.Validate(sized("image/jpeg", tt.limit+1)), &rej))
			assert.Equal(t, tt.want, rej.UserMessage())
		})
	}
}
