package workflow

import (
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
)

// Phase is the controller's position in the upload workflow.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSelecting Phase = "selecting"
	PhaseLoading   Phase = "loading"
	PhaseSuccess   Phase = "success"
	PhaseFailed    Phase = "failed"
)

// SlotView describes a filled slot for display.
type SlotView struct {
	Side     domain.Side   `json:"side"`
	Name     string        `json:"name"`
	MIMEType string        `json:"mimeType"`
	Size     int64         `json:"size"`
	Preview  upload.Handle `json:"preview"`
}

// State is an immutable snapshot of the workflow. Loading implies Result is
// nil and ErrorMessage is empty.
type State struct {
	Revision     uint64            `json:"revision"`
	Phase        Phase             `json:"phase"`
	Result       *domain.OcrResult `json:"result,omitempty"`
	Loading      bool              `json:"loading"`
	ErrorMessage string            `json:"error,omitempty"`
	Front        *SlotView         `json:"front,omitempty"`
	Back         *SlotView         `json:"back,omitempty"`
}

// Slot returns the view for side, or nil if it is empty.
func (s State) Slot(side domain.Side) *SlotView {
	switch side {
	case domain.SideFront:
		return s.Front
	case domain.SideBack:
		return s.Back
	}
	return nil
}

// CanSubmit reports whether a submit would dispatch a request.
func (s State) CanSubmit() bool {
	return !s.Loading && s.Front != nil && s.Back != nil
}

// CanReset reports whether there is anything for a reset to clear.
func (s State) CanReset() bool {
	return s.Front != nil || s.Back != nil || s.Result != nil
}
