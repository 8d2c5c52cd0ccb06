// Package workflow drives the two-image upload: selection, validation,
// preview handles, a single in-flight submission and the resulting state.
// It has no presentation dependencies; any UI consumes it through the
// Controller methods and State snapshots.
package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/observability"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
)

const (
	// MsgIncompleteSelection is shown when submit is attempted without both images.
	MsgIncompleteSelection = "Please upload both front and back images"

	// MsgProcessingFailed is shown when a submission fails without a more
	// specific message.
	MsgProcessingFailed = "Error processing images. Please try again."
)

var (
	// ErrIncompleteSelection is returned by Submit when a slot is empty.
	ErrIncompleteSelection = domain.WorkflowError(MsgIncompleteSelection, nil)

	// ErrRequestInFlight is returned by Submit while another submission is outstanding.
	ErrRequestInFlight = domain.WorkflowError("a submission is already in progress", nil)

	// ErrSuperseded is returned by Submit when a reset happened while the
	// request was outstanding; its outcome was discarded.
	ErrSuperseded = domain.WorkflowError("submission outcome discarded after reset", nil)
)

// Processor performs one OCR submission. *transport.Client implements it.
type Processor interface {
	Submit(ctx context.Context, front, back *upload.File) (*domain.OcrResult, error)
}

type userMessager interface {
	UserMessage() string
}

// Options configures a Controller. Nil fields get defaults.
//
// A revoke hook installed on Previews runs while Select, Clear or Reset is in
// progress but outside the state lock: it may call State, and must not call
// Select, Clear, Reset or Submit.
type Options struct {
	Validator *upload.Validator
	Previews  *upload.PreviewManager
	Logger    *observability.Logger
}

// Controller owns both image slots, their preview handles and the workflow
// state. All methods are safe for concurrent use.
type Controller struct {
	processor Processor
	validator *upload.Validator
	previews  *upload.PreviewManager
	logger    *observability.Logger

	// ops serializes slot changes and the submit gate. It is held while the
	// preview manager runs, so revoke hooks never see mu held.
	ops sync.Mutex

	mu        sync.Mutex
	slots     map[domain.Side]*upload.File
	phase     Phase
	result    *domain.OcrResult
	loading   bool
	errMsg    string
	revision  uint64
	requestID uint64
	inflight  uint64
	cancel    context.CancelFunc

	listeners    map[int]func(State)
	nextListener int
}

// NewController creates a controller in the Idle phase.
func NewController(processor Processor, opts Options) *Controller {
	if opts.Validator == nil {
		opts.Validator = upload.NewValidator(upload.DefaultPolicy())
	}
	if opts.Previews == nil {
		opts.Previews = upload.NewPreviewManager()
	}

	return &Controller{
		processor: processor,
		validator: opts.Validator,
		previews:  opts.Previews,
		logger:    observability.OrNop(opts.Logger).WithComponent("workflow"),
		slots:     make(map[domain.Side]*upload.File, 2),
		phase:     PhaseIdle,
		listeners: make(map[int]func(State)),
	}
}

// Previews exposes the preview manager so a presentation layer can resolve handles.
func (c *Controller) Previews() *upload.PreviewManager {
	return c.previews
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// Listeners run on the goroutine that made the change after every controller
// lock is released, so they may call any Controller method. The returned func
// removes the listener.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Select validates f and, if accepted, places it in side's slot, replacing
// and revoking any previous preview. A rejected file leaves the slots
// untouched and sets the error message; the returned error is the
// *upload.Rejection. Slots cannot change while a request is in flight.
func (c *Controller) Select(side domain.Side, f *upload.File) error {
	if !side.Valid() {
		return domain.ValidationError("unknown side "+string(side), nil)
	}

	var rej *upload.Rejection
	if err := c.validator.Validate(f); err != nil && !errors.As(err, &rej) {
		return err
	}

	err := c.exclusive(func() (func(), error) {
		if c.isLoading() {
			return nil, ErrRequestInFlight
		}
		if rej == nil {
			if _, err := c.previews.Assign(side, f); err != nil {
				return nil, err
			}
		}

		return c.mutate(func() bool {
			if rej != nil {
				c.errMsg = rej.UserMessage()
				return true
			}
			c.slots[side] = f
			c.errMsg = ""
			c.phase = PhaseSelecting
			return true
		}), nil
	})
	if err != nil {
		return err
	}

	if rej != nil {
		c.logger.Warn().
			Str("side", string(side)).
			Str("reason", string(rej.Reason)).
			Str("mime_type", f.MIMEType).
			Int64("size", f.Size).
			Msg("Image rejected")
		return rej
	}

	c.logger.Debug().
		Str("side", string(side)).
		Str("name", f.Name).
		Int64("size", f.Size).
		Msg("Image selected")
	return nil
}

// Clear empties side's slot and revokes its preview.
func (c *Controller) Clear(side domain.Side) error {
	if !side.Valid() {
		return domain.ValidationError("unknown side "+string(side), nil)
	}

	return c.exclusive(func() (func(), error) {
		if c.isLoading() {
			return nil, ErrRequestInFlight
		}
		c.previews.Release(side)

		return c.mutate(func() bool {
			delete(c.slots, side)
			c.errMsg = ""
			if len(c.slots) == 0 {
				c.phase = PhaseIdle
			} else {
				c.phase = PhaseSelecting
			}
			return true
		}), nil
	})
}

// Reset revokes both previews, empties both slots and clears result and
// error. An outstanding request is canceled and its outcome discarded.
func (c *Controller) Reset() {
	_ = c.exclusive(func() (func(), error) {
		notify := c.mutate(func() bool {
			if c.cancel != nil {
				c.cancel()
				c.cancel = nil
			}
			c.inflight = 0
			c.slots = make(map[domain.Side]*upload.File, 2)
			c.result = nil
			c.loading = false
			c.errMsg = ""
			c.phase = PhaseIdle
			return true
		})
		c.previews.RevokeAll()
		return notify, nil
	})
	c.logger.Debug().Msg("Workflow reset")
}

// Submit sends both images and blocks until the outcome is applied. It
// returns ErrIncompleteSelection or ErrRequestInFlight without touching the
// network, the processor's error on failure, or ErrSuperseded if a reset
// intervened.
func (c *Controller) Submit(ctx context.Context) error {
	run, err := c.begin(ctx)
	if err != nil {
		return err
	}
	return run()
}

// SubmitAsync performs the same checks as Submit and enters the Loading phase
// before returning; the request itself runs in a new goroutine. The channel
// is closed once the outcome has been applied or discarded.
func (c *Controller) SubmitAsync(ctx context.Context) (<-chan struct{}, error) {
	run, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = run()
	}()
	return done, nil
}

func (c *Controller) begin(ctx context.Context) (func() error, error) {
	var (
		front, back *upload.File
		id          uint64
		reqCtx      context.Context
		gateErr     error
	)

	_ = c.exclusive(func() (func(), error) {
		return c.mutate(func() bool {
			if c.loading {
				gateErr = ErrRequestInFlight
				return false
			}
			front, back = c.slots[domain.SideFront], c.slots[domain.SideBack]
			if front == nil || back == nil {
				c.errMsg = ErrIncompleteSelection.UserMessage()
				gateErr = ErrIncompleteSelection
				return true
			}

			c.requestID++
			id = c.requestID
			c.inflight = id
			reqCtx, c.cancel = context.WithCancel(ctx)
			c.loading = true
			c.result = nil
			c.errMsg = ""
			c.phase = PhaseLoading
			return true
		}), nil
	})

	if gateErr != nil {
		c.logger.Debug().Err(gateErr).Msg("Submit refused")
		return nil, gateErr
	}

	c.logger.Info().
		Uint64("request", id).
		Str("front", front.Name).
		Str("back", back.Name).
		Msg("Submitting images")

	return func() error {
		res, err := c.processor.Submit(reqCtx, front, back)
		if err == nil && res == nil {
			err = domain.TransportError("OCR service returned no result", nil)
		}
		return c.complete(id, res, err)
	}, nil
}

func (c *Controller) complete(id uint64, res *domain.OcrResult, err error) error {
	applied := false
	c.mutate(func() bool {
		if c.inflight != id {
			return false
		}
		applied = true
		c.inflight = 0
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.loading = false
		if err != nil {
			c.result = nil
			c.errMsg = userMessage(err)
			c.phase = PhaseFailed
			return true
		}
		c.result = res
		c.errMsg = ""
		c.phase = PhaseSuccess
		return true
	})()

	if !applied {
		c.logger.Debug().Uint64("request", id).Msg("Discarding outcome of superseded request")
		return ErrSuperseded
	}

	if err != nil {
		c.logger.Error().Uint64("request", id).Err(err).Msg("OCR processing failed")
		return err
	}
	c.logger.Info().Uint64("request", id).Msg("OCR processing succeeded")
	return nil
}

// exclusive runs fn holding ops, then delivers the state change fn returned
// once ops is released, so listeners and revoke hooks never run under mu.
func (c *Controller) exclusive(fn func() (notify func(), err error)) error {
	c.ops.Lock()
	notify, err := fn()
	c.ops.Unlock()

	if notify != nil {
		notify()
	}
	return err
}

func (c *Controller) isLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// mutate applies fn under mu. If fn reports a change, the revision is bumped
// and the returned func hands the new snapshot to listeners; callers invoke
// it after releasing every lock.
func (c *Controller) mutate(fn func() bool) (notify func()) {
	c.mu.Lock()
	if !fn() {
		c.mu.Unlock()
		return func() {}
	}
	c.revision++
	snap := c.snapshotLocked()
	listeners := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	return func() {
		for _, l := range listeners {
			l(snap)
		}
	}
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Revision:     c.revision,
		Phase:        c.phase,
		Loading:      c.loading,
		ErrorMessage: c.errMsg,
	}
	if c.result != nil {
		res := *c.result
		s.Result = &res
	}
	s.Front = c.slotViewLocked(domain.SideFront)
	s.Back = c.slotViewLocked(domain.SideBack)
	return s
}

func (c *Controller) slotViewLocked(side domain.Side) *SlotView {
	f := c.slots[side]
	if f == nil {
		return nil
	}
	return &SlotView{
		Side:     side,
		Name:     f.Name,
		MIMEType: f.MIMEType,
		Size:     f.Size,
		Preview:  c.previews.Current(side),
	}
}

func userMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return MsgProcessingFailed
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, front, back *upload.File) (*domain.OcrResult, error)

// Submit calls f.
func (f ProcessorFunc) Submit(ctx context.Context, front, back *upload.File) (*domain.OcrResult, error) {
	return f(ctx, front, back)
}
