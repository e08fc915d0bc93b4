package portal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	"github.com/rushibamb/dig-village-sub001/pkg/validation"
)

// ViewState is the active step of the villager view.
type ViewState int

const (
	StateInitial ViewState = iota
	StateAddForm
	StateEnterMobile
	StateVerifyOTP
	StateEditForm
)

func (s ViewState) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateAddForm:
		return "AddForm"
	case StateEnterMobile:
		return "EnterMobile"
	case StateVerifyOTP:
		return "VerifyOtp"
	case StateEditForm:
		return "EditForm"
	}
	return fmt.Sprintf("ViewState(%d)", int(s))
}

// VillagerBackend is the server surface the villager view depends on.
type VillagerBackend interface {
	SubmitVillager(ctx context.Context, req dto.VillagerRequest) (*models.Villager, error)
	RequestEditOTP(ctx context.Context, mobile string) (*dto.OTPIssued, error)
	VerifyEditOTP(ctx context.Context, mobile, code string) (*dto.EditSession, error)
	SubmitVillagerEdit(ctx context.Context, id, editToken string, req dto.VillagerRequest) (*models.Villager, error)
}

// VillagerFlow sequences registration and OTP-authorized edits. Exactly one
// step is active at a time and a failed call leaves the step untouched.
type VillagerFlow struct {
	backend  VillagerBackend
	notifier *Notifier
	validate *validator.Validate
	logger   *zap.Logger

	// IDProof is the ID proof image field of the active form.
	IDProof *PhotoField

	lifecycle context.Context
	cancel    context.CancelFunc

	mu         sync.Mutex
	closed     bool
	busy       bool
	generation uint64
	state      ViewState
	form       dto.VillagerRequest
	mobile     string
	issued     *dto.OTPIssued
	session    *dto.EditSession
}

// VillagerFlowOption configures a VillagerFlow.
type VillagerFlowOption func(*VillagerFlow)

// WithFlowLogger sets the logger.
func WithFlowLogger(logger *zap.Logger) VillagerFlowOption {
	return func(f *VillagerFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithIDProofUploader enables the ID proof field.
func WithIDProofUploader(uploader Uploader) VillagerFlowOption {
	return func(f *VillagerFlow) {
		if uploader != nil {
			f.IDProof = NewPhotoField(dto.UploadPurposeIDProof, uploader)
		}
	}
}

// NewVillagerFlow opens a villager view. Every request it issues is bound to
// parent and to the view itself, so Close aborts them.
func NewVillagerFlow(parent context.Context, backend VillagerBackend, opts ...VillagerFlowOption) *VillagerFlow {
	if parent == nil {
		parent = context.Background()
	}
	lifecycle, cancel := context.WithCancel(parent)
	f := &VillagerFlow{
		backend:   backend,
		notifier:  NewNotifier(),
		validate:  validation.New(),
		logger:    zap.NewNop(),
		lifecycle: lifecycle,
		cancel:    cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// State returns the active step.
func (f *VillagerFlow) State() ViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Form returns a copy of the active form.
func (f *VillagerFlow) Form() dto.VillagerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// SetForm replaces the active form. Only the add and edit steps hold a form.
func (f *VillagerFlow) SetForm(req dto.VillagerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usableLocked(); err != nil {
		return err
	}
	if f.state != StateAddForm && f.state != StateEditForm {
		return invalidState("edit the form", f.state)
	}
	f.form = req
	return nil
}

// Mobile returns the number the current edit challenge was issued for.
func (f *VillagerFlow) Mobile() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mobile
}

// Notifications drains pending notifications.
func (f *VillagerFlow) Notifications() []Notification {
	return f.notifier.Drain()
}

// StartAdd opens an empty registration form.
func (f *VillagerFlow) StartAdd() error {
	return f.transition(StateInitial, StateAddForm, "start a registration", func() {
		f.form = dto.VillagerRequest{}
		f.resetIDProof(nil)
	})
}

// StartEdit asks for the mobile number of the record to edit.
func (f *VillagerFlow) StartEdit() error {
	return f.transition(StateInitial, StateEnterMobile, "start an edit", func() {
		f.mobile = ""
	})
}

// SubmitAdd sends the registration form. Missing or malformed fields are
// reported without contacting the server.
func (f *VillagerFlow) SubmitAdd(ctx context.Context) (*models.Villager, error) {
	call, gen, err := f.begin(ctx, StateAddForm, "submit a registration")
	if err != nil {
		return nil, f.report(err)
	}
	defer call.done()

	req, err := f.prepareForm()
	if err != nil {
		f.release(gen)
		return nil, f.report(err)
	}
	created, err := f.backend.SubmitVillager(call.ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if stale := f.settleLocked(gen); stale != nil {
		return nil, stale
	}
	if err != nil {
		return nil, f.report(err)
	}
	f.enterLocked(StateInitial)
	f.form = dto.VillagerRequest{}
	f.resetIDProof(nil)
	f.notifier.Success("registration submitted for review")
	return created, nil
}

// RequestOTP asks the server to send an edit code to mobile.
func (f *VillagerFlow) RequestOTP(ctx context.Context, mobile string) (*dto.OTPIssued, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, f.report(localError(CodeValidation, "enter the registered mobile number"))
	}
	return f.requestOTP(ctx, StateEnterMobile, mobile)
}

// ResendOTP requests a fresh code for the number already entered.
func (f *VillagerFlow) ResendOTP(ctx context.Context) (*dto.OTPIssued, error) {
	return f.requestOTP(ctx, StateVerifyOTP, f.Mobile())
}

func (f *VillagerFlow) requestOTP(ctx context.Context, from ViewState, mobile string) (*dto.OTPIssued, error) {
	call, gen, err := f.begin(ctx, from, "request a code")
	if err != nil {
		return nil, f.report(err)
	}
	defer call.done()

	issued, err := f.backend.RequestEditOTP(call.ctx, mobile)

	f.mu.Lock()
	defer f.mu.Unlock()
	if stale := f.settleLocked(gen); stale != nil {
		return nil, stale
	}
	if err != nil {
		return nil, f.report(err)
	}
	f.mobile = mobile
	f.issued = issued
	f.enterLocked(StateVerifyOTP)
	f.notifier.Success("a verification code was sent to your mobile")
	return issued, nil
}

// VerifyOTP redeems code. Anything other than six digits is rejected locally.
// On success the edit form is filled from the server's copy of the record.
func (f *VillagerFlow) VerifyOTP(ctx context.Context, code string) (*models.Villager, error) {
	if !validation.IsOTP(code) {
		return nil, f.report(localError(CodeValidation, fmt.Sprintf("the code must be exactly %d digits", validation.OTPLength)))
	}
	call, gen, err := f.begin(ctx, StateVerifyOTP, "verify a code")
	if err != nil {
		return nil, f.report(err)
	}
	defer call.done()

	session, err := f.backend.VerifyEditOTP(call.ctx, f.Mobile(), code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if stale := f.settleLocked(gen); stale != nil {
		return nil, stale
	}
	if err == nil && (session == nil || session.Villager == nil) {
		err = &Error{Tier: TierRemote, Code: CodeTransport, Message: "the server did not return the record"}
	}
	if err != nil {
		return nil, f.report(err)
	}
	f.session = session
	f.form = dto.FromVillager(session.Villager)
	f.resetIDProof(session.Villager.IDProofURL)
	f.enterLocked(StateEditForm)
	return session.Villager, nil
}

// SubmitEdit sends the edited form under the verified edit session.
func (f *VillagerFlow) SubmitEdit(ctx context.Context) (*models.Villager, error) {
	call, gen, err := f.begin(ctx, StateEditForm, "submit an edit")
	if err != nil {
		return nil, f.report(err)
	}
	defer call.done()

	req, err := f.prepareForm()
	if err != nil {
		f.release(gen)
		return nil, f.report(err)
	}
	f.mu.Lock()
	session := f.session
	f.mu.Unlock()

	updated, err := f.backend.SubmitVillagerEdit(call.ctx, session.Villager.ID, session.EditToken, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if stale := f.settleLocked(gen); stale != nil {
		return nil, stale
	}
	if err != nil {
		return nil, f.report(err)
	}
	f.enterLocked(StateInitial)
	f.form = dto.VillagerRequest{}
	f.mobile = ""
	f.issued = nil
	f.session = nil
	f.resetIDProof(nil)
	f.notifier.Success("edit submitted for review")
	return updated, nil
}

// Back leaves the active step. It never fails; responses still in flight for
// the step being left are discarded.
func (f *VillagerFlow) Back() ViewState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return f.state
	}
	switch f.state {
	case StateAddForm:
		f.form = dto.VillagerRequest{}
		f.resetIDProof(nil)
		f.enterLocked(StateInitial)
	case StateEnterMobile:
		f.mobile = ""
		f.enterLocked(StateInitial)
	case StateVerifyOTP:
		f.issued = nil
		f.enterLocked(StateEnterMobile)
	case StateEditForm:
		f.form = dto.VillagerRequest{}
		f.session = nil
		f.resetIDProof(nil)
		f.enterLocked(StateVerifyOTP)
	default:
		f.enterLocked(StateInitial)
	}
	return f.state
}

// Close tears the view down and cancels every request it started.
func (f *VillagerFlow) Close() {
	f.mu.Lock()
	f.closed = true
	f.generation++
	f.busy = false
	f.mu.Unlock()
	f.cancel()
}

type flowCall struct {
	ctx  context.Context
	done func()
}

// callContext derives a request context that ends when either ctx or the view
// lifecycle ends.
func callContext(lifecycle, ctx context.Context) flowCall {
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithCancel(lifecycle)
	stop := context.AfterFunc(ctx, cancel)
	return flowCall{ctx: callCtx, done: func() {
		stop()
		cancel()
	}}
}

func (f *VillagerFlow) begin(ctx context.Context, want ViewState, action string) (flowCall, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usableLocked(); err != nil {
		return flowCall{}, 0, err
	}
	if f.state != want {
		return flowCall{}, 0, invalidState(action, f.state)
	}
	if f.busy {
		return flowCall{}, 0, localError(CodeInvalidState, "a request is already in progress")
	}
	f.busy = true
	return callContext(f.lifecycle, ctx), f.generation, nil
}

func (f *VillagerFlow) release(gen uint64) {
	f.mu.Lock()
	if f.generation == gen {
		f.busy = false
	}
	f.mu.Unlock()
}

// settleLocked ends a request and reports whether its response still applies.
func (f *VillagerFlow) settleLocked(gen uint64) error {
	if f.closed {
		return localError(CodeClosed, "the view was closed")
	}
	if f.generation != gen {
		return localError(CodeSuperseded, "the view moved on before the server answered")
	}
	f.busy = false
	return nil
}

func (f *VillagerFlow) usableLocked() error {
	if f.closed {
		return localError(CodeClosed, "the view was closed")
	}
	return nil
}

func (f *VillagerFlow) transition(from, to ViewState, action string, apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.usableLocked(); err != nil {
		return err
	}
	if f.state != from {
		return f.report(invalidState(action, f.state))
	}
	apply()
	f.enterLocked(to)
	return nil
}

func (f *VillagerFlow) enterLocked(state ViewState) {
	f.state = state
	f.generation++
	f.busy = false
}

// prepareForm runs the same checks as the server on a copy of the form.
func (f *VillagerFlow) prepareForm() (dto.VillagerRequest, error) {
	f.mu.Lock()
	req := f.form
	f.mu.Unlock()

	if f.IDProof != nil {
		switch f.IDProof.State() {
		case FieldUploading:
			return req, localError(CodeUploadInProgress, "wait for the ID proof upload to finish")
		case FieldFailed:
			return req, localError(CodeValidation, "the ID proof upload failed; upload it again or remove it")
		}
		req.IDProofURL = f.IDProof.URL()
	}

	if missing := req.Missing(); len(missing) > 0 {
		return req, localError(CodeValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	req.Normalize()
	if err := f.validate.Struct(req); err != nil {
		return req, localError(CodeValidation, "invalid fields: "+strings.Join(validation.Describe(err), ", "))
	}
	return req, nil
}

func (f *VillagerFlow) resetIDProof(url *string) {
	if f.IDProof != nil {
		f.IDProof.Set(url)
	}
}

// report records err as a notification unless the view has moved on.
func (f *VillagerFlow) report(err error) error {
	switch CodeOf(err) {
	case CodeClosed, CodeSuperseded:
		return err
	}
	f.logger.Debug("villager view action failed", zap.Error(err))
	f.notifier.Failure(err)
	return err
}
