// This file implements the wizard state machine: an ordered sequence of
// configuration steps with breadcrumb-based backtracking and a confirmation
// step that persists the whole draft in one write.
package wizard

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Step enumerates the ticket setup wizard's states. DONE is implicit: it is
// only ever reached through Confirm, which destroys the session.
type Step int

const (
	StepWelcome Step = iota
	StepChannels
	StepTicketTypes
	StepAdvanced
	StepReview
)

// steps is the forward order of the flow.
var steps = []Step{StepWelcome, StepChannels, StepTicketTypes, StepAdvanced, StepReview}

// String returns the step's display name.
func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepChannels:
		return "channels"
	case StepTicketTypes:
		return "ticket types"
	case StepAdvanced:
		return "advanced"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Draft field names collected by the ticket setup wizard.
const (
	FieldChannelID    = "channel_id"     // panel channel (required)
	FieldCategoryID   = "category_id"    // channel category for tickets (required)
	FieldTicketTypes  = "ticket_types"   // comma-separated topics (optional)
	FieldLogChannelID = "log_channel_id" // transcript log channel (optional)
)

// requiredByStep lists the fields a step must have collected before Next may
// leave it.
var requiredByStep = map[Step][]string{
	StepChannels:    {FieldChannelID},
	StepTicketTypes: {FieldCategoryID},
}

// confirmRequired lists the fields Confirm validates regardless of how the
// user navigated to REVIEW.
var confirmRequired = []string{FieldChannelID, FieldCategoryID}

// ErrNoSession is returned when an operation references a session that does
// not exist (never started, cancelled, or idle-expired). The caller should
// tell the user to restart the wizard.
var ErrNoSession = fmt.Errorf("no active wizard session")

// ErrNotReview is returned when Confirm is attempted from any step other
// than REVIEW.
var ErrNotReview = fmt.Errorf("confirm is only valid from the review step")

// ValidationError names the first missing required field for a rejected
// transition. The session is always left intact.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// PersistError wraps a confirm-time storage failure. It is retryable: the
// session is kept so the user can confirm again without re-entering steps.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return fmt.Sprintf("saving wizard draft: %v", e.Err) }
func (e *PersistError) Unwrap() error { return e.Err }

// Persister performs the single confirm-time write of a completed draft,
// keyed by guild id (update when the guild already has a record, insert
// otherwise).
type Persister interface {
	SaveTicketConfig(ctx context.Context, guildID string, draft map[string]string) error
}

// Machine drives sessions through the step sequence. All operations are
// serialized per (guild, user) key by the Store, so two near-simultaneous
// interactions for the same session cannot interleave on the draft.
type Machine struct {
	Store   Store
	Persist Persister

	// clock is a test seam; defaults to time.Now.
	clock func() time.Time
}

// NewMachine builds a Machine over the given store and persister.
func NewMachine(store Store, persist Persister) *Machine {
	return &Machine{Store: store, Persist: persist, clock: time.Now}
}

// Start creates a fresh session at the first step with an empty draft,
// overwriting any prior session for the key. It returns a snapshot for
// rendering.
func (m *Machine) Start(guildID, userID string) *Session {
	now := m.clock()
	var snap *Session
	m.Store.Mutate(guildID, userID, func(*Session) *Session {
		sess := &Session{
			GuildID:       guildID,
			UserID:        userID,
			Step:          steps[0],
			Draft:         make(map[string]string),
			CreatedAt:     now,
			LastTouchedAt: now,
		}
		snap = sess.snapshot()
		return sess
	})
	return snap
}

// UpdateField mutates one draft field without changing the step. It is
// always legal on a live session.
func (m *Machine) UpdateField(guildID, userID, name, value string) (*Session, error) {
	return m.mutateLive(guildID, userID, func(sess *Session) error {
		sess.Draft[name] = value
		return nil
	})
}

// Next advances to the following step, provided the current step's required
// fields are present in the draft. A rejected transition returns a
// *ValidationError and leaves the session unchanged so the caller can
// re-render the step with a notice. Moving past the last configurable step
// lands on REVIEW.
func (m *Machine) Next(guildID, userID string) (*Session, error) {
	return m.mutateLive(guildID, userID, func(sess *Session) error {
		for _, f := range requiredByStep[sess.Step] {
			if sess.Draft[f] == "" {
				return &ValidationError{Field: f}
			}
		}
		idx := stepIndex(sess.Step)
		if idx < 0 || idx >= len(steps)-1 {
			// Already on the last step; nothing to advance to.
			return nil
		}
		sess.Breadcrumbs = append(sess.Breadcrumbs, sess.Step)
		sess.Step = steps[idx+1]
		return nil
	})
}

// Back pops the breadcrumb stack. With an empty stack it is a no-op that
// simply re-renders the current (first) step; the draft is never touched.
func (m *Machine) Back(guildID, userID string) (*Session, error) {
	return m.mutateLive(guildID, userID, func(sess *Session) error {
		if n := len(sess.Breadcrumbs); n > 0 {
			sess.Step = sess.Breadcrumbs[n-1]
			sess.Breadcrumbs = sess.Breadcrumbs[:n-1]
		}
		return nil
	})
}

// Confirm validates the completed draft and persists it in a single write,
// then deletes the session. Failure modes:
//
//   - ErrNoSession: nothing to confirm (expired or never started).
//   - ErrNotReview: confirm attempted before reaching REVIEW.
//   - *ValidationError: a required field is missing; session kept.
//   - *PersistError: the write failed; session kept so the user can retry
//     without re-entering all steps.
func (m *Machine) Confirm(ctx context.Context, guildID, userID string) error {
	tr := otel.Tracer("wizard")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(
			attribute.String("guild.id", guildID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	var opErr error
	m.Store.Mutate(guildID, userID, func(sess *Session) *Session {
		if sess == nil {
			opErr = ErrNoSession
			return nil
		}
		if sess.Step != StepReview {
			opErr = ErrNotReview
			return sess
		}
		for _, f := range confirmRequired {
			if sess.Draft[f] == "" {
				opErr = &ValidationError{Field: f}
				return sess
			}
		}
		if err := m.Persist.SaveTicketConfig(ctx, guildID, sess.Draft); err != nil {
			opErr = &PersistError{Err: err}
			sess.LastTouchedAt = m.clock()
			return sess
		}
		return nil // success: destroy the session
	})
	return opErr
}

// Cancel deletes the session unconditionally. It reports whether a session
// existed.
func (m *Machine) Cancel(guildID, userID string) bool {
	existed := false
	m.Store.Mutate(guildID, userID, func(sess *Session) *Session {
		existed = sess != nil
		return nil
	})
	return existed
}

// Get returns a snapshot of the live session, or ErrNoSession.
func (m *Machine) Get(guildID, userID string) (*Session, error) {
	var snap *Session
	m.Store.Mutate(guildID, userID, func(sess *Session) *Session {
		if sess != nil {
			snap = sess.snapshot()
		}
		return sess
	})
	if snap == nil {
		return nil, ErrNoSession
	}
	return snap, nil
}

// mutateLive applies fn to a live session, refreshes its idle timestamp,
// and returns a post-mutation snapshot. Transition rejections from fn leave
// the session as fn left it (by contract, unchanged).
func (m *Machine) mutateLive(guildID, userID string, fn func(*Session) error) (*Session, error) {
	var (
		snap  *Session
		opErr error
	)
	m.Store.Mutate(guildID, userID, func(sess *Session) *Session {
		if sess == nil {
			opErr = ErrNoSession
			return nil
		}
		opErr = fn(sess)
		sess.LastTouchedAt = m.clock()
		snap = sess.snapshot()
		return sess
	})
	if opErr != nil && snap == nil {
		return nil, opErr
	}
	return snap, opErr
}

// stepIndex returns the position of s in the forward order, or -1.
func stepIndex(s Step) int {
	for i, st := range steps {
		if st == s {
			return i
		}
	}
	return -1
}
