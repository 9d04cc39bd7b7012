package session

import (
	"context"
	"image"
	"io"

	"github.com/ironsheep/idphoto-mcp/internal/candidates"
	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
	"github.com/ironsheep/idphoto-mcp/internal/geometry"
	"github.com/ironsheep/idphoto-mcp/internal/imaging"
	"github.com/ironsheep/idphoto-mcp/internal/logging"
	"github.com/ironsheep/idphoto-mcp/internal/orientation"
)

// Mode is the step of the extraction flow a session is in.
type Mode string

const (
	ModeIdle               Mode = "idle"
	ModeLoaded             Mode = "loaded"
	ModeOrientationTesting Mode = "orientation_testing"
	ModeDetecting          Mode = "detecting"
	ModeAwaitingSelection  Mode = "awaiting_selection"
	ModeCropped            Mode = "cropped"
	ModeExported           Mode = "exported"
)

func (m Mode) String() string {
	return string(m)
}

// RetryRotation is the whole-page rotation applied by RotateAndRetry.
const RetryRotation = -90

// OrientationResolver decides which way up a page is.
type OrientationResolver interface {
	Resolve(ctx context.Context, img image.Image) (*orientation.Result, error)
}

// CandidateFinder locates photo candidates on a page.
type CandidateFinder interface {
	Find(ctx context.Context, img image.Image) (*candidates.Detection, error)
}

// State is a snapshot of one document's extraction. Transitions never modify
// a State in place; each one builds the next State and swaps it in.
type State struct {
	Mode Mode `json:"mode"`

	// Document is the current full page, after any orientation correction
	// and retry rotations.
	Document image.Image `json:"-"`

	// Orientation is the resolver's result, if it ran.
	Orientation *orientation.Result `json:"orientation,omitempty"`

	// Warnings collects non-fatal problems such as a recognizer failure.
	Warnings []string `json:"warnings,omitempty"`

	// Detection is the latest candidate search.
	Detection *candidates.Detection `json:"detection,omitempty"`

	// Retries counts RotateAndRetry calls since the document was loaded.
	Retries int `json:"retries"`

	// Crop describes the extracted rectangle once a selection is made.
	Crop *imaging.CropSpec `json:"crop,omitempty"`

	// Photo is the extracted photo with Rotation applied.
	Photo image.Image `json:"-"`

	// Rotation is the clockwise rotation of Photo relative to the crop, in
	// [0, 360).
	Rotation int `json:"rotation"`

	// Exports counts successful exports.
	Exports int `json:"exports"`
}

// Candidates returns the ranked candidates of the latest search.
func (s State) Candidates() []candidates.Candidate {
	if s.Detection == nil {
		return nil
	}
	return s.Detection.Candidates
}

// Machine drives the interactive flow for one document:
//
//	Idle → Loaded → OrientationTesting → Detecting → AwaitingSelection
//	     → Cropped{rotation} → Exported
//
// A Machine is not safe for concurrent use; give each document its own.
type Machine struct {
	resolver OrientationResolver
	finder   CandidateFinder
	state    State
	logger   *logging.Logger
}

// NewMachine creates an idle machine.
func NewMachine(resolver OrientationResolver, finder CandidateFinder) *Machine {
	return &Machine{
		resolver: resolver,
		finder:   finder,
		state:    State{Mode: ModeIdle},
		logger:   logging.NewLogger("session"),
	}
}

// State returns the current snapshot.
func (m *Machine) State() State {
	return m.state
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.state.Mode
}

func (m *Machine) set(next State) {
	if next.Mode != m.state.Mode {
		m.logger.Debug("Session transition", "from", m.state.Mode.String(), "to", next.Mode.String())
	}
	m.state = next
}

func (m *Machine) require(action string, allowed ...Mode) error {
	for _, mode := range allowed {
		if m.state.Mode == mode {
			return nil
		}
	}
	return pipelineerrors.NewInvalidTransitionError(action, m.state.Mode.String())
}

// Load starts over with a new page. It is allowed from any mode and discards
// everything about the previous document.
func (m *Machine) Load(doc image.Image) error {
	if doc == nil || doc.Bounds().Empty() {
		return pipelineerrors.NewInvalidInputError("document image is empty", nil)
	}
	m.set(State{Mode: ModeLoaded, Document: doc})
	return nil
}

// ResolveOrientation straightens the loaded page and leaves the machine ready
// to detect. A recognizer failure is not an error here: the page is kept as
// is and the failure is recorded in State.Warnings.
func (m *Machine) ResolveOrientation(ctx context.Context) (*orientation.Result, error) {
	if err := m.require("resolve_orientation", ModeLoaded); err != nil {
		return nil, err
	}

	pending := m.state
	pending.Mode = ModeOrientationTesting
	m.set(pending)

	res, err := m.resolver.Resolve(ctx, pending.Document)

	next := pending
	next.Mode = ModeDetecting
	next.Orientation = res
	if err != nil {
		m.logger.Warn("Orientation not resolved, continuing with original page", "error", err)
		next.Warnings = appendWarning(next.Warnings, err.Error())
	}
	if res != nil && res.Image != nil {
		next.Document = res.Image
	}
	m.set(next)
	return res, nil
}

// Detect searches the current page for candidates and waits for a
// selection. An empty result still moves to AwaitingSelection, where only
// manual selection and RotateAndRetry make progress.
func (m *Machine) Detect(ctx context.Context) (*candidates.Detection, error) {
	if err := m.require("detect", ModeDetecting); err != nil {
		return nil, err
	}

	det, err := m.finder.Find(ctx, m.state.Document)
	if err != nil {
		return nil, err
	}

	next := m.state
	next.Mode = ModeAwaitingSelection
	next.Detection = det
	for _, f := range det.Failures {
		next.Warnings = appendWarning(next.Warnings, f.Err.Error())
	}
	m.set(next)
	return det, nil
}

// Open runs Load, ResolveOrientation and Detect in sequence.
func (m *Machine) Open(ctx context.Context, doc image.Image) (*candidates.Detection, error) {
	if err := m.Load(doc); err != nil {
		return nil, err
	}
	if _, err := m.ResolveOrientation(ctx); err != nil {
		return nil, err
	}
	return m.Detect(ctx)
}

// RotateAndRetry turns the whole page a quarter turn counter-clockwise and
// searches again, skipping orientation testing. It lets the user fix a page
// the resolver got wrong.
func (m *Machine) RotateAndRetry(ctx context.Context) (*candidates.Detection, error) {
	if err := m.require("rotate_and_retry", ModeAwaitingSelection); err != nil {
		return nil, err
	}

	rotated, err := imaging.Rotate(m.state.Document, RetryRotation)
	if err != nil {
		return nil, err
	}

	next := m.state
	next.Mode = ModeDetecting
	next.Document = rotated
	next.Detection = nil
	next.Retries++
	m.set(next)

	return m.Detect(ctx)
}

// SelectAt crops the first candidate, in rank order, containing p (page
// coordinates, edges inclusive). A miss returns a NoHit error and leaves the
// machine waiting.
func (m *Machine) SelectAt(p geometry.Point) (image.Image, error) {
	if err := m.require("select_point", ModeAwaitingSelection); err != nil {
		return nil, err
	}
	i := candidates.HitTest(m.state.Candidates(), p)
	if i < 0 {
		return nil, pipelineerrors.NewNoHitError(p.X, p.Y)
	}
	return m.selectCandidate(i)
}

// SelectIndex crops the candidate at rank i.
func (m *Machine) SelectIndex(i int) (image.Image, error) {
	if err := m.require("select_index", ModeAwaitingSelection); err != nil {
		return nil, err
	}
	cands := m.state.Candidates()
	if i < 0 || i >= len(cands) {
		return nil, pipelineerrors.NewInvalidInputError(
			"candidate index out of range",
			map[string]interface{}{"index": i, "count": len(cands)},
		)
	}
	return m.selectCandidate(i)
}

func (m *Machine) selectCandidate(i int) (image.Image, error) {
	photo, spec, err := imaging.CropCandidate(m.state.Document, m.state.Candidates()[i].Rect)
	if err != nil {
		return nil, err
	}
	m.setCropped(photo, spec)
	return photo, nil
}

// SelectManual crops a user-drawn rectangle in page coordinates. Both sides
// must exceed imaging.MinManualSide; a smaller selection returns
// SelectionTooSmall and leaves the machine waiting.
func (m *Machine) SelectManual(r geometry.Rect) (image.Image, error) {
	if err := m.require("select_manual", ModeAwaitingSelection); err != nil {
		return nil, err
	}
	photo, spec, err := imaging.CropManual(m.state.Document, r)
	if err != nil {
		return nil, err
	}
	m.setCropped(photo, spec)
	return photo, nil
}

func (m *Machine) setCropped(photo image.Image, spec imaging.CropSpec) {
	next := m.state
	next.Mode = ModeCropped
	next.Crop = &spec
	next.Photo = photo
	next.Rotation = 0
	m.set(next)
}

// RotatePhoto turns the extracted photo by -90, 90 or 180 degrees
// (clockwise positive) and returns it.
func (m *Machine) RotatePhoto(degrees int) (image.Image, error) {
	if err := m.require("rotate_photo", ModeCropped); err != nil {
		return nil, err
	}
	switch degrees {
	case -90, 90, 180:
	default:
		return nil, pipelineerrors.NewInvalidInputError(
			"photo rotation must be -90, 90 or 180 degrees",
			map[string]interface{}{"degrees": degrees},
		)
	}

	rotated, err := imaging.Rotate(m.state.Photo, degrees)
	if err != nil {
		return nil, err
	}

	next := m.state
	next.Photo = rotated
	next.Rotation = imaging.NormalizeDegrees(next.Rotation + degrees)
	m.set(next)
	return rotated, nil
}

// Export encodes the photo to w. It is allowed again after an export, and
// changes nothing but the mode and export count.
func (m *Machine) Export(enc imaging.Encoder, w io.Writer) error {
	if err := m.require("export", ModeCropped, ModeExported); err != nil {
		return err
	}
	if err := enc.Encode(w, m.state.Photo); err != nil {
		return err
	}
	next := m.state
	next.Mode = ModeExported
	next.Exports++
	m.set(next)
	return nil
}

// Reset returns to Idle, dropping the document.
func (m *Machine) Reset() {
	m.set(State{Mode: ModeIdle})
}

// appendWarning returns a new slice so earlier snapshots keep their own.
func appendWarning(warnings []string, w string) []string {
	out := make([]string, len(warnings), len(warnings)+1)
	copy(out, warnings)
	return append(out, w)
}
