// Package whiteboard is the shared drawing surface: element model, tool and
// style state, strokes, local undo/redo and remote merges.
package whiteboard

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Seminar/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEraserRadius = 8.0
	DefaultCanvasWidth  = 1280
	DefaultCanvasHeight = 720

	highlighterWidthFactor = 4.0
	highlighterMaxOpacity  = 0.35
)

var DefaultStyle = domain.Style{Color: "#000000", StrokeWidth: 2, Opacity: 1}

type Options struct {
	Author       domain.UserID
	EraserRadius float64
	CanvasWidth  int
	CanvasHeight int
	NewID        func() domain.ElementID
	Now          func() time.Time
}

// Hooks receive local intents for broadcast. They are called after the
// engine has released its lock, in mutation order.
type Hooks struct {
	Added    func(domain.DrawingElement)
	Updated  func(domain.DrawingElement)
	Removed  func(domain.ElementID)
	Cleared  func()
	Progress func(domain.DrawingElement)
	Cursor   func(domain.Point)
}

type StylePatch struct {
	Color       *string
	StrokeWidth *float64
	Opacity     *float64
}

type Engine struct {
	mu    sync.Mutex
	opts  Options
	hooks Hooks
	log   zerolog.Logger

	list       atomic.Pointer[Elements]
	sessionID  string
	background string

	tool   domain.Tool
	style  domain.Style
	stroke *domain.DrawingElement

	undo stack
	redo stack
}

func NewEngine(opts Options) *Engine {
	if opts.EraserRadius <= 0 {
		opts.EraserRadius = DefaultEraserRadius
	}
	if opts.CanvasWidth <= 0 {
		opts.CanvasWidth = DefaultCanvasWidth
	}
	if opts.CanvasHeight <= 0 {
		opts.CanvasHeight = DefaultCanvasHeight
	}
	if opts.NewID == nil {
		opts.NewID = func() domain.ElementID { return domain.ElementID(uuid.NewString()) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Engine{
		opts:  opts,
		tool:  domain.ToolPen,
		style: DefaultStyle,
		log:   log.With().Str("module", "whiteboard").Str("author", string(opts.Author)).Logger(),
	}
	empty := NewElements(nil)
	e.list.Store(&empty)
	return e
}

func (e *Engine) SetHooks(h Hooks) {
	e.mu.Lock()
	e.hooks = h
	e.mu.Unlock()
}

// List returns the current version of the element list. It is safe to
// call from any goroutine.
func (e *Engine) List() Elements { return *e.list.Load() }

func (e *Engine) Elements() []domain.DrawingElement { return e.List().Slice() }

func (e *Engine) Tool() domain.Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

func (e *Engine) Style() domain.Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style
}

func (e *Engine) Background() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.background
}

func (e *Engine) UndoDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo)
}

func (e *Engine) RedoDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.redo)
}

func (e *Engine) Stroking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stroke != nil
}

// SetTool switches the active tool. An in-progress stroke is abandoned.
func (e *Engine) SetTool(t domain.Tool) error {
	if !t.Valid() {
		return fmt.Errorf("set tool %q: %w", t, domain.ErrUnknownTool)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stroke != nil {
		e.log.Debug().Str("element", string(e.stroke.ID)).Msg("stroke abandoned by tool change")
		e.stroke = nil
	}
	e.tool = t
	return nil
}

func (e *Engine) SetStyle(p StylePatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p.Color != nil {
		e.style.Color = *p.Color
	}
	if p.StrokeWidth != nil && *p.StrokeWidth > 0 {
		e.style.StrokeWidth = *p.StrokeWidth
	}
	if p.Opacity != nil {
		e.style.Opacity = math.Max(0, math.Min(1, *p.Opacity))
	}
}

func (e *Engine) strokeStyle() domain.Style {
	st := e.style
	if e.tool == domain.ToolHighlighter {
		st.StrokeWidth *= highlighterWidthFactor
		st.Opacity = math.Min(st.Opacity, highlighterMaxOpacity)
	}
	return st
}

// BeginStroke opens a new in-progress element at p. It is a no-op for the
// eraser, which removes elements through EraseAt instead.
func (e *Engine) BeginStroke(p domain.Point) (domain.ElementID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tool == domain.ToolEraser {
		return "", false
	}
	e.stroke = &domain.DrawingElement{
		ID:        e.opts.NewID(),
		Tool:      e.tool,
		Points:    []domain.Point{p},
		Style:     e.strokeStyle(),
		AuthorID:  e.opts.Author,
		CreatedAt: e.opts.Now(),
	}
	return e.stroke.ID, true
}

// ExtendStroke appends p to the in-progress element. Text elements keep
// their single anchor point.
func (e *Engine) ExtendStroke(p domain.Point) bool {
	e.mu.Lock()
	if e.stroke == nil || e.stroke.Tool == domain.ToolText {
		e.mu.Unlock()
		return false
	}
	e.stroke.Points = append(e.stroke.Points, p)
	var progress func(domain.DrawingElement)
	var snap domain.DrawingElement
	if e.stroke.Tool.Freehand() && e.hooks.Progress != nil {
		progress = e.hooks.Progress
		snap = *e.stroke
		snap.Points = slices.Clone(e.stroke.Points)
	}
	e.mu.Unlock()

	if progress != nil {
		progress(snap)
	}
	return true
}

// SetText sets the payload of an in-progress text element.
func (e *Engine) SetText(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stroke == nil || e.stroke.Tool != domain.ToolText {
		return false
	}
	e.stroke.Text = text
	return true
}

// CancelStroke discards the in-progress element without committing it.
func (e *Engine) CancelStroke() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stroke == nil {
		return false
	}
	e.stroke = nil
	return true
}

// EndStroke commits the in-progress element as one undoable step.
func (e *Engine) EndStroke() (domain.DrawingElement, bool) {
	e.mu.Lock()
	if e.stroke == nil {
		e.mu.Unlock()
		return domain.DrawingElement{}, false
	}
	el := *e.stroke
	el.Points = slices.Clone(el.Points)
	e.stroke = nil
	if el.Tool == domain.ToolText && el.Text == "" {
		e.mu.Unlock()
		return domain.DrawingElement{}, false
	}
	cur := e.List()
	e.commit(cur, cur.Append(el))
	added := e.hooks.Added
	e.mu.Unlock()

	e.log.Debug().Str("element", string(el.ID)).Str("tool", string(el.Tool)).Int("points", len(el.Points)).Msg("stroke committed")
	if added != nil {
		added(el.Clone())
	}
	return el.Clone(), true
}

// PlaceText commits a text element at p in one step.
func (e *Engine) PlaceText(p domain.Point, text string) (domain.DrawingElement, bool) {
	if e.Tool() != domain.ToolText {
		return domain.DrawingElement{}, false
	}
	if _, ok := e.BeginStroke(p); !ok {
		return domain.DrawingElement{}, false
	}
	e.SetText(text)
	return e.EndStroke()
}

// PointerMove reports p as the local cursor unless a stroke is open.
func (e *Engine) PointerMove(p domain.Point) bool {
	e.mu.Lock()
	stroking := e.stroke != nil
	cursor := e.hooks.Cursor
	e.mu.Unlock()
	if stroking {
		return false
	}
	if cursor != nil {
		cursor(p)
	}
	return true
}

// EraseAt removes the element hit at p as one undoable step.
func (e *Engine) EraseAt(p domain.Point) (domain.ElementID, bool) {
	e.mu.Lock()
	cur := e.List()
	idx, ok := HitTest(cur, p, e.opts.EraserRadius)
	if !ok {
		e.mu.Unlock()
		return "", false
	}
	id := cur.At(idx).ID
	next, _ := cur.Remove(id)
	e.commit(cur, next)
	removed := e.hooks.Removed
	e.mu.Unlock()

	if removed != nil {
		removed(id)
	}
	return id, true
}

// RemoveElement removes id as one undoable step.
func (e *Engine) RemoveElement(id domain.ElementID) bool {
	e.mu.Lock()
	cur := e.List()
	next, ok := cur.Remove(id)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.commit(cur, next)
	removed := e.hooks.Removed
	e.mu.Unlock()

	if removed != nil {
		removed(id)
	}
	return true
}

// ReplaceElement swaps an existing element for el (same id) as one
// undoable step.
func (e *Engine) ReplaceElement(el domain.DrawingElement) error {
	if err := el.Validate(); err != nil {
		return fmt.Errorf("replace %s: %w", el.ID, err)
	}
	el.Points = slices.Clone(el.Points)
	e.mu.Lock()
	cur := e.List()
	i := cur.Index(el.ID)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("replace %s: %w", el.ID, ErrUnknownElement)
	}
	e.commit(cur, cur.Set(i, el))
	updated := e.hooks.Updated
	e.mu.Unlock()

	if updated != nil {
		updated(el.Clone())
	}
	return nil
}

// MoveElement translates every point of id by (dx, dy).
func (e *Engine) MoveElement(id domain.ElementID, dx, dy float64) (domain.DrawingElement, error) {
	el, ok := e.List().Find(id)
	if !ok {
		return domain.DrawingElement{}, fmt.Errorf("move %s: %w", id, ErrUnknownElement)
	}
	moved := el
	moved.Points = make([]domain.Point, len(el.Points))
	for i, p := range el.Points {
		moved.Points[i] = domain.Point{X: p.X + dx, Y: p.Y + dy}
	}
	if err := e.ReplaceElement(moved); err != nil {
		return domain.DrawingElement{}, err
	}
	return moved, nil
}

// Clear empties the list as a single undoable step.
func (e *Engine) Clear() bool {
	e.mu.Lock()
	cur := e.List()
	if cur.Len() == 0 {
		e.mu.Unlock()
		return false
	}
	e.commit(cur, NewElements(nil))
	cleared := e.hooks.Cleared
	e.mu.Unlock()

	if cleared != nil {
		cleared()
	}
	return true
}

// commit publishes next as a local mutation. Caller holds e.mu.
func (e *Engine) commit(cur, next Elements) {
	e.undo.push(change{from: cur, to: next})
	e.redo.reset()
	e.list.Store(&next)
}

// Undo rolls back the most recent local mutation. It is a no-op when
// there is nothing to undo.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	c, ok := e.undo.pop()
	if !ok {
		e.mu.Unlock()
		return false
	}
	cur := e.List()
	next := transition(cur, c.to, c.from)
	e.redo.push(c)
	e.list.Store(&next)
	h := e.hooks
	e.mu.Unlock()

	e.publish(h, diff(cur, next))
	return true
}

func (e *Engine) Redo() bool {
	e.mu.Lock()
	c, ok := e.redo.pop()
	if !ok {
		e.mu.Unlock()
		return false
	}
	cur := e.List()
	next := transition(cur, c.from, c.to)
	e.undo.push(c)
	e.list.Store(&next)
	h := e.hooks
	e.mu.Unlock()

	e.publish(h, diff(cur, next))
	return true
}

func (e *Engine) publish(h Hooks, d Diff) {
	for _, id := range d.Removed {
		if h.Removed != nil {
			h.Removed(id)
		}
	}
	for _, el := range d.Added {
		if h.Added != nil {
			h.Added(el)
		}
	}
	for _, el := range d.Updated {
		if h.Updated != nil {
			h.Updated(el)
		}
	}
}

// ApplyRemoteElement merges another author's element (insert or
// replacement) without touching the undo/redo stacks.
func (e *Engine) ApplyRemoteElement(el domain.DrawingElement) error {
	if err := el.Validate(); err != nil {
		return fmt.Errorf("remote element %s: %w", el.ID, err)
	}
	el.Points = slices.Clone(el.Points)
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.List().Upsert(el)
	e.list.Store(&next)
	return nil
}

// ApplyRemoteRemoval drops id without touching the undo/redo stacks.
func (e *Engine) ApplyRemoteRemoval(id domain.ElementID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, ok := e.List().Remove(id)
	if ok {
		e.list.Store(&next)
	}
	return ok
}

func (e *Engine) ApplyRemoteClear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	empty := NewElements(nil)
	e.list.Store(&empty)
}

// Load replaces the list with an authoritative snapshot. Undo entries
// survive and rebase onto the new list.
func (e *Engine) Load(s domain.WhiteboardSnapshot) {
	items := make([]domain.DrawingElement, 0, len(s.Elements))
	for _, el := range s.Elements {
		if err := el.Validate(); err != nil {
			e.log.Warn().Err(err).Str("element", string(el.ID)).Msg("skipping invalid snapshot element")
			continue
		}
		items = append(items, el.Clone())
	}
	next := NewElements(items)
	e.mu.Lock()
	e.sessionID = s.SessionID
	e.background = s.Background
	e.list.Store(&next)
	e.mu.Unlock()
	e.log.Info().Int("elements", next.Len()).Msg("whiteboard snapshot loaded")
}

// Snapshot returns the current state in wire form.
func (e *Engine) Snapshot() domain.WhiteboardSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.WhiteboardSnapshot{
		SessionID:  e.sessionID,
		Background: e.background,
		Elements:   e.List().Slice(),
	}
}
