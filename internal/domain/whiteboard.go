package domain

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrNoPoints    = errors.New("element has no points")
	ErrUnknownTool = errors.New("unknown tool")
)

type ElementID string

type Tool string

const (
	ToolPen         Tool = "PEN"
	ToolHighlighter Tool = "HIGHLIGHTER"
	ToolLine        Tool = "LINE"
	ToolArrow       Tool = "ARROW"
	ToolRectangle   Tool = "RECTANGLE"
	ToolCircle      Tool = "CIRCLE"
	ToolText        Tool = "TEXT"
	ToolEraser      Tool = "ERASER"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolPen, ToolHighlighter, ToolLine, ToolArrow, ToolRectangle, ToolCircle, ToolText, ToolEraser:
		return true
	}
	return false
}

// Freehand tools render through every point.
func (t Tool) Freehand() bool { return t == ToolPen || t == ToolHighlighter }

// Shape tools render from the first and last point only.
func (t Tool) Shape() bool {
	return t == ToolLine || t == ToolArrow || t == ToolRectangle || t == ToolCircle
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Style struct {
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

// DrawingElement is immutable once committed; an update replaces it whole.
type DrawingElement struct {
	ID        ElementID `json:"id"`
	Tool      Tool      `json:"tool"`
	Points    []Point   `json:"points"`
	Style     Style     `json:"style"`
	Text      string    `json:"text,omitempty"`
	AuthorID  UserID    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e DrawingElement) Validate() error {
	if !e.Tool.Valid() || e.Tool == ToolEraser {
		return ErrUnknownTool
	}
	if len(e.Points) == 0 {
		return ErrNoPoints
	}
	return nil
}

// Clone returns a copy that shares no memory with e.
func (e DrawingElement) Clone() DrawingElement {
	e.Points = slices.Clone(e.Points)
	return e
}

func (e DrawingElement) First() Point { return e.Points[0] }
func (e DrawingElement) Last() Point  { return e.Points[len(e.Points)-1] }

type WhiteboardSnapshot struct {
	SessionID  string           `json:"sessionId"`
	Background string           `json:"background,omitempty"`
	Elements   []DrawingElement `json:"elements"`
}

type CursorPosition struct {
	UserID UserID    `json:"userId"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	At     time.Time `json:"at"`
}
