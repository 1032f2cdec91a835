package services

import (
	"fmt"
	"math"

	"semantiq/internal/models"
)

// Diagram interaction states. The engine moves Idle -> PendingConnection on
// drag start, -> RelationshipDraftOpen on a valid drop, and back to Idle on
// commit, cancel or an invalid drop.
type DiagramState string

const (
	DiagramIdle                  DiagramState = "idle"
	DiagramPendingConnection     DiagramState = "pending_connection"
	DiagramRelationshipDraftOpen DiagramState = "relationship_draft_open"
)

// Inspector tabs.
const (
	TabDetails       = "details"
	TabColumns       = "columns"
	TabRelationships = "relationships"
)

// DraftEdgeID identifies the provisional edge shown while a relationship
// draft is uncommitted.
const DraftEdgeID = "draft"

// RelationshipDraft holds the two endpoints captured by a connect-drag,
// awaiting name/type/synonyms in the draft modal.
type RelationshipDraft struct {
	SourceTableID string                `json:"source_table_id"`
	TargetTableID string                `json:"target_table_id"`
	Name          string                `json:"name,omitempty"`
	Type          string                `json:"relationship_type,omitempty"`
	Synonyms      []models.SynonymGroup `json:"synonyms,omitempty"`
}

// TablePair filters the inspector's relationships tab to the exact edge the
// user clicked, so parallel relationships between the same two tables do not
// all surface at once.
type TablePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NodePosition is a diagram coordinate for one table node.
type NodePosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

const (
	nodeSpanX = 320
	nodeSpanY = 240
)

// DiagramEngine drives the graph editor for one edit session. Layout is
// recomputed only when the selected-table count changes, never on property
// edits, so manual repositioning survives editing.
type DiagramEngine struct {
	model *models.SchemaModel

	state      DiagramState
	dragOrigin string
	draft      *RelationshipDraft

	positions  map[string]NodePosition
	layoutSize int

	inspectorTab string
	pairFilter   *TablePair
}

func NewDiagramEngine(model *models.SchemaModel) *DiagramEngine {
	return &DiagramEngine{
		model:        model,
		state:        DiagramIdle,
		positions:    make(map[string]NodePosition),
		inspectorTab: TabDetails,
	}
}

func (e *DiagramEngine) State() DiagramState { return e.state }

func (e *DiagramEngine) Draft() *RelationshipDraft { return e.draft }

func (e *DiagramEngine) InspectorTab() string { return e.inspectorTab }

func (e *DiagramEngine) PairFilter() *TablePair { return e.pairFilter }

// Positions returns a copy of the current node layout.
func (e *DiagramEngine) Positions() map[string]NodePosition {
	out := make(map[string]NodePosition, len(e.positions))
	for id, pos := range e.positions {
		out[id] = pos
	}
	return out
}

// BeginConnection starts a connect-drag from a table node.
func (e *DiagramEngine) BeginConnection(tableID string) error {
	if e.state != DiagramIdle {
		return &ConflictError{Reason: fmt.Sprintf("cannot start a connection while %s", e.state)}
	}
	if !e.model.IsSelected(tableID) {
		return &NotFoundError{Kind: "diagram node", ID: tableID}
	}
	e.state = DiagramPendingConnection
	e.dragOrigin = tableID
	return nil
}

// DropConnection ends the drag. A drop on a distinct selected table opens
// the relationship draft; a drop on the origin node or on empty space
// returns to Idle without proposing anything. Self-connections are not
// treated as valid targets.
func (e *DiagramEngine) DropConnection(targetID string) (bool, error) {
	if e.state != DiagramPendingConnection {
		return false, &ConflictError{Reason: "no connection in progress"}
	}
	origin := e.dragOrigin
	e.dragOrigin = ""
	if targetID == "" || targetID == origin || !e.model.IsSelected(targetID) {
		e.state = DiagramIdle
		return false, nil
	}
	e.draft = &RelationshipDraft{SourceTableID: origin, TargetTableID: targetID}
	e.state = DiagramRelationshipDraftOpen
	return true, nil
}

// CommitDraft creates the drafted relationship through the model. On failure
// the modal stays open and nothing is committed.
func (e *DiagramEngine) CommitDraft(name, relType string, synonyms []models.SynonymGroup) (*models.Relationship, error) {
	if e.state != DiagramRelationshipDraftOpen || e.draft == nil {
		return nil, &ConflictError{Reason: "no relationship draft open"}
	}
	rel, err := e.model.AddRelationship(models.Relationship{
		Name:          name,
		SourceTableID: e.draft.SourceTableID,
		TargetTableID: e.draft.TargetTableID,
		Type:          relType,
		Synonyms:      synonyms,
	})
	if err != nil {
		return nil, err
	}
	e.draft = nil
	e.state = DiagramIdle
	return rel, nil
}

// CancelDraft discards the draft and its provisional edge.
func (e *DiagramEngine) CancelDraft() {
	e.draft = nil
	e.state = DiagramIdle
}

// DismissDraft closes the modal but keeps the uncommitted edge around; a
// later click on the draft edge reopens the modal.
func (e *DiagramEngine) DismissDraft() {
	if e.state == DiagramRelationshipDraftOpen {
		e.state = DiagramIdle
	}
}

// ClickEdge handles a click on a diagram edge. The draft edge reopens the
// modal; a committed edge opens the relationships tab filtered to the exact
// (source, target) pair of the clicked relationship.
func (e *DiagramEngine) ClickEdge(edgeID string) error {
	if edgeID == DraftEdgeID {
		if e.draft == nil {
			return &NotFoundError{Kind: "diagram edge", ID: edgeID}
		}
		e.state = DiagramRelationshipDraftOpen
		return nil
	}
	rel, ok := e.model.Relationship(edgeID)
	if !ok {
		return &NotFoundError{Kind: "diagram edge", ID: edgeID}
	}
	e.inspectorTab = TabRelationships
	e.pairFilter = &TablePair{Source: rel.SourceTableID, Target: rel.TargetTableID}
	if e.model.IsSelected(rel.SourceTableID) {
		_ = e.model.SetInspector(rel.SourceTableID)
	}
	return nil
}

// ClickNode opens the inspector's details tab for a table node.
func (e *DiagramEngine) ClickNode(tableID string) error {
	if err := e.model.SetInspector(tableID); err != nil {
		return err
	}
	e.inspectorTab = TabDetails
	e.pairFilter = nil
	return nil
}

// ClickOverflow is the affordance shown when a table has more columns than
// fit inline; it jumps straight to the columns tab.
func (e *DiagramEngine) ClickOverflow(tableID string) error {
	if err := e.model.SetInspector(tableID); err != nil {
		return err
	}
	e.inspectorTab = TabColumns
	e.pairFilter = nil
	return nil
}

// FilteredRelationships returns the relationships the inspector shows under
// the current pair filter, or all of them when no filter is active.
func (e *DiagramEngine) FilteredRelationships() []*models.Relationship {
	if e.pairFilter == nil {
		return e.model.Schema.Relationships
	}
	return e.model.RelationshipsBetween(e.pairFilter.Source, e.pairFilter.Target)
}

// SyncLayout recomputes the grid only when the selected-table count changed
// since the last layout. Property edits therefore never move nodes.
func (e *DiagramEngine) SyncLayout() {
	selection := e.model.Selection()
	if len(selection) == e.layoutSize {
		return
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(selection)))))
	if cols < 1 {
		cols = 1
	}
	positions := make(map[string]NodePosition, len(selection))
	for i, id := range selection {
		positions[id] = NodePosition{X: (i % cols) * nodeSpanX, Y: (i / cols) * nodeSpanY}
	}
	e.positions = positions
	e.layoutSize = len(selection)
}

// MoveNode records a manual reposition; SyncLayout will not undo it unless
// the selection count changes.
func (e *DiagramEngine) MoveNode(tableID string, x, y int) error {
	if !e.model.IsSelected(tableID) {
		return &NotFoundError{Kind: "diagram node", ID: tableID}
	}
	e.positions[tableID] = NodePosition{X: x, Y: y}
	return nil
}
