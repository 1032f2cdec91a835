package services

import (
	"testing"

	"semantiq/internal/models"
)

func diagramFixture(t *testing.T) (*models.SchemaModel, *DiagramEngine) {
	t.Helper()
	schema := ingestFixture(t)
	schema.Relationships = nil
	model := models.NewSchemaModel(schema)
	if err := model.Select("customers"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := model.Select("orders"); err != nil {
		t.Fatalf("select: %v", err)
	}
	engine := NewDiagramEngine(model)
	engine.SyncLayout()
	return model, engine
}

func TestConnectDragCreatesRelationship(t *testing.T) {
	model, engine := diagramFixture(t)

	if err := engine.BeginConnection("orders"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if engine.State() != DiagramPendingConnection {
		t.Fatalf("state = %q", engine.State())
	}

	opened, err := engine.DropConnection("customers")
	if err != nil || !opened {
		t.Fatalf("drop = (%v, %v)", opened, err)
	}
	if engine.State() != DiagramRelationshipDraftOpen {
		t.Fatalf("state = %q", engine.State())
	}

	rel, err := engine.CommitDraft("", "", nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if rel.Name != "orders_to_customers" {
		t.Errorf("default name = %q", rel.Name)
	}
	if rel.Type != models.RelationshipManyToOne {
		t.Errorf("default type = %q", rel.Type)
	}
	if !rel.UserCreated {
		t.Errorf("diagram relationship not user-created")
	}
	if engine.State() != DiagramIdle {
		t.Errorf("state after commit = %q", engine.State())
	}
	if len(model.Schema.Relationships) != 1 {
		t.Errorf("relationship not recorded on model")
	}
}

func TestDropOnOriginOrCanvasIsSilent(t *testing.T) {
	_, engine := diagramFixture(t)

	for _, target := range []string{"", "orders"} {
		if err := engine.BeginConnection("orders"); err != nil {
			t.Fatalf("begin: %v", err)
		}
		opened, err := engine.DropConnection(target)
		if err != nil {
			t.Fatalf("drop %q: %v", target, err)
		}
		if opened {
			t.Errorf("drop %q opened a draft", target)
		}
		if engine.State() != DiagramIdle {
			t.Errorf("drop %q left state %q", target, engine.State())
		}
	}
}

func TestDismissKeepsDraftForReopen(t *testing.T) {
	_, engine := diagramFixture(t)

	if err := engine.BeginConnection("orders"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := engine.DropConnection("customers"); err != nil {
		t.Fatalf("drop: %v", err)
	}

	engine.DismissDraft()
	if engine.State() != DiagramIdle {
		t.Fatalf("state = %q", engine.State())
	}
	if engine.Draft() == nil {
		t.Fatalf("dismiss discarded the draft")
	}

	if err := engine.ClickEdge(DraftEdgeID); err != nil {
		t.Fatalf("click draft edge: %v", err)
	}
	if engine.State() != DiagramRelationshipDraftOpen {
		t.Errorf("draft modal not reopened")
	}

	engine.CancelDraft()
	if engine.Draft() != nil {
		t.Errorf("cancel kept the draft")
	}
	if err := engine.ClickEdge(DraftEdgeID); err == nil {
		t.Errorf("clicking a cancelled draft edge should fail")
	}
}

func TestCommitFailureKeepsModalOpen(t *testing.T) {
	model, engine := diagramFixture(t)

	if err := engine.BeginConnection("orders"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := engine.DropConnection("customers"); err != nil {
		t.Fatalf("drop: %v", err)
	}

	// A bogus table swapped into the draft makes the model reject the commit.
	engine.Draft().TargetTableID = "ghost"
	if _, err := engine.CommitDraft("", "", nil); err == nil {
		t.Fatalf("commit against missing table succeeded")
	}
	if engine.State() != DiagramRelationshipDraftOpen {
		t.Errorf("failed commit closed the modal")
	}
	if len(model.Schema.Relationships) != 0 {
		t.Errorf("failed commit recorded a relationship")
	}
}

func TestEdgeClickFiltersRelationships(t *testing.T) {
	model, engine := diagramFixture(t)

	rel, err := model.AddRelationship(models.Relationship{SourceTableID: "orders", TargetTableID: "customers"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := engine.ClickEdge(rel.ID); err != nil {
		t.Fatalf("click: %v", err)
	}
	if engine.InspectorTab() != TabRelationships {
		t.Errorf("tab = %q", engine.InspectorTab())
	}
	pair := engine.PairFilter()
	if pair == nil || pair.Source != "orders" || pair.Target != "customers" {
		t.Errorf("pair filter = %+v", pair)
	}
	filtered := engine.FilteredRelationships()
	if len(filtered) != 1 || filtered[0].ID != rel.ID {
		t.Errorf("filtered = %+v", filtered)
	}

	// Node click resets to details and clears the filter.
	if err := engine.ClickNode("orders"); err != nil {
		t.Fatalf("node click: %v", err)
	}
	if engine.InspectorTab() != TabDetails || engine.PairFilter() != nil {
		t.Errorf("node click left tab %q filter %+v", engine.InspectorTab(), engine.PairFilter())
	}

	if err := engine.ClickOverflow("orders"); err != nil {
		t.Fatalf("overflow click: %v", err)
	}
	if engine.InspectorTab() != TabColumns {
		t.Errorf("overflow tab = %q", engine.InspectorTab())
	}
}

func TestLayoutRecomputesOnlyOnCountChange(t *testing.T) {
	model, engine := diagramFixture(t)

	if err := engine.MoveNode("orders", 999, 777); err != nil {
		t.Fatalf("move: %v", err)
	}

	// Same selection count: layout untouched.
	engine.SyncLayout()
	if pos := engine.Positions()["orders"]; pos.X != 999 || pos.Y != 777 {
		t.Errorf("manual position lost on no-op sync: %+v", pos)
	}

	// Count change: grid recomputed.
	model.Deselect("customers")
	engine.SyncLayout()
	if pos := engine.Positions()["orders"]; pos.X == 999 {
		t.Errorf("layout not recomputed after selection change")
	}
	if _, ok := engine.Positions()["customers"]; ok {
		t.Errorf("deselected table kept a position")
	}
}

func TestBeginConnectionRequiresSelectedNode(t *testing.T) {
	model, engine := diagramFixture(t)
	model.Deselect("orders")

	if err := engine.BeginConnection("orders"); err == nil {
		t.Errorf("connection from unselected table allowed")
	}
	if engine.State() != DiagramIdle {
		t.Errorf("state = %q", engine.State())
	}
}
