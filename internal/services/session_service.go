package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"semantiq/internal/models"
	"semantiq/internal/repositories"
	"semantiq/internal/utils"
)

// EditSession owns one editable schema from open to close. The model and the
// diagram engine live only here, in process memory; closing the session
// discards every uncommitted thing. Mu serializes commits so they apply in
// the order the operator triggered them.
type EditSession struct {
	ID        uuid.UUID
	SchemaID  string
	Model     *models.SchemaModel
	Diagram   *DiagramEngine
	CreatedAt time.Time

	Mu sync.Mutex
}

// SessionService is the in-memory session registry. The Redis lease mirrors
// who is editing which schema so other operators can see it; the registry
// itself is authoritative.
type SessionService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*EditSession

	schemaRepo *repositories.SchemaRepository
	redisRepo  *repositories.RedisRepository
	seeds      *SeedDefinitions
}

func NewSessionService(schemaRepo *repositories.SchemaRepository, redisRepo *repositories.RedisRepository, seeds *SeedDefinitions) *SessionService {
	return &SessionService{
		sessions:   make(map[uuid.UUID]*EditSession),
		schemaRepo: schemaRepo,
		redisRepo:  redisRepo,
		seeds:      seeds,
	}
}

// Open starts an edit session for a stored schema. When preloaded is
// non-nil (edit-mode entry) the fetch is skipped and the supplied payload is
// normalized directly. Returns the session and its signed token.
func (s *SessionService) Open(ctx context.Context, schemaID uuid.UUID, preloaded *models.WireSchema) (*EditSession, string, error) {
	wire := preloaded
	if wire == nil {
		record, err := s.schemaRepo.GetByID(ctx, schemaID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch schema %s: %w", schemaID, err)
		}
		if record == nil {
			return nil, "", &NotFoundError{Kind: "schema", ID: schemaID.String()}
		}
		wire = &models.WireSchema{}
		if err := json.Unmarshal(record.Payload, wire); err != nil {
			return nil, "", &TransformError{Op: "ingest", Err: err}
		}
	}
	if wire.ID == "" {
		wire.ID = schemaID.String()
	}

	schema := IngestSchema(wire)
	model := models.NewSchemaModel(schema)
	s.seeds.Apply(model)

	session := &EditSession{
		ID:        uuid.New(),
		SchemaID:  wire.ID,
		Model:     model,
		Diagram:   NewDiagramEngine(model),
		CreatedAt: time.Now().UTC(),
	}

	token, err := utils.GenerateSessionToken(session.ID, session.SchemaID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	// Lease failures must not block editing; the lease is visibility, not
	// a lock. Editing is last-writer-wins at the store.
	if err := s.redisRepo.StoreLease(ctx, session.SchemaID, session.ID.String()); err != nil {
		log.Printf("failed to store edit lease for schema %s: %v", session.SchemaID, err)
	}

	return session, token, nil
}

// Get returns a live session by id.
func (s *SessionService) Get(id uuid.UUID) (*EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, &NotFoundError{Kind: "session", ID: id.String()}
	}
	return session, nil
}

// Touch refreshes the lease on activity, best effort.
func (s *SessionService) Touch(ctx context.Context, session *EditSession) {
	if err := s.redisRepo.RefreshLease(ctx, session.SchemaID); err != nil {
		log.Printf("failed to refresh edit lease for schema %s: %v", session.SchemaID, err)
	}
}

// Close discards a session and its in-memory model. Nothing is saved.
func (s *SessionService) Close(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return &NotFoundError{Kind: "session", ID: id.String()}
	}
	if err := s.redisRepo.ReleaseLease(ctx, session.SchemaID, session.ID.String()); err != nil {
		log.Printf("failed to release edit lease for schema %s: %v", session.SchemaID, err)
	}
	return nil
}

// Replace swaps a session's model for a freshly ingested one, used after a
// spreadsheet import re-ingests the stored payload. Selection and diagram
// state reset with it.
func (s *SessionService) Replace(session *EditSession, wire *models.WireSchema) {
	schema := IngestSchema(wire)
	model := models.NewSchemaModel(schema)
	session.Model = model
	session.Diagram = NewDiagramEngine(model)
}
