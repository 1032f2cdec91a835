package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"semantiq/internal/models"
	"semantiq/internal/repositories"
	"semantiq/internal/services"
	"semantiq/internal/utils"
)

// newEditSession opens a session over a preloaded payload so no catalog
// database is needed. The Redis lease target is unreachable on purpose;
// lease failures are logged and tolerated.
func newEditSession(t *testing.T) (*services.SessionService, *services.EditSession) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SessionTokenSecret = []byte("test-secret")

	redisRepo := repositories.NewRedisRepository(redis.NewClient(&redis.Options{Addr: "localhost:1"}))
	sessions := services.NewSessionService(nil, redisRepo, nil)

	wire := &models.WireSchema{
		ID:          "shop",
		DisplayName: "Shop",
		Tables: map[string]models.WireTable{
			"customers": {
				Name:        "customers",
				DisplayName: "Customers",
				Columns: map[string]models.WireColumn{
					"id": {Name: "id", DataType: "uuid"},
				},
			},
		},
	}
	session, _, err := sessions.Open(context.Background(), uuid.New(), wire)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return sessions, session
}

func commitTableField(t *testing.T, sessions *services.SessionService, session *services.EditSession, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewModelHandler(sessions)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{
		{Key: "sessionId", Value: session.ID.String()},
		{Key: "table", Value: "customers"},
	}
	c.Request = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.CommitTableField(c)
	return w
}

func TestCommitTableFieldRejectsNonStringValue(t *testing.T) {
	sessions, session := newEditSession(t)

	w := commitTableField(t, sessions, session, `{"field": "display_name", "value": 42}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if got := session.Model.Schema.Tables["customers"].DisplayName; got != "Customers" {
		t.Errorf("rejected commit wiped display_name: %q", got)
	}
}

func TestCommitTableFieldAcceptsString(t *testing.T) {
	sessions, session := newEditSession(t)

	w := commitTableField(t, sessions, session, `{"field": "display_name", "value": "Clients"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := session.Model.Schema.Tables["customers"].DisplayName; got != "Clients" {
		t.Errorf("display_name = %q, want Clients", got)
	}
}
