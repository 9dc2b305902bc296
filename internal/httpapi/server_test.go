package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/learner"
	"github.com/abhisek/kpath/internal/mastery"
	"github.com/abhisek/kpath/internal/planner"
	"github.com/abhisek/kpath/internal/store"
)

const chainUnit = `{
	"unit": "calculus",
	"knowledge_points": [
		{"id": 1, "name": "Functions"},
		{"id": 2, "name": "Limits"},
		{"id": 3, "name": "Derivatives"}
	],
	"relations": [
		{"source": 1, "target": 2, "kind": "prerequisite", "confidence": 0.9},
		{"source": 2, "target": 3, "kind": "prerequisite", "confidence": 0.8}
	],
	"difficulty": {"3": "hard"}
}`

const cyclicUnit = `{
	"unit": "loop",
	"knowledge_points": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}, {"id": 3, "name": "C"}],
	"relations": [
		{"source": 1, "target": 2, "kind": "prerequisite", "confidence": 0.9},
		{"source": 2, "target": 3, "kind": "prerequisite", "confidence": 0.5},
		{"source": 3, "target": 1, "kind": "prerequisite", "confidence": 0.7}
	]
}`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "kpath.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc, err := learner.NewService(learner.Config{
		Paths:        st.PathRepo(),
		Events:       st.EventRepo(),
		Mastery:      st.MasteryRepo(),
		TrackMastery: true,
	})
	require.NoError(t, err)
	return NewRouter(RouterConfig{Service: svc})
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[ErrorEnvelope](t, rec).Error.Code
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBuildGraph(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/v1/graphs", cyclicUnit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[GraphResponse](t, rec)
	assert.Equal(t, "loop", resp.Unit)
	assert.Equal(t, []int64{3, 1, 2}, resp.Summary.Order)
	require.Len(t, resp.Summary.Removed, 1)
	assert.Equal(t, int64(2), resp.Summary.Removed[0].Relation.Source)
	assert.Equal(t, int64(3), resp.Summary.Removed[0].Relation.Target)
	assert.Nil(t, resp.Synced)

	rec = do(t, r, http.MethodPost, "/v1/graphs", `{"unit": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_unit", errorCode(t, rec))
}

func TestBuildGraph_RejectsOversizedUnit(t *testing.T) {
	body := `{"knowledge_points": [` + strings.Repeat(" ", maxUnitBytes) + `]}`
	rec := do(t, newTestRouter(t), http.MethodPost, "/v1/graphs", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "unit_too_large", errorCode(t, rec))
}

type outcomeBody struct {
	Path       planner.Path        `json:"path"`
	Reason     string              `json:"reason"`
	NextAction string              `json:"next_action"`
	Changed    bool                `json:"changed"`
	PathID     string              `json:"path_id"`
	Transition *mastery.Transition `json:"transition"`
	Next       *planner.Suggestion `json:"next"`
}

func TestLearnerFlow(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/v1/learners/ada/paths/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_path", errorCode(t, rec))

	rec = do(t, r, http.MethodPost, "/v1/learners/ada/events", `{"kind": "difficult", "knowledge_point_id": 2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPut, "/v1/learners/ada/mastery/1", `{"status": "mastered"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/v1/learners/ada/paths", chainUnit)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[PathResponse](t, rec)
	assert.Equal(t, []int64{2, 3}, created.Path.ContentIDs())
	assert.Equal(t, store.PathFormatVersion, created.FormatVersion)
	require.NotNil(t, created.Next)
	assert.Equal(t, int64(2), created.Next.KnowledgePointID)

	rec = do(t, r, http.MethodPost, "/v1/learners/ada/events", `{"kind": "difficult", "knowledge_point_id": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[outcomeBody](t, rec)
	assert.True(t, out.Changed)
	assert.True(t, out.Path.HasRemedialBefore(2))
	assert.NotEqual(t, created.ID, out.PathID)
	require.NotNil(t, out.Transition)
	assert.Equal(t, knowledge.StatusDifficult, out.Transition.To)
	require.NotNil(t, out.Next)
	assert.Equal(t, planner.NodeRemedial, out.Next.Type)

	rec = do(t, r, http.MethodGet, "/v1/learners/ada/paths/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decode[PathResponse](t, rec)
	assert.Equal(t, out.PathID, latest.ID)
	assert.Equal(t, 3, latest.Path.Len())

	rec = do(t, r, http.MethodGet, "/v1/learners/ada/adjustments?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[struct {
		Adjustments []store.Adjustment `json:"adjustments"`
	}](t, rec)
	require.Len(t, hist.Adjustments, 1)
	assert.Equal(t, "difficult", hist.Adjustments[0].Kind)

	rec = do(t, r, http.MethodGet, "/v1/learners/ada/mastery", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[struct {
		Mastery map[string]knowledge.MasteryStatus `json:"mastery"`
	}](t, rec)
	assert.Equal(t, map[string]knowledge.MasteryStatus{"1": knowledge.StatusMastered, "2": knowledge.StatusDifficult}, m.Mastery)
}

func TestBadRequests(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   string
	}{
		{"unknown event", http.MethodPost, "/v1/learners/ada/events", `{"kind": "skipped", "knowledge_point_id": 2}`, "unknown_event"},
		{"missing kp", http.MethodPost, "/v1/learners/ada/events", `{"kind": "mastered"}`, "invalid_request"},
		{"bad kp param", http.MethodPut, "/v1/learners/ada/mastery/abc", `{"status": "mastered"}`, "invalid_knowledge_point"},
		{"unknown status", http.MethodPut, "/v1/learners/ada/mastery/1", `{"status": "great"}`, "unknown_status"},
		{"bad limit", http.MethodGet, "/v1/learners/ada/adjustments?limit=-1", "", "invalid_limit"},
		{"bad unit", http.MethodPost, "/v1/learners/ada/paths", `not json`, "invalid_unit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}
