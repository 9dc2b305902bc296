package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/kpath/internal/adjuster"
	"github.com/abhisek/kpath/internal/graphsync"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/learner"
	"github.com/abhisek/kpath/internal/lock"
	"github.com/abhisek/kpath/internal/logger"
	"github.com/abhisek/kpath/internal/planner"
	"github.com/abhisek/kpath/internal/relation"
	"github.com/abhisek/kpath/internal/store"
	"github.com/abhisek/kpath/internal/unitfile"
)

// maxUnitBytes caps unit file uploads.
const maxUnitBytes = 4 << 20

type handlers struct {
	svc       *learner.Service
	builder   *kgraph.Builder
	extractor relation.Source
	sync      *graphsync.Client
	log       *logger.Logger
}

// GraphResponse is returned by POST /v1/graphs.
type GraphResponse struct {
	Unit    string           `json:"unit"`
	Summary kgraph.Summary   `json:"summary"`
	Synced  *graphsync.Stats `json:"synced,omitempty"`
}

// PathResponse wraps a stored path.
type PathResponse struct {
	ID            string              `json:"id"`
	Sequence      int64               `json:"sequence"`
	FormatVersion string              `json:"format_version"`
	CreatedAt     time.Time           `json:"created_at"`
	Path          planner.Path        `json:"path"`
	Next          *planner.Suggestion `json:"next,omitempty"`
}

func pathResponse(rec *store.PathRecord) PathResponse {
	out := PathResponse{
		ID:            rec.ID,
		Sequence:      rec.Sequence,
		FormatVersion: rec.FormatVersion,
		CreatedAt:     rec.CreatedAt,
		Path:          rec.Path,
	}
	if next, ok := rec.Path.Next(0); ok {
		out.Next = &next
	}
	return out
}

// EventRequest is the body of POST /v1/learners/:id/events.
type EventRequest struct {
	Kind             string    `json:"kind" binding:"required"`
	KnowledgePointID int64     `json:"knowledge_point_id" binding:"required"`
	Timestamp        time.Time `json:"timestamp"`
}

// MasteryRequest is the body of PUT /v1/learners/:id/mastery/:kp.
type MasteryRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handlers) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// readUnit parses the request body as a unit file and builds its graph.
func (h *handlers) readUnit(c *gin.Context) (*unitfile.File, *kgraph.Graph, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUnitBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "unit_too_large", err)
			return nil, nil, false
		}
		RespondError(c, http.StatusBadRequest, "read_body", err)
		return nil, nil, false
	}
	f, err := unitfile.Parse(body)
	if err != nil {
		if errors.Is(err, unitfile.ErrInvalid) {
			RespondError(c, http.StatusBadRequest, "invalid_unit", err)
		} else {
			RespondError(c, http.StatusInternalServerError, "parse_unit", err)
		}
		return nil, nil, false
	}
	if h.extractor != nil {
		if n := f.ExtractRelations(h.extractor); n > 0 {
			h.log.Debug("extracted relations", "unit", f.Name, "relations", n)
		}
	}
	u := f.Unit()
	return f, h.builder.Build(u.Points, u.Relations), true
}

// POST /v1/graphs
func (h *handlers) buildGraph(c *gin.Context) {
	f, g, ok := h.readUnit(c)
	if !ok {
		return
	}
	resp := GraphResponse{Unit: f.Name, Summary: g.Summarize()}
	if h.sync != nil && f.Name != "" {
		stats, err := h.sync.Export(c.Request.Context(), f.Name, g)
		if err != nil {
			h.log.Warn("graph export failed", "unit", f.Name, "error", err)
		} else {
			resp.Synced = &stats
		}
	}
	RespondOK(c, resp)
}

// POST /v1/learners/:id/paths
func (h *handlers) generatePath(c *gin.Context) {
	f, g, ok := h.readUnit(c)
	if !ok {
		return
	}
	rec, err := h.svc.Plan(c.Request.Context(), c.Param("id"), g, f.PlanOptions())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pathResponse(rec))
}

// GET /v1/learners/:id/paths/latest
func (h *handlers) latestPath(c *gin.Context) {
	rec, err := h.svc.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, pathResponse(rec))
}

// POST /v1/learners/:id/events
func (h *handlers) applyEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	kind, err := adjuster.ParseEventKind(req.Kind)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unknown_event", err)
		return
	}
	out, err := h.svc.Apply(c.Request.Context(), c.Param("id"), adjuster.Event{
		Kind:             kind,
		KnowledgePointID: req.KnowledgePointID,
		Timestamp:        req.Timestamp,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, out)
}

// GET /v1/learners/:id/adjustments?limit=N
func (h *handlers) history(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	entries, err := h.svc.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []store.Adjustment{}
	}
	RespondOK(c, gin.H{"adjustments": entries})
}

// GET /v1/learners/:id/mastery
func (h *handlers) listMastery(c *gin.Context) {
	m, err := h.svc.Mastery(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make(map[string]knowledge.MasteryStatus, len(m))
	for id, s := range m {
		out[strconv.FormatInt(id, 10)] = s
	}
	RespondOK(c, gin.H{"mastery": out})
}

// PUT /v1/learners/:id/mastery/:kp
func (h *handlers) setMastery(c *gin.Context) {
	kp, err := strconv.ParseInt(c.Param("kp"), 10, 64)
	if err != nil || kp <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_knowledge_point", errors.New("knowledge point id must be a positive integer"))
		return
	}
	var req MasteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	status, err := knowledge.ParseMasteryStatus(req.Status)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unknown_status", err)
		return
	}
	if err := h.svc.SetMastery(c.Request.Context(), c.Param("id"), kp, status); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps service errors to responses.
func (h *handlers) fail(c *gin.Context, err error) {
	var unknown *adjuster.UnknownEventError
	var incompatible *store.ErrIncompatibleFormat
	switch {
	case errors.Is(err, learner.ErrNoPath):
		RespondError(c, http.StatusNotFound, "no_path", err)
	case errors.As(err, &unknown):
		RespondError(c, http.StatusBadRequest, "unknown_event", err)
	case errors.Is(err, lock.ErrLockTimeout):
		RespondError(c, http.StatusServiceUnavailable, "learner_busy", err)
	case errors.As(err, &incompatible):
		RespondError(c, http.StatusConflict, "incompatible_path", err)
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
