package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/blockgraph/pkg/server/dto"
	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// SubgraphHandler answers read-only queries over a subgraph posted with the request.
type SubgraphHandler struct {
	logger *slog.Logger
}

// NewSubgraphHandler creates a new subgraph handler
func NewSubgraphHandler(logger *slog.Logger) *SubgraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubgraphHandler{logger: logger}
}

// writeError writes an error response tagged with the request id
func writeError(c *gin.Context, status int, code string, err error) {
	requestID, _ := c.Request.Context().Value(types.ContextKeyRequestID).(string)
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		RequestID: requestID,
	})
}

// subgraphStatus maps a query error to its response status.
func subgraphStatus(err error) int {
	switch {
	case errors.Is(err, subgraph.ErrRootNotFound),
		errors.Is(err, subgraph.ErrVertexNotFound),
		errors.Is(err, subgraph.ErrAmbiguousLinkEndpoint),
		errors.Is(err, subgraph.ErrUnexpectedVertexKind):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func entityIDParam(c *gin.Context) (types.EntityID, bool) {
	id := strings.TrimSpace(c.Param("entityId"))
	if id == "" {
		writeError(c, http.StatusBadRequest, "invalid_request", dto.ErrEmptyEntityID)
		return "", false
	}
	return types.EntityID(id), true
}

// Roots handles POST /api/v1/subgraph/roots
func (h *SubgraphHandler) Roots(c *gin.Context) {
	var sg subgraph.Subgraph
	if err := c.ShouldBindJSON(&sg); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := sg.Validate(); err != nil {
		writeError(c, subgraphStatus(err), "invalid_subgraph", err)
		return
	}
	roots, err := subgraph.GetRoots(&sg)
	if err != nil {
		writeError(c, subgraphStatus(err), "invalid_subgraph", err)
		return
	}
	c.JSON(http.StatusOK, dto.RootsResponse{Roots: roots})
}

// EntityRevision handles POST /api/v1/subgraph/entities/:entityId/revision
func (h *SubgraphHandler) EntityRevision(c *gin.Context) {
	id, ok := entityIDParam(c)
	if !ok {
		return
	}
	var req dto.EntityRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, subgraphStatus(err), "invalid_request", err)
		return
	}

	var entity *types.Entity
	if req.At != nil {
		entity = subgraph.GetEntityRevisionAt(req.Subgraph, id, *req.At)
	} else {
		entity = subgraph.GetEntity(req.Subgraph, id)
	}
	if entity == nil {
		writeError(c, http.StatusNotFound, "not_found", errors.New("no revision of entity "+string(id)))
		return
	}
	c.JSON(http.StatusOK, dto.EntityRevisionResponse{
		Entity: entity,
		Label:  subgraph.EntityLabel(req.Subgraph, entity),
	})
}

// Links handles POST /api/v1/subgraph/entities/:entityId/links
func (h *SubgraphHandler) Links(c *gin.Context) {
	id, ok := entityIDParam(c)
	if !ok {
		return
	}
	var req dto.LinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, subgraphStatus(err), "invalid_request", err)
		return
	}

	resp := dto.LinksResponse{EntityID: id, Direction: req.Direction}
	var err error
	if req.Direction == dto.DirectionIncoming {
		resp.Incoming, err = subgraph.GetIncomingLinkAndSourceEntities(req.Subgraph, id, req.Interval)
	} else {
		resp.Outgoing, err = subgraph.GetOutgoingLinkAndTargetEntities(req.Subgraph, id, req.Interval)
	}
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "link query failed", "entity_id", id, "error", err)
		writeError(c, subgraphStatus(err), "invalid_subgraph", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
