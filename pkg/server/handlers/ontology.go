package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/blockgraph/pkg/codegen"
	"github.com/soundprediction/blockgraph/pkg/ontology"
	"github.com/soundprediction/blockgraph/pkg/server/dto"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// Traverser resolves the dependency closure of a set of ontology types.
type Traverser interface {
	Traverse(ctx context.Context, ids []types.VersionedURL) (*codegen.Result, error)
}

// OntologyHandler runs dependency traversals on request.
type OntologyHandler struct {
	traverser Traverser
	logger    *slog.Logger
	now       func() time.Time
}

// NewOntologyHandler creates a new ontology handler
func NewOntologyHandler(t Traverser, logger *slog.Logger) *OntologyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OntologyHandler{traverser: t, logger: logger, now: time.Now}
}

// traversalStatus maps a traversal error to its response status.
func traversalStatus(err error) int {
	switch {
	case errors.Is(err, ontology.ErrSchemaValidation),
		errors.Is(err, codegen.ErrTypeIDMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, codegen.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Dependencies handles POST /api/v1/ontology/dependencies. A traversal that stops
// early still returns the manifest of what it resolved, with the error alongside.
func (h *OntologyHandler) Dependencies(c *gin.Context) {
	if h.traverser == nil {
		writeError(c, http.StatusServiceUnavailable, "unavailable", errors.New("ontology traversal is not configured"))
		return
	}
	var req dto.DependenciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ctx := c.Request.Context()
	res, err := h.traverser.Traverse(ctx, req.TypeIDs)
	if res == nil {
		writeError(c, traversalStatus(err), "traversal_failed", err)
		return
	}

	resp := dto.DependenciesResponse{Manifest: codegen.NewManifest(res, h.now())}
	if err != nil {
		h.logger.ErrorContext(ctx, "dependency request failed",
			"traversal_id", res.TraversalID,
			"pending", len(res.Pending),
			"error", err)
		resp.Error = err.Error()
		c.JSON(traversalStatus(err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
