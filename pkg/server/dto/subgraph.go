package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/soundprediction/blockgraph/pkg/codegen"
	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/temporal"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// Validation errors
var (
	ErrMissingSubgraph = errors.New("subgraph is required")
	ErrEmptyEntityID   = errors.New("entity id cannot be empty")
)

// MaxTypeIDs caps how many roots one dependency request may name.
const MaxTypeIDs = 256

// Link directions
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EntityRevisionRequest asks for one revision of an entity in a posted subgraph.
// With At unset the latest revision is returned.
type EntityRevisionRequest struct {
	Subgraph *subgraph.Subgraph `json:"subgraph" validate:"required"`
	At       *time.Time         `json:"at,omitempty"`
}

// Validate performs validation on EntityRevisionRequest
func (r *EntityRevisionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return ErrMissingSubgraph
	}
	return r.Subgraph.Validate()
}

// LinksRequest asks for the links of an entity in a posted subgraph.
type LinksRequest struct {
	Subgraph  *subgraph.Subgraph `json:"subgraph" validate:"required"`
	Direction string             `json:"direction" validate:"omitempty,oneof=outgoing incoming"`
	Interval  *temporal.Interval `json:"interval,omitempty"`
}

// Validate performs validation on LinksRequest and defaults Direction to outgoing.
func (r *LinksRequest) Validate() error {
	if r.Subgraph == nil {
		return ErrMissingSubgraph
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("direction must be %s or %s", DirectionOutgoing, DirectionIncoming)
	}
	if r.Direction == "" {
		r.Direction = DirectionOutgoing
	}
	if r.Interval != nil {
		if err := r.Interval.Validate(); err != nil {
			return err
		}
	}
	return r.Subgraph.Validate()
}

// DependenciesRequest names the ontology types whose dependency closure is wanted.
type DependenciesRequest struct {
	TypeIDs []types.VersionedURL `json:"typeIds" validate:"required,min=1,max=256,dive,required"`
}

// Validate performs validation on DependenciesRequest
func (r *DependenciesRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("typeIds must list between 1 and %d ids", MaxTypeIDs)
	}
	for _, id := range r.TypeIDs {
		if err := id.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RootsResponse lists the resolved roots of a subgraph in root order.
type RootsResponse struct {
	Roots []subgraph.Vertex `json:"roots"`
}

// EntityRevisionResponse is one entity revision with its display label.
type EntityRevisionResponse struct {
	Entity *types.Entity `json:"entity"`
	Label  string        `json:"label"`
}

// LinksResponse carries the link pairs for one direction.
type LinksResponse struct {
	EntityID  types.EntityID                      `json:"entityId"`
	Direction string                              `json:"direction"`
	Outgoing  []subgraph.LinkEntityAndRightEntity `json:"outgoing,omitempty"`
	Incoming  []subgraph.LinkEntityAndLeftEntity  `json:"incoming,omitempty"`
}

// DependenciesResponse wraps a traversal manifest. Error is set when the traversal
// stopped early; the manifest then holds what was resolved before it stopped.
type DependenciesResponse struct {
	Manifest *codegen.Manifest `json:"manifest"`
	Error    string            `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
