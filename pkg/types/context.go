package types

// ContextKey is the type of keys blockgraph stores in a context.Context.
type ContextKey string

const (
	ContextKeyRequestID     ContextKey = "request_id"
	ContextKeyTraversalID   ContextKey = "traversal_id"
	ContextKeyRequestSource ContextKey = "request_source"
)
