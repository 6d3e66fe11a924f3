package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "mongo-fixtures context key " + string(c)
}

// RunIDKey is the key for the id of one load/clear call in context.Context
const RunIDKey = contextKey("runID")

// RequestIDKey is the key for the HTTP request id set by the seeding API
const RequestIDKey = contextKey("requestID")

// DatabaseKey is the key for the target database name
const DatabaseKey = contextKey("database")

// CollectionKey is the key for the collection an operation is working on
const CollectionKey = contextKey("collection")

// ComponentKey is the key for the component name used in logs
const ComponentKey = contextKey("component")

// OperationKey is the key for the operation name (load, clear_and_load, ...)
const OperationKey = contextKey("operation")

// SubjectKey is the key for the authenticated JWT subject of a seeding request
const SubjectKey = contextKey("subject")
