package utils

import (
	"context"
	"errors"

	"mongo-fixtures/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRunIDNotFound       = errors.New("runID not found in context")
	ErrRunIDNotString      = errors.New("runID in context is not a string")
	ErrRequestIDNotFound   = errors.New("requestID not found in context")
	ErrRequestIDNotString  = errors.New("requestID in context is not a string")
	ErrDatabaseNotFound    = errors.New("database not found in context")
	ErrDatabaseNotString   = errors.New("database in context is not a string")
	ErrCollectionNotFound  = errors.New("collection not found in context")
	ErrCollectionNotString = errors.New("collection in context is not a string")
	ErrOperationNotFound   = errors.New("operation not found in context")
	ErrOperationNotString  = errors.New("operation in context is not a string")
	ErrSubjectNotFound     = errors.New("subject not found in context")
	ErrSubjectNotString    = errors.New("subject in context is not a string")
)

func stringValue(ctx context.Context, key interface{}, notFound, notString error) (string, error) {
	val := ctx.Value(key)
	if val == nil {
		return "", notFound
	}
	s, ok := val.(string)
	if !ok {
		return "", notString
	}
	return s, nil
}

// GetRunIDFromContext retrieves the id of the current loader call
func GetRunIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RunIDKey, ErrRunIDNotFound, ErrRunIDNotString)
}

// GetRequestIDFromContext retrieves the HTTP request ID from the context.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound, ErrRequestIDNotString)
}

// GetDatabaseFromContext retrieves the target database name from the context.
func GetDatabaseFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.DatabaseKey, ErrDatabaseNotFound, ErrDatabaseNotString)
}

// GetCollectionFromContext retrieves the collection being cleared or loaded.
func GetCollectionFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.CollectionKey, ErrCollectionNotFound, ErrCollectionNotString)
}

// GetOperationFromContext retrieves the loader operation name from the context.
func GetOperationFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.OperationKey, ErrOperationNotFound, ErrOperationNotString)
}

// GetSubjectFromContext retrieves the authenticated token subject.
func GetSubjectFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.SubjectKey, ErrSubjectNotFound, ErrSubjectNotString)
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextkeys.RunIDKey, runID)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithDatabase adds the target database name to the context
func WithDatabase(ctx context.Context, database string) context.Context {
	return context.WithValue(ctx, contextkeys.DatabaseKey, database)
}

// WithCollection adds a collection name to the context
func WithCollection(ctx context.Context, collection string) context.Context {
	return context.WithValue(ctx, contextkeys.CollectionKey, collection)
}

// WithOperation adds an operation name to the context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}

// WithSubject adds the authenticated subject to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextkeys.SubjectKey, subject)
}

// HasRunID checks if the context carries a run ID
func HasRunID(ctx context.Context) bool {
	_, err := GetRunIDFromContext(ctx)
	return err == nil
}
