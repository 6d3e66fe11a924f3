package usecase

import (
	"context"

	"mongo-fixtures/internal/shared/eventbus"
	"mongo-fixtures/internal/shared/utils"
)

// EventSource is the source of every event the loader publishes
const EventSource = "fixtures.loader"

// newLoaderEvent adds the run, collection and caller carried by ctx to data.
// Keys already present in data win.
func newLoaderEvent(ctx context.Context, eventType string, data map[string]interface{}) eventbus.Event {
	if runID, err := utils.GetRunIDFromContext(ctx); err == nil {
		data["run_id"] = runID
	}
	if op, err := utils.GetOperationFromContext(ctx); err == nil {
		data["operation"] = op
	}
	if db, err := utils.GetDatabaseFromContext(ctx); err == nil {
		data["database"] = db
	}
	if _, ok := data["collection"]; !ok {
		if name, err := utils.GetCollectionFromContext(ctx); err == nil {
			data["collection"] = name
		}
	}
	if id, err := utils.GetRequestIDFromContext(ctx); err == nil {
		data["request_id"] = id
	}
	if subject, err := utils.GetSubjectFromContext(ctx); err == nil {
		data["subject"] = subject
	}
	return eventbus.NewBasicEventWithSource(eventType, data, EventSource)
}
