package event

import (
	"github.com/sirupsen/logrus"
)

// EventHandler returns nil when the event is not supported
type EventHandler func(e *EventRecord) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var EventHandlers []EventHandler

var InvokeHandlersFunc = invokeHandlers

// StatusChangeLogHandler emits an audit log line for workflow status
// changes, ignoring every other category.
func StatusChangeLogHandler(record *EventRecord) *EventHandleResult {
	if record.EventCategory != EventCategoryStatusChanged {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"sourceType": record.SourceType,
		"sourceId":   record.SourceId,
		"sourceDesc": record.SourceDesc,
		"creator":    record.CreatorName,
		"changes":    record.UpdatedProperties,
	}).Info("status changed")
	return &EventHandleResult{Success: true, HandlerIdentifier: "status-change-log"}
}

func invokeHandlers(record *EventRecord) []EventHandleResult {
	results := []EventHandleResult{}
	for _, handler := range EventHandlers {
		logrus.Debug("pre handle event ", record.Event)
		r := handler(record)

		if r == nil {
			continue
		}

		results = append(results, *r)

		if r.Success {
			logrus.Info("post handle event. ", r)
		} else {
			logrus.Error("post handler error. ", r)
		}
	}
	return results
}
