// Package events defines hub lifecycle events published when shared
// workflows change.
package events

import (
	"time"
)

type EventType string

// Topic carries every hub event.
const Topic = "webrpa.hub.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowSharedEvent     EventType = "workflow.shared"
	WorkflowDownloadedEvent EventType = "workflow.downloaded"
	WorkflowDeletedEvent    EventType = "workflow.deleted"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Fingerprint string    `json:"fingerprint"`
}

type WorkflowShared struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
	Author     string `json:"author,omitempty"`
	NodeCount  int    `json:"node_count"`
}

func (w WorkflowShared) GetType() EventType {
	return WorkflowSharedEvent
}

type WorkflowDownloaded struct {
	BaseEvent

	Downloads int64 `json:"downloads"`
}

func (w WorkflowDownloaded) GetType() EventType {
	return WorkflowDownloadedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}
