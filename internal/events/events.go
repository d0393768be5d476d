// Package events defines the instrumentation events the gateway publishes.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when a gateway request begins.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted when a gateway request completes.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// QueryStart is emitted before a field request is compiled and executed.
type QueryStart struct {
	Resource   string
	FieldCount int
}

// QueryFinish is emitted after projection, or after a compile failure.
type QueryFinish struct {
	Resource string
	Err      error
	Duration time.Duration
}

// FetchStart is emitted before handing the fetch plan to the data engine.
type FetchStart struct {
	Resource    string
	SelectCount int
	LoadCount   int
}

// FetchFinish is emitted when the data engine returns.
type FetchFinish struct {
	Resource string
	Err      error
	Duration time.Duration
}
