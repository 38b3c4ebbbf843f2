package monitor

import "errors"

// ErrUnknownMonitoringID is returned when no record exists for an id.
var ErrUnknownMonitoringID = errors.New("unknown monitoring id")
