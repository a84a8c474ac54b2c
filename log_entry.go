package processmap

import "time"

// LogLevel is the severity of a run log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry is one structured entry of a run or step log.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewLogEntry returns a log entry stamped with the current time.
func NewLogEntry(level LogLevel, message string, data map[string]any) LogEntry {
	return LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Data:      data,
	}
}

func copyLogs(logs []LogEntry) []LogEntry {
	if logs == nil {
		return []LogEntry{}
	}
	copied := make([]LogEntry, len(logs))
	for i, entry := range logs {
		entry.Data = copyMap(entry.Data)
		copied[i] = entry
	}
	return copied
}

// copyMap returns a deep copy of m. Nested maps and slices are copied so the
// result shares no mutable state with m.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	copied := make(map[string]any, len(m))
	for k, v := range m {
		copied[k] = copyValue(v)
	}
	return copied
}

func copyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return copyMap(value)
	case []any:
		if value == nil {
			return value
		}
		copied := make([]any, len(value))
		for i, item := range value {
			copied[i] = copyValue(item)
		}
		return copied
	case map[string]map[string]any:
		copied := make(map[string]map[string]any, len(value))
		for k, item := range value {
			copied[k] = copyMap(item)
		}
		return copied
	case []map[string]any:
		copied := make([]map[string]any, len(value))
		for i, item := range value {
			copied[i] = copyMap(item)
		}
		return copied
	case []string:
		return append([]string(nil), value...)
	}
	return v
}
