package processmap

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// MockType selects whether a mock answers successfully or injects a fault.
type MockType string

const (
	MockTypeSuccess     MockType = "success"
	MockTypeError       MockType = "error"
	MockTypeTimeout     MockType = "timeout"
	MockTypeRateLimit   MockType = "rate_limit"
	MockTypeAuthFailure MockType = "auth_failure"
)

// IsFault returns true for mock types that make the step fail.
func (t MockType) IsFault() bool {
	switch t {
	case MockTypeError, MockTypeTimeout, MockTypeRateLimit, MockTypeAuthFailure:
		return true
	}
	return false
}

// errorType maps a fault mock type to the step error type it produces.
func (t MockType) errorType() string {
	switch t {
	case MockTypeTimeout:
		return ErrorTypeMockTimeout
	case MockTypeRateLimit:
		return ErrorTypeRateLimit
	case MockTypeAuthFailure:
		return ErrorTypeAuthFailure
	}
	return ErrorTypeMockError
}

// Mock is a fixture that stands in for a real integration call. Mocks are
// supplied per run and are never modified by the engine.
type Mock struct {
	ID            string         `json:"id" yaml:"id"`
	Integration   string         `json:"integration" yaml:"integration" validate:"required"`
	IsActive      bool           `json:"is_active" yaml:"is_active"`
	Priority      int            `json:"priority" yaml:"priority"`
	MockType      MockType       `json:"mock_type" yaml:"mock_type" validate:"required,oneof=success error timeout rate_limit auth_failure"`
	ResponseData  map[string]any `json:"response_data,omitempty" yaml:"response_data,omitempty"`
	ErrorResponse map[string]any `json:"error_response,omitempty" yaml:"error_response,omitempty"`
	DelayMs       int            `json:"delay_ms,omitempty" yaml:"delay_ms,omitempty" validate:"gte=0"`
}

// Delay returns the simulated latency of the mock.
func (m *Mock) Delay() time.Duration {
	return time.Duration(m.DelayMs) * time.Millisecond
}

// ResolveMock returns the highest priority active mock for the integration.
// Ties are won by the mock that appears first. An empty integration never
// matches.
func ResolveMock(integration string, mocks []*Mock) *Mock {
	if integration == "" {
		return nil
	}
	var best *Mock
	for _, mock := range mocks {
		if mock == nil || !mock.IsActive || mock.Integration != integration {
			continue
		}
		if best == nil || mock.Priority > best.Priority {
			best = mock
		}
	}
	return best
}

// ValidateMocks checks every mock's fields.
func ValidateMocks(mocks []*Mock) error {
	for i, mock := range mocks {
		if mock == nil {
			return fmt.Errorf("mock %d is nil", i)
		}
		if err := validateStruct("mock", mock); err != nil {
			return fmt.Errorf("mock %d: %w", i, err)
		}
	}
	return nil
}

// mockDocument is the on-disk form of a mock fixture file. is_active
// defaults to true when omitted.
type mockDocument struct {
	Mocks []mockEntry `yaml:"mocks"`
}

type mockEntry struct {
	ID            string         `yaml:"id"`
	Integration   string         `yaml:"integration"`
	IsActive      *bool          `yaml:"is_active"`
	Priority      int            `yaml:"priority"`
	MockType      MockType       `yaml:"mock_type"`
	ResponseData  map[string]any `yaml:"response_data"`
	ErrorResponse map[string]any `yaml:"error_response"`
	DelayMs       int            `yaml:"delay_ms"`
}

func (e mockEntry) toMock() *Mock {
	mock := &Mock{
		ID:            e.ID,
		Integration:   e.Integration,
		IsActive:      e.IsActive == nil || *e.IsActive,
		Priority:      e.Priority,
		MockType:      e.MockType,
		ResponseData:  e.ResponseData,
		ErrorResponse: e.ErrorResponse,
		DelayMs:       e.DelayMs,
	}
	if mock.ID == "" {
		mock.ID = uuid.NewString()
	}
	return mock
}

// LoadMocksFile loads mocks from a YAML fixture file
func LoadMocksFile(path string) ([]*Mock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mocks file: %w", err)
	}
	return LoadMocks(data)
}

// LoadMocks parses a YAML (or JSON) fixture document of the form
// {mocks: [...]}. Mocks without an id are assigned one.
func LoadMocks(data []byte) ([]*Mock, error) {
	var doc mockDocument
	if err := decodeDocument("mocks", mocksDocumentSchema, data, &doc); err != nil {
		return nil, err
	}
	mocks := make([]*Mock, 0, len(doc.Mocks))
	for _, entry := range doc.Mocks {
		mocks = append(mocks, entry.toMock())
	}
	if err := ValidateMocks(mocks); err != nil {
		return nil, err
	}
	return mocks, nil
}
