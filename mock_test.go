package processmap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveMock(t *testing.T) {
	first := &Mock{ID: "first", Integration: "crm", IsActive: true, Priority: 2, MockType: MockTypeSuccess}
	second := &Mock{ID: "second", Integration: "crm", IsActive: true, Priority: 2, MockType: MockTypeError}
	low := &Mock{ID: "low", Integration: "crm", IsActive: true, Priority: -1, MockType: MockTypeSuccess}
	inactive := &Mock{ID: "inactive", Integration: "crm", IsActive: false, Priority: 10, MockType: MockTypeSuccess}

	t.Run("ties go to the first mock", func(t *testing.T) {
		require.Same(t, first, ResolveMock("crm", []*Mock{low, first, inactive, second}))
		require.Same(t, second, ResolveMock("crm", []*Mock{second, first}))
	})

	t.Run("negative priorities still match", func(t *testing.T) {
		require.Same(t, low, ResolveMock("crm", []*Mock{inactive, low}))
	})

	t.Run("no match", func(t *testing.T) {
		require.Nil(t, ResolveMock("erp", []*Mock{first, second}))
		require.Nil(t, ResolveMock("crm", []*Mock{inactive}))
		require.Nil(t, ResolveMock("crm", nil))
		require.Nil(t, ResolveMock("crm", []*Mock{nil}))
	})

	t.Run("empty integration never matches", func(t *testing.T) {
		blank := &Mock{Integration: "", IsActive: true, MockType: MockTypeSuccess}
		require.Nil(t, ResolveMock("", []*Mock{blank}))
	})
}

func TestMockType(t *testing.T) {
	require.False(t, MockTypeSuccess.IsFault())
	for _, mockType := range []MockType{MockTypeError, MockTypeTimeout, MockTypeRateLimit, MockTypeAuthFailure} {
		require.True(t, mockType.IsFault(), mockType)
	}
	require.Equal(t, 1500*time.Millisecond, (&Mock{DelayMs: 1500}).Delay())
}

const mocksYAML = `
mocks:
  - id: crm-ok
    integration: crm
    priority: 1
    mock_type: success
    response_data:
      customer_id: c-1
  - integration: stripe
    mock_type: rate_limit
    is_active: false
    delay_ms: 25
    error_response:
      status: 429
`

func TestLoadMocks(t *testing.T) {
	mocks, err := LoadMocks([]byte(mocksYAML))
	require.NoError(t, err)
	require.Len(t, mocks, 2)

	crm := mocks[0]
	require.Equal(t, "crm-ok", crm.ID)
	require.True(t, crm.IsActive)
	require.Equal(t, 1, crm.Priority)
	require.Equal(t, MockTypeSuccess, crm.MockType)
	require.Equal(t, "c-1", crm.ResponseData["customer_id"])

	stripe := mocks[1]
	require.NotEmpty(t, stripe.ID)
	require.False(t, stripe.IsActive)
	require.Equal(t, 25, stripe.DelayMs)
	require.Equal(t, 429, stripe.ErrorResponse["status"])
}

func TestLoadMocksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mocks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mocksYAML), 0644))

	mocks, err := LoadMocksFile(path)
	require.NoError(t, err)
	require.Len(t, mocks, 2)
}

func TestLoadMocksInvalid(t *testing.T) {
	tests := map[string]string{
		"missing mocks key":   "other: []",
		"unknown mock type":   "mocks: [{integration: crm, mock_type: explode}]",
		"missing integration": "mocks: [{mock_type: success}]",
		"negative delay":      "mocks: [{integration: crm, mock_type: success, delay_ms: -5}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMocks([]byte(doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid mocks document")
		})
	}
}

func TestValidateMocks(t *testing.T) {
	require.NoError(t, ValidateMocks(nil))
	require.NoError(t, ValidateMocks([]*Mock{{Integration: "crm", MockType: MockTypeTimeout}}))
	require.Error(t, ValidateMocks([]*Mock{nil}))
	require.Error(t, ValidateMocks([]*Mock{{MockType: MockTypeSuccess}}))
	require.Error(t, ValidateMocks([]*Mock{{Integration: "crm", MockType: MockTypeSuccess, DelayMs: -1}}))
}
