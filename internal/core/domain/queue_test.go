package domain_test

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fieldsync/internal/core/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.DeliveryState
		want     bool
	}{
		{domain.StatePending, domain.StateInFlight, true},
		{domain.StatePending, domain.StateDelivered, false},
		{domain.StateInFlight, domain.StateDelivered, true},
		{domain.StateInFlight, domain.StatePending, true},
		{domain.StateInFlight, domain.StateFailed, true},
		{domain.StateFailed, domain.StatePending, true},
		{domain.StateFailed, domain.StateDelivered, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}

	for _, to := range domain.DeliveryStates {
		assert.False(t, domain.CanTransition(domain.StateDelivered, to), "delivered must be terminal, moved to %s", to)
	}
}

func TestRecordKind_Validate(t *testing.T) {
	for _, k := range domain.RecordKinds {
		assert.NoError(t, k.Validate())
	}
	err := domain.RecordKind("invoice").Validate()
	assert.True(t, errors.Is(err, domain.ErrUnknownRecordKind))
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, domain.ValidatePayload(json.RawMessage(` {"a":1}`)))
	assert.True(t, errors.Is(domain.ValidatePayload(json.RawMessage(`[1]`)), domain.ErrInvalidPayload))
	assert.True(t, errors.Is(domain.ValidatePayload(json.RawMessage(`{"a":`)), domain.ErrInvalidPayload))
	assert.True(t, errors.Is(domain.ValidatePayload(nil), domain.ErrInvalidPayload))
}

func TestWithClientID(t *testing.T) {
	out, err := domain.WithClientID(json.RawMessage(`{"workerId":"w1","clientId":"old"}`), "abc")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "abc", got["clientId"])
	assert.Equal(t, "w1", got["workerId"])
}

func TestParseDeliveryState(t *testing.T) {
	st, err := domain.ParseDeliveryState("in-flight")
	require.NoError(t, err)
	assert.Equal(t, domain.StateInFlight, st)

	_, err = domain.ParseDeliveryState("lost")
	assert.Error(t, err)
}

func TestBatchResult_Accepted(t *testing.T) {
	res := domain.BatchResult{
		ProgressReports:  []string{"a"},
		AttendanceEvents: []string{"b", "c"},
	}
	assert.Len(t, res.Accepted(), 3)
	assert.Contains(t, res.Accepted(), "c")
}

func TestNewRequestIdentity(t *testing.T) {
	u, err := url.Parse("https://site.example.com/assets/app.js?v=2#top")
	require.NoError(t, err)

	id, err := domain.NewRequestIdentity("GET", u)
	require.NoError(t, err)
	assert.Equal(t, "https://site.example.com/assets/app.js?v=2", id.URL)
	assert.Equal(t, "GET https://site.example.com/assets/app.js?v=2", id.Key())

	_, err = domain.NewRequestIdentity("POST", u)
	assert.True(t, errors.Is(err, domain.ErrNotCacheable))
}

func TestCacheNamespace_Validate(t *testing.T) {
	assert.NoError(t, domain.CacheNamespace("fieldsync-v3").Validate())
	assert.Error(t, domain.CacheNamespace("").Validate())
	assert.Error(t, domain.CacheNamespace("../etc").Validate())
	assert.Error(t, domain.CacheNamespace("..").Validate())
}

func TestStorable(t *testing.T) {
	assert.True(t, domain.Storable(200))
	assert.True(t, domain.Storable(204))
	assert.False(t, domain.Storable(304))
	assert.False(t, domain.Storable(404))
	assert.False(t, domain.Storable(500))
}
