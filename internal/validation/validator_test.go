// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestItemFixture struct {
	SessionID string `validate:"required,uuid4"`
	Ts        int64  `validate:"required,gt=0"`
	EventType string `validate:"required,oneof=TAB_SWITCH PASTE COPY FULLSCREEN_EXIT WINDOW_BLUR"`
	Details   string `validate:"omitempty,json_payload"`
}

func TestValidateStructPasses(t *testing.T) {
	item := ingestItemFixture{
		SessionID: "d94f3f01-7b6a-4e9c-9a7d-1c2b3a4d5e6f",
		Ts:        1756500000000,
		EventType: "TAB_SWITCH",
		Details:   `{"from":"exam","to":"search"}`,
	}

	assert.Nil(t, ValidateStruct(&item))
}

func TestValidateStructMissingFields(t *testing.T) {
	err := ValidateStruct(&ingestItemFixture{})
	require.NotNil(t, err)
	assert.Len(t, err.Errors(), 3)

	apiErr := err.ToAPIError()
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Message, "SessionID is required")
}

func TestValidateStructRejectsMalformedDetails(t *testing.T) {
	tests := []struct {
		name    string
		details string
		wantErr bool
	}{
		{"empty details pass", "", false},
		{"object passes", `{"key":"value"}`, false},
		{"array passes", `[{"from":"exam"},{"to":"search"}]`, false},
		{"scalar passes", `"text"`, false},
		{"number passes", `42`, false},
		{"malformed fails", `{"key":`, true},
		{"trailing garbage fails", `{"key":1} extra`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ingestItemFixture{
				SessionID: "d94f3f01-7b6a-4e9c-9a7d-1c2b3a4d5e6f",
				Ts:        1756500000000,
				EventType: "PASTE",
				Details:   tt.details,
			}
			err := ValidateStruct(&item)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, "json_payload", err.Errors()[0].Tag())
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestIsValidJSON(t *testing.T) {
	assert.True(t, IsValidJSON(nil))
	assert.True(t, IsValidJSON([]byte(`{}`)))
	assert.True(t, IsValidJSON([]byte(`{"nested":{"a":1}}`)))
	assert.True(t, IsValidJSON([]byte(`[{"from":"exam"},{"to":"search"}]`)))
	assert.True(t, IsValidJSON([]byte(`"note"`)))
	assert.True(t, IsValidJSON([]byte(`42`)))
	assert.False(t, IsValidJSON([]byte(`not json`)))
	assert.False(t, IsValidJSON([]byte(`{"key":`)))
}

func TestSingleErrorDetails(t *testing.T) {
	item := ingestItemFixture{
		SessionID: "not-a-uuid",
		Ts:        1756500000000,
		EventType: "PASTE",
	}

	err := ValidateStruct(&item)
	require.NotNil(t, err)
	require.Len(t, err.Errors(), 1)

	apiErr := err.ToAPIError()
	assert.Equal(t, "SessionID", apiErr.Details["field"])
	assert.Equal(t, "uuid4", apiErr.Details["tag"])
}
