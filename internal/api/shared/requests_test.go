package shared

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Index  int    `json:"index"  validate:"omitempty,min=1,max=4"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"prompt":"a cat","index":2}`},
		{name: "empty body", body: ``, wantErr: true},
		{name: "malformed", body: `{"prompt":`, wantErr: true},
		{name: "unknown field", body: `{"prompt":"x","extra":1}`, wantErr: true},
		{name: "trailing data", body: `{"prompt":"x"}{"prompt":"y"}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
			var req sampleRequest
			err := DecodeJSON(httptest.NewRecorder(), r, &req)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a cat", req.Prompt)
			assert.Equal(t, 2, req.Index)
		})
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	var req sampleRequest
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), r, &req), ErrEmptyBody)
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(&sampleRequest{Prompt: "x"}))
	assert.Error(t, ValidateRequest(&sampleRequest{}))
	assert.Error(t, ValidateRequest(&sampleRequest{Prompt: "x", Index: 9}))
}
