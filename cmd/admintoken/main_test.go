package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-assistant-backend/internal/middleware"
)

func TestAdminToken_PassesRulesAuth(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand(&out, "secret")
	cmd.SetArgs([]string{"--subject", "ops", "--ttl", "1h"})

	require.NoError(t, cmd.Execute())
	token := strings.TrimSpace(out.String())
	require.NotEmpty(t, token)

	var subject string
	h := middleware.NewJWTAuth("secret").Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = middleware.GetAdminSubject(r.Context())
	}))
	req := httptest.NewRequest(http.MethodPost, "/gemini-ai/rules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ops", subject)
}

func TestAdminToken_Errors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		args   []string
	}{
		{"missing secret", "", []string{"--subject", "ops"}},
		{"missing subject", "secret", nil},
		{"non-positive ttl", "secret", []string{"--subject", "ops", "--ttl", "0s"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCommand(&out, tc.secret)
			cmd.SetArgs(tc.args)
			cmd.SetErr(&bytes.Buffer{})

			assert.Error(t, cmd.Execute())
			assert.Empty(t, out.String())
		})
	}
}
