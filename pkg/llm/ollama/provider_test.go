package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rfp-answer-engine/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendsSystemAndUserMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
		assert.Equal(t, "llama3", req.Model)
		assert.Equal(t, defaultKeepAlive, req.KeepAlive)
		assert.False(t, req.Stream)
		assert.Equal(t, 256, req.Options.NumPredict)
		assert.Equal(t, 0.1, req.Options.Temperature)
		_ = json.NewEncoder(w).Encode(chatResponse{Message: llm.Message{Role: "assistant", Content: "We retain data for 90 days."}, Done: true})
	}))
	defer srv.Close()

	out, err := llm.Complete(context.Background(), NewProvider(srv.URL+"/", "llama3", 0), "system", "user", 256, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "We retain data for 90 days.", out)
}

func TestChatMapsErrorResponses(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch status {
		case http.StatusOK:
			_ = json.NewEncoder(w).Encode(chatResponse{Message: llm.Message{Content: "  "}})
		default:
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "model \"llama9\" not found, try pulling it first"})
		}
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "llama9", 0)
	_, err := p.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, llm.ErrRateLimited)

	status = http.StatusNotFound
	_, err = p.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.Contains(t, err.Error(), "try pulling it first")

	status = http.StatusOK
	_, err = p.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestNormalizeRolesMapsModelTurns(t *testing.T) {
	in := []llm.Message{{Role: "model", Content: "a"}, {Role: llm.RoleUser, Content: "b"}}
	out := normalizeRoles(in)
	assert.Equal(t, llm.RoleAssistant, out[0].Role)
	assert.Equal(t, "model", in[0].Role)
}
