package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-edu/atelier/pkg/apperr"
)

func chatAnswer(content string) any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"role": "assistant", "content": content},
			},
		},
	}
}

func TestClientPropose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body chatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 1)
		assert.Contains(t, body.Messages[0].Content, "Apollo")

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(chatAnswer(
			`[{"teamName": "Apollo", "assignedProject": "Alpha"}]`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL, APIKey: "test-key", Model: "test-model"})
	rows, err := client.Propose(context.Background(), []TeamPreference{
		{TeamName: "Apollo", ProjectName: "Alpha", Motivation: "We like distributed systems."},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Assignment{TeamName: "Apollo", AssignedProject: "Alpha"}, rows[0])
}

func TestClientProposeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL, RetryCount: 2, Timeout: 2 * time.Second})
	_, err := client.Propose(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func TestClientProposeMalformedAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatAnswer("I cannot decide."))
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL})
	_, err := client.Propose(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}
