package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/planner"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

func TestHTTPScheduleProposerPostsPrompt(t *testing.T) {
	var received PromptContext
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weeks":[{"week":1,"days":{"MONDAY":[{"start":"06:00","end":"07:30","category":"study","label":"Essay"}]}}]}`))
	}))
	defer server.Close()

	proposer := NewHTTPScheduleProposer(HTTPProposerConfig{URL: server.URL + "/", APIKey: "key-1"}, nil)
	start := planner.DateOf(horizonMonday)
	weeks, err := proposer.ProposeSchedule(context.Background(), PromptContext{
		StudentID: "student-1",
		Model:     "fast",
		Request:   planner.Request{HorizonStart: start, HorizonWeeks: 1, Mode: planner.ModeNormal},
	})
	require.NoError(t, err)

	assert.Equal(t, "student-1", received.StudentID)
	assert.Equal(t, "fast", received.Model)
	assert.Equal(t, start, received.Request.HorizonStart)
	require.Len(t, weeks, 1)
	blocks := weeks[0].Days[planner.Monday]
	require.Len(t, blocks, 1)
	assert.Equal(t, 90, blocks[0].Minutes())
}

func TestHTTPScheduleProposerFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/garbage":
			_, _ = w.Write([]byte(`{"weeks":`))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"weeks":[]}`))
		}
	}))
	defer server.Close()

	t.Run("status", func(t *testing.T) {
		_, err := NewHTTPScheduleProposer(HTTPProposerConfig{URL: server.URL + "/down"}, nil).ProposeSchedule(context.Background(), PromptContext{})
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrProposerUnavailable.Code, appErr.Code)
	})

	t.Run("decode", func(t *testing.T) {
		_, err := NewHTTPScheduleProposer(HTTPProposerConfig{URL: server.URL + "/garbage"}, nil).ProposeSchedule(context.Background(), PromptContext{})
		assert.Error(t, err)
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewHTTPScheduleProposer(HTTPProposerConfig{URL: server.URL + "/slow"}, nil).ProposeSchedule(ctx, PromptContext{})
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, err := NewHTTPScheduleProposer(HTTPProposerConfig{}, nil).ProposeSchedule(context.Background(), PromptContext{})
		assert.Error(t, err)
	})
}

func TestProposalRunnerStopsOnCancelledContext(t *testing.T) {
	proposer := &proposerStub{err: errors.New("unused")}
	runner := proposalRunner{proposer: proposer, models: []string{"a", "b"}, timeout: time.Second, logger: newTestLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := runner.run(ctx, "student-1", planner.Request{})

	assert.False(t, outcome.Accepted)
	assert.Zero(t, outcome.Attempts)
	assert.Empty(t, proposer.models)
}
