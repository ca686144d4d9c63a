package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/planner"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

// PromptContext is everything a generative proposer needs to draft a schedule.
type PromptContext struct {
	StudentID string          `json:"studentId"`
	Model     string          `json:"model,omitempty"`
	Request   planner.Request `json:"request"`
}

// ScheduleProposer drafts a candidate schedule that is always repaired before use.
type ScheduleProposer interface {
	ProposeSchedule(ctx context.Context, prompt PromptContext) ([]planner.WeekPlan, error)
}

// HTTPProposerConfig points the proposer at its endpoint.
type HTTPProposerConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// HTTPScheduleProposer posts the prompt context as JSON and expects {"weeks": [...]} back.
type HTTPScheduleProposer struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPScheduleProposer builds a proposer client. The per-attempt deadline comes from the caller's context.
func NewHTTPScheduleProposer(cfg HTTPProposerConfig, client *http.Client) *HTTPScheduleProposer {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPScheduleProposer{url: strings.TrimRight(cfg.URL, "/"), apiKey: cfg.APIKey, client: client}
}

type proposalEnvelope struct {
	Weeks []planner.WeekPlan `json:"weeks"`
}

// ProposeSchedule implements ScheduleProposer.
func (p *HTTPScheduleProposer) ProposeSchedule(ctx context.Context, prompt PromptContext) ([]planner.WeekPlan, error) {
	if p.url == "" {
		return nil, appErrors.Clone(appErrors.ErrProposerUnavailable, "proposer url not configured")
	}
	body, err := json.Marshal(prompt)
	if err != nil {
		return nil, fmt.Errorf("encode proposer prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build proposer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrProposerUnavailable.Code, appErrors.ErrProposerUnavailable.Status, "proposer request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, appErrors.Clone(appErrors.ErrProposerUnavailable, fmt.Sprintf("proposer responded with status %d", resp.StatusCode))
	}

	var envelope proposalEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode proposer response: %w", err)
	}
	return envelope.Weeks, nil
}

// ProposalOutcome is the result of trying the proposer before falling back.
type ProposalOutcome struct {
	Result   planner.Result
	Accepted bool
	Attempts int
	Model    string
	Reason   string
}

// proposalRunner tries each configured model once, bounded by maxAttempts,
// and accepts the first proposal that still holds study blocks after repair.
type proposalRunner struct {
	proposer    ScheduleProposer
	models      []string
	maxAttempts int
	timeout     time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
}

func (r *proposalRunner) run(ctx context.Context, studentID string, req planner.Request) ProposalOutcome {
	models := r.models
	if len(models) == 0 {
		models = []string{""}
	}
	attempts := r.maxAttempts
	if attempts <= 0 || attempts > len(models) {
		attempts = len(models)
	}

	outcome := ProposalOutcome{Reason: "no attempt made"}
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			outcome.Reason = ctx.Err().Error()
			break
		}
		model := models[i]
		outcome.Attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		weeks, err := r.proposer.ProposeSchedule(attemptCtx, PromptContext{StudentID: studentID, Model: model, Request: req})
		cancel()

		if err != nil {
			label := ProposerOutcomeError
			if errors.Is(err, context.DeadlineExceeded) {
				label = ProposerOutcomeTimeout
			}
			r.metrics.RecordProposerAttempt(label)
			r.logger.Warn("schedule proposer attempt failed",
				zap.String("student_id", studentID),
				zap.String("model", model),
				zap.Int("attempt", outcome.Attempts),
				zap.Error(err),
			)
			outcome.Reason = err.Error()
			continue
		}

		result, err := planner.AcceptProposal(req, weeks)
		if err != nil || result.StudyBlocks() == 0 {
			r.metrics.RecordProposerAttempt(ProposerOutcomeEmpty)
			r.logger.Warn("schedule proposal empty after repair",
				zap.String("student_id", studentID),
				zap.String("model", model),
				zap.Int("removed", len(result.Removed)),
			)
			outcome.Reason = "proposal had no usable study blocks"
			continue
		}

		r.metrics.RecordProposerAttempt(ProposerOutcomeAccepted)
		outcome.Result = result
		outcome.Accepted = true
		outcome.Model = model
		outcome.Reason = ""
		return outcome
	}
	return outcome
}
