package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/planner"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type deadlineReader interface {
	ListOpenByStudent(ctx context.Context, studentID string, from time.Time) ([]models.Deadline, error)
}

type timetableReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.TimetableEntry, error)
}

type studyPreferenceReader interface {
	GetByStudent(ctx context.Context, studentID string) (*models.StudyPreference, error)
}

type studySessionStore interface {
	ListByStudentRange(ctx context.Context, studentID string, from, to time.Time, lockedOnly bool) ([]models.StudySession, error)
	ReplaceDay(ctx context.Context, exec sqlx.ExtContext, studentID string, date time.Time, sessions []models.StudySession) error
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// StudyScheduleConfig governs horizon defaults and the proposer path.
type StudyScheduleConfig struct {
	HorizonWeeks        int
	MaxHorizonWeeks     int
	MinSessionMinutes   int
	MaxSessionMinutes   int
	Location            *time.Location
	CacheTTL            time.Duration
	ProposerEnabled     bool
	ProposerModels      []string
	ProposerTimeout     time.Duration
	ProposerMaxAttempts int
}

// StudyScheduleService loads a student's planning inputs, runs the engine and stores the result.
type StudyScheduleService struct {
	deadlines deadlineReader
	timetable timetableReader
	prefs     studyPreferenceReader
	sessions  studySessionStore
	cache     scheduleCache
	tx        txProvider
	proposer  ScheduleProposer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudyScheduleConfig
	now       func() time.Time
}

// NewStudyScheduleService wires the schedule pipeline.
func NewStudyScheduleService(
	deadlines deadlineReader,
	timetable timetableReader,
	prefs studyPreferenceReader,
	sessions studySessionStore,
	cache scheduleCache,
	tx txProvider,
	proposer ScheduleProposer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg StudyScheduleConfig,
) *StudyScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HorizonWeeks <= 0 {
		cfg.HorizonWeeks = 2
	}
	if cfg.MaxHorizonWeeks <= 0 {
		cfg.MaxHorizonWeeks = 12
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.ProposerTimeout <= 0 {
		cfg.ProposerTimeout = 20 * time.Second
	}
	return &StudyScheduleService{
		deadlines: deadlines,
		timetable: timetable,
		prefs:     prefs,
		sessions:  sessions,
		cache:     cache,
		tx:        tx,
		proposer:  proposer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// inputSet selects which stored inputs a call needs.
type inputSet struct {
	deadlines bool
	timetable bool
	locked    bool
}

// plannerInputs is what one run loads before the engine starts.
type plannerInputs struct {
	deadlines []models.Deadline
	timetable []models.TimetableEntry
	pref      *models.StudyPreference
	locked    []models.StudySession
}

// Generate builds a schedule for the student over the requested horizon.
func (s *StudyScheduleService) Generate(ctx context.Context, studentID string, req dto.GenerateStudyScheduleRequest) (*dto.StudyScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid study schedule payload")
	}
	start, err := s.horizonStart(req.HorizonStart)
	if err != nil {
		return nil, err
	}
	weeks := req.HorizonWeeks
	if weeks == 0 {
		weeks = s.cfg.HorizonWeeks
	}
	if weeks > s.cfg.MaxHorizonWeeks {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("horizonWeeks may not exceed %d", s.cfg.MaxHorizonWeeks))
	}

	plannerReq := planner.Request{
		HorizonStart: start,
		HorizonWeeks: weeks,
		Mode:         planner.ModeNormal,
		Session:      planner.SessionBounds{MinMinutes: s.cfg.MinSessionMinutes, MaxMinutes: s.cfg.MaxSessionMinutes},
	}
	inputs, err := s.loadInputs(ctx, studentID, plannerReq, inputSet{
		deadlines: len(req.Deadlines) == 0,
		timetable: len(req.Timetable) == 0,
		locked:    true,
	})
	if err != nil {
		return nil, err
	}

	applyPreference(&plannerReq, inputs.pref)
	if err := applyOverrides(&plannerReq, req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	var warnings []string
	if plannerReq.Deadlines, warnings, err = s.resolveDeadlines(req.Deadlines, inputs.deadlines, start); err != nil {
		return nil, err
	}
	if plannerReq.Timetable, err = resolveTimetable(req.Timetable, inputs.timetable); err != nil {
		return nil, err
	}
	if plannerReq.Committed, err = sessionsToBlocks(inputs.locked); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read committed sessions")
	}
	if err := planner.ValidateRequest(plannerReq, s.cfg.MaxHorizonWeeks); err != nil {
		return nil, plannerError(err)
	}

	useProposer := req.UseProposer && s.cfg.ProposerEnabled && s.proposer != nil
	key := scheduleCacheKey(studentID, plannerReq, useProposer)
	var resp *dto.StudyScheduleResponse
	if s.cache != nil {
		var cached dto.StudyScheduleResponse
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			cached.Cached = true
			resp = &cached
		}
	}

	if resp == nil {
		resp, err = s.run(ctx, studentID, plannerReq, useProposer)
		if err != nil {
			return nil, err
		}
		resp.Warnings = append(warnings, resp.Warnings...)
	}

	if req.Persist {
		if err := s.persist(ctx, studentID, resp.GenerationID, resp.Source, plannerReq.Dates(), resp.Weeks); err != nil {
			return nil, err
		}
		resp.Persisted = true
		if s.cache != nil {
			_ = s.cache.Invalidate(ctx, studentCachePattern(studentID))
		}
	}

	if s.cache != nil && !resp.Cached {
		stored := *resp
		stored.Persisted = false
		_ = s.cache.Set(ctx, key, stored, s.cfg.CacheTTL)
	}
	return resp, nil
}

// run executes one generation, trying the proposer first when asked.
func (s *StudyScheduleService) run(ctx context.Context, studentID string, req planner.Request, useProposer bool) (*dto.StudyScheduleResponse, error) {
	started := time.Now()
	resp := &dto.StudyScheduleResponse{
		GenerationID: uuid.NewString(),
		GeneratedAt:  s.now().UTC(),
		HorizonStart: req.HorizonStart.String(),
		HorizonEnd:   req.HorizonEnd().AddDays(-1).String(),
		Mode:         string(req.Mode),
	}

	if useProposer {
		runner := proposalRunner{
			proposer:    s.proposer,
			models:      s.cfg.ProposerModels,
			maxAttempts: s.cfg.ProposerMaxAttempts,
			timeout:     s.cfg.ProposerTimeout,
			metrics:     s.metrics,
			logger:      s.logger,
		}
		outcome := runner.run(ctx, studentID, req)
		resp.ProposerAttempts = outcome.Attempts
		if outcome.Accepted {
			resp.Result = outcome.Result
		} else {
			s.metrics.RecordProposerFallback()
			s.logger.Info("falling back to deterministic schedule",
				zap.String("student_id", studentID),
				zap.Int("attempts", outcome.Attempts),
				zap.String("reason", outcome.Reason),
			)
		}
	}

	if resp.Source == "" {
		result, err := planner.GenerateSchedule(req)
		if err != nil {
			return nil, plannerError(err)
		}
		resp.Result = result
	}

	s.metrics.ObservePlannerRun(string(resp.Source), len(resp.InfeasibleDeadlineIDs), time.Since(started))
	if len(resp.InfeasibleDeadlineIDs) > 0 {
		s.logger.Warn("deadlines could not be scheduled",
			zap.String("student_id", studentID),
			zap.Strings("deadline_ids", resp.InfeasibleDeadlineIDs),
		)
	}
	return resp, nil
}

// Validate repairs a client-supplied schedule against the student's commitments.
func (s *StudyScheduleService) Validate(ctx context.Context, studentID string, req dto.ValidateStudyScheduleRequest) (*dto.ValidateStudyScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule validation payload")
	}
	raw := req.HorizonStart
	if raw == "" && !req.Weeks[0].StartDate.IsZero() {
		raw = req.Weeks[0].StartDate.String()
	}
	start, err := s.horizonStart(raw)
	if err != nil {
		return nil, err
	}

	plannerReq := planner.Request{
		HorizonStart: start,
		HorizonWeeks: len(req.Weeks),
		Mode:         planner.ModeNormal,
		Session:      planner.SessionBounds{MinMinutes: s.cfg.MinSessionMinutes, MaxMinutes: s.cfg.MaxSessionMinutes},
	}
	inputs, err := s.loadInputs(ctx, studentID, plannerReq, inputSet{deadlines: len(req.Deadlines) == 0, timetable: true})
	if err != nil {
		return nil, err
	}
	applyPreference(&plannerReq, inputs.pref)
	if req.Mode != "" {
		if plannerReq.Mode, err = planner.ParseStudyMode(req.Mode); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}
	if plannerReq.Deadlines, _, err = s.resolveDeadlines(req.Deadlines, inputs.deadlines, start); err != nil {
		return nil, err
	}
	if plannerReq.Timetable, err = timetableFromModels(inputs.timetable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read timetable")
	}

	repaired := planner.ValidateSchedule(req.Weeks, plannerReq.Deadlines, start, plannerReq.Constraints())
	if len(repaired.Removed) > 0 {
		s.logger.Info("schedule repaired",
			zap.String("student_id", studentID),
			zap.Int("removed", len(repaired.Removed)),
		)
	}
	return &dto.ValidateStudyScheduleResponse{HorizonStart: start.String(), RepairResult: repaired}, nil
}

// List returns the persisted schedule between from and to inclusive.
func (s *StudyScheduleService) List(ctx context.Context, studentID string, query dto.StudyScheduleQuery) (*dto.StoredScheduleResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule query")
	}
	from, err := s.horizonStart(query.From)
	if err != nil {
		return nil, err
	}
	to := from.AddDays(7*s.cfg.HorizonWeeks - 1)
	if query.To != "" {
		if to, err = planner.ParseDate(query.To); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	weeks := (from.DaysUntil(to) + 7) / 7
	if weeks > s.cfg.MaxHorizonWeeks {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range may not exceed %d weeks", s.cfg.MaxHorizonWeeks))
	}
	if s.sessions == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "schedule storage unavailable")
	}

	rows, err := s.sessions.ListByStudentRange(ctx, studentID, from.Time(), to.AddDays(1).Time(), false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study sessions")
	}
	blocks, err := sessionsToBlocks(rows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read study sessions")
	}
	return &dto.StoredScheduleResponse{
		From:  from.String(),
		To:    to.String(),
		Weeks: planner.GroupWeeks(blocks, from, weeks),
	}, nil
}

// loadInputs reads the stored planning inputs in parallel. Any reader left nil is skipped.
func (s *StudyScheduleService) loadInputs(ctx context.Context, studentID string, req planner.Request, want inputSet) (plannerInputs, error) {
	var in plannerInputs
	g, gctx := errgroup.WithContext(ctx)

	if want.deadlines && s.deadlines != nil {
		g.Go(func() error {
			rows, err := s.deadlines.ListOpenByStudent(gctx, studentID, req.HorizonStart.Time())
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deadlines")
			}
			in.deadlines = rows
			return nil
		})
	}
	if want.timetable && s.timetable != nil {
		g.Go(func() error {
			rows, err := s.timetable.ListByStudent(gctx, studentID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
			}
			in.timetable = rows
			return nil
		})
	}
	if s.prefs != nil {
		g.Go(func() error {
			pref, err := s.prefs.GetByStudent(gctx, studentID)
			if err != nil {
				if errors.Is(err, appErrors.ErrNotFound) {
					return nil
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study preferences")
			}
			in.pref = pref
			return nil
		})
	}
	if want.locked && s.sessions != nil {
		g.Go(func() error {
			rows, err := s.sessions.ListByStudentRange(gctx, studentID, req.HorizonStart.Time(), req.HorizonEnd().Time(), true)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committed sessions")
			}
			in.locked = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("load planner inputs", zap.String("student_id", studentID), zap.Error(err))
		return plannerInputs{}, err
	}
	return in, nil
}

// resolveDeadlines rejects submitted deadlines that are already past due;
// stored ones are skipped with a warning instead.
func (s *StudyScheduleService) resolveDeadlines(inline []dto.DeadlineInput, stored []models.Deadline, start planner.Date) ([]planner.Deadline, []string, error) {
	if len(inline) > 0 {
		deadlines, err := deadlinesFromInput(inline)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		if err := rejectPastDue(deadlines, start); err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return deadlines, nil, nil
	}

	deadlines, err := deadlinesFromModels(stored)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read deadlines")
	}
	deadlines, warnings := dropPastDue(deadlines, start)
	for _, w := range warnings {
		s.logger.Info("deadline skipped", zap.String("reason", w))
	}
	return deadlines, warnings, nil
}

func resolveTimetable(inline []dto.TimetableEntryInput, stored []models.TimetableEntry) ([]planner.FixedCommitment, error) {
	if len(inline) > 0 {
		entries, err := timetableFromInput(inline)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return entries, nil
	}
	entries, err := timetableFromModels(stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read timetable")
	}
	return entries, nil
}

// persist replaces the unlocked sessions of every horizon date in one transaction.
func (s *StudyScheduleService) persist(ctx context.Context, studentID, generationID string, source planner.Source, dates []planner.Date, weeks []planner.WeekPlan) (err error) {
	if s.tx == nil || s.sessions == nil {
		return appErrors.Clone(appErrors.ErrInternal, "schedule storage unavailable")
	}
	byDate := sessionsByDate(weeks, generationID, source)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	started := time.Now()
	for _, date := range dates {
		if err = s.sessions.ReplaceDay(ctx, tx, studentID, date.Time(), byDate[date]); err != nil {
			s.logger.Error("persist study sessions", zap.String("student_id", studentID), zap.String("date", date.String()), zap.Error(err))
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule")
		return err
	}
	s.metrics.ObserveDBQuery("study_sessions_replace", time.Since(started))
	return nil
}

// horizonStart parses raw or falls back to today in the configured timezone.
func (s *StudyScheduleService) horizonStart(raw string) (planner.Date, error) {
	if raw == "" {
		return planner.DateOf(s.now().In(s.cfg.Location)), nil
	}
	date, err := planner.ParseDate(raw)
	if err != nil {
		return planner.Date{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return date, nil
}

func plannerError(err error) error {
	if errors.Is(err, planner.ErrInvalidInput) {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
}

func scheduleCacheKey(studentID string, req planner.Request, useProposer bool) string {
	payload, _ := json.Marshal(struct {
		Request     planner.Request `json:"request"`
		UseProposer bool            `json:"useProposer"`
	}{req, useProposer})
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("planner:%s:%s", studentID, hex.EncodeToString(sum[:16]))
}

func studentCachePattern(studentID string) string {
	return fmt.Sprintf("planner:%s:*", studentID)
}
