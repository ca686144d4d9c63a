package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/planner"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

var horizonMonday = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

type deadlineReaderStub struct {
	rows  []models.Deadline
	err   error
	calls int
}

func (s *deadlineReaderStub) ListOpenByStudent(ctx context.Context, studentID string, from time.Time) ([]models.Deadline, error) {
	s.calls++
	return s.rows, s.err
}

type timetableReaderStub struct {
	rows []models.TimetableEntry
}

func (s *timetableReaderStub) ListByStudent(ctx context.Context, studentID string) ([]models.TimetableEntry, error) {
	return s.rows, nil
}

type preferenceReaderStub struct {
	pref *models.StudyPreference
}

func (s *preferenceReaderStub) GetByStudent(ctx context.Context, studentID string) (*models.StudyPreference, error) {
	if s.pref == nil {
		return nil, appErrors.ErrNotFound
	}
	return s.pref, nil
}

type sessionStoreStub struct {
	mu       sync.Mutex
	rows     []models.StudySession
	replaced map[string][]models.StudySession
	err      error
}

func (s *sessionStoreStub) ListByStudentRange(ctx context.Context, studentID string, from, to time.Time, lockedOnly bool) ([]models.StudySession, error) {
	var out []models.StudySession
	for _, row := range s.rows {
		if lockedOnly && !row.Locked {
			continue
		}
		if row.SessionDate.Before(from) || !row.SessionDate.Before(to) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *sessionStoreStub) ReplaceDay(ctx context.Context, exec sqlx.ExtContext, studentID string, date time.Time, sessions []models.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.replaced == nil {
		s.replaced = make(map[string][]models.StudySession)
	}
	s.replaced[date.Format("2006-01-02")] = sessions
	return nil
}

type memoryCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

type proposerStub struct {
	weeks  []planner.WeekPlan
	err    error
	block  bool
	models []string
}

func (p *proposerStub) ProposeSchedule(ctx context.Context, prompt PromptContext) ([]planner.WeekPlan, error) {
	p.models = append(p.models, prompt.Model)
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.weeks, p.err
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type scheduleFixture struct {
	deadlines *deadlineReaderStub
	sessions  *sessionStoreStub
	prefs     *preferenceReaderStub
	cache     *memoryCache
	tx        txProvider
	proposer  ScheduleProposer
	metrics   *MetricsService
	cfg       StudyScheduleConfig
}

func essayDeadline() models.Deadline {
	return models.Deadline{
		ID:            "d1",
		StudentID:     "student-1",
		Title:         "Essay",
		DueDate:       horizonMonday.AddDate(0, 0, 3),
		RequiredHours: 6,
		Kind:          models.DeadlineKindFlexible,
	}
}

func newStudyScheduleFixture(f scheduleFixture) *StudyScheduleService {
	if f.deadlines == nil {
		f.deadlines = &deadlineReaderStub{rows: []models.Deadline{essayDeadline()}}
	}
	if f.sessions == nil {
		f.sessions = &sessionStoreStub{}
	}
	if f.prefs == nil {
		f.prefs = &preferenceReaderStub{}
	}
	var cache scheduleCache
	if f.cache != nil {
		cache = f.cache
	}
	svc := NewStudyScheduleService(f.deadlines, &timetableReaderStub{}, f.prefs, f.sessions, cache, f.tx, f.proposer, f.metrics, nil, nil, f.cfg)
	svc.now = func() time.Time { return horizonMonday.Add(9 * time.Hour) }
	return svc
}

func studyMinutes(weeks []planner.WeekPlan, locked bool) int {
	total := 0
	for _, week := range weeks {
		for _, block := range week.Blocks() {
			if block.IsStudy() && block.Locked == locked {
				total += block.Minutes()
			}
		}
	}
	return total
}

func TestStudyScheduleServiceGenerateFromStoredInputs(t *testing.T) {
	metrics := NewMetricsService()
	svc := newStudyScheduleFixture(scheduleFixture{metrics: metrics})

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{})
	require.NoError(t, err)

	assert.Equal(t, planner.SourceDeterministic, resp.Source)
	assert.Equal(t, "2024-09-02", resp.HorizonStart)
	assert.Equal(t, "2024-09-15", resp.HorizonEnd)
	assert.Equal(t, "normal", resp.Mode)
	assert.NotEmpty(t, resp.GenerationID)
	assert.Empty(t, resp.InfeasibleDeadlineIDs)
	assert.Len(t, resp.Weeks, 2)
	assert.Equal(t, 360, studyMinutes(resp.Weeks, false))
	require.Len(t, resp.Reconciliation, 1)
	assert.Equal(t, planner.StatusMet, resp.Reconciliation[0].Status)
	assert.False(t, resp.Cached)
	assert.Equal(t, uint64(1), metrics.Snapshot().PlannerRuns)
}

func TestStudyScheduleServiceInlineDeadlinesSkipRepository(t *testing.T) {
	deadlines := &deadlineReaderStub{}
	svc := newStudyScheduleFixture(scheduleFixture{deadlines: deadlines})

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{
		HorizonStart: "2024-09-02",
		HorizonWeeks: 1,
		Mode:         "sprint",
		Deadlines: []dto.DeadlineInput{
			{ID: "a", Title: "Lab report", DueDate: "2024-09-04", RequiredHours: 2},
		},
	})
	require.NoError(t, err)

	assert.Zero(t, deadlines.calls)
	assert.Equal(t, "sprint", resp.Mode)
	assert.Equal(t, 120, studyMinutes(resp.Weeks, false))
	assert.Empty(t, resp.Warnings)
}

func TestStudyScheduleServiceRejectsPastDueInlineDeadline(t *testing.T) {
	svc := newStudyScheduleFixture(scheduleFixture{})

	_, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{
		HorizonStart: "2024-09-02",
		HorizonWeeks: 1,
		Deadlines: []dto.DeadlineInput{
			{ID: "a", Title: "Lab report", DueDate: "2024-09-04", RequiredHours: 2},
			{ID: "old", Title: "Old quiz", DueDate: "2024-08-30", RequiredHours: 1},
		},
	})

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "got %v", err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "old")
}

func TestStudyScheduleServiceSkipsPastDueStoredDeadline(t *testing.T) {
	old := essayDeadline()
	old.ID = "d0"
	old.Title = "Old quiz"
	old.DueDate = horizonMonday.AddDate(0, 0, -3)
	svc := newStudyScheduleFixture(scheduleFixture{
		deadlines: &deadlineReaderStub{rows: []models.Deadline{essayDeadline(), old}},
	})

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1})
	require.NoError(t, err)

	assert.Equal(t, 360, studyMinutes(resp.Weeks, false))
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "Old quiz")
}

func TestStudyScheduleServiceGenerateValidation(t *testing.T) {
	svc := newStudyScheduleFixture(scheduleFixture{cfg: StudyScheduleConfig{MaxHorizonWeeks: 4}})

	cases := map[string]dto.GenerateStudyScheduleRequest{
		"bad mode":          {Mode: "cram"},
		"horizon too long":  {HorizonWeeks: 6},
		"bad start":         {HorizonStart: "02/09/2024"},
		"non-positive hrs":  {Deadlines: []dto.DeadlineInput{{ID: "x", Title: "Read", DueDate: "2024-09-05"}}},
		"bad timetable day": {Timetable: []dto.TimetableEntryInput{{Day: "FUNDAY", Start: "08:00", End: "09:00", Label: "Gym"}}},
		"class ends early":  {Timetable: []dto.TimetableEntryInput{{Day: "MONDAY", Start: "10:00", End: "09:00", Label: "Gym"}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), "student-1", req)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
}

func TestStudyScheduleServiceLoadErrorsAreInternal(t *testing.T) {
	svc := newStudyScheduleFixture(scheduleFixture{deadlines: &deadlineReaderStub{err: errors.New("db down")}})

	_, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestStudyScheduleServiceAppliesPreferences(t *testing.T) {
	svc := newStudyScheduleFixture(scheduleFixture{prefs: &preferenceReaderStub{pref: &models.StudyPreference{
		StudentID:       "student-1",
		Mode:            "relaxed",
		DailyCapHours:   1,
		NoStudyOnSunday: true,
	}}})

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1})
	require.NoError(t, err)

	assert.Equal(t, "relaxed", resp.Mode)
	// Three study days at one hour each leave the essay three hours short.
	assert.Equal(t, 180, studyMinutes(resp.Weeks, false))
	require.Len(t, resp.Reconciliation, 1)
	assert.Equal(t, planner.StatusUnder, resp.Reconciliation[0].Status)
}

func TestStudyScheduleServiceCommittedSessionsReduceTarget(t *testing.T) {
	deadlineID := "d1"
	sessions := &sessionStoreStub{rows: []models.StudySession{{
		ID:          "s-1",
		SessionDate: horizonMonday,
		StartTime:   "06:00:00",
		EndTime:     "08:00:00",
		Category:    "study",
		DeadlineID:  &deadlineID,
		Label:       "Essay draft",
		Locked:      true,
	}}}
	svc := newStudyScheduleFixture(scheduleFixture{sessions: sessions})

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1})
	require.NoError(t, err)

	assert.Equal(t, 120, studyMinutes(resp.Weeks, true))
	assert.Equal(t, 240, studyMinutes(resp.Weeks, false))
	assert.Equal(t, planner.StatusMet, resp.Reconciliation[0].Status)
}

func TestStudyScheduleServiceProposerAccepted(t *testing.T) {
	proposer := &proposerStub{weeks: []planner.WeekPlan{{
		Week: 1,
		Days: map[planner.Weekday][]planner.SessionBlock{
			planner.Monday: {{Start: planner.MustClock("06:00"), End: planner.MustClock("08:00"), Category: planner.CategoryStudy, Label: "Essay outline"}},
		},
	}}}
	svc := newStudyScheduleFixture(scheduleFixture{
		proposer: proposer,
		cfg:      StudyScheduleConfig{ProposerEnabled: true, ProposerModels: []string{"fast"}},
	})

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1, UseProposer: true})
	require.NoError(t, err)

	assert.Equal(t, planner.SourceProposer, resp.Source)
	assert.Equal(t, 1, resp.ProposerAttempts)
	assert.Equal(t, []string{"fast"}, proposer.models)
	require.Len(t, resp.Reconciliation, 1)
	assert.Equal(t, "d1", resp.Reconciliation[0].DeadlineID)
	assert.Equal(t, planner.StatusUnder, resp.Reconciliation[0].Status)
}

func TestStudyScheduleServiceProposerFallback(t *testing.T) {
	cases := map[string]struct {
		proposer *proposerStub
		attempts int
	}{
		"errors":  {proposer: &proposerStub{err: errors.New("model overloaded")}, attempts: 2},
		"empty":   {proposer: &proposerStub{}, attempts: 2},
		"timeout": {proposer: &proposerStub{block: true}, attempts: 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			metrics := NewMetricsService()
			svc := newStudyScheduleFixture(scheduleFixture{
				proposer: tc.proposer,
				metrics:  metrics,
				cfg: StudyScheduleConfig{
					ProposerEnabled:     true,
					ProposerModels:      []string{"fast", "careful"},
					ProposerMaxAttempts: 5,
					ProposerTimeout:     10 * time.Millisecond,
				},
			})

			resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1, UseProposer: true})
			require.NoError(t, err)

			assert.Equal(t, planner.SourceDeterministic, resp.Source)
			assert.Equal(t, tc.attempts, resp.ProposerAttempts)
			assert.Equal(t, []string{"fast", "careful"}, tc.proposer.models)
			assert.Equal(t, 360, studyMinutes(resp.Weeks, false))
			assert.Equal(t, uint64(1), metrics.Snapshot().ProposerFallbacks)
		})
	}
}

func TestStudyScheduleServiceProposerDisabled(t *testing.T) {
	proposer := &proposerStub{err: errors.New("should not be called")}
	svc := newStudyScheduleFixture(scheduleFixture{proposer: proposer})

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{UseProposer: true})
	require.NoError(t, err)
	assert.Empty(t, proposer.models)
	assert.Zero(t, resp.ProposerAttempts)
}

func TestStudyScheduleServiceCachesResults(t *testing.T) {
	cache := newMemoryCache()
	svc := newStudyScheduleFixture(scheduleFixture{cache: cache})

	first, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1})
	require.NoError(t, err)
	require.Len(t, cache.entries, 1)
	for key := range cache.entries {
		assert.True(t, strings.HasPrefix(key, "planner:student-1:"))
	}

	second, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.GenerationID, second.GenerationID)
	assert.Equal(t, studyMinutes(first.Weeks, false), studyMinutes(second.Weeks, false))

	third, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1, Mode: "sprint"})
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestStudyScheduleServicePersist(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	deadlineID := "d1"
	sessions := &sessionStoreStub{rows: []models.StudySession{{
		ID:          "s-1",
		SessionDate: horizonMonday,
		StartTime:   "06:00",
		EndTime:     "07:00",
		Category:    "study",
		DeadlineID:  &deadlineID,
		Label:       "Essay reading",
		Locked:      true,
	}}}
	cache := newMemoryCache()
	svc := newStudyScheduleFixture(scheduleFixture{tx: tx, sessions: sessions, cache: cache})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1, Persist: true})
	require.NoError(t, err)
	assert.True(t, resp.Persisted)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"planner:student-1:*"}, cache.invalidated)

	require.Len(t, sessions.replaced, 7)
	persistedStudy := 0
	for date, rows := range sessions.replaced {
		for _, row := range rows {
			assert.Equal(t, date, row.SessionDate.Format("2006-01-02"))
			assert.False(t, row.Locked)
			assert.Equal(t, models.StudySessionSourceDeterministic, row.Source)
			require.NotNil(t, row.GenerationID)
			assert.Equal(t, resp.GenerationID, *row.GenerationID)
			if row.Category == "study" {
				persistedStudy++
				require.NotNil(t, row.DeadlineID)
				assert.Equal(t, "d1", *row.DeadlineID)
			}
			assert.NotEqual(t, "Essay reading", row.Label)
		}
	}
	assert.Positive(t, persistedStudy)
}

func TestStudyScheduleServicePersistRollsBack(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	sessions := &sessionStoreStub{err: errors.New("constraint violation")}
	svc := newStudyScheduleFixture(scheduleFixture{tx: tx, sessions: sessions})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Generate(context.Background(), "student-1", dto.GenerateStudyScheduleRequest{HorizonWeeks: 1, Persist: true})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyScheduleServiceValidate(t *testing.T) {
	svc := newStudyScheduleFixture(scheduleFixture{})

	resp, err := svc.Validate(context.Background(), "student-1", dto.ValidateStudyScheduleRequest{
		HorizonStart: "2024-09-02",
		Weeks: []planner.WeekPlan{{
			Week: 1,
			Days: map[planner.Weekday][]planner.SessionBlock{
				planner.Monday: {
					{Start: planner.MustClock("06:00"), End: planner.MustClock("08:00"), Category: planner.CategoryStudy, DeadlineID: "d1"},
					{Start: planner.MustClock("07:00"), End: planner.MustClock("08:00"), Category: planner.CategoryStudy, DeadlineID: "d1"},
				},
				planner.Thursday: {
					{Start: planner.MustClock("06:00"), End: planner.MustClock("08:00"), Category: planner.CategoryStudy, DeadlineID: "d1"},
				},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-09-02", resp.HorizonStart)
	require.Len(t, resp.Removed, 2)
	reasons := []planner.RemovalReason{resp.Removed[0].Reason, resp.Removed[1].Reason}
	assert.ElementsMatch(t, []planner.RemovalReason{planner.ReasonBlockOverlap, planner.ReasonPastDue}, reasons)
	require.Len(t, resp.Reconciliation, 1)
	assert.Equal(t, 2.0, resp.Reconciliation[0].ActualHours)
}

func TestStudyScheduleServiceValidateRequiresWeeks(t *testing.T) {
	svc := newStudyScheduleFixture(scheduleFixture{})

	_, err := svc.Validate(context.Background(), "student-1", dto.ValidateStudyScheduleRequest{})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudyScheduleServiceList(t *testing.T) {
	sessions := &sessionStoreStub{rows: []models.StudySession{
		{ID: "a", SessionDate: horizonMonday, StartTime: "06:00", EndTime: "08:00", Category: "study", Label: "Essay"},
		{ID: "b", SessionDate: horizonMonday.AddDate(0, 0, 8), StartTime: "12:00", EndTime: "12:45", Category: "meal", Label: "Lunch"},
		{ID: "c", SessionDate: horizonMonday.AddDate(0, 0, 20), StartTime: "12:00", EndTime: "12:45", Category: "meal", Label: "Lunch"},
	}}
	svc := newStudyScheduleFixture(scheduleFixture{sessions: sessions})

	resp, err := svc.List(context.Background(), "student-1", dto.StudyScheduleQuery{From: "2024-09-02", To: "2024-09-10"})
	require.NoError(t, err)

	assert.Equal(t, "2024-09-10", resp.To)
	require.Len(t, resp.Weeks, 2)
	assert.Len(t, resp.Weeks[0].Days[planner.Monday], 1)
	assert.Len(t, resp.Weeks[1].Days[planner.Tuesday], 1)

	_, err = svc.List(context.Background(), "student-1", dto.StudyScheduleQuery{From: "2024-09-10", To: "2024-09-02"})
	assert.Error(t, err)
}
