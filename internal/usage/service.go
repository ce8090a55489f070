package usage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	dateFormat       = "2006-01-02"
	recentLimit      = 10
	topProjectsLimit = 5
	// historyDays covers the monthly window plus the one before it.
	historyDays = 60
)

// ErrInvalidDate is returned for a dashboard date that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// ErrInvalidRecord is returned for a usage record with negative values.
var ErrInvalidRecord = errors.New("invalid usage record")

// ErrHistoryUnavailable is returned when an operation needs the history store
// and none is configured.
var ErrHistoryUnavailable = errors.New("usage history store is not configured")

// Service assembles dashboard data from ccusage, falling back to the history
// store. Either source may be nil.
type Service struct {
	client   *Client
	store    *Store
	now      func() time.Time
	homeBase string
}

// NewService creates a Service.
func NewService(client *Client, store *Store) *Service {
	homeBase := ""
	if home, err := os.UserHomeDir(); err == nil {
		homeBase = filepath.Base(home)
	}
	return &Service{
		client:   client,
		store:    store,
		now:      time.Now,
		homeBase: homeBase,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// window is the half-open range [start, end) covering whole days.
type window struct {
	start, end time.Time
	days       int
}

// windowEnding returns the days-long window whose last day is ref's day.
func windowEnding(ref time.Time, days int) window {
	end := dayStart(ref).AddDate(0, 0, 1)
	return window{start: end.AddDate(0, 0, -days), end: end, days: days}
}

func (w window) previous() window {
	return window{start: w.start.AddDate(0, 0, -w.days), end: w.start, days: w.days}
}

// containsDate reports whether a YYYY-MM-DD date falls inside w.
func (w window) containsDate(date string) bool {
	if len(date) > len(dateFormat) {
		date = date[:len(dateFormat)]
	}
	return date >= w.start.Format(dateFormat) && date < w.end.Format(dateFormat)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// trend is the percentage change from previous to current, rounded to one
// decimal. It is nil when there is no previous spend to compare against.
func trend(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	change := math.Round((current-previous)/previous*1000) / 10
	return &change
}

// Dashboard builds the dashboard for date (YYYY-MM-DD), or for today when date
// is empty.
func (s *Service) Dashboard(ctx context.Context, date string) (*Dashboard, error) {
	ref := s.now()
	if date != "" {
		parsed, err := time.ParseInLocation(dateFormat, date, ref.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
		ref = parsed
	}

	if s.client != nil && s.client.Available(ctx) {
		return s.fromCCUsage(ctx, ref), nil
	}
	if s.store != nil {
		log.Warn("ccusage unavailable, using stored usage history")
		return s.fromHistory(ctx, ref)
	}
	log.Warn("no usage source available")
	return emptyDashboard(SourceNone), nil
}

func emptyDashboard(source string) *Dashboard {
	return &Dashboard{
		RealTimeUsage: []Record{},
		TopProjects:   []ProjectUsage{},
		Source:        source,
	}
}

// fromCCUsage fetches daily and session data concurrently. A failed call
// leaves its sections at zero values instead of failing the dashboard.
func (s *Service) fromCCUsage(ctx context.Context, ref time.Time) *Dashboard {
	var (
		daily    []Daily
		sessions []Session
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.client.Daily(gctx, dayStart(ref).AddDate(0, 0, -(historyDays-1)), ref)
		if err != nil {
			log.WithError(err).Warn("failed to fetch daily usage")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sessions, err = s.client.Sessions(gctx)
		if err != nil {
			log.WithError(err).Warn("failed to fetch session usage")
		}
		return nil
	})
	_ = g.Wait()

	today := windowEnding(ref, 1)
	week := windowEnding(ref, 7)
	month := windowEnding(ref, 30)

	dash := emptyDashboard(SourceCCUsage)
	dash.TodayUsage = sumDaily(daily, sessions, today)
	dash.WeeklyUsage = sumDaily(daily, sessions, week)
	dash.MonthlyUsage = sumDaily(daily, sessions, month)

	weeklyTrend := trend(dash.WeeklyUsage.TotalCost, sumDaily(daily, nil, week.previous()).TotalCost)
	monthlyTrend := trend(dash.MonthlyUsage.TotalCost, sumDaily(daily, nil, month.previous()).TotalCost)
	for _, stats := range []*Statistics{&dash.TodayUsage, &dash.WeeklyUsage, &dash.MonthlyUsage} {
		stats.WeeklyTrend = weeklyTrend
		stats.MonthlyTrend = monthlyTrend
	}

	records := make([]Record, 0, len(sessions))
	for _, session := range sessions {
		records = append(records, s.sessionRecord(session))
	}
	if len(records) > recentLimit {
		dash.RealTimeUsage = records[:recentLimit]
	} else {
		dash.RealTimeUsage = records
	}
	dash.TopProjects = topProjects(records, topProjectsLimit)

	if s.store != nil && len(records) > 0 {
		if err := s.store.Upsert(ctx, records); err != nil {
			log.WithError(err).Warn("failed to mirror sessions into usage history")
		}
	}
	return dash
}

// sumDaily totals the daily entries inside w. Session counts come from the
// sessions whose last activity falls inside w.
func sumDaily(daily []Daily, sessions []Session, w window) Statistics {
	var stats Statistics
	for _, day := range daily {
		if !w.containsDate(day.Date) {
			continue
		}
		stats.TotalInputTokens += day.InputTokens
		stats.TotalOutputTokens += day.OutputTokens
		stats.TotalTokens += day.TotalTokens
		stats.TotalCost += day.TotalCost
	}
	for _, session := range sessions {
		if w.containsDate(session.LastActivity) {
			stats.SessionCount++
		}
	}
	stats.DailyAverage = stats.TotalCost / float64(w.days)
	return stats
}

// sessionRecord converts a ccusage session into a Record.
func (s *Service) sessionRecord(session Session) Record {
	model := "unknown"
	if len(session.ModelsUsed) > 0 {
		model = session.ModelsUsed[0]
	}
	return Record{
		ID:           session.SessionID,
		ProjectID:    ProjectFromSession(session.SessionID, s.homeBase),
		UsageType:    "claude_usage",
		InputTokens:  session.InputTokens,
		OutputTokens: session.OutputTokens,
		Cost:         session.TotalCost,
		ModelVersion: model,
		CreatedAt:    parseActivity(session.LastActivity),
	}
}

// parseActivity accepts an RFC 3339 timestamp or a bare date, which is read
// as noon UTC.
func parseActivity(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(dateFormat, value); err == nil {
		return t.Add(12 * time.Hour)
	}
	return time.Time{}
}

// ProjectFromSession derives a project id from a ccusage session id such as
// "-Users-alice-code-myapp": the last dash-separated segment, unless that
// segment is the user's home directory name.
func ProjectFromSession(sessionID, homeBase string) string {
	parts := strings.Split(sessionID, "-")
	if len(parts) < 2 {
		return ""
	}
	last := parts[len(parts)-1]
	if last == "" || last == homeBase {
		return ""
	}
	return last
}

// topProjects sums records per project and returns the costliest.
func topProjects(records []Record, limit int) []ProjectUsage {
	byProject := make(map[string]*ProjectUsage)
	for _, rec := range records {
		if rec.ProjectID == "" {
			continue
		}
		p, ok := byProject[rec.ProjectID]
		if !ok {
			p = &ProjectUsage{ProjectID: rec.ProjectID, ProjectName: rec.ProjectID}
			byProject[rec.ProjectID] = p
		}
		p.TotalCost += rec.Cost
		p.TotalTokens += rec.InputTokens + rec.OutputTokens
	}

	projects := make([]ProjectUsage, 0, len(byProject))
	for _, p := range byProject {
		projects = append(projects, *p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].TotalCost != projects[j].TotalCost {
			return projects[i].TotalCost > projects[j].TotalCost
		}
		return projects[i].ProjectID < projects[j].ProjectID
	})
	if len(projects) > limit {
		projects = projects[:limit]
	}
	return projects
}

// fromHistory builds the dashboard from the sqlite store.
func (s *Service) fromHistory(ctx context.Context, ref time.Time) (*Dashboard, error) {
	dash := emptyDashboard(SourceHistory)

	today, err := s.windowStatistics(ctx, windowEnding(ref, 1))
	if err != nil {
		return nil, err
	}
	week, err := s.windowStatistics(ctx, windowEnding(ref, 7))
	if err != nil {
		return nil, err
	}
	month, err := s.windowStatistics(ctx, windowEnding(ref, 30))
	if err != nil {
		return nil, err
	}
	for _, stats := range []*Statistics{&today, &week, &month} {
		stats.WeeklyTrend = week.WeeklyTrend
		stats.MonthlyTrend = month.MonthlyTrend
	}
	dash.TodayUsage, dash.WeeklyUsage, dash.MonthlyUsage = today, week, month

	if dash.RealTimeUsage, err = s.store.Recent(ctx, recentLimit); err != nil {
		return nil, err
	}
	if dash.TopProjects, err = s.store.TopProjects(ctx, windowEnding(ref, 30).start, topProjectsLimit); err != nil {
		return nil, err
	}
	return dash, nil
}

// windowStatistics totals w and fills in the trend against the previous
// window. The trend lands in WeeklyTrend or MonthlyTrend by window length.
func (s *Service) windowStatistics(ctx context.Context, w window) (Statistics, error) {
	stats, err := s.store.Statistics(ctx, w.start, w.end)
	if err != nil {
		return Statistics{}, err
	}
	stats.DailyAverage = stats.TotalCost / float64(w.days)

	if w.days == 1 {
		return stats, nil
	}
	prev := w.previous()
	before, err := s.store.Statistics(ctx, prev.start, prev.end)
	if err != nil {
		return Statistics{}, err
	}
	t := trend(stats.TotalCost, before.TotalCost)
	if w.days == 7 {
		stats.WeeklyTrend = t
	} else {
		stats.MonthlyTrend = t
	}
	return stats, nil
}

// Statistics totals the last days days of stored history, with trends for
// both the trailing week and month.
func (s *Service) Statistics(ctx context.Context, days int) (*Statistics, error) {
	if s.store == nil {
		return nil, ErrHistoryUnavailable
	}
	if days <= 0 {
		days = 30
	}
	ref := s.now()
	stats, err := s.windowStatistics(ctx, windowEnding(ref, days))
	if err != nil {
		return nil, err
	}
	week, err := s.windowStatistics(ctx, windowEnding(ref, 7))
	if err != nil {
		return nil, err
	}
	month, err := s.windowStatistics(ctx, windowEnding(ref, 30))
	if err != nil {
		return nil, err
	}
	stats.WeeklyTrend = week.WeeklyTrend
	stats.MonthlyTrend = month.MonthlyTrend
	return &stats, nil
}

// RecordUsage stores a usage record and returns its id.
func (s *Service) RecordUsage(ctx context.Context, rec Record) (string, error) {
	if s.store == nil {
		return "", ErrHistoryUnavailable
	}
	if rec.InputTokens < 0 || rec.OutputTokens < 0 || rec.Cost < 0 {
		return "", fmt.Errorf("%w: token counts and cost cannot be negative", ErrInvalidRecord)
	}
	return s.store.Insert(ctx, rec)
}
