// Package usage aggregates Claude Code token and cost usage for the dashboard.
// The primary source is the ccusage CLI; a local sqlite history store serves
// as the degraded source when ccusage cannot be run.
package usage

import "time"

// Sources reported in Dashboard.Source.
const (
	SourceCCUsage = "ccusage"
	SourceHistory = "history"
	SourceNone    = "none"
)

// Statistics totals usage over one period. Trends are the percentage change
// in cost against the preceding period of equal length, or nil when that
// comparison is unavailable.
type Statistics struct {
	TotalInputTokens  int64    `json:"total_input_tokens"`
	TotalOutputTokens int64    `json:"total_output_tokens"`
	TotalTokens       int64    `json:"total_tokens"`
	TotalCost         float64  `json:"total_cost"`
	AverageDuration   float64  `json:"average_duration"`
	SessionCount      int      `json:"session_count"`
	DailyAverage      float64  `json:"daily_average"`
	WeeklyTrend       *float64 `json:"weekly_trend"`
	MonthlyTrend      *float64 `json:"monthly_trend"`
}

// Record is one usage entry, either a ccusage session or a stored record.
type Record struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id,omitempty"`
	UsageType    string    `json:"usage_type"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	Duration     int64     `json:"duration"`
	ModelVersion string    `json:"model_version,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProjectUsage ranks a project by cost.
type ProjectUsage struct {
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	TotalCost   float64 `json:"total_cost"`
	TotalTokens int64   `json:"total_tokens"`
}

// Dashboard is everything the dashboard page shows in one response.
type Dashboard struct {
	TodayUsage    Statistics     `json:"today_usage"`
	WeeklyUsage   Statistics     `json:"weekly_usage"`
	MonthlyUsage  Statistics     `json:"monthly_usage"`
	RealTimeUsage []Record       `json:"real_time_usage"`
	TopProjects   []ProjectUsage `json:"top_projects"`
	Source        string         `json:"source"`
}

// ModelBreakdown is ccusage's per-model split of a day or session.
type ModelBreakdown struct {
	ModelName           string  `json:"modelName"`
	InputTokens         int64   `json:"inputTokens"`
	OutputTokens        int64   `json:"outputTokens"`
	CacheCreationTokens int64   `json:"cacheCreationTokens"`
	CacheReadTokens     int64   `json:"cacheReadTokens"`
	Cost                float64 `json:"cost"`
}

// Daily is one entry of `ccusage daily --json`.
type Daily struct {
	Date                string           `json:"date"`
	InputTokens         int64            `json:"inputTokens"`
	OutputTokens        int64            `json:"outputTokens"`
	CacheCreationTokens int64            `json:"cacheCreationTokens"`
	CacheReadTokens     int64            `json:"cacheReadTokens"`
	TotalTokens         int64            `json:"totalTokens"`
	TotalCost           float64          `json:"totalCost"`
	ModelsUsed          []string         `json:"modelsUsed"`
	ModelBreakdowns     []ModelBreakdown `json:"modelBreakdowns"`
}

// Session is one entry of `ccusage session --json`.
type Session struct {
	SessionID           string           `json:"sessionId"`
	InputTokens         int64            `json:"inputTokens"`
	OutputTokens        int64            `json:"outputTokens"`
	CacheCreationTokens int64            `json:"cacheCreationTokens"`
	CacheReadTokens     int64            `json:"cacheReadTokens"`
	TotalTokens         int64            `json:"totalTokens"`
	TotalCost           float64          `json:"totalCost"`
	LastActivity        string           `json:"lastActivity"`
	ModelsUsed          []string         `json:"modelsUsed"`
	ModelBreakdowns     []ModelBreakdown `json:"modelBreakdowns"`
}
