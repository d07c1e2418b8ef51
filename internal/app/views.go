package app

import (
	"time"

	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/tracker"
)

// Views are the JSON and YAML shapes shown to clients. They are not the
// durable log format; see adapter/jsonfile for that.

type StageView struct {
	Key     string `json:"key" yaml:"key"`
	Name    string `json:"name" yaml:"name"`
	Code    string `json:"code" yaml:"code"`
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
}

type IntervalView struct {
	Stage      string `json:"stage" yaml:"stage"`
	Code       string `json:"code" yaml:"code"`
	Start      string `json:"start" yaml:"start"`
	End        string `json:"end" yaml:"end"`
	ElapsedSec int64  `json:"elapsed_sec" yaml:"elapsed_sec"`
}

type GroupView struct {
	Stage    string `json:"stage" yaml:"stage"`
	Code     string `json:"code" yaml:"code"`
	Seconds  int64  `json:"seconds" yaml:"seconds"`
	Duration string `json:"duration" yaml:"duration"`
}

type SummaryView struct {
	Token     string         `json:"token" yaml:"token"`
	Reference string         `json:"reference" yaml:"reference"`
	Groups    []GroupView    `json:"groups" yaml:"groups"`
	Total     int64          `json:"total_sec" yaml:"total_sec"`
	Duration  string         `json:"duration" yaml:"duration"`
	Intervals []IntervalView `json:"intervals" yaml:"intervals"`
}

type SessionView struct {
	Token       string         `json:"token" yaml:"token"`
	FinalizedAt string         `json:"finalized_at" yaml:"finalized_at"`
	Reference   string         `json:"reference" yaml:"reference"`
	Intervals   []IntervalView `json:"intervals" yaml:"intervals"`
}

type StatusView struct {
	Active    *StageView `json:"active" yaml:"active"`
	Since     *time.Time `json:"since,omitempty" yaml:"since,omitempty"`
	Intervals int        `json:"intervals" yaml:"intervals"`
	Elapsed   int64      `json:"elapsed_sec" yaml:"elapsed_sec"`
	Duration  string     `json:"duration" yaml:"duration"`
}

func NewStageView(s domain.Stage) StageView {
	return StageView{Key: s.Key, Name: s.Name, Code: s.Code, Ordinal: s.Ordinal}
}

func NewStageViews(stages []domain.Stage) []StageView {
	out := make([]StageView, len(stages))
	for i, s := range stages {
		out[i] = NewStageView(s)
	}
	return out
}

func NewIntervalViews(intervals []domain.Interval) []IntervalView {
	out := make([]IntervalView, len(intervals))
	for i, iv := range intervals {
		out[i] = IntervalView{Stage: iv.StageName, Code: iv.StageCode, Start: iv.Start, End: iv.End, ElapsedSec: iv.ElapsedSec}
	}
	return out
}

func NewSummaryView(s aggregate.Summary) SummaryView {
	groups := make([]GroupView, len(s.Groups))
	for i, g := range s.Groups {
		groups[i] = GroupView{Stage: g.Name, Code: g.Code, Seconds: g.Seconds, Duration: aggregate.FormatDuration(g.Seconds)}
	}
	return SummaryView{
		Token:     s.Token,
		Reference: s.Reference,
		Groups:    groups,
		Total:     s.Total,
		Duration:  aggregate.FormatDuration(s.Total),
		Intervals: NewIntervalViews(s.Intervals),
	}
}

func NewSessionViews(sessions []domain.LoggedSession) []SessionView {
	out := make([]SessionView, len(sessions))
	for i, s := range sessions {
		out[i] = SessionView{
			Token:       s.Token,
			FinalizedAt: s.FinalizedAt,
			Reference:   s.Reference,
			Intervals:   NewIntervalViews(s.Intervals),
		}
	}
	return out
}

func NewStatusView(st tracker.Status) StatusView {
	v := StatusView{Intervals: st.Intervals, Elapsed: st.Elapsed, Duration: aggregate.FormatDuration(st.Elapsed)}
	if st.Active != nil {
		sv := NewStageView(*st.Active)
		v.Active = &sv
		since := st.Since
		v.Since = &since
	}
	return v
}
