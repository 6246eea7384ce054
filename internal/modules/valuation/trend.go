package valuation

import (
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/ozank/portfoy/internal/domain"
)

const (
	// trendWindowDays is the preferred trend window
	trendWindowDays = 30
	// trendFallbackRecords is used when the window holds too little data
	trendFallbackRecords = 500
	// trendSMAPeriod is the smoothing period for the summary series
	trendSMAPeriod = 7
)

// TrendPoint is one day on the portfolio value chart
type TrendPoint struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	TotalValue float64 `json:"total_value"`
}

// TrendSummary describes the collapsed series for the history endpoint
type TrendSummary struct {
	Points    int       `json:"points"`
	First     float64   `json:"first"`
	Last      float64   `json:"last"`
	Mean      float64   `json:"mean"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	ChangePct float64   `json:"change_pct"`
	SMA       []float64 `json:"sma,omitempty"` // 7-day smoothing, empty when the series is shorter
}

// TrendService reconstructs the portfolio value trend from raw snapshots
type TrendService struct {
	snapshots *SnapshotRepository
	log       zerolog.Logger
}

// NewTrendService creates a new trend service
func NewTrendService(snapshots *SnapshotRepository, log zerolog.Logger) *TrendService {
	return &TrendService{
		snapshots: snapshots,
		log:       log.With().Str("service", "trend").Logger(),
	}
}

// History returns the user's chart-ready daily series.
//
// Policy: take everything from the last 30 days (from the start of the day,
// so partial days do not shift the window); when that yields fewer than two
// raw rows, fall back to the last 500 records so a brand-new user still gets
// a usable series once intraday snapshots accumulate. Multiple snapshots on
// one calendar day collapse to the latest.
func (s *TrendService) History(userID int64) ([]TrendPoint, error) {
	from := time.Now().UTC().AddDate(0, 0, -trendWindowDays).Truncate(24 * time.Hour)
	snapshots, err := s.snapshots.Range(userID, &from, nil)
	if err != nil {
		return nil, err
	}

	if len(snapshots) < 2 {
		snapshots, err = s.snapshots.LastKRecords(userID, trendFallbackRecords)
		if err != nil {
			return nil, err
		}
	}

	return CollapseDaily(snapshots), nil
}

// Summary computes descriptive statistics over the daily series
func (s *TrendService) Summary(userID int64) (*TrendSummary, error) {
	points, err := s.History(userID)
	if err != nil {
		return nil, err
	}

	summary := &TrendSummary{Points: len(points)}
	if len(points) == 0 {
		return summary, nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.TotalValue
	}

	summary.First = values[0]
	summary.Last = values[len(values)-1]
	summary.Mean = stat.Mean(values, nil)
	summary.Min, summary.Max = values[0], values[0]
	for _, v := range values[1:] {
		if v < summary.Min {
			summary.Min = v
		}
		if v > summary.Max {
			summary.Max = v
		}
	}
	if summary.First != 0 {
		summary.ChangePct = (summary.Last - summary.First) / summary.First * 100
	}

	if len(values) >= trendSMAPeriod {
		summary.SMA = talib.Sma(values, trendSMAPeriod)
	}

	return summary, nil
}

// CollapseDaily reduces raw snapshots to one point per calendar day, keeping
// the latest snapshot of each day, ordered by date ascending.
func CollapseDaily(snapshots []domain.ValuationSnapshot) []TrendPoint {
	latestPerDay := make(map[string]domain.ValuationSnapshot)
	for _, snap := range snapshots {
		day := snap.CalculatedAt.UTC().Format("2006-01-02")
		current, exists := latestPerDay[day]
		if !exists || snap.CalculatedAt.After(current.CalculatedAt) ||
			(snap.CalculatedAt.Equal(current.CalculatedAt) && snap.ID > current.ID) {
			latestPerDay[day] = snap
		}
	}

	days := make([]string, 0, len(latestPerDay))
	for day := range latestPerDay {
		days = append(days, day)
	}
	sort.Strings(days)

	points := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		points = append(points, TrendPoint{
			Date:       day,
			TotalValue: latestPerDay[day].TotalValue,
		})
	}

	return points
}
