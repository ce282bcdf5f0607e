package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultIncidentLimit caps Incidents when the caller passes no limit.
const DefaultIncidentLimit = 50

// Overview summarises archived evaluations over a time window.
type Overview struct {
	TotalRuns       int                `json:"total_runs"`
	AvgScore        float64            `json:"avg_score"`
	Violations      int                `json:"violations_count"`
	Weakest         string             `json:"weakest_dimension,omitempty"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
}

// Incident is one negatively scored dimension of an archived turn.
type Incident struct {
	RunID      uuid.UUID `json:"run_id"`
	SessionID  string    `json:"session_id"`
	TurnID     string    `json:"turn_id"`
	Dimension  string    `json:"dimension"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Headline   string    `json:"headline"`
	Rationale  string    `json:"rationale"`
	UserPrompt string    `json:"user_prompt"`
	AIResponse string    `json:"ai_response"`
	CreatedAt  time.Time `json:"created_at"`
}

// RangeStart maps a reporting window ("24h", "7d", "30d", "all" or any Go
// duration) to its start time. A zero time means no lower bound.
func RangeStart(window string, now time.Time) (time.Time, error) {
	switch window {
	case "", "all":
		return time.Time{}, nil
	case "7d":
		return now.Add(-7 * 24 * time.Hour), nil
	case "30d":
		return now.Add(-30 * 24 * time.Hour), nil
	}
	d, err := time.ParseDuration(window)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("invalid range %q", window)
	}
	return now.Add(-d), nil
}

// Overview returns per-dimension averages, run and violation counts, and the
// weakest dimension for evaluations created at or after since.
func (s *Store) Overview(ctx context.Context, since time.Time) (*Overview, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT dimension, AVG(score)
		FROM evaluations
		WHERE created_at >= $1
		GROUP BY dimension`, since)
	if err != nil {
		return nil, fmt.Errorf("query dimension averages: %w", err)
	}
	defer rows.Close()

	averages := make(map[string]float64)
	for rows.Next() {
		var dim string
		var avg float64
		if err := rows.Scan(&dim, &avg); err != nil {
			return nil, fmt.Errorf("scan dimension average: %w", err)
		}
		averages[dim] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dimension averages: %w", err)
	}

	ov := summarize(averages)

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT run_id), COUNT(*) FILTER (WHERE score < 0)
		FROM evaluations
		WHERE created_at >= $1`, since).Scan(&ov.TotalRuns, &ov.Violations)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	return ov, nil
}

// summarize derives the mean and weakest dimension from per-dimension
// averages. Ties for weakest go to the lexically smallest id.
func summarize(averages map[string]float64) *Overview {
	ov := &Overview{DimensionScores: averages}
	if len(averages) == 0 {
		return ov
	}
	var sum float64
	lowest := math.Inf(1)
	for dim, avg := range averages {
		sum += avg
		if avg < lowest || (avg == lowest && dim < ov.Weakest) {
			lowest = avg
			ov.Weakest = dim
		}
	}
	ov.AvgScore = math.Round(sum/float64(len(averages))*1000) / 1000
	return ov
}

// Incidents lists negative scores, worst first then newest. An empty
// dimension matches all dimensions.
func (s *Store) Incidents(ctx context.Context, dimension string, limit int) ([]Incident, error) {
	if limit <= 0 {
		limit = DefaultIncidentLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.session_id, r.turn_id, e.dimension, e.score, e.confidence,
			e.headline, e.rationale, r.user_prompt, r.ai_response, e.created_at
		FROM evaluations e
		JOIN evaluation_runs r ON r.id = e.run_id
		WHERE e.score < 0 AND ($1 = '' OR e.dimension = $1)
		ORDER BY e.score ASC, e.created_at DESC
		LIMIT $2`, dimension, limit)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	incidents := []Incident{}
	for rows.Next() {
		var in Incident
		if err := rows.Scan(&in.RunID, &in.SessionID, &in.TurnID, &in.Dimension, &in.Score, &in.Confidence,
			&in.Headline, &in.Rationale, &in.UserPrompt, &in.AIResponse, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return incidents, nil
}
