package service

import (
	"time"

	"breaktime-tracker-bot/internal/models"
)

// CategorySummary is one line of a user's personal daily summary.
type CategorySummary struct {
	Category      models.BreakCategory `json:"category"`
	Count         int                  `json:"count"`
	TotalDuration float64              `json:"total_duration"`
}

// UserDailySummary is the personal "My Break Summary" the bot sends.
// TotalMinutes excludes restroom breaks, matching the policy the floor
// reports have always used.
type UserDailySummary struct {
	UserID       int64             `json:"user_id"`
	FullName     string            `json:"full_name"`
	Date         string            `json:"date"`
	ByCategory   []CategorySummary `json:"by_category"`
	TotalMinutes float64           `json:"total_minutes"`
}

// UserSummary computes one user's completed breaks for a day.
func (s *AggregationService) UserSummary(day time.Time, userID int64) UserDailySummary {
	records := s.dayRecords(day)

	summary := UserDailySummary{
		UserID: userID,
		Date:   day.In(s.loc).Format("2006-01-02"),
	}

	buckets := make(map[models.BreakCategory]*CategorySummary)
	for _, rec := range records {
		if rec.UserID != userID {
			continue
		}
		if rec.FullName != "" {
			summary.FullName = rec.FullName
		}
		if !rec.IsCompleted() {
			continue
		}

		b, ok := buckets[rec.Category]
		if !ok {
			b = &CategorySummary{Category: rec.Category}
			buckets[rec.Category] = b
		}
		b.Count++
		b.TotalDuration += rec.DurationMinutes

		if rec.Category != models.CategoryRestroom {
			summary.TotalMinutes += rec.DurationMinutes
		}
	}

	for _, cat := range models.Categories() {
		if b, ok := buckets[cat]; ok {
			b.TotalDuration = round1(b.TotalDuration)
			summary.ByCategory = append(summary.ByCategory, *b)
		}
	}
	summary.TotalMinutes = round1(summary.TotalMinutes)
	return summary
}
