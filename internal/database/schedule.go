package database

import (
	"context"

	"github.com/google/uuid"
)

const getWeeklySchedule = `
SELECT outlet_id, weekday, open_time, close_time, is_open
FROM opening_hours
WHERE outlet_id = $1
ORDER BY weekday ASC
`

// GetWeeklySchedule returns the outlet's opening hours, one row per weekday.
// Outlets without configured hours return no rows; callers treat that as
// always closed.
func (q *Queries) GetWeeklySchedule(ctx context.Context, outletID uuid.UUID) ([]ScheduleDay, error) {
	rows, err := q.db.Query(ctx, getWeeklySchedule, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var days []ScheduleDay
	for rows.Next() {
		var d ScheduleDay
		if err := rows.Scan(&d.OutletID, &d.Weekday, &d.OpenTime, &d.CloseTime, &d.IsOpen); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
