package db

import (
	"database/sql"

	"github.com/ad/go-telegram-reminder/internal/models"
)

type ReminderRepository struct {
	queue *DBQueue
}

func NewReminderRepository(queue *DBQueue) *ReminderRepository {
	return &ReminderRepository{queue: queue}
}

func (r *ReminderRepository) Create(reminder *models.Reminder) (int64, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`
			INSERT INTO reminders (phase, day, focus, resource, practice)
			VALUES (?, ?, ?, ?, ?)
		`, reminder.Phase, reminder.Day, reminder.Focus, reminder.Resource, reminder.Practice)
		if err != nil {
			return nil, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// GetByPhaseDay returns the entry for (phase, day), or (nil, nil) when no
// entry exists. Duplicate pairs resolve to the lowest id.
func (r *ReminderRepository) GetByPhaseDay(phase, day int) (*models.Reminder, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		row := db.QueryRow(`
			SELECT id, phase, day, focus, resource, practice
			FROM reminders WHERE phase = ? AND day = ?
			ORDER BY id LIMIT 1
		`, phase, day)

		var reminder models.Reminder
		err := row.Scan(&reminder.ID, &reminder.Phase, &reminder.Day, &reminder.Focus, &reminder.Resource, &reminder.Practice)
		if err != nil {
			return nil, err
		}
		return &reminder, nil
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*models.Reminder), nil
}

// GetRange returns entries for the phase with fromDay <= day <= toDay,
// ordered by day ascending.
func (r *ReminderRepository) GetRange(phase, fromDay, toDay int) ([]*models.Reminder, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`
			SELECT id, phase, day, focus, resource, practice
			FROM reminders WHERE phase = ? AND day >= ? AND day <= ?
			ORDER BY day
		`, phase, fromDay, toDay)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanReminders(rows)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Reminder), nil
}

// GetByPhase returns every entry of the phase, ordered by day ascending.
func (r *ReminderRepository) GetByPhase(phase int) ([]*models.Reminder, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		rows, err := db.Query(`
			SELECT id, phase, day, focus, resource, practice
			FROM reminders WHERE phase = ?
			ORDER BY day
		`, phase)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanReminders(rows)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Reminder), nil
}

func scanReminders(rows *sql.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		var reminder models.Reminder
		if err := rows.Scan(&reminder.ID, &reminder.Phase, &reminder.Day, &reminder.Focus, &reminder.Resource, &reminder.Practice); err != nil {
			return nil, err
		}
		reminders = append(reminders, &reminder)
	}
	return reminders, rows.Err()
}
