package db

import (
	"database/sql"
	"time"

	"github.com/ad/go-telegram-reminder/internal/models"
)

type UserRepository struct {
	queue *DBQueue
}

func NewUserRepository(queue *DBQueue) *UserRepository {
	return &UserRepository{queue: queue}
}

// Create inserts the user with default progress if no record exists yet.
func (r *UserRepository) Create(userID string) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO users (user_id, current_phase, current_day, reminder_time)
			VALUES (?, 1, 1, ?)
			ON CONFLICT(user_id) DO NOTHING
		`, userID, models.DefaultReminderTime)
		return nil, err
	})
	return err
}

// GetByID returns (nil, nil) when the user has no record.
func (r *UserRepository) GetByID(userID string) (*models.UserProgress, error) {
	result, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		row := db.QueryRow(`
			SELECT user_id, current_phase, current_day, paused_until, reminder_time, created_at
			FROM users WHERE user_id = ?
		`, userID)

		var user models.UserProgress
		var pausedUntil sql.NullTime
		var reminderTime sql.NullString
		err := row.Scan(&user.UserID, &user.CurrentPhase, &user.CurrentDay, &pausedUntil, &reminderTime, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		if pausedUntil.Valid {
			t := pausedUntil.Time
			user.PausedUntil = &t
		}
		user.ReminderTime = reminderTime.String
		if user.ReminderTime == "" {
			user.ReminderTime = models.DefaultReminderTime
		}
		return &user, nil
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*models.UserProgress), nil
}

// Save writes back the mutable progress fields.
func (r *UserRepository) Save(user *models.UserProgress) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var pausedUntil interface{}
		if user.PausedUntil != nil {
			pausedUntil = user.PausedUntil.UTC()
		}
		_, err := db.Exec(`
			UPDATE users
			SET current_phase = ?, current_day = ?, paused_until = ?, reminder_time = ?
			WHERE user_id = ?
		`, user.CurrentPhase, user.CurrentDay, pausedUntil, user.ReminderTime, user.UserID)
		return nil, err
	})
	return err
}

// SetPausedUntil updates only the pause window; nil clears it.
func (r *UserRepository) SetPausedUntil(userID string, until *time.Time) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var v interface{}
		if until != nil {
			v = until.UTC()
		}
		_, err := db.Exec(`UPDATE users SET paused_until = ? WHERE user_id = ?`, v, userID)
		return nil, err
	})
	return err
}
