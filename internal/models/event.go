// internal/models/event.go
package models

import "time"

// Event is a club ride or training session members sign up for.
type Event struct {
	BaseModel
	Title        string    `json:"title" gorm:"size:255;not null"`
	EventType    string    `json:"event_type" gorm:"size:50"`
	EventDate    time.Time `json:"event_date" gorm:"not null;index"`
	MeetingPoint string    `json:"meeting_point" gorm:"size:255"`
	RouteName    string    `json:"route_name" gorm:"size:255"`
	Level        string    `json:"event_level" gorm:"column:event_level;size:50"`
	Mode         string    `json:"event_mode" gorm:"column:event_mode;size:50"`
	Description  string    `json:"description" gorm:"type:text"`

	Participants int64 `json:"participants" gorm:"-"`
}

// RegistrationDeadline is 23:59:59 on the day before the event, counted in
// the club's zone.
func (e *Event) RegistrationDeadline(loc *time.Location) time.Time {
	y, m, d := e.EventDate.In(loc).Date()
	return time.Date(y, m, d-1, 23, 59, 59, 0, loc)
}

type EventParticipant struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EventID      uint      `json:"event_id" gorm:"not null;uniqueIndex:idx_event_participant"`
	UserID       uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_event_participant;index"`
	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
}
