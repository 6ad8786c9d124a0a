package domain

import "time"

// Task status values. The order of StatusChoices is part of the button
// vocabulary and must stay stable.
const (
	StatusInProgress = "PROG"
	StatusDone       = "DONE"
)

// TaskNameMaxLen bounds the task name, matching the varchar(50) column.
const TaskNameMaxLen = 50

// StatusChoice pairs a stored status value with its button label.
type StatusChoice struct {
	Value string
	Label string
}

// StatusChoices lists every selectable task status in display order.
var StatusChoices = []StatusChoice{
	{Value: StatusInProgress, Label: "In progress"},
	{Value: StatusDone, Label: "Accepted, satisfying"},
}

// Task represents a single task owned by a user via their Telegram ID.
type Task struct {
	ID          int64
	TelegramID  int64
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
	LastUpdate  time.Time
}
