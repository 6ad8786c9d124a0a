// Package domain contains the core entities of the task bot.
package domain

import "time"

// UserStatusActive is the default status assigned at registration.
const UserStatusActive = "Active"

// User represents a registered bot user.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	Login      string
	Status     string
	CreatedAt  time.Time
}
