package models

import (
	"time"
)

// User is an app user that may have a registered device
type User struct {
	ID          string    `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	DeviceToken *string   `json:"device_token" db:"device_token"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Token returns the device token and whether the user is reachable
func (u *User) Token() (string, bool) {
	if u == nil || u.DeviceToken == nil || *u.DeviceToken == "" {
		return "", false
	}
	return *u.DeviceToken, true
}
