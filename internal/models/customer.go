package models

import (
	"fmt"
	"time"
)

type Customer struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user" gorm:"uniqueIndex;not null"`
	User        *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	PhoneNumber *string   `json:"phone_number" gorm:"size:20"`
	Email       *string   `json:"email" gorm:"size:254"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c Customer) String() string {
	return fmt.Sprintf("%s ID: %d", c.Name, c.ID)
}

// Phone returns the phone number or an empty string.
func (c *Customer) Phone() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}
