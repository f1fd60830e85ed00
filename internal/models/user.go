// Package models contains the persisted records and API projections for inkwell.
package models

import "time"

// DefaultStatus is assigned to every newly registered user.
const DefaultStatus = "I am new!"

// User is an account that can author posts.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	Status    string    `gorm:"not null" json:"status"`
	Posts     []Post    `gorm:"foreignKey:CreatorID" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Author is the public projection of a post's owner.
type Author struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// AsAuthor projects the user into the shape attached to posts.
func (u *User) AsAuthor() *Author {
	if u == nil {
		return nil
	}
	return &Author{ID: u.ID, Name: u.Name}
}
