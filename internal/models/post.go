package models

import "time"

// Post is a feed entry owned by exactly one user.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageURL  string    `json:"imageUrl"`
	CreatorID uint      `gorm:"not null;index" json:"creatorId"`
	Creator   *Author   `gorm:"-" json:"creator,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// PostPage is one page of the feed plus the total number of posts.
type PostPage struct {
	Posts      []Post `json:"posts"`
	TotalPosts int64  `json:"totalPosts"`
}
