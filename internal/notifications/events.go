package notifications

import "inkwell/internal/models"

// Feed actions pushed to live clients.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// FeedEvent is the payload pushed to every live feed client after a post mutation.
type FeedEvent struct {
	Action string       `json:"action"`
	Post   *models.Post `json:"post,omitempty"`
	PostID uint         `json:"postId,omitempty"`
}

func CreatedEvent(post *models.Post) FeedEvent {
	return FeedEvent{Action: ActionCreate, Post: post}
}

func UpdatedEvent(post *models.Post) FeedEvent {
	return FeedEvent{Action: ActionUpdate, Post: post}
}

func DeletedEvent(postID uint) FeedEvent {
	return FeedEvent{Action: ActionDelete, PostID: postID}
}
