package model

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("entity name already exists in campaign")
	ErrInvalidInput  = errors.New("invalid input")
)

// Identity is the active campaign and user. Auto-created entities are
// attributed to it.
type Identity struct {
	CampaignID string
	UserID     string
}
