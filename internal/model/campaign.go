package model

import (
	"encoding/json"
	"time"
)

type Member struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// UnmarshalJSON also accepts the older form where a member is a bare user id.
func (m *Member) UnmarshalJSON(data []byte) error {
	var userID string
	if err := json.Unmarshal(data, &userID); err == nil {
		*m = Member{UserID: userID, Role: RoleMember}
		return nil
	}
	type plain Member
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Member(p)
	return nil
}

type Campaign struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Campaign) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
