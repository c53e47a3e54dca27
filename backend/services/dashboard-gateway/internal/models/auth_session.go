package models

import (
	"encoding/json"
	"time"
)

// UpstreamCookie is a backend cookie replayed on the operator's behalf.
type UpstreamCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AuthSession is the gateway-side login state of one operator.
type AuthSession struct {
	ID        string           `json:"id"`
	UserID    int64            `json:"user_id"`
	Email     string           `json:"email"`
	Static    bool             `json:"static,omitempty"`
	User      json.RawMessage  `json:"user"`
	Cookies   []UpstreamCookie `json:"cookies,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// DecodeUser unpacks the stored backend user object. A malformed object
// yields false.
func (s AuthSession) DecodeUser() (User, bool) {
	var u User
	if len(s.User) == 0 {
		return u, false
	}
	if err := json.Unmarshal(s.User, &u); err != nil {
		return User{}, false
	}
	return u, true
}
