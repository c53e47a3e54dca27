package models

import "encoding/json"

// User is a dashboard or field user.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	Email    string `json:"email"`
	MobileNo string `json:"mobileno"`
}

// LoginRequest carries credentials to the backend.
type LoginRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
	IP       string `json:"IP,omitempty"`
}

// LoginResponse is the backend /Home/UserLogin payload.
type LoginResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    json.RawMessage `json:"user"`
}
