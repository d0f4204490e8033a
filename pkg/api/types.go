package api

import "leadscout/pkg/models"

// HealthResponse is returned by /healthz
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// Lead is an expanded seen post
type Lead struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

// LeadsResponse is returned by /leads
type LeadsResponse struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
	Leads []Lead   `json:"leads,omitempty"`
}

// UsersResponse is returned by /users
type UsersResponse struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ActiveUsersResponse is returned by /active-users
type ActiveUsersResponse struct {
	Count int                 `json:"count"`
	Users []models.RankedUser `json:"users"`
}

// ErrorResponse carries a failure message
type ErrorResponse struct {
	Error string `json:"error"`
}
