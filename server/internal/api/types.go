package api

import "github.com/painless-params/painless/server/internal/store"

// UpdateRequest is the body of POST /update.
type UpdateRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RemoveRequest is the body of POST /remove.
type RemoveRequest struct {
	Name string `json:"name"`
}

// ParametersResponse is the payload for GET /api/v1/parameters.
type ParametersResponse struct {
	Parameters []store.Parameter `json:"parameters"`
	Count      int               `json:"count"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
