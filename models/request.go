package models

type QueryTextRequest struct {
	Query string `json:"query"`
}
