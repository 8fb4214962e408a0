package models

// Requests for scanner HTTP endpoints.

type EdgeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=1,max=10"`
	Force  bool   `query:"force" json:"force"`
}

type ScanRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,max=200,dive,required,max=10"`
	Force   bool     `json:"force"`
}

type LatestRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type SessionRequest struct {
	At string `query:"at" json:"at"`
}
