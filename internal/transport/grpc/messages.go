package grpc

import "playledger/internal/model"

// Request and response messages that have no counterpart in model.

type Empty struct{}

type Ack struct {
	Status string `json:"status"`
}

type RecordRequest struct {
	Participant model.Address `json:"participant"`
	Day         int64         `json:"day"`
	Today       bool          `json:"today,omitempty"`
}

type ParticipantRequest struct {
	Participant model.Address `json:"participant"`
}

type LeaderboardRequest struct {
	Limit int `json:"limit"`
}

type LeaderboardResponse struct {
	Entries []model.LeaderboardEntry `json:"entries"`
}

type TodayResponse struct {
	Day int64 `json:"day"`
}

type BalanceRequest struct {
	Account model.Address `json:"account"`
}

type BalanceResponse struct {
	Account model.Address `json:"account"`
	Balance string        `json:"balance"`
}

type AllowanceRequest struct {
	Owner   model.Address `json:"owner"`
	Spender model.Address `json:"spender"`
}

type AllowanceResponse struct {
	Owner     model.Address `json:"owner"`
	Spender   model.Address `json:"spender"`
	Allowance string        `json:"allowance"`
}

type AssetRequest struct {
	Contract model.Address `json:"contract,omitempty"`
	ID       uint64        `json:"id"`
}

type EventRequest struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
}

type EventResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}
