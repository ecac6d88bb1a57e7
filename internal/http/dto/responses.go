package dto

type AuthResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
	Network string `json:"network"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ProofPayloadResponse struct {
	Payload string `json:"payload"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Network string `json:"network"`
}
