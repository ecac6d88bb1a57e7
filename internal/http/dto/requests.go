package dto

import "github.com/walletchat/backend/internal/ton"

type ConnectWalletRequest struct {
	Address   string    `json:"address"`
	Network   string    `json:"network"`
	PublicKey string    `json:"public_key"`
	Proof     ton.Proof `json:"proof"`
}

type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

type SendMessageRequest struct {
	Content   string  `json:"content"`
	Encrypted bool    `json:"is_encrypted"`
	Signature *string `json:"signature,omitempty"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	Status      string  `json:"status,omitempty"`
}
