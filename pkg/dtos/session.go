package dtos

import (
	"github.com/wagate/pkg/entities"
)

type SessionCreateDTO struct {
	ID     string                 `json:"id" binding:"required,sessionid"`
	Config entities.SessionConfig `json:"config"`
}

type SessionDestroyDTO struct {
	Logout bool `json:"logout"`
}

type SendTextDTO struct {
	To   string `json:"to" binding:"required"`
	Text string `json:"text" binding:"required,max=65536"`
}

type QRCodeDTO struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	QRCode    string `json:"qr_code"`
}

type SessionStatusDTO struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}
