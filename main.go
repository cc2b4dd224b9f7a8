package main

import (
	"github.com/wagate/app/cmd"
)

// @title wagate API
// @version 1.0
// @description Multi-session WhatsApp gateway with webhooks and realtime events.

// @host  localhost:8000
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cmd.StartApp()
}
