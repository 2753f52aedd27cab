package main

import (
	"github.com/eleven-am/guild-backend/internal/bootstrap"
)

// @title Guild Backend API
// @version 1.0.0
// @description Users, provider logins and friendships with batched lookups and live event streams

// @BasePath /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @securityDefinitions.apikey SessionAuth
// @in cookie
// @name guild_session

func main() {
	bootstrap.Run()
}
