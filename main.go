package main

import (
	"crm-calendar-api/core/logger"
	"crm-calendar-api/core/server"
)

// @title Team Calendar API
// @version 1.0
// @description Calendar aggregation backend: per-member Google Calendar connections and the merged team timeline.

// @host localhost:7070
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
