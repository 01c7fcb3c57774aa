package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ticketbay/ticketbay/internal/server"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logrus.Warn("no .env file found, using environment")
	}

	if err := server.Start(); err != nil {
		logrus.Fatalf("server failed to start: %v", err)
	}
}
