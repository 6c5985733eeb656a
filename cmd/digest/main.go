package main

import (
	"log"

	"github.com/MrSnakeDoc/digest/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ digest failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ digest failed to start: %v", err)
	}
}
