// migrate applies the embedded SQL migrations. Usage: migrate [up|down] (default up).
package main

import (
	"log"
	"os"

	"personnel-registry/backend/internal/config"
	"personnel-registry/backend/internal/db/migrate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		log.Fatalf("migrate %s: %v", direction, err)
	}
	log.Printf("migrate %s: done", direction)
}
