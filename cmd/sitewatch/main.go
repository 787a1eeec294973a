package main

import (
	"log"
	"os"

	"github.com/MrSnakeDoc/sitewatch/internal/app"
)

func main() {
	// sitewatch import <clients.yaml> seeds the roster database
	if len(os.Args) == 3 && os.Args[1] == "import" {
		if err := app.Import(os.Args[2]); err != nil {
			log.Fatalf("❌ sitewatch import failed: %v", err)
		}
		return
	}

	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ sitewatch failed: %v", err)
	}
}
