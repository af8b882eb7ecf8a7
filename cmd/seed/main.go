// Command seed populates the document store with demo listings for local
// development.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"borrowbox/backend/config"
	"borrowbox/backend/database"
	"borrowbox/backend/models"
	"borrowbox/backend/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	clients, err := database.InitFirebase(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	if err := seed(ctx, clients.Backend); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	fmt.Println("Demo data seeded successfully!")
}

func seed(ctx context.Context, db database.Backend) error {
	now := time.Now().UTC().Format(time.RFC3339)

	demoUsers := []models.UserProfile{
		{UID: "demo-lender", Email: "lender@example.com", Name: "Demo Lender", UserType: models.UserTypeLender, City: "Dublin", CreatedAt: now},
		{UID: "demo-borrower", Email: "borrower@example.com", Name: "Demo Borrower", UserType: models.UserTypeBorrower, City: "Galway", CreatedAt: now},
	}
	for _, user := range demoUsers {
		if err := db.Set(ctx, models.CollectionUsers, user.UID, user.Doc()); err != nil {
			return fmt.Errorf("seeding user %s: %w", user.UID, err)
		}
		log.Printf("Seeded user %s", user.UID)
	}

	catalog := services.NewCatalog(db)
	demoItems := []models.Item{
		{Title: "Cordless Drill", Description: "18V drill with two batteries", Category: models.CategoryTools, Price: 15, PricingType: models.PricingPerDay},
		{Title: "Camping Tent", Description: "Sleeps four, waterproof", Category: models.CategoryOutdoor, Price: 20, PricingType: models.PricingPerDay},
		{Title: "Projector", Description: "1080p projector with HDMI cable", Category: models.CategoryElectronics, Price: 2, PricingType: models.PricingPerHour},
		{Title: "Football", Description: "Size 5, barely used", Category: models.CategorySports, IsFree: true},
	}
	for _, item := range demoItems {
		item.OwnerID = "demo-lender"
		item.OwnerName = "Demo Lender"
		item.Available = true
		id, err := catalog.CreateItem(ctx, item)
		if err != nil {
			return fmt.Errorf("seeding item %q: %w", item.Title, err)
		}
		log.Printf("Seeded item %q as %s", item.Title, id)
	}

	return nil
}
