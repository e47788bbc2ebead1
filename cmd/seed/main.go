package main

import (
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/db"
	"github.com/unimarket/unimarket-backend/pkg/util"
)

// Seeds a local database with demo accounts and listings for frontend
// development. Safe to run repeatedly; existing emails are skipped.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	gdb := db.GetDB()

	users := demoUsers()
	created := 0
	byEmail := make(map[string]*model.User, len(users))
	for i := range users {
		var existing model.User
		err := gdb.Where("email = ?", users[i].Email).First(&existing).Error
		if err == nil {
			byEmail[existing.Email] = &existing
			continue
		}
		if createErr := gdb.Create(&users[i]).Error; createErr != nil {
			log.Fatal("Failed to create demo user:", createErr)
		}
		byEmail[users[i].Email] = &users[i]
		created++
	}
	fmt.Printf("Demo users: %d created, %d already present\n", created, len(users)-created)

	seller := byEmail["maya@stanford.edu"]
	listings := demoListings(seller.ID)
	created = 0
	for i := range listings {
		var count int64
		gdb.Model(&model.Listing{}).
			Where("seller_id = ? AND title = ?", seller.ID, listings[i].Title).
			Count(&count)
		if count > 0 {
			continue
		}
		if createErr := gdb.Create(&listings[i]).Error; createErr != nil {
			log.Fatal("Failed to create demo listing:", createErr)
		}
		created++
	}
	fmt.Printf("Demo listings: %d created\n", created)
	fmt.Println("Seed completed. All demo passwords are \"password123\".")
}

func demoUsers() []model.User {
	hash, err := util.HashPassword("password123")
	if err != nil {
		log.Fatal("Failed to hash demo password:", err)
	}

	return []model.User{
		{
			Email:        "admin@unimarket.app",
			PasswordHash: hash,
			Name:         "Site Admin",
			Nickname:     "admin",
			Role:         model.RoleAdmin,
		},
		{
			Email:              "maya@stanford.edu",
			PasswordHash:       hash,
			Name:               "Maya Chen",
			Nickname:           "maya",
			Role:               model.RoleUser,
			VerificationStatus: model.UserVerified,
			College:            "Stanford University",
			TrustScore:         80,
			Badges:             pq.StringArray{"verified_student", "early_adopter"},
		},
		{
			Email:        "jordan@gmail.com",
			PasswordHash: hash,
			Name:         "Jordan Lee",
			Nickname:     "jordan",
			Role:         model.RoleUser,
		},
	}
}

func demoListings(sellerID uint) []model.Listing {
	return []model.Listing{
		{
			SellerID:    sellerID,
			Title:       "Calculus: Early Transcendentals, 9th Edition",
			Description: "Lightly used, no highlighting. Pickup near campus.",
			Price:       4500,
			Category:    model.CategoryTextbooks,
			Condition:   model.ConditionGood,
			Status:      model.ListingActive,
			Images:      pq.StringArray{"https://unimarket-uploads.s3.us-east-1.amazonaws.com/listings/demo-calc.jpg"},
		},
		{
			SellerID:    sellerID,
			Title:       "IKEA desk lamp",
			Description: "Works fine, moving out sale.",
			Price:       1200,
			Category:    model.CategoryFurniture,
			Condition:   model.ConditionFair,
			Status:      model.ListingActive,
		},
		{
			SellerID:    sellerID,
			Title:       "TI-84 Plus calculator",
			Description: "Batteries included.",
			Price:       6000,
			Category:    model.CategoryElectronics,
			Condition:   model.ConditionLikeNew,
			Status:      model.ListingSold,
		},
	}
}
