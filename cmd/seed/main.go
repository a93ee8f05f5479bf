package main

import (
	"context"
	"log"
	"time"

	"casevault/internal/config"
	"casevault/internal/database"
	"casevault/internal/domain/claim"
	"casevault/internal/domain/push"
	"casevault/internal/domain/staff"
	jwtsvc "casevault/internal/pkg/jwt"
)

// nopPublisher drops events; seeding happens before any client connects.
type nopPublisher struct{}

func (nopPublisher) Publish(*push.Event) {}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(&claim.Claim{}, &staff.Staff{}); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM claims")
	db.Exec("DELETE FROM staff")

	ctx := context.Background()

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	staffService := staff.NewService(staff.NewRepository(db), j)

	log.Println("Creating staff accounts...")
	if _, err := staffService.Register(ctx, "admin@casevault.gg", "admin123", "Admin", staff.RoleAdmin); err != nil {
		log.Fatal(err)
	}
	if _, err := staffService.Register(ctx, "mod@casevault.gg", "mod123", "Moderator", staff.RoleModerator); err != nil {
		log.Fatal(err)
	}

	log.Println("Creating sample claims...")
	claimService := claim.NewService(claim.NewRepository(db), nopPublisher{}, cfg.ClaimTimeout)

	samples := []claim.CreateRequest{
		{
			PlayerID:  1001,
			Item:      claim.ItemRef{Name: "Dragonfire Blade", Rarity: "legendary", Type: "knife", Image: "/items/dragonfire.png"},
			CaseName:  "Inferno Case",
			Comment:   "please trade asap",
			TradeLink: "https://trade.example/p/1001",
		},
		{
			PlayerID: 1002,
			Item:     claim.ItemRef{Name: "Frozen Talon", Rarity: "rare", Type: "glove"},
			CaseName: "Glacier Case",
		},
		{
			PlayerID: 1003,
			Item:     claim.ItemRef{Name: "Copper Coin Charm", Rarity: "common", Type: "charm"},
			CaseName: "Starter Case",
		},
	}
	for _, req := range samples {
		if _, err := claimService.Create(ctx, req); err != nil {
			log.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond) // keep created_at ordering stable
	}

	log.Println("Seed complete.")
}
