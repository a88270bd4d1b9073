package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(ctx, pool)
	seedProjects(ctx, pool)
	seedSettings(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	users := []struct {
		Email    string
		FullName string
		Role     string
		Balance  string
	}{
		{"platform@kodpazar.com", "Kodpazar Platform", "platform", "0"},
		{"admin@kodpazar.com", "Admin User", "admin", "0"},
		{"ayse@example.com", "Ayse Yilmaz", "user", "1500.00"},
		{"mehmet@example.com", "Mehmet Demir", "user", "820.50"},
		{"zeynep@example.com", "Zeynep Kaya", "user", "0"},
		{"emre@example.com", "Emre Celik", "user", "245.75"},
		{"elif@example.com", "Elif Sahin", "user", "3000.00"},
	}

	log.Println("Seeding users...")
	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}
	for _, u := range users {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (email, password_hash, full_name, role, balance)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (email) DO NOTHING
		`, u.Email, hash, u.FullName, u.Role, u.Balance)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedProjects(ctx context.Context, pool *pgxpool.Pool) {
	projects := []struct {
		OwnerEmail    string
		Title         string
		Slug          string
		Description   string
		Price         string
		DiscountPrice *string
	}{
		{"ayse@example.com", "Envanter Takip Sistemi", "envanter-takip-sistemi", "Kucuk isletmeler icin stok ve envanter yonetimi.", "920.00", nil},
		{"ayse@example.com", "E-Fatura Entegrasyonu", "e-fatura-entegrasyonu", "GIB e-fatura servisleriyle hazir entegrasyon paketi.", "1450.00", strPtr("1200.00")},
		{"mehmet@example.com", "Randevu Yonetimi", "randevu-yonetimi", "Klinik ve kuafor randevulari icin takvim modulu.", "560.00", nil},
		{"mehmet@example.com", "Kargo Takip API", "kargo-takip-api", "Yerli kargo firmalarini tek catida toplayan takip API'si.", "780.00", strPtr("650.00")},
		{"elif@example.com", "Uyelik ve Odeme Portali", "uyelik-odeme-portali", "Abonelik tabanli icerik siteleri icin hazir portal.", "2100.00", nil},
	}

	log.Println("Seeding projects...")
	for _, p := range projects {
		_, err := pool.Exec(ctx, `
			INSERT INTO projects (owner_id, title, slug, description, price, discount_price)
			SELECT id, $2, $3, $4, $5, $6 FROM users WHERE email = $1
			ON CONFLICT (slug) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				price = EXCLUDED.price,
				discount_price = EXCLUDED.discount_price
		`, p.OwnerEmail, p.Title, p.Slug, p.Description, p.Price, p.DiscountPrice)
		if err != nil {
			log.Printf("Failed to upsert project %s: %v", p.Slug, err)
		}
	}
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) {
	settings := map[string]string{
		"commission_rate": "15",
		"tax_rate":        "18",
	}

	log.Println("Seeding settings...")
	for key, value := range settings {
		_, err := pool.Exec(ctx, `
			INSERT INTO settings (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING
		`, key, value)
		if err != nil {
			log.Printf("Failed to seed setting %s: %v", key, err)
		}
	}
}

func strPtr(s string) *string { return &s }
