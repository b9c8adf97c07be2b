package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer conn.Close(ctx)

	if err := conn.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(ctx, conn)
	seedRates(ctx, conn)
	seedProducts(ctx, conn)
	seedCounter(ctx, conn)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, conn *pgx.Conn) {
	users := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Meera Shah", "owner@aurum.local", "owner"},
		{"Ravi Kulkarni", "ravi@aurum.local", "cashier"},
		{"Anita Desai", "anita@aurum.local", "cashier"},
	}

	fmt.Println("Seeding Users...")
	for _, u := range users {
		hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("Failed to hash seed password: %v", err)
		}
		_, err = conn.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, role)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (email) DO NOTHING;
		`, uuid.New(), u.Name, u.Email, hash, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedRates(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("Seeding Metal Rates...")
	// Paise per gram.
	_, err := conn.Exec(ctx, `
		INSERT INTO metal_rates (day, gold_per_gram, silver_per_gram)
		VALUES (CURRENT_DATE, $1, $2)
		ON CONFLICT (day) DO UPDATE SET
			gold_per_gram = EXCLUDED.gold_per_gram,
			silver_per_gram = EXCLUDED.silver_per_gram,
			updated_at = now();
	`, int64(583_000), int64(7_500))
	if err != nil {
		log.Printf("Failed to seed metal rates: %v", err)
	}
}

func seedProducts(ctx context.Context, conn *pgx.Conn) {
	products := []struct {
		Name         string
		Category     string
		Barcode      string
		WeightMg     int64
		SellingPrice int64
		MakingCharge int64
		ChargeType   string
		GSTBps       int32
		Quantity     int32
	}{
		{"Gold Chain 22K", "gold", "GLD1001", 10_000, 0, 1200, "percentage", 300, 5},
		{"Gold Bangle Pair 22K", "gold", "GLD1002", 24_500, 0, 1000, "percentage", 300, 3},
		{"Gold Stud Earrings 18K", "gold", "GLD1003", 3_200, 0, 1500, "percentage", 300, 8},
		{"Gold Coin 5g", "gold", "GLD1004", 5_000, 0, 15_000, "fixed", 300, 20},
		{"Silver Anklet Pair", "silver", "SLV2001", 42_000, 0, 800, "percentage", 300, 10},
		{"Silver Pooja Thali", "silver", "SLV2002", 185_000, 0, 50_000, "fixed", 300, 4},
		{"Silver Toe Rings", "silver", "SLV2003", 8_500, 0, 600, "percentage", 300, 15},
		{"Imitation Necklace Set", "imitation", "IMT3001", 0, 85_000, 0, "fixed", 300, 25},
		{"Imitation Jhumka", "imitation", "IMT3002", 0, 35_000, 0, "fixed", 300, 40},
		{"Imitation Bridal Set", "imitation", "IMT3003", 0, 450_000, 0, "fixed", 300, 6},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		_, err := conn.Exec(ctx, `
			INSERT INTO products (id, name, category, barcode, weight_mg, selling_price,
				making_charge, making_charge_type, gst_bps, quantity, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'in_stock')
			ON CONFLICT (barcode) DO UPDATE SET
				selling_price = EXCLUDED.selling_price,
				making_charge = EXCLUDED.making_charge,
				quantity = EXCLUDED.quantity,
				status = 'in_stock',
				updated_at = now();
		`, uuid.New(), p.Name, p.Category, p.Barcode, p.WeightMg, p.SellingPrice,
			p.MakingCharge, p.ChargeType, p.GSTBps, p.Quantity)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedCounter(ctx context.Context, conn *pgx.Conn) {
	key := os.Getenv("INVOICE_COUNTER_KEY")
	if key == "" {
		key = "invoices"
	}

	fmt.Println("Seeding Invoice Counter...")
	_, err := conn.Exec(ctx, `
		INSERT INTO invoice_counters (key, last_number)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING;
	`, key, int64(1000))
	if err != nil {
		log.Printf("Failed to seed invoice counter: %v", err)
	}
}
