package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"busseat/internal/schedules"
	"busseat/internal/seats"
	"busseat/internal/shared/config"
	"busseat/internal/shared/database"
	"busseat/internal/users"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const seedPassword = "qwerty123"

type Seeder struct {
	cfg *config.Config
	db  *database.DB
}

func main() {
	fmt.Println("🌱 Starting BusSeat Database Seeder...")

	cfg := config.Load()
	if cfg.SeatStore.Backend == config.SeatStoreMemory {
		log.Fatalf("SEAT_STORE_BACKEND=%s keeps nothing to seed; use %s or %s", config.SeatStoreMemory, config.SeatStorePostgres, config.SeatStoreRedis)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{cfg: cfg, db: db}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Printf("\n🎉 Seeding completed! Log in as operator / rider1 / rider2 with password %q.\n", seedPassword)
}

// CleanDatabase truncates all tables, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"bookings",
		"seat_slots",
		"schedules",
		"buses",
		"users",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds users, the bus fleet and a week of runs
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	// Seat keys never expire, so stale runs would linger without a flush
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis: %v", err)
		}
	}

	userIDs, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	repo := schedules.NewRepository(s.db.PostgreSQL)
	catalog := schedules.NewService(repo, nil)

	busIDs, err := s.SeedBuses(ctx, catalog, userIDs["operator"])
	if err != nil {
		return fmt.Errorf("failed to seed buses: %w", err)
	}

	runs, err := s.SeedRuns(ctx, catalog, busIDs)
	if err != nil {
		return fmt.Errorf("failed to seed runs: %w", err)
	}

	if err := s.MaterializeSeats(ctx, catalog, runs); err != nil {
		return fmt.Errorf("failed to materialize seats: %w", err)
	}

	return nil
}

// SeedUsers creates one operator and two riders
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		username string
		role     users.Role
	}{
		{"operator", users.RoleOperator},
		{"rider1", users.RoleRider},
		{"rider2", users.RoleRider},
	}

	for _, userData := range usersData {
		user := users.User{
			ID:        uuid.New(),
			Username:  userData.username,
			Password:  string(hashedPassword),
			Role:      userData.role,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.username, err)
		}

		userIDs[userData.username] = user.ID
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Username, user.Role)
	}

	return userIDs, nil
}

// SeedBuses registers the operator's fleet
func (s *Seeder) SeedBuses(ctx context.Context, catalog schedules.Service, operatorID uuid.UUID) ([]uuid.UUID, error) {
	fmt.Println("  🚌 Seeding buses...")

	fleet := []schedules.CreateBusRequest{
		{Name: "Volvo 9600 Sleeper", TotalSeats: 36},
		{Name: "Tata Starbus", TotalSeats: 40},
		{Name: "Force Traveller", TotalSeats: 12},
	}

	var busIDs []uuid.UUID
	for _, req := range fleet {
		bus, err := catalog.CreateBus(ctx, operatorID, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create bus %s: %w", req.Name, err)
		}
		busIDs = append(busIDs, bus.ID)
		fmt.Printf("    ✅ Created bus: %s (%d seats)\n", bus.Name, bus.TotalSeats)
	}

	return busIDs, nil
}

// SeedRuns schedules each route daily for the next week
func (s *Seeder) SeedRuns(ctx context.Context, catalog schedules.Service, busIDs []uuid.UUID) ([]*schedules.ScheduledRun, error) {
	fmt.Println("  🗓️  Seeding runs...")

	routes := []struct {
		from, to string
		hour     int
		duration time.Duration
	}{
		{"Pune", "Mumbai", 7, 3 * time.Hour},
		{"Mumbai", "Goa", 21, 11 * time.Hour},
		{"Pune", "Lonavala", 9, 90 * time.Minute},
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	var runs []*schedules.ScheduledRun
	for day := 1; day <= 7; day++ {
		for i, route := range routes {
			departure := today.AddDate(0, 0, day).Add(time.Duration(route.hour) * time.Hour)
			run, err := catalog.CreateRun(ctx, schedules.CreateScheduleRequest{
				BusID:         busIDs[i%len(busIDs)].String(),
				StartingPoint: route.from,
				Destination:   route.to,
				DepartureTime: departure,
				ArrivalTime:   departure.Add(route.duration),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create run %s -> %s: %w", route.from, route.to, err)
			}
			runs = append(runs, run)
		}
	}

	fmt.Printf("    ✅ Created %d runs\n", len(runs))
	return runs, nil
}

// MaterializeSeats creates every run's seat vector up front so the first
// rider does not pay for it
func (s *Seeder) MaterializeSeats(ctx context.Context, catalog schedules.Service, runs []*schedules.ScheduledRun) error {
	fmt.Printf("  💺 Materializing seats (%s store)...\n", s.cfg.SeatStore.Backend)

	var store seats.Store
	if s.cfg.SeatStore.Backend == config.SeatStoreRedis {
		store = seats.NewRedisStore(s.db.Redis, catalog)
	} else {
		store = seats.NewPostgresStore(s.db.PostgreSQL, catalog)
	}

	for _, run := range runs {
		vector, err := store.GetSeats(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("run %s: %w", run.ID, err)
		}
		if vector.FreeCount() != run.Capacity {
			return fmt.Errorf("run %s: %d free seats, want %d", run.ID, vector.FreeCount(), run.Capacity)
		}
	}

	fmt.Printf("    ✅ Materialized %d seat vectors\n", len(runs))
	return nil
}
