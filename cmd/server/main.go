package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/config"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/database"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/handler"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/middleware"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/queue"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/router"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/sweeper"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and occupancy cache disabled")
	}

	// Repositories.
	books := repository.NewBookRepo(db)
	loans := repository.NewLoanRepo(db)
	reservations := repository.NewReservationRepo(db)
	seats := repository.NewSeatRepo(db)
	seatReservations := repository.NewSeatReservationRepo(db)
	members := repository.NewMemberRepo(db)
	tokens := repository.NewTokenRepo(db)
	adminLogs := repository.NewAdminLogRepo(db)

	// Background expiry sweeps.
	sw := sweeper.New(db, reservations, seatReservations)
	if err := sw.Start(cfg.SweepInterval); err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer sw.Stop()

	// In-process consumer appending loan events to the circulation log.
	go func() {
		if err := queue.StartLoanConsumer(); err != nil {
			log.Printf("loan consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rl := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, members, tokens),
		Books:        handler.NewBookHandler(books),
		Loans:        handler.NewLoanHandler(books, loans, cfg.Policy),
		Reservations: handler.NewReservationHandler(books, reservations, cfg.Policy),
		Seats:        handler.NewSeatHandler(seats, seatReservations, cfg.Policy, rdb),
		Admin:        handler.NewAdminHandler(books, loans, reservations, seatReservations, adminLogs, sw, cfg.Policy),
	}, cfg.JWTSecret, rl)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
