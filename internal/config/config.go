package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time for durations
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Policy carries the circulation rules that every
// core operation enforces.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	SweepInterval  time.Duration // how often the expiry sweeper runs
	Policy         Policy
}

// Policy groups the circulation constants. All of them are overridable from
// the environment but default to the library's standing rules.
type Policy struct {
	LoanPeriodDays       int           // how long a borrowed book may be kept
	MaxRenewals          int           // renewals allowed per loan
	MaxLoansPerMember    int           // concurrently active loans per member
	FinePerDay           int64         // currency units charged per overdue day
	ReservationDays      int           // book reservation validity
	MaxReservations      int           // concurrently active book reservations per member
	MinSeatDurationHours int           // shortest seat booking
	MaxSeatDurationHours int           // longest seat booking
	CheckInWindow        time.Duration // how early check-in opens before start
}

// LoanPeriod returns the loan period as a duration.
func (p Policy) LoanPeriod() time.Duration {
	return time.Duration(p.LoanPeriodDays) * 24 * time.Hour
}

// ReservationValidity returns the book reservation validity as a duration.
func (p Policy) ReservationValidity() time.Duration {
	return time.Duration(p.ReservationDays) * 24 * time.Hour
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 30),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 14),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		SweepInterval:  envDur("SWEEP_INTERVAL", 5*time.Minute),
		Policy:         LoadPolicy(),
	}
}

// LoadPolicy builds the circulation policy from the environment, falling back
// to the library defaults.
func LoadPolicy() Policy {
	p := Policy{
		LoanPeriodDays:       envInt("LOAN_PERIOD_DAYS", 14),
		MaxRenewals:          envInt("MAX_RENEWALS", 2),
		MaxLoansPerMember:    envInt("MAX_LOANS_PER_MEMBER", 5),
		FinePerDay:           int64(envInt("FINE_PER_DAY", 500)),
		ReservationDays:      envInt("RESERVATION_DAYS", 7),
		MaxReservations:      envInt("MAX_RESERVATIONS_PER_MEMBER", 3),
		MinSeatDurationHours: envInt("SEAT_MIN_DURATION_HOURS", 1),
		MaxSeatDurationHours: envInt("SEAT_MAX_DURATION_HOURS", 4),
		CheckInWindow:        envDur("SEAT_CHECKIN_WINDOW", 10*time.Minute),
	}
	if p.MinSeatDurationHours < 1 {
		p.MinSeatDurationHours = 1
	}
	if p.MaxSeatDurationHours < p.MinSeatDurationHours {
		p.MaxSeatDurationHours = p.MinSeatDurationHours
	}
	return p
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envInt reads an integer environment variable with a default.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

// envDur reads a duration environment variable with a default.
func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
