package config

import (
	"log/slog"
	"os"
	"strconv"
)

func Load() App {
	cfg := App{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET", "local_dev_secret"),
		Env:         getenv("APP_ENV", "dev"),

		LoanPeriodDays:   getint("LOAN_PERIOD_DAYS", 14),
		MaxExtendDays:    getint("LOAN_MAX_EXTEND_DAYS", 14),
		DailyFineRate:    getfloat("LOAN_DAILY_FINE_RATE", 1000),
		MemberLoanCap:    getint("LOAN_CAP_MEMBER", 3),
		LibrarianLoanCap: getint("LOAN_CAP_LIBRARIAN", 10),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("bad int env, using default", "key", k, "value", v)
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("bad float env, using default", "key", k, "value", v)
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
