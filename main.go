// Package main perpus API.
//
// @title           Perpus Library API
// @version         1.0
// @description     Library management service (catalog, loans, fines, members).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/FanProject516/perpus-app/app/echoServer"
	authctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/auth"
	bookctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/book"
	categoryctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/category"
	loanctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/loan"
	"github.com/FanProject516/perpus-app/app/echoServer/validation"
	"github.com/FanProject516/perpus-app/config"
	"github.com/FanProject516/perpus-app/model"
	bookrepo "github.com/FanProject516/perpus-app/repository/book"
	categoryrepo "github.com/FanProject516/perpus-app/repository/category"
	loanrepo "github.com/FanProject516/perpus-app/repository/loan"
	userrepo "github.com/FanProject516/perpus-app/repository/user"
	authsvc "github.com/FanProject516/perpus-app/service/auth"
	booksvc "github.com/FanProject516/perpus-app/service/book"
	categorysvc "github.com/FanProject516/perpus-app/service/category"
	loansvc "github.com/FanProject516/perpus-app/service/loan"
	"github.com/FanProject516/perpus-app/util/clock"
	"github.com/FanProject516/perpus-app/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB: *sql.DB
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	cr := categoryrepo.New(db)
	lr := loanrepo.New(db)

	// services
	policy := loansvc.Policy{
		LoanPeriodDays: cfg.LoanPeriodDays,
		MinExtendDays:  1,
		MaxExtendDays:  cfg.MaxExtendDays,
		DailyFineRate:  cfg.DailyFineRate,
		Caps: map[string]int{
			model.RoleMember:    cfg.MemberLoanCap,
			model.RoleLibrarian: cfg.LibrarianLoanCap,
			model.RoleAdmin:     cfg.LibrarianLoanCap,
		},
		DefaultCap: cfg.MemberLoanCap,
	}

	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br)
	cs := categorysvc.New(cr)
	ls := loansvc.New(lr, br, clock.NewSystem(), policy, log)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	categoryC := &categoryctrl.Controller{Svc: cs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:     authC,
		Book:     bookC,
		Category: categoryC,
		Loan:     loanC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
