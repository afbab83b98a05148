package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	authctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/auth"
	bookctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/book"
	categoryctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/category"
	loanctrl "github.com/FanProject516/perpus-app/app/echoServer/controller/loan"
)

type C struct {
	Auth      *authctrl.Controller
	Book      *bookctrl.Controller
	Category  *categoryctrl.Controller
	Loan      *loanctrl.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id + role extraction from verified claims
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := ctx.Get("user").(*jwt.Token)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			role, _ := claims["role"].(string)

			ctx.Set("user_id", int64(sub))
			ctx.Set("role", role)
			return next(ctx)
		}
	})

	// Books
	auth.GET("/books", c.Book.List)
	auth.GET("/books/statistics", c.Book.Statistics)
	auth.GET("/books/:id", c.Book.Detail)
	auth.POST("/books", c.Book.Create)
	auth.PUT("/books/:id", c.Book.Update)
	auth.DELETE("/books/:id", c.Book.Delete)
	auth.POST("/books/:id/copies", c.Book.AddCopies)

	// Categories
	auth.GET("/categories", c.Category.List)
	auth.GET("/categories/tree", c.Category.Tree)
	auth.GET("/categories/:id", c.Category.Detail)
	auth.POST("/categories", c.Category.Create)
	auth.PUT("/categories/:id", c.Category.Update)
	auth.DELETE("/categories/:id", c.Category.Delete)

	// Loans
	auth.POST("/loans", c.Loan.Borrow)
	auth.GET("/loans", c.Loan.List)
	auth.GET("/loans/my", c.Loan.My)
	auth.GET("/loans/statistics", c.Loan.Statistics)
	auth.POST("/loans/sweep-overdue", c.Loan.SweepOverdue)
	auth.GET("/loans/:id", c.Loan.Detail)
	auth.POST("/loans/:id/return", c.Loan.Return)
	auth.POST("/loans/:id/extend", c.Loan.Extend)
	auth.POST("/loans/:id/overdue", c.Loan.MarkOverdue)
}
