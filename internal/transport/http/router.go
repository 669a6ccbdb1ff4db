package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/proshop-dev/proshop-backend/internal/handlers"
	authmw "github.com/proshop-dev/proshop-backend/internal/middleware/auth"
)

type Deps struct {
	Auth     *authmw.Middleware
	AuthH    *handlers.AuthHandler
	UserH    *handlers.UserHandler
	ResetH   *handlers.ResetHandler
	ProductH *handlers.ProductHandler
	ReviewH  *handlers.ReviewHandler
	OrderH   *handlers.OrderHandler
	SearchH  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	users := api.Group("/users")
	users.POST("", d.AuthH.Register)
	users.POST("/login", d.AuthH.Login)
	users.GET("/profile", d.AuthH.GetProfile, d.Auth.RequireAuth)
	users.PUT("/profile", d.AuthH.UpdateProfile, d.Auth.RequireAuth)
	users.POST("/forgotpassword", d.ResetH.RequestReset)
	users.POST("/forgotpassword/check", d.ResetH.CheckReset)
	users.PUT("/resetpassword", d.ResetH.CompleteReset)
	users.GET("", d.UserH.ListUsers, d.Auth.AdminOnly)
	users.GET("/:id", d.UserH.GetUser, d.Auth.AdminOnly)
	users.PUT("/:id", d.UserH.UpdateUser, d.Auth.AdminOnly)
	users.DELETE("/:id", d.UserH.DeleteUser, d.Auth.AdminOnly)

	products := api.Group("/products")
	products.GET("", d.ProductH.GetProducts)
	products.GET("/top", d.ProductH.GetTopProducts)
	products.GET("/:id", d.ProductH.GetProduct)
	products.POST("", d.ProductH.CreateProduct, d.Auth.AdminOnly)
	products.PUT("/:id", d.ProductH.UpdateProduct, d.Auth.AdminOnly)
	products.DELETE("/:id", d.ProductH.DeleteProduct, d.Auth.AdminOnly)
	products.POST("/:id/reviews", d.ReviewH.AddReview, d.Auth.RequireAuth)
	if d.SearchH != nil {
		products.GET("/search", d.SearchH.Search)
	}

	orders := api.Group("/orders", d.Auth.RequireAuth)
	orders.POST("", d.OrderH.CreateOrder)
	orders.GET("/myorders", d.OrderH.GetMyOrders)
	orders.GET("/:id", d.OrderH.GetOrder)
	orders.PUT("/:id/pay", d.OrderH.MarkPaid)
	orders.GET("", d.OrderH.GetOrders, d.Auth.AdminOnly)
	orders.PUT("/:id/sent", d.OrderH.MarkSent, d.Auth.AdminOnly)
	orders.PUT("/:id/deliver", d.OrderH.MarkDelivered, d.Auth.AdminOnly)
}
