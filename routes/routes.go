package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/controllers"
)

// Register mounts every authenticated endpoint on group. protect validates the
// caller's token and must run before any handler.
func Register(group *gin.RouterGroup, protect gin.HandlerFunc) {
	api := group.Group("")
	api.Use(protect)

	users := api.Group("/users")
	{
		users.POST("", controllers.CreateUser)
		users.GET("/me", controllers.GetMyProfile)
		users.PUT("/me", controllers.UpdateMyProfile)
	}

	partners := api.Group("/partners")
	{
		partners.POST("", controllers.RegisterPartner)
		partners.GET("/me", controllers.GetMyPartner)
		partners.GET("/me/analytics", controllers.GetPartnerAnalytics)
	}

	pets := api.Group("/pets")
	{
		pets.POST("", controllers.CreatePet)
		pets.GET("", controllers.ListPets)
		pets.POST("/:id/health-records", controllers.CreateHealthRecord)
		pets.GET("/:id/health-records", controllers.ListHealthRecords)
		pets.POST("/:id/health-records/scan", controllers.ScanHealthDocument)
		pets.GET("/:id/alerts", controllers.ListAlerts)
		pets.GET("/:id/alerts/next", controllers.GetNextAlert)
	}

	api.POST("/health-records/:id/document", controllers.UploadHealthDocument)
	api.PATCH("/alerts/:id", controllers.ResolveAlert)

	bookings := api.Group("/bookings")
	{
		bookings.POST("", controllers.CreateBooking)
		bookings.GET("", controllers.ListBookings)
		bookings.GET("/:id", controllers.GetBooking)
		bookings.PATCH("/:id/status", controllers.UpdateBookingStatus)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", controllers.CreateOrder)
		orders.GET("", controllers.ListOrders)
		orders.GET("/counts", controllers.GetOrderCounts)
		orders.GET("/:id", controllers.GetOrder)
		orders.PATCH("/:id/status", controllers.UpdateOrderStatus)
	}

	api.GET("/recommendations/:kind", controllers.GetRecommendations)
}
