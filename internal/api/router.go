package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"resource-reservation-backend/config"
	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/clock"
	"resource-reservation-backend/internal/commandq"
	"resource-reservation-backend/internal/metrics"
	"resource-reservation-backend/internal/mw"
	"resource-reservation-backend/internal/realtime"
	"resource-reservation-backend/internal/scheduler"
	"resource-reservation-backend/internal/store"
)

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Store     store.Store
	Scheduler *scheduler.Service
	Commands  *commandq.Queue
	Audit     *audit.Recorder
	Clock     clock.Clock
	Hub       *realtime.Hub
	WebPush   *webpush.Options
	Config    *config.Config
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()

	db := d.Store.DB()
	handler := NewHandler(d)

	corsCfg := cors.DefaultConfig()
	if len(d.Config.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = d.Config.Server.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-API-Key")
	r.Use(cors.New(corsCfg))
	r.Use(metrics.Requests())

	r.GET("/", handler.Root)
	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", metrics.Handler())
	if d.Hub != nil {
		r.GET("/ws/updates", realtime.ServeWS(d.Hub))
	}

	requireAuth := mw.RequireAuth(db, d.Config.Auth.JWTSecret)

	cacheTTL := time.Duration(d.Config.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(mw.RateLimit(d.Config.Server.RateLimitPerSec, d.Config.Server.RateLimitBurst))
	{
		api.POST("/auth/login", handler.Login)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	// Static and parameter segments cannot share a position in gin's route
	// tree, so fixed paths (auth/me, stats, exports, the device surface) live
	// outside the :id subtrees.
	authed := api.Group("")
	authed.Use(requireAuth)
	{
		authed.GET("/auth/me", handler.Me)

		authed.GET("/resources", caching, handler.ListResources)
		authed.GET("/resources/:id", handler.GetResource)
		authed.POST("/resources/:id/reserve", handler.ReserveResource)
		authed.POST("/resources/:id/release", handler.ReleaseResource)

		authed.GET("/reservations", handler.ListReservations)
		authed.GET("/reservations/:id", handler.GetReservation)
		authed.POST("/reservations/:id/release", handler.ReleaseReservation)

		authed.GET("/devices", handler.ListDevices)
		authed.GET("/devices/:id", handler.GetDevice)
	}

	admin := api.Group("")
	admin.Use(requireAuth, mw.RequireAdmin())
	{
		admin.POST("/users", handler.CreateUser)
		admin.GET("/users", handler.ListUsers)
		admin.GET("/users/:id", handler.GetUser)
		admin.PUT("/users/:id", handler.UpdateUser)
		admin.DELETE("/users/:id", handler.DeleteUser)
		admin.GET("/users/:id/permissions", handler.ListPermissions)
		admin.POST("/users/:id/permissions", handler.GrantPermission)
		admin.DELETE("/users/:id/permissions/:resource_id", handler.RevokePermission)

		admin.POST("/resources", handler.CreateResource)
		admin.PUT("/resources/:id", handler.UpdateResource)
		admin.DELETE("/resources/:id", handler.DeleteResource)

		admin.POST("/devices", handler.CreateDevice)
		admin.PUT("/devices/:id", handler.UpdateDevice)
		admin.DELETE("/devices/:id", handler.DeleteDevice)
		admin.GET("/devices/:id/commands", handler.ListDeviceCommands)

		admin.GET("/stats/reservations", caching, handler.ReservationStats)
		admin.GET("/exports/reservations", handler.ExportReservations)

		admin.GET("/audit-logs", handler.ListAuditLogs)
	}

	device := api.Group("/device")
	device.Use(mw.DeviceAuth(db, d.Config.Auth.JWTSecret))
	{
		device.POST("/report", handler.DeviceReport)
		device.GET("/commands/next", handler.NextDeviceCommand)
	}

	return r
}
