package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/perscom/personnel-api/internal/audit"
	"github.com/perscom/personnel-api/internal/config"
	"github.com/perscom/personnel-api/internal/handler"
	"github.com/perscom/personnel-api/internal/middleware"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	AdminHandler        *handler.AdminHandler
	ProcedureHandler    *handler.ProcedureHandler
	ActivityHandler     *handler.ActivityHandler
	NotificationHandler *handler.NotificationHandler
	Recorder            audit.Recorder
	JWTMiddleware       fiber.Handler
}

type auditSpec struct {
	action   string
	describe middleware.Describer
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Public auth routes
	if deps.AuthHandler != nil {
		auth := app.Group("/api/v1/auth", middleware.RateLimit("auth", 20, time.Minute))
		mount(auth, deps.AuthHandler.Routes(), deps.Recorder, map[string]auditSpec{
			"POST /signup": {action: models.ActionSignup, describe: middleware.Static("Submitted a registration request")},
			"POST /login":  {action: models.ActionLogin, describe: middleware.Static("Logged in")},
		})

		logout := deps.AuthHandler.LogoutRoute()
		mountOne(auth, logout, jwtMiddleware, auditMiddleware(deps.Recorder, auditSpec{
			action:   models.ActionLogout,
			describe: middleware.Static("Logged out"),
		}))
	}

	// Personnel profile routes
	if deps.UserHandler != nil {
		users := app.Group("/api/v1/users",
			jwtMiddleware,
			middleware.RequireRole(middleware.AuthRoleUser),
			middleware.RateLimit("users", 60, time.Minute),
		)
		mount(users, deps.UserHandler.ProfileRoutes(), deps.Recorder, map[string]auditSpec{
			"PUT /me":        {action: models.ActionProfileUpdate, describe: middleware.Static("Updated own profile")},
			"POST /me/photo": {action: models.ActionProfileUpdate, describe: middleware.Static("Updated profile photo")},
		})
	}

	// Notification polling endpoints carry their own larger limiter bucket so
	// a 30s poll loop across many tabs does not starve the rest of the API.
	if deps.NotificationHandler != nil {
		userFeed := app.Group("/api/v1/notifications",
			jwtMiddleware,
			middleware.RequireRole(middleware.AuthRoleUser),
			middleware.RateLimit("notifications", 240, time.Minute),
		)
		deps.NotificationHandler.RegisterUser(userFeed)

		adminFeed := app.Group("/api/v1/admin/notifications",
			jwtMiddleware,
			middleware.RequireRole(middleware.AuthRoleAdmin),
			middleware.RateLimit("admin-notifications", 240, time.Minute),
		)
		deps.NotificationHandler.RegisterAdmin(adminFeed, auditMiddleware(deps.Recorder, auditSpec{
			action:   models.ActionNotificationSent,
			describe: middleware.Static("Sent notifications"),
		}))
	}

	// Admin user management and audit trail. The limiter skips the
	// notification subtree registered above, which has its own budget.
	admin := app.Group("/api/v1/admin",
		jwtMiddleware,
		middleware.RequireRole(middleware.AuthRoleAdmin),
		middleware.RateLimitWithSkip("admin", 120, time.Minute, func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/v1/admin/notifications")
		}),
	)

	if deps.AdminHandler != nil {
		mount(admin, deps.AdminHandler.Routes(), deps.Recorder, map[string]auditSpec{
			"PUT /users/:id/approve": {action: models.ActionUserApproved, describe: describeTarget("Approved user %s")},
			"PUT /users/:id/reject":  {action: models.ActionUserRejected, describe: describeTarget("Rejected user %s")},
			"PUT /users/:id/status":  {action: models.ActionStatusChanged, describe: describeTarget("Changed status of user %s")},
			"DELETE /users/:id":      {action: models.ActionUserDeleted, describe: describeTarget("Deleted user %s")},
			"GET /users-export":      {action: models.ActionDataExport, describe: middleware.Static("Exported personnel records")},
			"POST /users-import":     {action: models.ActionDataImport, describe: middleware.Static("Imported personnel records")},
		})
	}

	if deps.ProcedureHandler != nil {
		procedures := admin.Group("/procedures")
		mount(procedures, deps.ProcedureHandler.Routes(), deps.Recorder, map[string]auditSpec{
			"POST /":           {action: models.ActionProcedureAdded, describe: middleware.Static("Created a procedure")},
			"PUT /:id":         {action: models.ActionProcedureUpdated, describe: describeTarget("Updated procedure %s")},
			"DELETE /:id":      {action: models.ActionProcedureDeleted, describe: describeTarget("Deleted procedure %s")},
			"POST /:id/assign": {action: models.ActionProcedureAssigned, describe: describeTarget("Assigned procedure %s")},
		})
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}

// mount registers each route, prepending the audit middleware for routes the
// map names. Routes without an entry (reads, mostly) record nothing.
func mount(group fiber.Router, routes []handler.RouteSpec, recorder audit.Recorder, audits map[string]auditSpec) {
	for _, route := range routes {
		if spec, ok := audits[route.Method+" "+route.Path]; ok {
			if wrapped := auditMiddleware(recorder, spec); wrapped != nil {
				group.Add(route.Method, route.Path, wrapped, route.Handler)
				continue
			}
		}
		group.Add(route.Method, route.Path, route.Handler)
	}
}

func mountOne(group fiber.Router, route handler.RouteSpec, handlers ...fiber.Handler) {
	chain := make([]fiber.Handler, 0, len(handlers)+1)
	for _, h := range handlers {
		if h != nil {
			chain = append(chain, h)
		}
	}
	chain = append(chain, route.Handler)
	group.Add(route.Method, route.Path, chain...)
}

func auditMiddleware(recorder audit.Recorder, spec auditSpec) fiber.Handler {
	if recorder == nil {
		return nil
	}
	return middleware.Audit(recorder, spec.action, spec.describe)
}

// describeTarget formats the description with the route's id parameter.
func describeTarget(format string) middleware.Describer {
	return func(c *fiber.Ctx, _ []byte) string {
		return fmt.Sprintf(format, c.Params("id"))
	}
}
