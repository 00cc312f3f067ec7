package pkg

import (
	"context"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/config"
	"github.com/carecoord/carecoord/internal/gamestats"
	"github.com/carecoord/carecoord/internal/medication"
	"github.com/carecoord/carecoord/internal/notification"
	"github.com/carecoord/carecoord/internal/task"
	"github.com/carecoord/carecoord/pkg/middleware"
)

// EchoModules wires the whole application graph: config, repositories,
// services, handlers, the reminder materializer and the optional push sweep.
var EchoModules = fx.Module("echo",
	fx.Provide(config.NewLogger),
	fx.Provide(NewEchoServer),
	fx.Provide(config.NewMongoDBConfig),
	fx.Provide(config.NewMongoDBClient),
	fx.Provide(config.NewPushConfig),
	fx.Provide(config.NewPushService),
	fx.Provide(auth.NewUserRepository),
	fx.Provide(auth.NewUserService),
	fx.Provide(auth.NewAuthHandler),
	fx.Provide(auth.NewAuthorizer),
	fx.Provide(medication.NewMedicationRepository),
	fx.Provide(medication.NewMedicationService),
	fx.Provide(medication.NewMedicationHandler),
	fx.Provide(task.NewTaskRepository),
	fx.Provide(task.NewTaskService),
	fx.Provide(task.NewTaskHandler),
	fx.Provide(notification.NewNotificationRepository),
	fx.Provide(notification.NewMaterializer),
	fx.Provide(asMedicationMaterializer),
	fx.Provide(asTaskMaterializer),
	fx.Provide(notification.NewNotificationService),
	fx.Provide(notification.NewNotificationHandler),
	fx.Provide(notification.NewSweep),
	fx.Provide(gamestats.NewGameStatRepository),
	fx.Provide(gamestats.NewGameStatService),
	fx.Provide(gamestats.NewGameStatHandler),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(StartSweep))

// The medication and task packages each declare the narrow materializer
// interface they consume; both are satisfied by the notification package's
// Materializer.
func asMedicationMaterializer(m *notification.Materializer) medication.NotificationMaterializer {
	return m
}

func asTaskMaterializer(m *notification.Materializer) task.NotificationMaterializer {
	return m
}

func NewEchoServer(lc fx.Lifecycle, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("server starting", zap.String("addr", addr))
			go func() {
				if err := e.Start(addr); err != nil {
					logger.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down the server")
			return e.Shutdown(ctx)
		},
	})
	return e
}

func StartSweep(lc fx.Lifecycle, sweep *notification.Sweep) {
	sweep.Start(lc)
}

func RegisterRoutes(
	e *echo.Echo,
	authHandler *auth.AuthHandler,
	medicationHandler *medication.MedicationHandler,
	taskHandler *task.TaskHandler,
	notificationHandler *notification.NotificationHandler,
	gameStatHandler *gamestats.GameStatHandler,
) {
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)

	protected := e.Group("/api")
	protected.Use(middleware.JWTMiddleware)

	protected.GET("/profile", authHandler.Profile)
	protected.POST("/users/push-token", authHandler.RegisterPushToken)
	protected.POST("/patients/link", authHandler.LinkPatient, middleware.RoleMiddleware)
	protected.GET("/patients", authHandler.LinkedPatients, middleware.RoleMiddleware)

	protected.POST("/medications", medicationHandler.Create, middleware.RoleMiddleware)
	protected.GET("/medications/patient/:patientId", medicationHandler.ListByPatient)
	protected.GET("/medications/:id", medicationHandler.Get)
	protected.PUT("/medications/:id", medicationHandler.Update, middleware.RoleMiddleware)
	protected.DELETE("/medications/:id", medicationHandler.Delete, middleware.RoleMiddleware)
	protected.POST("/medications/:id/taken", medicationHandler.MarkTaken)
	protected.POST("/medications/:id/skipped", medicationHandler.MarkSkipped)
	protected.GET("/medications/:id/stats", medicationHandler.Stats)

	protected.POST("/tasks", taskHandler.Create, middleware.RoleMiddleware)
	protected.GET("/tasks/patient/:patientId", taskHandler.ListByPatient)
	protected.GET("/tasks/:id", taskHandler.Get)
	protected.PUT("/tasks/:id", taskHandler.Update, middleware.RoleMiddleware)
	protected.DELETE("/tasks/:id", taskHandler.Delete, middleware.RoleMiddleware)
	protected.PUT("/tasks/:id/complete", taskHandler.Complete)
	protected.PUT("/tasks/:id/incomplete", taskHandler.Incomplete)

	protected.POST("/notifications/medication/:id", notificationHandler.CreateForMedication, middleware.RoleMiddleware)
	protected.POST("/notifications/task/:id", notificationHandler.CreateForTask, middleware.RoleMiddleware)
	protected.GET("/notifications/patient/:patientId", notificationHandler.ListByPatient)
	protected.GET("/notifications/today", notificationHandler.Today)
	protected.PUT("/notifications/:id/delivered", notificationHandler.MarkDelivered)
	protected.DELETE("/notifications/:id", notificationHandler.Delete, middleware.RoleMiddleware)

	protected.POST("/games/stats", gameStatHandler.Record, middleware.RoleMiddleware)
	protected.GET("/games/stats/patient/:patientId", gameStatHandler.ListByPatient)
	protected.GET("/games/stats/patient/:patientId/summary", gameStatHandler.Summary)
	protected.GET("/games/leaderboard/:game", gameStatHandler.Leaderboard)
}
