package server

import (
	"net/http"
	"time"

	"crisisintel/internal/config"
	"crisisintel/internal/handler"
	"crisisintel/internal/middleware"
	"crisisintel/internal/repository"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	log    *logrus.Logger
	zlog   *zap.Logger
	push   service.Notifier
}

func NewServer(db *sqlx.DB, cfg *config.Config, log *logrus.Logger, zlog *zap.Logger, push service.Notifier) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		log:    log,
		zlog:   zlog,
		push:   push,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Repositories
	authRepo := repository.NewAuthRepository(s.db, s.log)
	crisisRepo := repository.NewCrisisRepository(s.db, s.zlog)
	participationRepo := repository.NewParticipationRepository(s.db, s.zlog)
	victimRepo := repository.NewVictimRepository(s.db, s.zlog)
	requestRepo := repository.NewRequestRepository(s.db, s.zlog)
	inventoryRepo := repository.NewInventoryRepository(s.db, s.zlog)
	deploymentRepo := repository.NewDeploymentRepository(s.db, s.zlog)
	activityRepo := repository.NewActivityRepository(s.db, s.zlog)
	rateLimitRepo := repository.NewRateLimitRepository(s.db, s.zlog)

	// Drop stale throttle windows from previous runs.
	if pruned, err := rateLimitRepo.Prune(time.Now().AddDate(0, 0, -2)); err == nil && pruned > 0 {
		s.log.Infof("Pruned %d stale rate limit windows", pruned)
	}

	// Services. The activity service doubles as the audit recorder and
	// the persistent side of the notification channel.
	activitySvc := service.NewActivityService(activityRepo, s.push, s.zlog)
	authSvc := service.NewAuthService(authRepo, []byte(s.cfg.Auth.JWTSecret), time.Duration(s.cfg.Auth.TokenTTLMins)*time.Minute, s.zlog)
	crisisSvc := service.NewCrisisService(crisisRepo, activitySvc, s.zlog)
	participationSvc := service.NewParticipationService(participationRepo, crisisRepo, authRepo, activitySvc, activitySvc, s.zlog)
	requestSvc := service.NewRequestService(requestRepo, authRepo, participationSvc, activitySvc, s.zlog)
	inventorySvc := service.NewInventoryService(inventoryRepo, participationSvc, activitySvc, s.zlog)
	victimSvc := service.NewVictimService(victimRepo, crisisRepo, authRepo, participationSvc, activitySvc, activitySvc, s.zlog)
	deploymentSvc := service.NewDeploymentService(deploymentRepo, activitySvc, s.zlog)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, s.log)
	crisisHandler := handler.NewCrisisHandler(crisisSvc, s.zlog)
	participationHandler := handler.NewParticipationHandler(participationSvc, s.zlog)
	requestHandler := handler.NewRequestHandler(requestSvc, s.zlog)
	inventoryHandler := handler.NewInventoryHandler(inventorySvc, s.zlog)
	victimHandler := handler.NewVictimHandler(victimSvc, s.zlog)
	deploymentHandler := handler.NewDeploymentHandler(deploymentSvc, s.zlog)
	activityHandler := handler.NewActivityHandler(activitySvc, s.zlog)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Authentication routes, throttled per client IP.
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", middleware.RateLimit(rateLimitRepo, "register", 5, time.Minute, s.zlog), authHandler.Register)
	authGroup.POST("/login", middleware.RateLimit(rateLimitRepo, "login", 10, time.Minute, s.zlog), authHandler.Login)

	// Authenticated routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.Metrics())
	authRequired.Use(middleware.AuthMiddleware([]byte(s.cfg.Auth.JWTSecret), s.zlog))
	{
		authRequired.POST("/auth/logout", authHandler.Logout)

		// Crises
		authRequired.POST("/crises", crisisHandler.Create)
		authRequired.GET("/crises", crisisHandler.List)
		authRequired.GET("/crises/:id", crisisHandler.Get)
		authRequired.POST("/crises/:id/close", crisisHandler.Close)
		authRequired.POST("/crises/:id/cancel", crisisHandler.Cancel)

		// Participation
		authRequired.GET("/crises/:id/participants", participationHandler.ListParticipants)
		authRequired.POST("/crises/:id/participants", participationHandler.Join)
		authRequired.DELETE("/crises/:id/participants/:userID", participationHandler.Remove)
		authRequired.POST("/crises/:id/leave", participationHandler.Leave)
		authRequired.POST("/crises/:id/participation-requests", participationHandler.RequestParticipation)
		authRequired.GET("/crises/:id/participation-requests", participationHandler.ListRequests)
		authRequired.POST("/participation-requests/:id/approve", participationHandler.ApproveRequest)
		authRequired.POST("/participation-requests/:id/reject", participationHandler.RejectRequest)
		authRequired.POST("/crises/:id/invitations", participationHandler.Invite)
		authRequired.GET("/invitations", participationHandler.ListInvitations)
		authRequired.POST("/invitations/:id/accept", participationHandler.AcceptInvitation)
		authRequired.POST("/invitations/:id/decline", participationHandler.DeclineInvitation)
		authRequired.DELETE("/invitations/:id", participationHandler.DeleteInvitation)

		// Assistance requests
		authRequired.POST("/requests", requestHandler.Create)
		authRequired.GET("/requests", requestHandler.List)
		authRequired.GET("/requests/:id", requestHandler.Get)
		authRequired.POST("/requests/:id/accept", requestHandler.Accept)
		authRequired.POST("/requests/:id/reject", requestHandler.Reject)
		authRequired.POST("/requests/:id/cancel", requestHandler.Cancel)
		authRequired.POST("/requests/:id/complete", requestHandler.Complete)
		authRequired.POST("/requests/:id/hide", requestHandler.Hide)

		// Blood inventory
		authRequired.PUT("/providers/:id/inventory", inventoryHandler.SetLevel)
		authRequired.GET("/providers/:id/inventory", inventoryHandler.ListLevels)
		authRequired.POST("/allocations", inventoryHandler.Allocate)
		authRequired.GET("/allocations", inventoryHandler.ListAllocations)
		authRequired.GET("/allocations/:id", inventoryHandler.GetAllocation)
		authRequired.POST("/allocations/:id/revert", inventoryHandler.Revert)
		authRequired.DELETE("/allocations/:id", inventoryHandler.Delete)

		// Victims and geofence detection
		authRequired.GET("/crises/:id/victims", victimHandler.List)
		authRequired.POST("/crises/:id/victims", victimHandler.AdminCreate)
		authRequired.POST("/crises/:id/victims/self", victimHandler.Enroll)
		authRequired.DELETE("/crises/:id/victims/self", victimHandler.Unenroll)
		authRequired.POST("/crises/:id/victims/detect", victimHandler.Detect)
		authRequired.POST("/victims/:id/status", victimHandler.UpdateStatus)
		authRequired.PUT("/victims/:id/note", victimHandler.UpdateNote)
		authRequired.DELETE("/victims/:id", victimHandler.Delete)
		authRequired.PUT("/users/me/location", victimHandler.ReportLocation)

		// Deployments
		authRequired.POST("/deployments", deploymentHandler.Deploy)
		authRequired.GET("/deployments", deploymentHandler.List)
		authRequired.GET("/deployments/:id", deploymentHandler.Get)
		authRequired.POST("/deployments/:id/complete", deploymentHandler.Complete)
		authRequired.POST("/deployments/:id/withdraw", deploymentHandler.Withdraw)

		// Activity and notifications
		authRequired.GET("/activity", activityHandler.Timeline)
		authRequired.GET("/users/me/notifications", activityHandler.Notifications)
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
