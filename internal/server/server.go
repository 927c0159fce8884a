package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/hisaab/internal/client"
	clientdomain "github.com/smallbiznis/hisaab/internal/client/domain"
	"github.com/smallbiznis/hisaab/internal/composer"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/hisaab/internal/dashboard/domain"
	"github.com/smallbiznis/hisaab/internal/followup"
	followupdomain "github.com/smallbiznis/hisaab/internal/followup/domain"
	"github.com/smallbiznis/hisaab/internal/invoice"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	"github.com/smallbiznis/hisaab/internal/messagelog"
	messagelogdomain "github.com/smallbiznis/hisaab/internal/messagelog/domain"
	"github.com/smallbiznis/hisaab/internal/observability"
	obslogger "github.com/smallbiznis/hisaab/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/hisaab/internal/observability/metrics"
	obstracing "github.com/smallbiznis/hisaab/internal/observability/tracing"
	"github.com/smallbiznis/hisaab/internal/project"
	projectdomain "github.com/smallbiznis/hisaab/internal/project/domain"
	"github.com/smallbiznis/hisaab/internal/reminder"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	"github.com/smallbiznis/hisaab/internal/savings"
	savingsdomain "github.com/smallbiznis/hisaab/internal/savings/domain"
	"github.com/smallbiznis/hisaab/internal/settings"
	settingsdomain "github.com/smallbiznis/hisaab/internal/settings/domain"
	"github.com/smallbiznis/hisaab/internal/validation"
	"github.com/smallbiznis/hisaab/pkg/lock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DomainModules wires every service the HTTP API and the scheduler draw on.
var DomainModules = fx.Options(
	lock.Module,
	composer.Module,
	settings.Module,
	client.Module,
	project.Module,
	messagelog.Module,
	invoice.Module,
	reminder.Module,
	followup.Module,
	savings.Module,
	dashboard.Module,
)

var Module = fx.Module("http.server",
	DomainModules,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if err := validation.RegisterGinTags(); err != nil {
		zap.L().Warn("custom binding tags not registered", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	settingsSvc settingsdomain.Service
	clientSvc   clientdomain.Service
	projectSvc  projectdomain.Service
	invoiceSvc  invoicedomain.Service
	reminderSvc reminderdomain.Service
	followupSvc followupdomain.Service
	messageLog  messagelogdomain.Service
	savingsSvc  savingsdomain.Service
	dashboard   dashboarddomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	SettingsSvc settingsdomain.Service
	ClientSvc   clientdomain.Service
	ProjectSvc  projectdomain.Service
	InvoiceSvc  invoicedomain.Service
	ReminderSvc reminderdomain.Service
	FollowupSvc followupdomain.Service
	MessageLog  messagelogdomain.Service
	SavingsSvc  savingsdomain.Service
	Dashboard   dashboarddomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		settingsSvc: p.SettingsSvc,
		clientSvc:   p.ClientSvc,
		projectSvc:  p.ProjectSvc,
		invoiceSvc:  p.InvoiceSvc,
		reminderSvc: p.ReminderSvc,
		followupSvc: p.FollowupSvc,
		messageLog:  p.MessageLog,
		savingsSvc:  p.SavingsSvc,
		dashboard:   p.Dashboard,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(AccountContext())

	// -------- Settings --------
	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.SaveSettings)

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)
	api.PATCH("/clients/:id", s.UpdateClient)
	api.DELETE("/clients/:id", s.DeleteClient)

	// -------- Projects --------
	api.GET("/projects", s.ListProjects)
	api.POST("/projects", s.CreateProject)
	api.GET("/projects/:id", s.GetProjectByID)
	api.DELETE("/projects/:id", s.DeleteProject)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/pay", s.MarkInvoicePaid)
	api.GET("/invoices/:id/reminder", s.ComposeInvoiceReminder)
	api.GET("/invoices/:id/follow-up", s.ComposeFollowUp)
	api.POST("/invoices/:id/follow-up", s.RecordFollowUp)
	api.GET("/invoices/:id/upi-qr.png", s.GetInvoiceUPIQR)
	api.GET("/follow-ups", s.ListFollowUpCandidates)

	// -------- Reminders --------
	api.GET("/invoices/:id/reminders", s.ListInvoiceReminders)
	api.POST("/invoices/:id/reminders", s.ScheduleReminder)
	api.GET("/reminders/due", s.ListDueReminders)
	api.POST("/reminders/:id/reschedule", s.RescheduleReminder)
	api.POST("/reminders/:id/send", s.SendReminderNow)
	api.POST("/reminders/:id/skip", s.SkipReminder)

	// -------- Message Logs --------
	api.GET("/message-logs", s.ListMessageLogs)

	// -------- Dashboard --------
	api.GET("/dashboard", s.GetDashboard)

	// -------- Savings --------
	api.GET("/savings-goals", s.ListSavingsGoals)
	api.POST("/savings-goals", s.CreateSavingsGoal)
	api.GET("/savings-goals/:id", s.GetSavingsGoal)
	api.GET("/savings-goals/:id/entries", s.ListSavingsEntries)
	api.POST("/savings-goals/:id/entries", s.AddSavingsEntry)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
