package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/subtracklabs/subtrack/internal/config"
	emailverifydomain "github.com/subtracklabs/subtrack/internal/emailverify/domain"
	"github.com/subtracklabs/subtrack/internal/metrics"
	subscriptiondomain "github.com/subtracklabs/subtrack/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config          config.Config
	Log             *zap.Logger
	SubscriptionSvc subscriptiondomain.Service
	EmailVerifySvc  emailverifydomain.Service
	Metrics         *metrics.Metrics
}

type Server struct {
	engine          *gin.Engine
	http            *http.Server
	log             *zap.Logger
	subscriptionSvc subscriptiondomain.Service
	emailVerifySvc  emailverifydomain.Service
	metrics         *metrics.Metrics
}

func NewServer(p Params) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), RequestLogger(p.Log))

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:    p.Config.HTTPAddr,
			Handler: engine,
		},
		log:             p.Log.Named("server"),
		subscriptionSvc: p.SubscriptionSvc,
		emailVerifySvc:  p.EmailVerifySvc,
		metrics:         p.Metrics,
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")

	stripe := api.Group("/stripe")
	stripe.POST("/webhook", s.HandleWebhook)
	stripe.POST("/payment-sheet", s.CreatePaymentSheet)
	stripe.POST("/cancel-subscription", s.CancelSubscription)
	stripe.POST("/reactivate-subscription", s.ReactivateSubscription)
	stripe.POST("/update-payment-method", s.UpdatePaymentMethod)
	stripe.POST("/apply-payment-method", s.ApplyPaymentMethod)
	stripe.POST("/update-email", s.UpdateEmail)

	email := api.Group("/email")
	email.POST("/request-otp", s.RequestOTP)
	email.POST("/verify-otp", s.VerifyOTP)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func RunHTTP(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", s.http.Addr))
			go func() {
				if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.http.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)
