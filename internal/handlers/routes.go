package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/authz"
	"github.com/harentsoaR/vetclinic-api/internal/middleware"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	Log          zerolog.Logger
	AllowOrigins []string
	// Limiter guards login and password reset requests. Nil disables it.
	Limiter *middleware.RateLimiter
	// TrustedProxies may set X-Forwarded-For. Empty means the client IP is
	// always the socket peer.
	TrustedProxies []string
}

// NewRouter builds the engine with the middleware stack and every route.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	proxies := opts.TrustedProxies
	if len(proxies) == 0 {
		proxies = nil
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		opts.Log.Error().Err(err).Strs("trusted_proxies", proxies).Msg("Invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		middleware.RequestID(opts.Log),
		middleware.Logger(),
		middleware.Recovery(),
	)
	if h.metrics != nil {
		r.Use(middleware.Metrics(h.metrics))
	}
	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderXRequestID},
			ExposeHeaders:    []string{middleware.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	RegisterRoutes(r, h, opts.Limiter)
	return r
}

func RegisterRoutes(r *gin.Engine, h *Handler, limiter *middleware.RateLimiter) {
	limit := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		limit = limiter.RateLimit()
	}

	staffAuth := middleware.StaffAuth(h.svc.StaffAuth)
	clientAuth := middleware.ClientAuth(h.svc.ClientAuth)
	anyStaff := middleware.RequireRoles(authz.AnyStaff)
	adminOnly := middleware.RequireRoles(authz.AdminOnly)
	vetOrAdmin := middleware.RequireRoles(authz.VetOrAdmin)
	receptionOrAdmin := middleware.RequireRoles(authz.ReceptionOrAdmin)

	r.GET("/healthz", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := r.Group("/api")

	// --- Staff identities ---
	identities := api.Group("/identities")
	{
		identities.POST("/login", limit, loginHandler(h.svc.StaffAuth))
		identities.GET("/confirm/:token", h.ConfirmStaff)
		identities.POST("/forgot-password", limit, forgotPasswordHandler(h.svc.StaffAuth))
		identities.GET("/forgot-password/:token", checkTokenHandler(h.svc.StaffAuth))
		identities.POST("/forgot-password/:token", limit, resetPasswordHandler(h.svc.StaffAuth))

		staff := identities.Group("", staffAuth, anyStaff)
		staff.GET("/profile", h.StaffProfile)
		staff.PUT("/profile/:id", h.UpdateStaffProfile)
		staff.PUT("/password", h.ChangePassword)
		staff.GET("/veterinarians", h.ListActiveVeterinarians)

		admin := staff.Group("", adminOnly)
		admin.POST("", h.RegisterStaff)
		admin.GET("", h.ListStaff)
		admin.GET("/:id", h.GetStaff)
		admin.PUT("/:id/deactivate", h.DeactivateStaff)
		admin.PUT("/:id/activate", h.ActivateStaff)
	}

	// --- Clients and the client portal ---
	clients := api.Group("/clients")
	{
		portal := clients.Group("/portal")
		portal.POST("/login", limit, loginHandler(h.svc.ClientAuth))
		portal.GET("/confirm/:token", h.ConfirmClientEmail)
		portal.POST("/forgot-password", limit, forgotPasswordHandler(h.svc.ClientAuth))
		portal.GET("/forgot-password/:token", checkTokenHandler(h.svc.ClientAuth))
		portal.POST("/forgot-password/:token", limit, resetPasswordHandler(h.svc.ClientAuth))
		portal.GET("/profile", clientAuth, h.ClientProfile)

		staff := clients.Group("", staffAuth, anyStaff)
		staff.POST("", h.RegisterClient)
		staff.GET("", h.ListClients)
		staff.GET("/national-id/:nationalId", h.GetClientByNationalID)
		staff.GET("/:id", h.GetClient)
		staff.PUT("/:id", h.UpdateClient)
		staff.DELETE("/:id", receptionOrAdmin, h.DeactivateClient)
		staff.POST("/:id/portal-access", receptionOrAdmin, h.EnablePortalAccess)
	}

	// --- Veterinarians ---
	vets := api.Group("/veterinarians", staffAuth, anyStaff)
	{
		vets.GET("", h.ListVeterinarians)
		vets.GET("/:id", h.GetVeterinarian)
		vets.PUT("/:id", h.UpdateVeterinarian)
	}

	// --- Patients ---
	patients := api.Group("/patients")
	{
		patients.GET("/portal/mine", clientAuth, h.MyPatients)

		staff := patients.Group("", staffAuth, anyStaff)
		staff.POST("", h.CreatePatient)
		staff.GET("", h.ListPatients)
		staff.GET("/inactive", h.ListInactivePatients)
		staff.GET("/record/:number", h.GetPatientByRecord)
		staff.GET("/client/:clientId", h.ListClientPatients)
		staff.GET("/:id", h.GetPatient)
		staff.PUT("/:id", h.UpdatePatient)
		staff.DELETE("/:id", h.DeactivatePatient)
		staff.PUT("/:id/reactivate", h.ReactivatePatient)
	}

	// --- Appointments ---
	appointments := api.Group("/appointments")
	{
		appointments.GET("/portal/mine", clientAuth, h.MyAppointments)

		staff := appointments.Group("", staffAuth, anyStaff)
		staff.POST("", h.CreateAppointment)
		staff.GET("", h.GetAppointments)
		staff.GET("/date/:date", h.GetAppointmentsByDate)
		staff.GET("/veterinarian/:id", vetOrAdmin, h.GetVeterinarianAppointments)
		staff.GET("/client/:id", h.GetClientAppointments)
		staff.GET("/patient/:id", h.GetPatientAppointments)
		staff.GET("/:id", h.GetAppointment)
		staff.PUT("/:id", h.UpdateAppointment)
		staff.PUT("/:id/cancel", h.CancelAppointment)
		staff.PUT("/:id/complete", vetOrAdmin, h.CompleteAppointment)
		staff.PUT("/:id/status", h.ChangeAppointmentStatus)
	}

	// --- Consultations ---
	consultations := api.Group("/consultations")
	{
		consultations.GET("/portal/mine", clientAuth, h.MyConsultations)
		consultations.GET("/portal/patient/:patientId", clientAuth, h.MyPatientConsultations)

		staff := consultations.Group("", staffAuth, anyStaff)
		staff.GET("", h.ListConsultations)
		staff.GET("/statistics", adminOnly, h.ConsultationStatistics)
		staff.GET("/veterinarian/:id", h.ListVeterinarianConsultations)
		staff.GET("/client/:id", h.ListClientConsultations)
		staff.GET("/patient/:id", h.ListPatientConsultations)
		staff.GET("/:id", h.GetConsultation)

		vet := staff.Group("", vetOrAdmin)
		vet.POST("", h.CreateConsultation)
		vet.PUT("/:id", h.UpdateConsultation)
		vet.POST("/:id/medications", h.AddMedication)
		vet.POST("/:id/exams", h.AddExam)
		vet.POST("/:id/vaccinations", h.AddVaccination)
	}
}

// Health reports whether the store answers.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Store.Pinger.Ping(ctx); err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
