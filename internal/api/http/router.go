package http

import (
	"net/http"

	"carrental-backend/internal/security"
	"carrental-backend/internal/service"
	"carrental-backend/internal/storage"

	"github.com/gorilla/mux"
)

// RouterConfig carries what the REST surface is built from. Photos and
// Metrics are optional.
type RouterConfig struct {
	Bookings       service.BookingService
	Notifications  service.NotificationService
	Tokens         security.TokenManager
	Photos         storage.PhotoStorage
	MaxUploadBytes int64
	Metrics        http.Handler
}

// NewRouter registers every route of the API. Each route's security level is
// looked up in config.EndpointSecurityConfig by its template.
func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.Use(NewAuthMiddleware(cfg.Tokens).Middleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	bookings := NewBookingHandler(cfg.Bookings)
	api.HandleFunc("/vehicles/{vehicleId}/availability", bookings.CheckAvailability).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{vehicleId}/quote", bookings.QuotePrice).Methods(http.MethodGet)

	api.HandleFunc("/bookings", bookings.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", bookings.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/accept", bookings.AcceptBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/reject", bookings.RejectBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/cancel", bookings.CancelBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/payment", bookings.ConfirmPayment).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/pickup", bookings.RecordPickup).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/return", bookings.RecordReturn).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/cancellation-preview", bookings.PreviewCancellation).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/photos", bookings.RequestPhotoUpload).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/photos/url", bookings.GetPhotoURL).Methods(http.MethodGet)
	api.HandleFunc("/rentals", bookings.ListRentals).Methods(http.MethodGet)
	api.HandleFunc("/lendings", bookings.ListLendings).Methods(http.MethodGet)

	notes := NewNotificationHandler(cfg.Notifications)
	api.HandleFunc("/notifications", notes.GetNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", notes.MarkAsRead).Methods(http.MethodPost)

	if cfg.Photos != nil {
		photos := NewPhotoHandler(cfg.Photos, cfg.MaxUploadBytes)
		api.HandleFunc("/upload/{token}", photos.HandleUpload).Methods(http.MethodPut)
		api.HandleFunc("/download/{filename}", photos.HandleDownload).Methods(http.MethodGet)
	}

	return router
}
