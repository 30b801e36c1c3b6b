package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"
	"carrental-backend/internal/utils"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type paymentRequest struct {
	PaymentMethodRef string `json:"payment_method_ref"`
}

type photoUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type bookingListResponse struct {
	Bookings []domain.Booking `json:"bookings"`
	Total    int32            `json:"total"`
}

type availabilityResponse struct {
	VehicleID string `json:"vehicle_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req service.CreateBookingRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingService.CreateBooking(r.Context(), actor, req)
	if err != nil {
		writeResult(w, nil, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.NewResult(b, nil))
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	b, err := h.bookingService.GetBooking(r.Context(), actor, mux.Vars(r)["id"])
	writeResult(w, b, err)
}

func (h *BookingHandler) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	b, err := h.bookingService.AcceptBooking(r.Context(), actor, mux.Vars(r)["id"])
	writeResult(w, b, err)
}

func (h *BookingHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingService.RejectBooking(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	writeResult(w, b, err)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingService.CancelBooking(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	writeResult(w, b, err)
}

func (h *BookingHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingService.ConfirmPayment(r.Context(), actor, mux.Vars(r)["id"], req.PaymentMethodRef)
	writeResult(w, b, err)
}

func (h *BookingHandler) RecordPickup(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var checklist domain.Checklist
	if err := decodeBody(r, &checklist, false); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingService.RecordPickup(r.Context(), actor, mux.Vars(r)["id"], checklist)
	writeResult(w, b, err)
}

func (h *BookingHandler) RecordReturn(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var checklist domain.Checklist
	if err := decodeBody(r, &checklist, false); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingService.RecordReturn(r.Context(), actor, mux.Vars(r)["id"], checklist)
	writeResult(w, b, err)
}

func (h *BookingHandler) PreviewCancellation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	rec, err := h.bookingService.PreviewCancellation(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *BookingHandler) RequestPhotoUpload(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req photoUploadRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	upload, err := h.bookingService.RequestChecklistPhotoUpload(r.Context(), actor, mux.Vars(r)["id"], req.Filename, req.ContentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func (h *BookingHandler) GetPhotoURL(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	url, err := h.bookingService.GetChecklistPhotoURL(r.Context(), actor, mux.Vars(r)["id"], r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BookingHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.bookingService.ListRentals)
}

func (h *BookingHandler) ListLendings(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.bookingService.ListLendings)
}

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" {
		if _, err := domain.ParseBookingStatus(status); err != nil {
			writeError(w, err)
			return
		}
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bookings, total, err := fetch(r.Context(), actor, status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, bookingListResponse{Bookings: bookings, Total: total})
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicleId"]
	q := r.URL.Query()
	start, err := utils.ParseBookingDate(q.Get("start_date"))
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := utils.ParseBookingDate(q.Get("end_date"))
	if err != nil {
		writeError(w, err)
		return
	}
	available, err := h.bookingService.IsAvailable(r.Context(), vehicleID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		VehicleID: vehicleID,
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Available: available,
	})
}

func (h *BookingHandler) QuotePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, err := h.bookingService.QuotePrice(r.Context(), mux.Vars(r)["vehicleId"],
		q.Get("start_date"), q.Get("end_date"), domain.InsuranceOption(q.Get("insurance_option")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, "authentication required")
	}
	return actor, ok
}

// decodeBody reads a JSON body into v. An empty body is accepted when optional.
func decodeBody(r *http.Request, v any, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return domain.NewValidationError("request body is required")
	}
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && optional:
		return nil
	case errors.Is(err, io.EOF):
		return domain.NewValidationError("request body is required")
	default:
		return domain.NewValidationError("malformed request body: " + err.Error())
	}
}

// pageParams reads page and page_size; zero means the service default.
func pageParams(r *http.Request) (int32, int32, error) {
	q := r.URL.Query()
	page, err := queryInt32(q.Get("page"))
	if err != nil {
		return 0, 0, domain.NewValidationError("invalid page")
	}
	pageSize, err := queryInt32(q.Get("page_size"))
	if err != nil {
		return 0, 0, domain.NewValidationError("invalid page_size")
	}
	return page, pageSize, nil
}

func queryInt32(s string) (int32, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return int32(n), nil
}
