package http

import (
	"net/http"
	"strconv"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	noteService service.NotificationService
}

func NewNotificationHandler(noteService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{noteService: noteService}
}

type notificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int32                 `json:"total"`
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	notes, total, err := h.noteService.GetNotifications(r.Context(), actor.UserID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationListResponse{Notifications: notes, Total: total})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, domain.NewValidationError("invalid notification id"))
		return
	}
	if err := h.noteService.MarkAsRead(r.Context(), actor.UserID, int32(id)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
