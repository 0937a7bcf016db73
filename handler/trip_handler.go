package handler

import (
	"go-trip-api/common"
	"go-trip-api/logger"
	"go-trip-api/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TripHandler struct {
	service *service.TripService
}

func NewTripHandler(s *service.TripService) *TripHandler {
	return &TripHandler{service: s}
}

// ListTrips godoc
// @Summary      List trips
// @Description  Lists the caller's trips. Status filtering applies to the status derived from the trip dates.
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        search      query  string  false  "Case-insensitive match on name or any destination"
// @Param        status      query  string  false  "PLANNING, ONGOING or COMPLETED"
// @Param        sort_by     query  string  false  "name, created_at or start_date"
// @Param        sort_order  query  string  false  "asc or desc"
// @Param        page        query  int     false  "Page number, from 1"
// @Param        limit       query  int     false  "Page size, 1 to 100"
// @Success      200  {object}  common.PageEnvelope{data=[]model.Trip}
// @Failure      400  {object}  common.AppError "Invalid filter or sort field"
// @Failure      401  {object}  common.AppError "Authentication required"
// @Router       /api/v1/trips [get]
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}

	q, err := service.ParseTripQuery(r.URL.Query())
	if err != nil {
		return mapServiceError(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"status":  q.Status,
		"sort_by": q.SortBy,
		"page":    q.Page,
	}).Info("List trips request received")

	trips, total, err := h.service.List(r.Context(), userID, q)
	if err != nil {
		return mapServiceError(err)
	}

	common.WriteJSON(w, http.StatusOK, common.PageEnvelope{
		Data:       trips,
		Pagination: common.Pagination{Page: q.Page, Limit: q.Limit, Total: total},
	})
	return nil
}

// CreateTrip godoc
// @Summary      Create a trip
// @Tags         trips
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        trip body object true "name, description, destinations, status, start_date, end_date"
// @Success      201  {object}  common.DataEnvelope{data=model.Trip}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      401  {object}  common.AppError "Authentication required"
// @Router       /api/v1/trips [post]
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	trip, err := h.service.Create(r.Context(), userID, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusCreated, common.DataEnvelope{Data: trip})
	return nil
}

// GetTrip godoc
// @Summary      Get a trip
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Success      200  {object}  common.DataEnvelope{data=model.Trip}
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID} [get]
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}

	tripID, appErr := pathID(r, "tripID", "Trip")
	if appErr != nil {
		return appErr
	}

	trip, err := h.service.Get(r.Context(), userID, tripID)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: trip})
	return nil
}

// UpdateTrip godoc
// @Summary      Update a trip
// @Description  Partial update. Date ordering is checked against the stored values for fields not in the body.
// @Tags         trips
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        trip body object true "Any subset of the trip fields"
// @Success      200  {object}  common.DataEnvelope{data=model.Trip}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID} [patch]
func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}
	tripID, appErr := pathID(r, "tripID", "Trip")
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	trip, err := h.service.Update(r.Context(), userID, tripID, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: trip})
	return nil
}

// DeleteTrip godoc
// @Summary      Delete a trip and its itinerary
// @Tags         trips
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Success      204
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID} [delete]
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}

	tripID, appErr := pathID(r, "tripID", "Trip")
	if appErr != nil {
		return appErr
	}

	if err := h.service.Delete(r.Context(), userID, tripID); err != nil {
		return mapServiceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// pathID reads a UUID path parameter. Any other value cannot name a stored row.
func pathID(r *http.Request, param, resource string) (string, *common.AppError) {
	id := chi.URLParam(r, param)
	if _, err := uuid.Parse(id); err != nil {
		return "", common.NewNotFoundError(resource)
	}
	return id, nil
}
