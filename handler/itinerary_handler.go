package handler

import (
	"go-trip-api/common"
	"go-trip-api/service"
	"net/http"
)

// ItineraryHandler serves the flights, stays and activities nested under a trip.
// Every call goes through the trip ownership check in the service.
type ItineraryHandler struct {
	service *service.ItineraryService
}

func NewItineraryHandler(s *service.ItineraryService) *ItineraryHandler {
	return &ItineraryHandler{service: s}
}

// tripScope resolves the caller and the trip path parameter shared by every
// itinerary route.
func tripScope(r *http.Request) (userID, tripID string, appErr *common.AppError) {
	if userID, appErr = requireUserID(r); appErr != nil {
		return "", "", appErr
	}
	if tripID, appErr = pathID(r, "tripID", "Trip"); appErr != nil {
		return "", "", appErr
	}
	return userID, tripID, nil
}

// CreateFlight godoc
// @Summary      Add a flight to a trip
// @Tags         itinerary
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        body body object true "Flight fields"
// @Success      201  {object}  common.DataEnvelope{data=model.Flight}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID}/flights [post]
func (h *ItineraryHandler) CreateFlight(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	item, err := h.service.CreateFlight(r.Context(), userID, tripID, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusCreated, common.DataEnvelope{Data: item})
	return nil
}

// ListFlights godoc
// @Summary      List the flights of a trip
// @Tags         itinerary
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Success      200  {object}  common.DataEnvelope{data=[]model.Flight}
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID}/flights [get]
func (h *ItineraryHandler) ListFlights(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}

	items, err := h.service.ListFlights(r.Context(), userID, tripID)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: items})
	return nil
}

// GetFlight godoc
// @Summary      Get a flight
// @Tags         itinerary
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        flightID path string true "Flight ID"
// @Success      200  {object}  common.DataEnvelope{data=model.Flight}
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/flights/{flightID} [get]
func (h *ItineraryHandler) GetFlight(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "flightID", "Flight")
	if appErr != nil {
		return appErr
	}

	item, err := h.service.GetFlight(r.Context(), userID, tripID, id)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: item})
	return nil
}

// UpdateFlight godoc
// @Summary      Update a flight
// @Description  Partial update. Ordering rules are checked against the merged record.
// @Tags         itinerary
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        flightID path string true "Flight ID"
// @Param        body body object true "Any subset of the Flight fields"
// @Success      200  {object}  common.DataEnvelope{data=model.Flight}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/flights/{flightID} [patch]
func (h *ItineraryHandler) UpdateFlight(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "flightID", "Flight")
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	item, err := h.service.UpdateFlight(r.Context(), userID, tripID, id, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: item})
	return nil
}

// DeleteFlight godoc
// @Summary      Delete a flight
// @Tags         itinerary
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        flightID path string true "Flight ID"
// @Success      204
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/flights/{flightID} [delete]
func (h *ItineraryHandler) DeleteFlight(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "flightID", "Flight")
	if appErr != nil {
		return appErr
	}

	if err := h.service.DeleteFlight(r.Context(), userID, tripID, id); err != nil {
		return mapServiceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// CreateStay godoc
// @Summary      Add a stay to a trip
// @Tags         itinerary
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        body body object true "Stay fields"
// @Success      201  {object}  common.DataEnvelope{data=model.Stay}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID}/stays [post]
func (h *ItineraryHandler) CreateStay(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	item, err := h.service.CreateStay(r.Context(), userID, tripID, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusCreated, common.DataEnvelope{Data: item})
	return nil
}

// ListStays godoc
// @Summary      List the stays of a trip
// @Tags         itinerary
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Success      200  {object}  common.DataEnvelope{data=[]model.Stay}
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID}/stays [get]
func (h *ItineraryHandler) ListStays(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}

	items, err := h.service.ListStays(r.Context(), userID, tripID)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: items})
	return nil
}

// GetStay godoc
// @Summary      Get a stay
// @Tags         itinerary
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        stayID path string true "Stay ID"
// @Success      200  {object}  common.DataEnvelope{data=model.Stay}
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/stays/{stayID} [get]
func (h *ItineraryHandler) GetStay(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "stayID", "Stay")
	if appErr != nil {
		return appErr
	}

	item, err := h.service.GetStay(r.Context(), userID, tripID, id)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: item})
	return nil
}

// UpdateStay godoc
// @Summary      Update a stay
// @Description  Partial update. Ordering rules are checked against the merged record.
// @Tags         itinerary
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        stayID path string true "Stay ID"
// @Param        body body object true "Any subset of the Stay fields"
// @Success      200  {object}  common.DataEnvelope{data=model.Stay}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/stays/{stayID} [patch]
func (h *ItineraryHandler) UpdateStay(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "stayID", "Stay")
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	item, err := h.service.UpdateStay(r.Context(), userID, tripID, id, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: item})
	return nil
}

// DeleteStay godoc
// @Summary      Delete a stay
// @Tags         itinerary
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        stayID path string true "Stay ID"
// @Success      204
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/stays/{stayID} [delete]
func (h *ItineraryHandler) DeleteStay(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "stayID", "Stay")
	if appErr != nil {
		return appErr
	}

	if err := h.service.DeleteStay(r.Context(), userID, tripID, id); err != nil {
		return mapServiceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// CreateActivity godoc
// @Summary      Add an activity to a trip
// @Tags         itinerary
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        body body object true "Activity fields"
// @Success      201  {object}  common.DataEnvelope{data=model.Activity}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID}/activities [post]
func (h *ItineraryHandler) CreateActivity(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	item, err := h.service.CreateActivity(r.Context(), userID, tripID, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusCreated, common.DataEnvelope{Data: item})
	return nil
}

// ListActivities godoc
// @Summary      List the activities of a trip
// @Tags         itinerary
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Success      200  {object}  common.DataEnvelope{data=[]model.Activity}
// @Failure      403  {object}  common.AppError "Trip belongs to another user"
// @Failure      404  {object}  common.AppError "Trip not found"
// @Router       /api/v1/trips/{tripID}/activities [get]
func (h *ItineraryHandler) ListActivities(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}

	items, err := h.service.ListActivities(r.Context(), userID, tripID)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: items})
	return nil
}

// GetActivity godoc
// @Summary      Get an activity
// @Tags         itinerary
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        activityID path string true "Activity ID"
// @Success      200  {object}  common.DataEnvelope{data=model.Activity}
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/activities/{activityID} [get]
func (h *ItineraryHandler) GetActivity(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "activityID", "Activity")
	if appErr != nil {
		return appErr
	}

	item, err := h.service.GetActivity(r.Context(), userID, tripID, id)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: item})
	return nil
}

// UpdateActivity godoc
// @Summary      Update an activity
// @Description  Partial update. Ordering rules are checked against the merged record.
// @Tags         itinerary
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        activityID path string true "Activity ID"
// @Param        body body object true "Any subset of the Activity fields"
// @Success      200  {object}  common.DataEnvelope{data=model.Activity}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/activities/{activityID} [patch]
func (h *ItineraryHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "activityID", "Activity")
	if appErr != nil {
		return appErr
	}
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}

	item, err := h.service.UpdateActivity(r.Context(), userID, tripID, id, payload)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: item})
	return nil
}

// DeleteActivity godoc
// @Summary      Delete an activity
// @Tags         itinerary
// @Security     BearerAuth
// @Param        tripID path string true "Trip ID"
// @Param        activityID path string true "Activity ID"
// @Success      204
// @Failure      404  {object}  common.AppError "Not found"
// @Router       /api/v1/trips/{tripID}/activities/{activityID} [delete]
func (h *ItineraryHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, tripID, appErr := tripScope(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := pathID(r, "activityID", "Activity")
	if appErr != nil {
		return appErr
	}

	if err := h.service.DeleteActivity(r.Context(), userID, tripID, id); err != nil {
		return mapServiceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
