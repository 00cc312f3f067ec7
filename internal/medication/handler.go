package medication

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/schedule"
)

type MedicationHandler struct {
	service *MedicationService
}

func NewMedicationHandler(service *MedicationService) *MedicationHandler {
	return &MedicationHandler{service: service}
}

func respondErr(c echo.Context, err error) error {
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": err.Error(),
			"field":   verr.Field,
		})
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": err.Error()})
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Access denied"})
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
}

func (h *MedicationHandler) Create(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	var req CreateMedicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	med, err := h.service.Create(c.Request().Context(), actorID, req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Medication created successfully",
		"data":    echo.Map{"medication": med},
	})
}

func (h *MedicationHandler) ListByPatient(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	patientID, err := primitive.ObjectIDFromHex(c.Param("patientId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid patient id"})
	}
	isActive := c.QueryParam("isActive") != "false"

	meds, err := h.service.ListByPatient(c.Request().Context(), actorID, patientID, isActive)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"medications": meds, "count": len(meds)},
	})
}

func (h *MedicationHandler) Get(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid medication id"})
	}

	med, err := h.service.Get(c.Request().Context(), actorID, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"medication": med}})
}

func (h *MedicationHandler) Update(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid medication id"})
	}
	var req UpdateMedicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	med, err := h.service.Update(c.Request().Context(), actorID, id, req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Medication updated successfully",
		"data":    echo.Map{"medication": med},
	})
}

func (h *MedicationHandler) Delete(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid medication id"})
	}

	if err := h.service.Delete(c.Request().Context(), actorID, id); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Medication deleted successfully"})
}

func (h *MedicationHandler) MarkTaken(c echo.Context) error {
	return h.mark(c, true)
}

func (h *MedicationHandler) MarkSkipped(c echo.Context) error {
	return h.mark(c, false)
}

func (h *MedicationHandler) mark(c echo.Context, taken bool) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid medication id"})
	}
	var req LedgerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	now := time.Now().UTC()
	var med *Medication
	if taken {
		med, err = h.service.MarkTaken(c.Request().Context(), actorID, id, req, now)
	} else {
		med, err = h.service.MarkSkipped(c.Request().Context(), actorID, id, req, now)
	}
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"medication": med, "todayStatus": med.StatusOn(now)},
	})
}

func (h *MedicationHandler) Stats(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid medication id"})
	}
	days, _ := strconv.Atoi(c.QueryParam("days"))

	med, adherence, err := h.service.Stats(c.Request().Context(), actorID, id, days, time.Now().UTC())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"medication": echo.Map{"_id": med.ID, "name": med.Name, "dosage": med.Dosage},
			"stats":      adherence,
		},
	})
}
