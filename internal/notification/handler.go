package notification

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/medication"
	"github.com/carecoord/carecoord/internal/schedule"
	"github.com/carecoord/carecoord/internal/task"
)

type NotificationHandler struct {
	service *NotificationService
}

func NewNotificationHandler(service *NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
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
	case errors.Is(err, ErrNotFound),
		errors.Is(err, medication.ErrNotFound),
		errors.Is(err, task.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": err.Error()})
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Access denied"})
	case errors.Is(err, ErrPatientRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": err.Error()})
	}
}

// CreateForMedication triggers (re-)materialization of a medication's schedule.
func (h *NotificationHandler) CreateForMedication(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	medicationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid medication id"})
	}
	var req CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	count, err := h.service.MaterializeForMedication(c.Request().Context(), actorID, medicationID, req.NotificationTime)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Notifications created successfully",
		"data":    echo.Map{"count": count},
	})
}

// CreateForTask triggers materialization of a task's due-date reminder.
func (h *NotificationHandler) CreateForTask(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid task id"})
	}
	var req CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	if err := h.service.MaterializeForTask(c.Request().Context(), actorID, taskID, req.NotificationTime); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Notification created successfully",
	})
}

func (h *NotificationHandler) ListByPatient(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	patientID, err := primitive.ObjectIDFromHex(c.Param("patientId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid patient id"})
	}
	isActive := c.QueryParam("isActive") != "false"
	upcoming := c.QueryParam("upcoming") == "true"

	notifications, err := h.service.ListByPatient(c.Request().Context(), actorID, patientID, isActive, upcoming, time.Now().UTC())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"notifications": notifications, "count": len(notifications)},
	})
}

// Today serves the current UTC day's notifications. Patients get their own;
// caregivers pass ?patientId= for one of their linked patients.
func (h *NotificationHandler) Today(c echo.Context) error {
	claims, err := auth.ActorClaims(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	actorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}

	patientID := actorID
	if claims.Role == auth.RoleCaregiver {
		patientID = primitive.NilObjectID
		if v := c.QueryParam("patientId"); v != "" {
			patientID, err = primitive.ObjectIDFromHex(v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid patient id"})
			}
		}
	}

	notifications, err := h.service.Today(c.Request().Context(), actorID, patientID, time.Now().UTC())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"notifications": notifications},
	})
}

func (h *NotificationHandler) MarkDelivered(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid notification id"})
	}

	n, err := h.service.MarkDelivered(c.Request().Context(), actorID, id, time.Now().UTC())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Notification marked as delivered",
		"data":    echo.Map{"notification": n},
	})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid notification id"})
	}

	if err := h.service.Delete(c.Request().Context(), actorID, id); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Notification deleted successfully"})
}
