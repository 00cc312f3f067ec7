package gamestats

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/schedule"
)

type GameStatHandler struct {
	service *GameStatService
}

func NewGameStatHandler(service *GameStatService) *GameStatHandler {
	return &GameStatHandler{service: service}
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
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Access denied"})
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
}

// Record stores a game session for the authenticated patient. Scores are
// always recorded against the actor's own account.
func (h *GameStatHandler) Record(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	var req RecordStatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	stat, err := h.service.Record(c.Request().Context(), actorID, actorID, req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Game stat recorded successfully",
		"data":    echo.Map{"stat": stat},
	})
}

func (h *GameStatHandler) ListByPatient(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	patientID, err := primitive.ObjectIDFromHex(c.Param("patientId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid patient id"})
	}

	records, err := h.service.ListByPatient(c.Request().Context(), actorID, patientID, c.QueryParam("game"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"stats": records, "count": len(records)},
	})
}

func (h *GameStatHandler) Summary(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	patientID, err := primitive.ObjectIDFromHex(c.Param("patientId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid patient id"})
	}

	summary, err := h.service.Summarize(c.Request().Context(), actorID, patientID, c.QueryParam("game"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"summary": summary}})
}

func (h *GameStatHandler) Leaderboard(c echo.Context) error {
	if _, err := auth.ActorID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	entries, err := h.service.Leaderboard(c.Request().Context(), c.Param("game"), limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"leaderboard": entries, "count": len(entries)},
	})
}
