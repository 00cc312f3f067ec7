package task

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carecoord/carecoord/internal/auth"
)

type TaskHandler struct {
	service *TaskService
}

func NewTaskHandler(service *TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func respondErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": err.Error()})
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Access denied"})
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
}

func (h *TaskHandler) Create(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	task, err := h.service.Create(c.Request().Context(), actorID, req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Task created successfully",
		"data":    echo.Map{"task": task},
	})
}

func (h *TaskHandler) ListByPatient(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	patientID, err := primitive.ObjectIDFromHex(c.Param("patientId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid patient id"})
	}

	var filter ListFilter
	if v := c.QueryParam("completed"); v != "" {
		completed := v == "true"
		filter.Completed = &completed
	}
	filter.Category = c.QueryParam("category")
	filter.Priority = c.QueryParam("priority")

	tasks, err := h.service.ListByPatient(c.Request().Context(), actorID, patientID, filter)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"tasks": tasks, "count": len(tasks)},
	})
}

func (h *TaskHandler) Get(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid task id"})
	}

	task, err := h.service.Get(c.Request().Context(), actorID, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"task": task, "isOverdue": task.IsOverdue(time.Now().UTC())},
	})
}

func (h *TaskHandler) Update(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid task id"})
	}
	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	task, err := h.service.Update(c.Request().Context(), actorID, id, req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Task updated successfully",
		"data":    echo.Map{"task": task},
	})
}

func (h *TaskHandler) Delete(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid task id"})
	}

	if err := h.service.Delete(c.Request().Context(), actorID, id); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Task deleted successfully"})
}

func (h *TaskHandler) Complete(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid task id"})
	}
	var req CompleteTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	task, err := h.service.Complete(c.Request().Context(), actorID, id, req.Notes, time.Now().UTC())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Task marked as completed",
		"data":    echo.Map{"task": task},
	})
}

func (h *TaskHandler) Incomplete(c echo.Context) error {
	actorID, err := auth.ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid task id"})
	}

	task, err := h.service.Incomplete(c.Request().Context(), actorID, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Task marked as incomplete",
		"data":    echo.Map{"task": task},
	})
}
