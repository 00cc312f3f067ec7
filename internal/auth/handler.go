package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthHandler struct {
	service *UserService
}

func NewAuthHandler(service *UserService) *AuthHandler {
	return &AuthHandler{service: service}
}

// ActorClaims extracts the JWT claims stored by the middleware.
func ActorClaims(c echo.Context) (*JWTClaims, error) {
	claims, ok := c.Get("user").(*JWTClaims)
	if !ok || claims == nil {
		return nil, errors.New("missing user claims")
	}
	return claims, nil
}

// ActorID extracts the authenticated user's id from the request context.
func ActorID(c echo.Context) (primitive.ObjectID, error) {
	claims, err := ActorClaims(c)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	user, err := h.service.RegisterUser(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "User registered successfully",
		"data":    echo.Map{"user": user},
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var cred Credential
	if err := c.Bind(&cred); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	token, user, err := h.service.AuthenticateUser(c.Request().Context(), cred)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"token": token, "user": user},
	})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	actorID, err := ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	user, err := h.service.Profile(c.Request().Context(), actorID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"user": user}})
}

func (h *AuthHandler) LinkPatient(c echo.Context) error {
	actorID, err := ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}

	var req LinkPatientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}

	patient, err := h.service.LinkPatient(c.Request().Context(), actorID, req.PatientUsername)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Patient linked successfully",
		"data":    echo.Map{"patient": patient},
	})
}

func (h *AuthHandler) LinkedPatients(c echo.Context) error {
	actorID, err := ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	patients, err := h.service.LinkedPatients(c.Request().Context(), actorID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"patients": patients, "count": len(patients)},
	})
}

// RegisterPushToken records the caller's device push token for delivery.
func (h *AuthHandler) RegisterPushToken(c echo.Context) error {
	actorID, err := ActorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
	}
	var req PushTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request"})
	}
	if err := h.service.RegisterPushToken(c.Request().Context(), actorID, req.Token); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Push token registered"})
}
