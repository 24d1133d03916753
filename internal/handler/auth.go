package handler

import (
	"errors"
	"net/http"

	"crisisintel/internal/middleware"
	"crisisintel/internal/models"
	"crisisintel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	log         *logrus.Logger
}

func NewAuthHandler(authService service.AuthService, log *logrus.Logger) AuthHandler {
	return &authHandler{authService: authService, log: log}
}

type registerInput struct {
	Email    string      `json:"email" binding:"required,email"`
	FullName string      `json:"full_name" binding:"required"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     models.Role `json:"role" binding:"required"`
}

func (h *authHandler) Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	user, err := h.authService.Register(input.Email, input.FullName, input.Password, input.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "conflict", "detail": "Account already exists."}})
		case errors.Is(err, service.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": "Unknown or reserved role."}})
		default:
			h.log.Errorf("Failed to register user: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "detail": "Registration failed."}})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *authHandler) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "validation", "detail": err.Error()}})
		return
	}

	token, expiresAt, err := h.authService.Login(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "invalid_credentials", "detail": "Email or password is incorrect."}})
			return
		}
		h.log.Errorf("Failed to login user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "detail": "Login failed."}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt})
}

func (h *authHandler) Logout(c *gin.Context) {
	actor := middleware.Actor(c)

	if err := h.authService.Logout(actor); err != nil {
		h.log.Errorf("Failed to logout user %d: %v", actor.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "detail": "Logout failed."}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}
