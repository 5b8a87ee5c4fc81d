package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/courier/internal/auth"
	"github.com/BradenHooton/courier/internal/models"
	"github.com/BradenHooton/courier/internal/services"
	pkghttp "github.com/BradenHooton/courier/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	Logout(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, ip *string) (*services.AuthResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// NameVersionRequest names a browser or operating system
type NameVersionRequest struct {
	Name    string `json:"name" validate:"max=100"`
	Version string `json:"version" validate:"max=50"`
}

// DeviceRequest describes the client opening the session
type DeviceRequest struct {
	Browser    NameVersionRequest `json:"browser"`
	OS         NameVersionRequest `json:"os"`
	DeviceType string             `json:"device_type" validate:"omitempty,device_type"`
}

// LocationRequest is the client's approximate location
type LocationRequest struct {
	Country   string   `json:"country" validate:"max=100"`
	City      string   `json:"city" validate:"max=100"`
	State     string   `json:"state" validate:"max=100"`
	Timezone  string   `json:"timezone" validate:"max=64"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required"`
	Device   DeviceRequest   `json:"device"`
	Location LocationRequest `json:"location"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

func (req *LoginRequest) normalize() {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
}

func (req LoginRequest) toInput(ip, userAgent string) services.LoginInput {
	deviceType, _ := models.ParseDeviceType(req.Device.DeviceType)
	return services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device: models.DeviceInfo{
			UserAgent: optionalString(userAgent),
			IPAddress: optionalString(ip),
			Browser: models.NameVersion{
				Name:    optionalString(req.Device.Browser.Name),
				Version: optionalString(req.Device.Browser.Version),
			},
			OS: models.NameVersion{
				Name:    optionalString(req.Device.OS.Name),
				Version: optionalString(req.Device.OS.Version),
			},
			DeviceType: deviceType,
		},
		Location: models.Location{
			Country:  optionalString(req.Location.Country),
			City:     optionalString(req.Location.City),
			State:    optionalString(req.Location.State),
			Timezone: optionalString(req.Location.Timezone),
			Coordinates: models.Coordinates{
				Latitude:  req.Location.Latitude,
				Longitude: req.Location.Longitude,
			},
		},
	}
}

// Login handles account login
// @Summary Account login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	authResp, err := h.service.Login(r.Context(), req.toInput(ipAddress, userAgent))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResp)
}

// Logout ends the caller's open session
// @Summary Account logout
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), claims.AccountID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// ChangePassword replaces the caller's password and returns a fresh token
// @Summary Change password
// @Accept json
// @Param request body ChangePasswordRequest true "Password change"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 422 {object} pkghttp.ErrorResponse
// @Router /auth/password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ip := pkghttp.ExtractClientIP(r, h.ipConfig)
	authResp, err := h.service.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.NewPassword, optionalString(ip))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResp)
}
