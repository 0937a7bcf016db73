package handler

import (
	"go-trip-api/common"
	"go-trip-api/model"
	"go-trip-api/service"
	"go-trip-api/validation"
	"net/http"
	"time"
)

var registerSchema = validation.Schema{
	"name":     {validation.Required(), validation.Type(validation.TypeString), validation.MaxLength(100)},
	"email":    {validation.Required(), validation.Type(validation.TypeString), validation.Email(), validation.MaxLength(255)},
	"password": {validation.Required(), validation.Type(validation.TypeString), validation.MinLength(8), validation.MaxLength(72), validation.Custom(passwordFitsBcrypt)},
}

// passwordFitsBcrypt bounds the password in bytes; MaxLength counts characters.
func passwordFitsBcrypt(input map[string]any) (string, bool) {
	if p, ok := input["password"].(string); ok && len(p) > service.MaxPasswordBytes {
		return "password must be at most 72 bytes", false
	}
	return "", true
}

var loginSchema = validation.Schema{
	"email":    {validation.Required(), validation.Type(validation.TypeString)},
	"password": {validation.Required(), validation.Type(validation.TypeString)},
}

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

type AuthHandler struct {
	service *service.AuthService
	cookie  CookieConfig
}

func NewAuthHandler(s *service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: s, cookie: cookie}
}

// Register godoc
// @Summary      Create an account
// @Description  Creates the user, sets the refresh token cookie and returns an access token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body model.RegisterRequest true "Account details"
// @Success      201  {object}  common.DataEnvelope{data=model.AuthResponse}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      409  {object}  common.AppError "Email already registered"
// @Failure      429  {object}  common.AppError "Too many attempts"
// @Router       /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}
	if errs := validation.Validate(registerSchema, payload); errs != nil {
		return common.NewValidationError(errs)
	}

	session, err := h.service.Register(r.Context(), model.RegisterRequest{
		Name:     payload["name"].(string),
		Email:    payload["email"].(string),
		Password: payload["password"].(string),
	})
	if err != nil {
		return mapServiceError(err)
	}

	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExpiresAt)
	common.WriteJSON(w, http.StatusCreated, common.DataEnvelope{
		Data: model.AuthResponse{User: session.User, AccessToken: session.AccessToken},
	})
	return nil
}

// Login godoc
// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body model.LoginRequest true "Credentials"
// @Success      200  {object}  common.DataEnvelope{data=model.AuthResponse}
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      401  {object}  common.AppError "Invalid email or password"
// @Failure      429  {object}  common.AppError "Too many attempts"
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	payload, appErr := common.DecodeJSONObject(w, r)
	if appErr != nil {
		return appErr
	}
	if errs := validation.Validate(loginSchema, payload); errs != nil {
		return common.NewValidationError(errs)
	}

	session, err := h.service.Login(r.Context(), model.LoginRequest{
		Email:    payload["email"].(string),
		Password: payload["password"].(string),
	})
	if err != nil {
		return mapServiceError(err)
	}

	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExpiresAt)
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{
		Data: model.AuthResponse{User: session.User, AccessToken: session.AccessToken},
	})
	return nil
}

// Refresh godoc
// @Summary      Rotate the refresh token
// @Description  Exchanges the refresh cookie for a new access token and a new cookie. The old cookie value stops working.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  common.DataEnvelope{data=model.RefreshResponse}
// @Failure      401  {object}  common.AppError "Invalid or expired refresh token"
// @Failure      429  {object}  common.AppError "Too many attempts"
// @Router       /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	session, err := h.service.Refresh(r.Context(), h.readRefreshCookie(r))
	if err != nil {
		return mapServiceError(err)
	}

	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExpiresAt)
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{
		Data: model.RefreshResponse{AccessToken: session.AccessToken},
	})
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the presented refresh token, if any, and clears the cookie.
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  common.AppError "Authentication required"
// @Router       /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}

	h.service.Logout(r.Context(), userID, h.readRefreshCookie(r))
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// LogoutAll godoc
// @Summary      Log out everywhere
// @Description  Revokes every refresh token of the caller.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.DataEnvelope{data=map[string]int64}
// @Failure      401  {object}  common.AppError "Authentication required"
// @Router       /api/v1/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}

	n, err := h.service.LogoutAll(r.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}
	h.clearRefreshCookie(w)
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: map[string]int64{"revoked": n}})
	return nil
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.DataEnvelope{data=model.User}
// @Failure      401  {object}  common.AppError "Authentication required"
// @Router       /api/v1/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := requireUserID(r)
	if appErr != nil {
		return appErr
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}
	common.WriteJSON(w, http.StatusOK, common.DataEnvelope{Data: user})
	return nil
}

func (h *AuthHandler) readRefreshCookie(r *http.Request) string {
	c, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
