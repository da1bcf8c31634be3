package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	mw "github.com/diagnosis/papro-bookings/pkg/middleware"
	"github.com/diagnosis/papro-bookings/pkg/response"
	"github.com/diagnosis/papro-bookings/services/auth/internal/domain"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid payload")
		return
	}

	res, err := h.adminService.Login(r.Context(), mw.ClientIP(r), &req)
	if err != nil {
		if writeLimited(w, err, "Too many login attempts", "trying again") || writeValidation(w, err) {
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.WriteErrorMessage(w, http.StatusUnauthorized, "Invalid credentials",
				response.CodeUnauthorized, "The password you entered is incorrect.")
			return
		}
		writeInternal(w, r, err)
		return
	}

	h.setSession(w, res)
	response.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Login successful",
		"redirectTo": "/admin",
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Session reports who the cookie belongs to.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.SessionTokenFromRequest(r)
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}
	info, err := h.adminService.Session(token)
	if err != nil {
		response.Unauthorized(w, "Not authenticated")
		return
	}
	response.JSON(w, http.StatusOK, info)
}

func (h *Handlers) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid payload")
		return
	}

	if err := h.adminService.RequestPasswordReset(r.Context(), mw.ClientIP(r), &req); err != nil {
		if writeLimited(w, err, "Too many reset attempts", "requesting another reset") || writeValidation(w, err) {
			return
		}
		writeInternal(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "If this email is associated with an admin account, you will receive password reset instructions.",
	})
}

// VerifyResetToken lets the reset page check a link before showing the form.
func (h *Handlers) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	status, err := h.adminService.ValidateResetToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, auth.ErrResetTokenExpired):
			writeInvalidToken(w, "Token expired", response.CodeExpiredToken, "This reset link has expired. Please request a new one.")
		case errors.Is(err, auth.ErrResetTokenNotFound):
			writeInvalidToken(w, "Invalid token", response.CodeInvalidToken, "This reset link is invalid.")
		default:
			writeInternal(w, r, err)
		}
		return
	}

	response.JSON(w, http.StatusOK, status)
}

func writeInvalidToken(w http.ResponseWriter, errMsg, code, message string) {
	response.JSON(w, http.StatusBadRequest, map[string]any{
		"error":   errMsg,
		"code":    code,
		"valid":   false,
		"message": message,
	})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid payload")
		return
	}

	res, err := h.adminService.ResetPassword(r.Context(), &req)
	if err != nil {
		var weak *auth.PasswordPolicyError
		switch {
		case writeValidation(w, err):
		case errors.Is(err, auth.ErrResetTokenExpired):
			response.WriteErrorMessage(w, http.StatusBadRequest, "Reset token expired",
				response.CodeExpiredToken, "This reset link has expired. Please request a new one.")
		case errors.Is(err, auth.ErrResetTokenNotFound):
			response.WriteErrorMessage(w, http.StatusBadRequest, "Invalid reset token",
				response.CodeInvalidToken, "This reset link is invalid or has expired.")
		case errors.As(err, &weak):
			response.WriteErrorMessage(w, http.StatusBadRequest, "Invalid password",
				response.CodeWeakPassword, "Password must "+joinProblems(weak.Problems)+".")
		default:
			writeInternal(w, r, err)
		}
		return
	}

	h.setSession(w, res)
	response.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Password updated successfully. You are now logged in.",
		"redirectTo": "/admin",
	})
}

// joinProblems renders "a, b and c".
func joinProblems(problems []string) string {
	switch len(problems) {
	case 0:
		return "be stronger"
	case 1:
		return problems[0]
	}
	return strings.Join(problems[:len(problems)-1], ", ") + " and " + problems[len(problems)-1]
}
