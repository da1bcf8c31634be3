package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
	"github.com/diagnosis/papro-bookings/pkg/ratelimit"
	"github.com/diagnosis/papro-bookings/services/auth/internal/domain"
)

const mailTimeout = 10 * time.Second

type AdminService interface {
	Login(ctx context.Context, clientIP string, req *domain.LoginRequest) (*domain.LoginResult, error)
	Session(token string) (*domain.SessionInfo, error)
	RequestPasswordReset(ctx context.Context, clientIP string, req *domain.ResetRequest) error
	ValidateResetToken(ctx context.Context, token string) (*domain.ResetStatus, error)
	ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) (*domain.LoginResult, error)
}

type AdminConfig struct {
	AdminEmail string
	// BaseURL is the public site root the reset link points at.
	BaseURL string
}

type adminService struct {
	credentials auth.CredentialStore
	sessions    *auth.SessionManager
	resets      *auth.ResetTokens
	limiter     *ratelimit.Limiter
	mailer      mailer.Service
	config      AdminConfig
	now         func() time.Time
}

func NewAdminService(
	credentials auth.CredentialStore,
	sessions *auth.SessionManager,
	resets *auth.ResetTokens,
	limiter *ratelimit.Limiter,
	mail mailer.Service,
	config AdminConfig,
) AdminService {
	return NewAdminServiceWithClock(credentials, sessions, resets, limiter, mail, config, time.Now)
}

func NewAdminServiceWithClock(
	credentials auth.CredentialStore,
	sessions *auth.SessionManager,
	resets *auth.ResetTokens,
	limiter *ratelimit.Limiter,
	mail mailer.Service,
	config AdminConfig,
	now func() time.Time,
) AdminService {
	return &adminService{
		credentials: credentials,
		sessions:    sessions,
		resets:      resets,
		limiter:     limiter,
		mailer:      mail,
		config:      config,
		now:         now,
	}
}

// Login counts every attempt against the client's login window, including
// malformed ones, and clears the window on success.
func (s *adminService) Login(ctx context.Context, clientIP string, req *domain.LoginRequest) (*domain.LoginResult, error) {
	if err := s.limiter.Allow(ctx, clientIP, ratelimit.PolicyLogin); err != nil {
		logger.WarnContext(ctx, "Login rate limited", "client_ip", clientIP)
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.credentials.Verify(ctx, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}
	if !ok {
		logger.InfoContext(ctx, "Admin login failed", "client_ip", clientIP)
		return nil, auth.ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, clientIP, ratelimit.PolicyLogin); err != nil {
		logger.WarnContext(ctx, "Failed to reset login limiter", "error", err)
	}

	res, err := s.issue(s.config.AdminEmail, req.RememberMe)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Admin logged in", "remember_me", req.RememberMe)
	return res, nil
}

func (s *adminService) Session(token string) (*domain.SessionInfo, error) {
	sess, err := s.sessions.Verify(token)
	if err != nil {
		return nil, err
	}
	return &domain.SessionInfo{
		Authenticated: true,
		Email:         sess.Email,
		LoginTime:     sess.LoginTime,
		ExpiresAt:     sess.ExpiresAt,
		RememberMe:    sess.RememberMe,
	}, nil
}

// RequestPasswordReset only fails for rate limiting and missing input. An
// unknown address, a storage error or a mail failure all look like success
// to the caller.
func (s *adminService) RequestPasswordReset(ctx context.Context, clientIP string, req *domain.ResetRequest) error {
	if err := s.limiter.Allow(ctx, clientIP, ratelimit.PolicyReset); err != nil {
		logger.WarnContext(ctx, "Password reset rate limited", "client_ip", clientIP)
		return err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Email != strings.ToLower(s.config.AdminEmail) {
		logger.InfoContext(ctx, "Password reset requested for non-admin email", "error", domain.ErrEmailNotAdmin)
		return nil
	}

	token, err := s.resets.Issue(ctx, req.Email)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to issue reset token", "error", err)
		return nil
	}

	resetURL := s.config.BaseURL + "/admin/reset-password?token=" + url.QueryEscape(token.Token)

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()
	if err := s.mailer.SendPasswordReset(mctx, req.Email, resetURL, s.resets.TTL()); err != nil {
		logger.ErrorContext(ctx, "Failed to send password reset email", "error", err)
		return nil
	}

	logger.InfoContext(ctx, "Password reset email sent")
	return nil
}

func (s *adminService) ValidateResetToken(ctx context.Context, token string) (*domain.ResetStatus, error) {
	if token == "" {
		return nil, &domain.ValidationError{Message: "Token is required"}
	}
	rt, err := s.resets.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.ResetStatus{
		Valid:     true,
		Email:     rt.Email,
		ExpiresIn: rt.MinutesRemaining(s.now()),
	}, nil
}

// ResetPassword checks the token before the password policy so a weak
// password does not burn the link, then consumes it and logs the admin in.
func (s *adminService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) (*domain.LoginResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.resets.Validate(ctx, req.Token); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return nil, err
	}

	rt, err := s.resets.Consume(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.Update(ctx, req.NewPassword); err != nil {
		return nil, fmt.Errorf("failed to update credential: %w", err)
	}
	logger.InfoContext(ctx, "Admin password reset completed")

	return s.issue(rt.Email, false)
}

func (s *adminService) issue(email string, rememberMe bool) (*domain.LoginResult, error) {
	token, sess, err := s.sessions.Issue(auth.AdminSubject, email, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &domain.LoginResult{
		Token:     token,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
		MaxAge:    s.sessions.Duration(rememberMe),
	}, nil
}
