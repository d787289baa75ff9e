package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	appLogger "github.com/oleksandrmytro/timecapsule-auth/internal/infra/logger"
)

// NotificationDispatcher fans out verification credentials to downstream notifiers.
type NotificationDispatcher interface {
	SendRegistrationVerification(ctx context.Context, payload RegistrationNotification) error
}

// RegistrationNotification captures data needed to deliver a verification code.
type RegistrationNotification struct {
	Email    string
	Username string
	DevCode  string
	Resend   bool
	Expires  time.Time
}

type noopDispatcher struct{}

func (noopDispatcher) SendRegistrationVerification(ctx context.Context, payload RegistrationNotification) error {
	return nil
}

// LoggingNotificationDispatcher records credential dispatch events for observability without delivering them.
type LoggingNotificationDispatcher struct {
	logger *zap.Logger
}

// NewLoggingNotificationDispatcher constructs a notification dispatcher backed by structured logging.
func NewLoggingNotificationDispatcher(logger *zap.Logger) NotificationDispatcher {
	if logger == nil {
		return noopDispatcher{}
	}
	return &LoggingNotificationDispatcher{logger: logger}
}

func (d *LoggingNotificationDispatcher) SendRegistrationVerification(ctx context.Context, payload RegistrationNotification) error {
	if d == nil || d.logger == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("email", appLogger.MaskEmail(payload.Email)),
		zap.Bool("resend", payload.Resend),
		zap.Time("expires_at", payload.Expires),
	}

	if payload.Username != "" {
		fields = append(fields, zap.String("username", payload.Username))
	}
	if payload.DevCode != "" {
		fields = append(fields, zap.String("dev_code", payload.DevCode))
	}

	d.logger.Info("dispatch registration verification", fields...)
	return nil
}
