package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskroom/models"
	"taskroom/pkg/session"
)

// Sender delivers a push message to a single device token. The actual
// delivery transport (FCM or similar) lives outside this repo.
type Sender interface {
	Send(ctx context.Context, deviceToken, title, body string) error
}

// LogSender is the in-repo Sender: it records deliveries in the log.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(ctx context.Context, deviceToken, title, body string) error {
	s.Log.Info("push notification",
		zap.String("title", title),
		zap.String("body", body))
	return nil
}

// Notifier persists notifications and fans them out to the device tokens of
// the user's active sessions. Push delivery is best-effort; persistence is
// not.
type Notifier struct {
	db     *gorm.DB
	ledger session.Ledger
	sender Sender
	log    *zap.Logger
}

func (n *Notifier) Notify(ctx context.Context, userID uint, title, body string) {
	rec := models.Notification{UserID: userID, Title: title, Body: body}
	if err := n.db.WithContext(ctx).Create(&rec).Error; err != nil {
		n.log.Warn("failed to save notification", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	entries, err := n.ledger.ActiveByPrincipal(ctx, userID)
	if err != nil {
		n.log.Warn("failed to load sessions for push", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	now := time.Now()
	for _, e := range entries {
		if e.FCMToken == "" || now.After(e.ExpiresAt) {
			continue
		}
		if err := n.sender.Send(ctx, e.FCMToken, title, body); err != nil {
			n.log.Warn("push delivery failed",
				zap.Uint("user_id", userID),
				zap.Uint("entry_id", e.ID),
				zap.Error(err))
		}
	}
}
