package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/case-routing-service/internal/config"
	"github.com/spec-kit/case-routing-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
// Delivery itself belongs to an external notifier; these handlers only log
// and invoke the configured stubs.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCaseRoutedInternational, n.handleCaseRouted)
	n.dispatcher.Subscribe(events.EventPriorityResponse, n.handleFunnelProgress)
	n.dispatcher.Subscribe(events.EventPanelResponse, n.handleFunnelProgress)
	n.dispatcher.Subscribe(events.EventAuctionOpened, n.handleAuctionOpened)
	n.dispatcher.Subscribe(events.EventBidReceived, n.handleBidReceived)
	n.dispatcher.Subscribe(events.EventAuctionWinnerSelected, n.handleWinnerSelected)
	n.dispatcher.Subscribe(events.EventAuctionExpired, n.handleAuctionExpired)
}

func (n *NotificationService) handleCaseRouted(ctx context.Context, event events.Event) error {
	n.logger.Info("CaseRoutedInternational", zap.String("case_id", event.CaseID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleFunnelProgress(ctx context.Context, event events.Event) error {
	n.logger.Info("FunnelProgress", zap.String("case_id", event.CaseID), zap.String("event_type", string(event.Type)), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAuctionOpened(ctx context.Context, event events.Event) error {
	n.logger.Info("AuctionOpened", zap.String("case_id", event.CaseID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBidReceived(ctx context.Context, event events.Event) error {
	n.logger.Info("BidReceived", zap.String("case_id", event.CaseID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleWinnerSelected(ctx context.Context, event events.Event) error {
	n.logger.Info("AuctionWinnerSelected", zap.String("case_id", event.CaseID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAuctionExpired(ctx context.Context, event events.Event) error {
	n.logger.Info("AuctionExpired", zap.String("case_id", event.CaseID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("case_id", event.CaseID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("case_id", event.CaseID),
		zap.String("event_type", string(event.Type)))
}
