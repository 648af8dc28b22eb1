package handlers

import (
	"time"

	"restockbot/pkg/config"
	"restockbot/pkg/logger"
	"restockbot/pkg/purchase"
	"restockbot/pkg/scheduler"
	"restockbot/pkg/tracker"
)

// HandlerService provides HTTP handlers for the API
// Base handler service structure containing common dependencies for all handlers
type HandlerService struct {
	config    *config.Config
	registry  *tracker.Registry
	purchases *purchase.Orchestrator
	scheduler *scheduler.ReportScheduler
	startTime time.Time
}

// NewHandlerService creates a new handler service
func NewHandlerService(cfg *config.Config, registry *tracker.Registry, purchases *purchase.Orchestrator) *HandlerService {
	logger.Info("Initializing handler service")

	return &HandlerService{
		config:    cfg,
		registry:  registry,
		purchases: purchases,
		startTime: time.Now(),
	}
}

// SetScheduler sets the scheduler reference (called after scheduler is created)
func (h *HandlerService) SetScheduler(s *scheduler.ReportScheduler) {
	h.scheduler = s
}

// sanitizeConfig removes sensitive information from config before returning
func (h *HandlerService) sanitizeConfig() map[string]interface{} {
	cfg := h.config

	categories := make([]map[string]interface{}, 0, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		categories = append(categories, map[string]interface{}{
			"name":               cat.Name,
			"url":                cat.URL,
			"max_price":          cat.MaxPrice,
			"min_update_seconds": cat.MinUpdateSeconds,
			"max_update_seconds": cat.MaxUpdateSeconds,
			"check_pages":        cat.CheckPages,
			"purchase":           cat.PurchaseEnabled(),
			"purchase_multiple":  cat.PurchaseMultiple,
			"auto_speedup":       cat.AutoSpeedup,
			"rules":              len(cat.Articles),
		})
	}

	return map[string]interface{}{
		"app": cfg.App,
		"bot": map[string]interface{}{
			"notify":          cfg.Bot.Notify,
			"purchase":        cfg.Bot.Purchase,
			"purchase_same":   cfg.Bot.PurchaseSame,
			"has_credentials": cfg.Bot.Credentials != nil && cfg.Bot.Credentials.Email != "",
		},
		"telegram": map[string]interface{}{
			"enabled":    cfg.Telegram.Enabled,
			"configured": cfg.Telegram.BotToken != "",
		},
		"categories": categories,
	}
}
