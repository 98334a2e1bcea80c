package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"pulsemetrics/internal/cache"
	"pulsemetrics/internal/domain"
	"pulsemetrics/internal/store"
)

// CampaignHandler serves campaign metric and alert reads. Reads prefer
// the hot cache and fall back to the metrics store on a miss.
type CampaignHandler struct {
	metricsRepo store.MetricsRepository
	alertRepo   store.AlertRepository
	hotCache    cache.HotCache
	logger      *slog.Logger
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(
	metricsRepo store.MetricsRepository,
	alertRepo store.AlertRepository,
	hotCache cache.HotCache,
	logger *slog.Logger,
) *CampaignHandler {
	return &CampaignHandler{
		metricsRepo: metricsRepo,
		alertRepo:   alertRepo,
		hotCache:    hotCache,
		logger:      logger,
	}
}

// Metrics returns a campaign's lifetime counters.
func (h *CampaignHandler) Metrics(c *fiber.Ctx) error {
	campaignID := c.Params("id")
	if campaignID == "" {
		return BadRequest(c, "campaign id is required")
	}

	ctx := c.UserContext()

	cached, err := h.hotCache.GetCampaignMetrics(ctx, campaignID)
	if err != nil {
		h.logger.Warn("hot cache read failed, falling back to store", "error", err)
	}
	if cached != nil {
		return Success(c, cached)
	}

	m, err := h.metricsRepo.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			return NotFound(c, "no metrics for campaign")
		}
		h.logger.Error("failed to read campaign metrics", "error", err)
		return InternalError(c, "failed to read campaign metrics")
	}

	return Success(c, m)
}

// Alert returns a campaign's current alert status from the hot cache.
func (h *CampaignHandler) Alert(c *fiber.Ctx) error {
	campaignID := c.Params("id")
	if campaignID == "" {
		return BadRequest(c, "campaign id is required")
	}

	status, err := h.hotCache.GetAlertStatus(c.UserContext(), campaignID)
	if err != nil {
		h.logger.Error("failed to read alert status", "error", err)
		return InternalError(c, "failed to read alert status")
	}
	if status == nil {
		return NotFound(c, "no alert status for campaign")
	}

	return Success(c, status)
}
