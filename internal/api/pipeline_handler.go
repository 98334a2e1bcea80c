package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"pulsemetrics/internal/pipeline"
)

// PipelineHandler exposes the pipeline's health counters and the consumer
// group inspection surface.
type PipelineHandler struct {
	service *pipeline.Service
	logger  *slog.Logger
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(service *pipeline.Service, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{service: service, logger: logger}
}

// Stats returns the pipeline counters: events processed/failed, batches,
// throughput, success rate, and dedup cache size.
func (h *PipelineHandler) Stats(c *fiber.Ctx) error {
	return Success(c, h.service.Stats())
}

// ConsumerGroup returns the consumer group's pending entry count and
// per-consumer idle times, for operational alerting on the pipeline
// itself.
func (h *PipelineHandler) ConsumerGroup(c *fiber.Ctx) error {
	info, err := h.service.GroupInfo(c.UserContext())
	if err != nil {
		h.logger.Error("failed to inspect consumer group", "error", err)
		return InternalError(c, "failed to inspect consumer group")
	}
	return Success(c, info)
}
