package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/pkg/utils"
	"github.com/urban-indicators/internal/usecase"
)

// StatsHandler serves what the pipeline has materialized
type StatsHandler struct {
	statsUC *usecase.StatsUseCase
	logger  *zap.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsUC *usecase.StatsUseCase, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		statsUC: statsUC,
		logger:  logger,
	}
}

// GetStatus godoc
// @Summary Get pipeline status
// @Description Row counts of every derived table. ?refresh=true skips the cache.
// @Tags Status
// @Produce json
// @Param refresh query bool false "Bypass the status cache"
// @Success 200 {object} utils.SuccessResponse{data=domain.Statistics}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/status [get]
func (h *StatsHandler) GetStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()

	h.logger.Debug("Handling get status request")

	get := h.statsUC.GetStatistics
	if c.QueryBool("refresh") {
		get = h.statsUC.RefreshStatistics
	}

	stats, err := get(ctx)
	if err != nil {
		h.logger.Error("Failed to get statistics", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, stats, &utils.Meta{Total: len(stats.Tables)})
}

// GetAreas godoc
// @Summary List areas of interest
// @Tags Status
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]domain.AreaOfInterest}
// @Router /api/v1/areas [get]
func (h *StatsHandler) GetAreas(c *fiber.Ctx) error {
	areas := h.statsUC.Areas()
	return utils.SendSuccess(c, areas, &utils.Meta{Total: len(areas)})
}

// GetFlowSheets godoc
// @Summary List published flow sheets
// @Tags Status
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]domain.FlowPublicationRecord}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/flow-sheets [get]
func (h *StatsHandler) GetFlowSheets(c *fiber.Ctx) error {
	sheets, err := h.statsUC.GetFlowSheets(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to list flow sheets", zap.Error(err))
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, sheets, &utils.Meta{Total: len(sheets)})
}
