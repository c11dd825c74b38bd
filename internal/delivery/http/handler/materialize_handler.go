package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
	"github.com/urban-indicators/internal/pkg/utils"
	"github.com/urban-indicators/internal/pkg/validator"
)

// MaterializeRequestBody is the optional body of POST /materialize
type MaterializeRequestBody struct {
	RequestedBy string `json:"requested_by" validate:"omitempty,max=100"`
	Reason      string `json:"reason" validate:"omitempty,max=500"`
}

// MaterializeHandler queues pipeline runs for the worker
type MaterializeHandler struct {
	streamRepo repository.StreamRepository
	logger     *zap.Logger
}

// NewMaterializeHandler creates a MaterializeHandler. A nil streamRepo makes
// every request fail with CONFIGURATION_MISSING.
func NewMaterializeHandler(streamRepo repository.StreamRepository, logger *zap.Logger) *MaterializeHandler {
	return &MaterializeHandler{
		streamRepo: streamRepo,
		logger:     logger,
	}
}

// RequestRun godoc
// @Summary Queue a pipeline run
// @Description Publishes a materialize request on the worker stream and answers with its id
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param request body MaterializeRequestBody false "Optional requester and reason"
// @Success 202 {object} utils.SuccessResponse{data=domain.MaterializeRequest}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/materialize [post]
func (h *MaterializeHandler) RequestRun(c *fiber.Ctx) error {
	if h.streamRepo == nil {
		return utils.SendError(c, errors.ErrConfigurationMissing.Detail("redis", "stream triggers need REDIS_HOST"))
	}

	var body MaterializeRequestBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return utils.SendError(c, errors.ErrInvalidRequest.Detail("body", err.Error()))
		}
	}
	if err := validator.Validate(&body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.Detail("fields", validator.FailedFields(err)))
	}

	req := domain.MaterializeRequest{
		RequestID:   uuid.New(),
		RequestedBy: body.RequestedBy,
		Reason:      body.Reason,
	}
	if err := h.streamRepo.PublishToStream(c.UserContext(), domain.StreamMaterializeRequest, req); err != nil {
		h.logger.Error("Failed to publish materialize request", zap.Error(err))
		return utils.SendError(c, err)
	}

	h.logger.Info("Materialize run requested",
		zap.String("request_id", req.RequestID.String()),
		zap.String("requested_by", req.RequestedBy),
	)
	return utils.SendAccepted(c, req)
}
