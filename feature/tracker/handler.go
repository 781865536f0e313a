package tracker

import (
	"errors"

	"manhole-tracker/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for records and scan runs.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the tracker routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	records := app.Group("/records")
	records.Get("/", h.HandleListRecords)
	records.Get("/:id", h.HandleGetRecord)

	runs := app.Group("/runs")
	runs.Get("/", h.HandleListRuns)
	runs.Get("/:id", h.HandleGetRun)
}

// HandleListRecords returns the records of the dataset.
// @Summary List Records
// @Description List dataset records in canonical order, optionally filtered by status.
// @Tags records
// @Produce json
// @Param status query string false "active or deleted"
// @Success 200 {array} object "Records"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /records [get]
func (h *Handler) HandleListRecords(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	records, err := h.service.Records(c.Context(), c.Query("status"))
	if errors.Is(err, ErrInvalidStatus) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		l.Error("Failed to list records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(records)
}

// HandleGetRecord returns a single record.
// @Summary Get Record
// @Description Get one dataset record by ID, deleted records included.
// @Tags records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} object "Record"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /records/{id} [get]
func (h *Handler) HandleGetRecord(c *fiber.Ctx) error {
	id := c.Params("id")
	l := logger.WithRayID(h.service.logger, c)

	r, err := h.service.Record(c.Context(), id)
	if errors.Is(err, ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "record not found",
		})
	}
	if err != nil {
		l.Error("Failed to get record", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(r)
}

// HandleListRuns returns the latest scan runs.
// @Summary List Runs
// @Description List the most recent scan passes, newest first.
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs (default 20)"
// @Success 200 {array} Run "Runs"
// @Failure 503 {object} map[string]string "Run history disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /runs [get]
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	runs, err := h.service.Runs(c.Context(), c.QueryInt("limit", 20))
	if errors.Is(err, ErrNoRunStore) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		l.Error("Failed to list runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(runs)
}

// HandleGetRun returns a single scan run.
// @Summary Get Run
// @Description Get one scan pass with its diff.
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} Run "Run"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 503 {object} map[string]string "Run history disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /runs/{id} [get]
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	id := c.Params("id")
	l := logger.WithRayID(h.service.logger, c)

	run, err := h.service.Run(c.Context(), id)
	switch {
	case errors.Is(err, ErrNoRunStore):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, ErrRunNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run not found",
		})
	case err != nil:
		l.Error("Failed to get run", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(run)
}
