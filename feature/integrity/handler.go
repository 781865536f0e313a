package integrity

import (
	"manhole-tracker/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/dataset", h.HandleDatasetCheck)
	group.Get("/history", h.HandleHistoryCheck)
	group.Get("/mirror", h.HandleMirrorCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs every integrity check (Dataset, History, Mirror). Checks that are not configured report an error entry.
// @Tags integrity
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := make(map[string]interface{})

	if ds, err := h.service.CheckDataset(); err != nil {
		report["dataset"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["dataset"] = ds
	}

	if hist, err := h.service.CheckHistory(); err != nil {
		report["history"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["history"] = hist
	}

	if mirror, err := h.service.CheckMirror(c.Context()); err != nil {
		report["mirror"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["mirror"] = mirror
	}

	return c.JSON(report)
}

// HandleDatasetCheck validates the dataset file.
// @Summary Check Dataset
// @Description Checks canonical ordering, provenance consistency and skipped entries of the dataset file.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.DatasetReport "Dataset Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/dataset [get]
func (h *Handler) HandleDatasetCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckDataset()
	if err != nil {
		l.Error("Dataset check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if len(report.Issues) > 0 {
		l.Warn("Dataset issues detected", zap.Int("issues", len(report.Issues)))
	}

	return c.JSON(report)
}

// HandleHistoryCheck validates the run history schema.
// @Summary Check Run History Schema
// @Description Checks that the scan_runs table matches the Run model.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.HistoryReport "History Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/history [get]
func (h *Handler) HandleHistoryCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckHistory()
	if err != nil {
		l.Error("History schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(report)
}

// HandleMirrorCheck checks and optionally creates the mirror bucket.
// @Summary Check Mirror Bucket
// @Description Checks that the mirror bucket exists. Optionally creates it.
// @Tags integrity
// @Produce json
// @Param fix query boolean false "Create the bucket when missing"
// @Success 200 {object} checks.MirrorReport "Mirror Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/mirror [get]
func (h *Handler) HandleMirrorCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	check := h.service.CheckMirror
	if fix {
		check = h.service.FixMirror
	}
	report, err := check(c.Context())
	if err != nil {
		l.Error("Mirror check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if report.Fixed {
		l.Info("Mirror bucket created", zap.String("bucket", report.Bucket))
	}

	return c.JSON(report)
}
