package relations

import (
	"errors"

	"keymatch/core/logger"
	"keymatch/core/match"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for relations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the relations routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/relations")
	group.Get("/", h.HandleList)
	group.Get("/:name/catalog", h.HandleCatalog)
	group.Post("/:name/existing", h.handleMatch(OpExisting))
	group.Post("/:name/not-existing", h.handleMatch(OpNotExisting))
	group.Post("/:name/partition", h.handleMatch(OpPartition))
}

// HandleList returns the served relations with their default keys.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	infos, err := h.service.List()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(infos)
}

// HandleCatalog returns the columns and primary key of a relation as the matcher sees them.
func (h *Handler) HandleCatalog(c *fiber.Ctx) error {
	rel, err := h.service.Describe(c.Context(), c.Params("name"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"relation":    rel.Name,
		"columns":     rel.Columns,
		"primary_key": rel.PrimaryKey(),
	})
}

func (h *Handler) handleMatch(op string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")
		l := logger.WithRayID(h.service.logger, c)

		var req MatchRequest
		if err := c.BodyParser(&req); err != nil {
			l.Warn("Invalid match request", zap.String("relation", name), zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body: " + err.Error(),
			})
		}

		resp, err := h.service.Match(c.Context(), name, op, req)
		if err != nil {
			l.Error("Match failed", zap.String("relation", name), zap.String("op", op), zap.Error(err))
			return h.fail(c, err)
		}
		return c.JSON(resp)
	}
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownRelation):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidItems),
		errors.Is(err, ErrInvalidOperation),
		errors.Is(err, match.ErrMapping),
		errors.Is(err, match.ErrTypeMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, match.ErrStaging),
		errors.Is(err, match.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
