package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/contracts-service/internal/http/middleware"
	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/rules"
	"github.com/nurpe/contracts-service/internal/service"
)

type Handler struct {
	contracts *service.ContractService
	refs      *service.ReferenceService
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, refs *service.ReferenceService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, refs: refs, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/contracts", h.listContracts)
	protected.GET("/contracts/export", h.exportContracts)
	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts/:id", h.getContract)
	protected.PUT("/contracts/:id", h.updateContract)
	protected.PATCH("/contracts/:id/checklist", h.updateChecklist)
	protected.DELETE("/contracts/:id", h.deleteContract)
	protected.GET("/contracts/:id/files/:slot", h.downloadFile)
	protected.GET("/contracts/:id/pdf", h.exportContractPDF)

	protected.GET("/regions", h.listRegions)
	protected.POST("/regions", h.createRegion)
	protected.PUT("/regions/:id", h.updateRegion)
	protected.DELETE("/regions/:id", h.deleteRegion)

	protected.GET("/districts", h.listDistricts)
	protected.POST("/districts", h.createDistrict)
	protected.PUT("/districts/:id", h.updateDistrict)
	protected.DELETE("/districts/:id", h.deleteDistrict)

	protected.GET("/contract-types", h.listContractTypes)
	protected.POST("/contract-types", h.createContractType)
	protected.PUT("/contract-types/:id", h.updateContractType)
	protected.DELETE("/contract-types/:id", h.deleteContractType)

	protected.GET("/works", h.listWorks)
	protected.POST("/works", h.createWork)
	protected.PUT("/works/:id", h.updateWork)
	protected.DELETE("/works/:id", h.deleteWork)

	protected.GET("/implementators", h.listImplementators)
	protected.POST("/implementators", h.createImplementator)
	protected.PUT("/implementators/:id", h.updateImplementator)
	protected.DELETE("/implementators/:id", h.deleteImplementator)
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var validation *rules.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": validation.Fields})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrReferenced):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindError отвечает 422 на нарушения правил полей и 400 на некорректное тело
func (h *Handler) bindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	verr := &rules.ValidationError{}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			verr.Add(rules.ErrRequired, "Заполните поле.", fe.Field())
		case "taxid":
			verr.Add(rules.ErrInvalidTaxID, "ИНН должен содержать 10 или 12 цифр.", fe.Field())
		case "max":
			verr.Add(rules.ErrTooLong, "Слишком длинное значение.", fe.Field())
		case "min", "gte":
			verr.Add(rules.ErrNegative, "Значение не может быть отрицательным.", fe.Field())
		default:
			verr.Add(service.ErrInvalidInput, fe.Error(), fe.Field())
		}
	}
	h.handleError(c, verr)
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalID читает необязательный uuid из query
func parseOptionalID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &id, true
}

// parseDate возвращает нулевое время для пустого значения, чтобы отсутствие
// даты попало в общий список нарушений
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	layouts := []string{
		"2006-01-02",
		"02.01.2006",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return rules.DateOnly(parsed), nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
