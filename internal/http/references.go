package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/service"
)

type regionRequest struct {
	Name string  `json:"name"`
	Code *string `json:"code"`
}

type districtRequest struct {
	Name       string    `json:"name"`
	RegionID   uuid.UUID `json:"region_id"`
	Population *int      `json:"population" binding:"omitempty,min=0"`
}

type contractTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type workRequest struct {
	Name           string    `json:"name"`
	ContractTypeID uuid.UUID `json:"contract_type_id"`
	Price          *float64  `json:"price" binding:"omitempty,min=0"`
}

type implementatorRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	TaxID string `json:"tax_id" binding:"required,taxid"`
}

// Регионы

func (h *Handler) listRegions(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	regions, err := h.refs.ListRegions(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": regions})
}

func (h *Handler) createRegion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req regionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	region, err := h.refs.CreateRegion(c.Request.Context(), principal, service.RegionInput{Name: req.Name, Code: req.Code})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, region)
}

func (h *Handler) updateRegion(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req regionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	region, err := h.refs.UpdateRegion(c.Request.Context(), principal, id, service.RegionInput{Name: req.Name, Code: req.Code})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, region)
}

func (h *Handler) deleteRegion(c *gin.Context) {
	h.deleteReference(c, h.refs.DeleteRegion)
}

// Районы

func (h *Handler) listDistricts(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	regionID, ok := parseOptionalID(c, "region_id")
	if !ok {
		return
	}
	districts, err := h.refs.ListDistricts(c.Request.Context(), regionID, c.Query("q"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": districts})
}

func (h *Handler) createDistrict(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req districtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	district, err := h.refs.CreateDistrict(c.Request.Context(), principal, service.DistrictInput{
		Name:       req.Name,
		RegionID:   req.RegionID,
		Population: req.Population,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, district)
}

func (h *Handler) updateDistrict(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req districtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	district, err := h.refs.UpdateDistrict(c.Request.Context(), principal, id, service.DistrictInput{
		Name:       req.Name,
		RegionID:   req.RegionID,
		Population: req.Population,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, district)
}

func (h *Handler) deleteDistrict(c *gin.Context) {
	h.deleteReference(c, h.refs.DeleteDistrict)
}

// Типы договоров

func (h *Handler) listContractTypes(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	items, err := h.refs.ListContractTypes(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) createContractType(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req contractTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	item, err := h.refs.CreateContractType(c.Request.Context(), principal, service.ContractTypeInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) updateContractType(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req contractTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	item, err := h.refs.UpdateContractType(c.Request.Context(), principal, id, service.ContractTypeInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) deleteContractType(c *gin.Context) {
	h.deleteReference(c, h.refs.DeleteContractType)
}

// Работы

func (h *Handler) listWorks(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	contractTypeID, ok := parseOptionalID(c, "contract_type_id")
	if !ok {
		return
	}
	works, err := h.refs.ListWorks(c.Request.Context(), contractTypeID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": works})
}

func (h *Handler) createWork(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req workRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	work, err := h.refs.CreateWork(c.Request.Context(), principal, service.WorkInput{
		Name:           req.Name,
		ContractTypeID: req.ContractTypeID,
		Price:          req.Price,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, work)
}

func (h *Handler) updateWork(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req workRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	work, err := h.refs.UpdateWork(c.Request.Context(), principal, id, service.WorkInput{
		Name:           req.Name,
		ContractTypeID: req.ContractTypeID,
		Price:          req.Price,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, work)
}

func (h *Handler) deleteWork(c *gin.Context) {
	h.deleteReference(c, h.refs.DeleteWork)
}

// Исполнители

func (h *Handler) listImplementators(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	items, err := h.refs.ListImplementators(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) createImplementator(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req implementatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	item, err := h.refs.CreateImplementator(c.Request.Context(), principal, service.ImplementatorInput{
		Name:  req.Name,
		TaxID: req.TaxID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) updateImplementator(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req implementatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	item, err := h.refs.UpdateImplementator(c.Request.Context(), principal, id, service.ImplementatorInput{
		Name:  req.Name,
		TaxID: req.TaxID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) deleteImplementator(c *gin.Context) {
	h.deleteReference(c, h.refs.DeleteImplementator)
}

type deleteFunc func(ctx context.Context, principal model.Principal, id uuid.UUID) error

func (h *Handler) deleteReference(c *gin.Context, del deleteFunc) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := del(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
