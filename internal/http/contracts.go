package http

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/rules"
	"github.com/nurpe/contracts-service/internal/service"
)

const dateLayout = "2006-01-02"

type contractForm struct {
	CustomerName    string                `form:"customer_name"`
	CustomerTaxID   string                `form:"customer_tax_id"`
	StartDate       string                `form:"start_date"`
	EndDate         string                `form:"end_date"`
	ImplementatorID string                `form:"implementator_id"`
	GosServices     string                `form:"gos_services"`
	Oko             string                `form:"oko"`
	Spolokh         string                `form:"spolokh"`
	Kits            string                `form:"kits"`
	File1           *multipart.FileHeader `form:"file1"`
	File2           *multipart.FileHeader `form:"file2"`
	File3           *multipart.FileHeader `form:"file3"`
	File1Clear      string                `form:"file1_clear"`
	File2Clear      string                `form:"file2_clear"`
	File3Clear      string                `form:"file3_clear"`
}

type kitRequest struct {
	ID         *uuid.UUID `json:"id"`
	Number     int        `json:"number"`
	DistrictID uuid.UUID  `json:"district_id"`
	Address    string     `json:"address"`
	Delete     bool       `json:"delete"`
}

type checklistRequest struct {
	GosServices bool `json:"gos_services"`
	Oko         bool `json:"oko"`
	Spolokh     bool `json:"spolokh"`
}

type fileResponse struct {
	Slot      int    `json:"slot"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	URL       string `json:"url"`
}

type kitResponse struct {
	ID         uuid.UUID       `json:"id"`
	Number     int             `json:"number"`
	DistrictID uuid.UUID       `json:"district_id"`
	District   *model.District `json:"district,omitempty"`
	Address    string          `json:"address"`
}

type contractResponse struct {
	ID              uuid.UUID            `json:"id"`
	CustomerName    string               `json:"customer_name"`
	CustomerTaxID   string               `json:"customer_tax_id"`
	StartDate       string               `json:"start_date"`
	EndDate         string               `json:"end_date"`
	ImplementatorID uuid.UUID            `json:"implementator_id"`
	Implementator   *model.Implementator `json:"implementator,omitempty"`
	GosServices     bool                 `json:"gos_services"`
	Oko             bool                 `json:"oko"`
	Spolokh         bool                 `json:"spolokh"`
	Status          model.ContractStatus `json:"status"`
	Files           []fileResponse       `json:"files"`
	Kits            []kitResponse        `json:"kits,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func toContractResponse(v service.ContractView) contractResponse {
	c := v.Contract
	resp := contractResponse{
		ID:              c.ID,
		CustomerName:    c.CustomerName,
		CustomerTaxID:   c.CustomerTaxID,
		StartDate:       c.StartDate.Format(dateLayout),
		EndDate:         c.EndDate.Format(dateLayout),
		ImplementatorID: c.ImplementatorID,
		Implementator:   c.Implementator,
		GosServices:     c.GosServices,
		Oko:             c.Oko,
		Spolokh:         c.Spolokh,
		Status:          v.Status,
		Files:           make([]fileResponse, 0, len(v.Files)),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	for _, f := range v.Files {
		resp.Files = append(resp.Files, fileResponse{
			Slot:      f.Slot,
			Name:      f.Name,
			Extension: f.Extension,
			URL:       fmt.Sprintf("/contracts/%s/files/%d", c.ID, f.Slot),
		})
	}
	for _, kit := range c.Kits {
		resp.Kits = append(resp.Kits, kitResponse{
			ID:         kit.ID,
			Number:     kit.Number,
			DistrictID: kit.DistrictID,
			District:   kit.District,
			Address:    kit.Address,
		})
	}
	return resp
}

func (h *Handler) listContracts(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	input, ok := listInput(c, principal)
	if !ok {
		return
	}

	page, err := h.contracts.List(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	items := make([]contractResponse, 0, len(page.Items))
	for _, v := range page.Items {
		items = append(items, toContractResponse(v))
	}
	c.JSON(http.StatusOK, service.Page[contractResponse]{
		Items:    items,
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
		HasNext:  page.HasNext,
		HasPrev:  page.HasPrev,
	})
}

func listInput(c *gin.Context, principal model.Principal) (service.ListContractsInput, bool) {
	input := service.ListContractsInput{
		Query:     c.Query("q"),
		Status:    model.ContractStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Principal: principal,
	}
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return input, false
		}
		input.Page = page
	}
	return input, true
}

func (h *Handler) exportContracts(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	input, ok := listInput(c, principal)
	if !ok {
		return
	}

	result, err := h.contracts.ExportXLSX(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) getContract(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	v, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(*v))
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	input, ok := h.bindContract(c, principal)
	if !ok {
		return
	}
	v, err := h.contracts.Create(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toContractResponse(*v))
}

func (h *Handler) updateContract(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	input, ok := h.bindContract(c, principal)
	if !ok {
		return
	}
	v, err := h.contracts.Update(c.Request.Context(), id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(*v))
}

func (h *Handler) bindContract(c *gin.Context, principal model.Principal) (service.SubmitContractInput, bool) {
	var form contractForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return service.SubmitContractInput{}, false
	}

	start, err := parseDate(form.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return service.SubmitContractInput{}, false
	}
	end, err := parseDate(form.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return service.SubmitContractInput{}, false
	}

	var implementatorID uuid.UUID
	if raw := strings.TrimSpace(form.ImplementatorID); raw != "" {
		implementatorID, err = uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid implementator_id"})
			return service.SubmitContractInput{}, false
		}
	}

	var kits []kitRequest
	if raw := strings.TrimSpace(form.Kits); raw != "" {
		if err := json.Unmarshal([]byte(raw), &kits); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kits"})
			return service.SubmitContractInput{}, false
		}
	}

	input := service.SubmitContractInput{
		CustomerName:    form.CustomerName,
		CustomerTaxID:   form.CustomerTaxID,
		StartDate:       start,
		EndDate:         end,
		ImplementatorID: implementatorID,
		GosServices:     parseBool(form.GosServices),
		Oko:             parseBool(form.Oko),
		Spolokh:         parseBool(form.Spolokh),
		ClearFiles:      [model.FileSlots]bool{parseBool(form.File1Clear), parseBool(form.File2Clear), parseBool(form.File3Clear)},
		Kits:            make([]rules.KitRow, 0, len(kits)),
		Principal:       principal,
	}
	for i, fh := range []*multipart.FileHeader{form.File1, form.File2, form.File3} {
		input.Files[i] = attachment(fh)
	}
	for _, kit := range kits {
		input.Kits = append(input.Kits, rules.KitRow{
			ID:         kit.ID,
			Number:     kit.Number,
			DistrictID: kit.DistrictID,
			Address:    kit.Address,
			Delete:     kit.Delete,
		})
	}
	return input, true
}

func attachment(fh *multipart.FileHeader) *service.AttachmentInput {
	if fh == nil || fh.Filename == "" {
		return nil
	}
	return &service.AttachmentInput{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (h *Handler) updateChecklist(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req checklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	v, err := h.contracts.UpdateChecklist(c.Request.Context(), id, service.ChecklistInput{
		GosServices: req.GosServices,
		Oko:         req.Oko,
		Spolokh:     req.Spolokh,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(*v))
}

func (h *Handler) deleteContract(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.contracts.Delete(c.Request.Context(), id, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) downloadFile(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot"})
		return
	}

	file, err := h.contracts.OpenFile(c.Request.Context(), id, slot)
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer file.Reader.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, file.Reader, map[string]string{
		"Content-Disposition": "attachment; filename*=UTF-8''" + url.PathEscape(file.Name),
	})
}

func (h *Handler) exportContractPDF(c *gin.Context) {
	if _, ok := h.principal(c); !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.contracts.ExportPDF(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}
