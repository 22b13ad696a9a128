package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/service"
	"github.com/sirupsen/logrus"
)

// ContractorHandler serves the contractor registry.
type ContractorHandler struct {
	contractorService service.ContractorService
	log               logrus.FieldLogger
}

// NewContractorHandler creates a new ContractorHandler instance.
func NewContractorHandler(contractorService service.ContractorService, log logrus.FieldLogger) *ContractorHandler {
	return &ContractorHandler{contractorService: contractorService, log: log}
}

// ContractorStatusRequest activates or suspends a contractor.
type ContractorStatusRequest struct {
	Status models.ContractorStatus `json:"status" binding:"required,oneof=active suspended"`
}

// List godoc
// @Summary List contractors
// @Tags contractors
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Contractor
// @Router /contractors [get]
func (h *ContractorHandler) List(c *gin.Context) {
	contractors, err := h.contractorService.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, "handlers", "ListContractors", err)
		return
	}
	c.JSON(http.StatusOK, contractors)
}

// Get godoc
// @Summary Get a contractor
// @Tags contractors
// @Security BearerAuth
// @Produce json
// @Param id path int true "Contractor ID"
// @Success 200 {object} models.Contractor
// @Failure 404 {object} ErrorResponse
// @Router /contractors/{id} [get]
func (h *ContractorHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contractor, err := h.contractorService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "GetContractor", err)
		return
	}
	c.JSON(http.StatusOK, contractor)
}

// Create godoc
// @Summary Register a contractor
// @Tags contractors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.ContractorInput true "Contractor"
// @Success 201 {object} models.Contractor
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /contractors [post]
func (h *ContractorHandler) Create(c *gin.Context) {
	var req service.ContractorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	contractor, err := h.contractorService.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "CreateContractor", err)
		return
	}
	c.JSON(http.StatusCreated, contractor)
}

// Update godoc
// @Summary Update a contractor
// @Description Existing package snapshots are not changed
// @Tags contractors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Contractor ID"
// @Param request body service.ContractorInput true "Contractor"
// @Success 200 {object} models.Contractor
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /contractors/{id} [put]
func (h *ContractorHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ContractorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	contractor, err := h.contractorService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "UpdateContractor", err)
		return
	}
	c.JSON(http.StatusOK, contractor)
}

// Delete godoc
// @Summary Remove a contractor from the registry
// @Tags contractors
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /contractors/{id} [delete]
func (h *ContractorHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.contractorService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, "handlers", "DeleteContractor", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus godoc
// @Summary Activate or suspend a contractor
// @Tags contractors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Contractor ID"
// @Param request body ContractorStatusRequest true "Status"
// @Success 200 {object} models.Contractor
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /contractors/{id}/status [patch]
func (h *ContractorHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ContractorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	contractor, err := h.contractorService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "UpdateContractorStatus", err)
		return
	}
	c.JSON(http.StatusOK, contractor)
}
