package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/service"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PermitHandler serves the permit package endpoints.
type PermitHandler struct {
	permitService  service.PermitService
	maxUploadBytes int64
	log            logrus.FieldLogger
}

// NewPermitHandler creates a new PermitHandler instance.
func NewPermitHandler(permitService service.PermitService, maxUploadBytes int64, log logrus.FieldLogger) *PermitHandler {
	return &PermitHandler{
		permitService:  permitService,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// PackageListResponse is returned by List.
type PackageListResponse struct {
	Packages []models.PermitPackage `json:"packages"`
	User     *models.Identity       `json:"user"`
}

// StatusRequest changes a package status.
type StatusRequest struct {
	Status models.PermitStatus `json:"status" binding:"required"`
}

// List godoc
// @Summary List permit packages
// @Description Packages visible to the caller, newest first. Admins see every package.
// @Tags permits
// @Security BearerAuth
// @Produce json
// @Success 200 {object} PackageListResponse
// @Failure 401 {object} ErrorResponse
// @Router /permits [get]
func (h *PermitHandler) List(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	packages, err := h.permitService.List(c.Request.Context(), caller)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "List", err)
		return
	}
	c.JSON(http.StatusOK, PackageListResponse{Packages: packages, User: caller})
}

// Create godoc
// @Summary Create a permit package
// @Description Creates a Draft package with the checklist of the chosen permit type
// @Tags permits
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CreatePackageRequest true "Package"
// @Success 201 {object} models.PermitPackage
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /permits [post]
func (h *PermitHandler) Create(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req service.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	pkg, err := h.permitService.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "Create", err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

// Get godoc
// @Summary Get a permit package
// @Tags permits
// @Security BearerAuth
// @Produce json
// @Param id path int true "Package ID"
// @Success 200 {object} models.PermitPackage
// @Failure 404 {object} ErrorResponse
// @Router /permits/{id} [get]
func (h *PermitHandler) Get(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	pkg, err := h.permitService.Get(c.Request.Context(), caller, id)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "Get", err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// UpdateStatus godoc
// @Summary Change package status
// @Description Any status may follow any other
// @Tags permits
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Package ID"
// @Param request body StatusRequest true "New status"
// @Success 200 {object} models.PermitPackage
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /permits/{id}/status [patch]
func (h *PermitHandler) UpdateStatus(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	pkg, err := h.permitService.SetStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "UpdateStatus", err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// AddDocument godoc
// @Summary Attach a document
// @Description JSON body {name, url} records a link; multipart form field "file" uploads bytes
// @Tags permits
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Package ID"
// @Param request body service.DocumentInput false "Document link"
// @Param file formData file false "Document file"
// @Success 201 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /permits/{id}/documents [post]
func (h *PermitHandler) AddDocument(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.uploadDocument(c, caller, id)
		return
	}

	var req service.DocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	doc, err := h.permitService.AddDocument(c.Request.Context(), caller, id, req)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "AddDocument", err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *PermitHandler) uploadDocument(c *gin.Context, caller *models.Identity, id int64) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
			return
		}
		respondError(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		respondServiceError(c, h.log, "handlers", "uploadDocument", err)
		return
	}
	defer file.Close()

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = header.Filename
	}

	doc, err := h.permitService.UploadDocument(c.Request.Context(), caller, id, service.UploadInput{
		Filename:    name,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondServiceError(c, h.log, "handlers", "uploadDocument", err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// DocumentContent godoc
// @Summary Download an uploaded document
// @Tags permits
// @Security BearerAuth
// @Produce octet-stream
// @Param id path int true "Package ID"
// @Param docId path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /permits/{id}/documents/{docId}/content [get]
func (h *PermitHandler) DocumentContent(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, rc, err := h.permitService.OpenDocument(c.Request.Context(), caller, id, c.Param("docId"))
	if err != nil {
		respondServiceError(c, h.log, "handlers", "DocumentContent", err)
		return
	}
	defer rc.Close()

	size := doc.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, doc.ContentType, rc, map[string]string{
		"Content-Disposition": attachment(doc.Name),
	})
}

// UpdateChecklistItem godoc
// @Summary Update a checklist item
// @Description completed sets or clears completedAt; notes replaces notes when present
// @Tags permits
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Package ID"
// @Param itemId path int true "Checklist item ID"
// @Param request body service.ChecklistUpdate true "Changes"
// @Success 200 {object} models.ChecklistItem
// @Failure 404 {object} ErrorResponse
// @Router /permits/{id}/checklist/{itemId} [patch]
func (h *PermitHandler) UpdateChecklistItem(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	var req service.ChecklistUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, err := h.permitService.SetChecklistItemState(c.Request.Context(), caller, id, itemID, req)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "UpdateChecklistItem", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DownloadAll godoc
// @Summary Download every document as a zip
// @Tags permits
// @Security BearerAuth
// @Produce application/zip
// @Param id path int true "Package ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /permits/{id}/download-all [get]
func (h *PermitHandler) DownloadAll(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	archive, err := h.permitService.PrepareArchive(c.Request.Context(), caller, id)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "DownloadAll", err)
		return
	}

	var buf bytes.Buffer
	if err := archive.WriteTo(c.Request.Context(), &buf); err != nil {
		respondServiceError(c, h.log, "handlers", "DownloadAll", err)
		return
	}

	c.Header("Content-Disposition", attachment(archive.Filename))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// Export godoc
// @Summary Export packages as a spreadsheet
// @Tags permits
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /permits/export.xlsx [get]
func (h *PermitHandler) Export(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.permitService.ExportSpreadsheet(c.Request.Context(), caller, &buf); err != nil {
		respondServiceError(c, h.log, "handlers", "Export", err)
		return
	}

	c.Header("Content-Disposition", attachment("permit_packages.xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Stats godoc
// @Summary Dashboard statistics
// @Tags dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.PackageStats
// @Router /dashboard/stats [get]
func (h *PermitHandler) Stats(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	stats, err := h.permitService.Stats(c.Request.Context(), caller)
	if err != nil {
		respondServiceError(c, h.log, "handlers", "Stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
