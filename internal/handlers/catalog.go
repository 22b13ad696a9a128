package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/catalog"
)

// CatalogHandler serves the static permit-type and county lists.
type CatalogHandler struct{}

// NewCatalogHandler creates a new CatalogHandler instance.
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// PermitTypes godoc
// @Summary List permit types
// @Tags catalog
// @Produce json
// @Success 200 {array} catalog.PermitTypeSummary
// @Router /permit-types [get]
func (h *CatalogHandler) PermitTypes(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Types())
}

// PermitType godoc
// @Summary Get a permit type checklist template
// @Tags catalog
// @Produce json
// @Param key path string true "Permit type key"
// @Success 200 {object} catalog.PermitTypeTemplate
// @Failure 404 {object} ErrorResponse
// @Router /permit-types/{key} [get]
func (h *CatalogHandler) PermitType(c *gin.Context) {
	template, err := catalog.Template(c.Param("key"))
	if err != nil {
		respondError(c, http.StatusNotFound, "unknown permit type")
		return
	}
	c.JSON(http.StatusOK, template)
}

// Counties godoc
// @Summary List Florida counties
// @Tags catalog
// @Produce json
// @Success 200 {array} string
// @Router /counties [get]
func (h *CatalogHandler) Counties(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Counties())
}
