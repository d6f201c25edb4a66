package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/dnv-opensource/WindFarmer-automation/internal/api/models"
	"github.com/dnv-opensource/WindFarmer-automation/internal/atmos"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

// CatalogHandler lists the model options and the configured atmospheric presets.
type CatalogHandler struct {
	presetsFile string
}

func NewCatalogHandler(presetsFile string) *CatalogHandler {
	return &CatalogHandler{presetsFile: presetsFile}
}

// ListModels handles GET /api/v1/models
func (h *CatalogHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": []models.ModelInfo{
		{Name: string(model.WakeEddyViscosity), Kind: "wake", Description: "Eddy viscosity wake model with large wind farm correction."},
		{Name: string(model.WakeModifiedPark), Kind: "wake", Description: "Modified PARK wake model with large wind farm correction."},
		{Name: string(model.WakeTurbOPark), Kind: "wake", Description: "TurbOPark wake model with large wind farm correction."},
		{Name: string(model.WakeCFDML), Kind: "wake", Description: "CFD.ML wake model. Internal and external effects need a subject-only calculation when neighbours are present."},
		{Name: string(model.WakeNone), Kind: "wake", Description: "No wakes; used for blockage-only runs."},
		{Name: string(model.BlockageBEET), Kind: "blockage", Description: "Blockage effect estimation tool."},
		{Name: string(model.BlockageCFDML), Kind: "blockage", Description: "CFD.ML blockage model."},
		{Name: string(model.OnEnergy), Kind: "application_method", Description: "Blockage applied to the energy yield through a weighted efficiency."},
		{Name: string(model.OnWindSpeed), Kind: "application_method", Description: "Blockage applied to wind speeds before the wake calculation."},
	}})
}

// ListPresets handles GET /api/v1/presets
func (h *CatalogHandler) ListPresets(c *gin.Context) {
	if h.presetsFile == "" {
		c.JSON(http.StatusOK, gin.H{"presets": []models.PresetInfo{}})
		return
	}
	presets, err := atmos.LoadPresets(h.presetsFile)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	out := make([]models.PresetInfo, 0, len(presets))
	for _, id := range presets.IDs() {
		p := presets[id]
		info := models.PresetInfo{ID: id, Samples: len(p.Z), BoundaryLayerHeight: p.BoundaryLayerHeight}
		if len(p.Z) > 0 {
			info.MinHeight = slices.Min(p.Z)
			info.MaxHeight = slices.Max(p.Z)
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"presets": out})
}
