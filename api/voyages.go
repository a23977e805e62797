package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shipbooking/internal/domain"
	"shipbooking/internal/service/voyages"
)

type VoyageHandler struct {
	service voyages.VoyageUseCase
}

type voyageResponse struct {
	ID            int64  `json:"id"`
	VesselName    string `json:"vessel_name"`
	FromPort      string `json:"from_port"`
	ToPort        string `json:"to_port"`
	DepartureDate string `json:"departure_date"`
	ArrivalDate   string `json:"arrival_date"`
	Status        string `json:"status"`
}

type allocationResponse struct {
	ContainerType     string `json:"container_type"`
	TotalQuantity     int    `json:"total_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	UnitPriceCents    int64  `json:"unit_price_cents"`
}

func NewVoyageHandler(service voyages.VoyageUseCase) *VoyageHandler {
	return &VoyageHandler{service: service}
}

func (h *VoyageHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/allocations", h.allocations)
}

func (h *VoyageHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]voyageResponse, 0, len(list))
	for _, v := range list {
		resp = append(resp, toVoyageResponse(&v))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VoyageHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid voyage id"})
		return
	}

	voyage, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVoyageResponse(voyage))
}

func (h *VoyageHandler) allocations(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid voyage id"})
		return
	}

	allocations, err := h.service.Allocations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]allocationResponse, 0, len(allocations))
	for _, a := range allocations {
		resp = append(resp, allocationResponse{
			ContainerType:     string(a.ContainerType),
			TotalQuantity:     a.TotalQuantity,
			AvailableQuantity: a.AvailableQuantity,
			UnitPriceCents:    a.UnitPriceCents,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func toVoyageResponse(v *domain.Voyage) voyageResponse {
	return voyageResponse{
		ID:            v.ID,
		VesselName:    v.VesselName,
		FromPort:      v.FromPort,
		ToPort:        v.ToPort,
		DepartureDate: v.DepartureDate.Format(time.RFC3339),
		ArrivalDate:   v.ArrivalDate.Format(time.RFC3339),
		Status:        string(v.Status),
	}
}
