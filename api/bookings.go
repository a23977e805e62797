package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shipbooking/internal/domain"
	"shipbooking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	VoyageID      int64            `json:"voyage_id"`
	ContainerType string           `json:"container_type"`
	Quantity      int              `json:"quantity"`
	Cargo         domain.CargoMeta `json:"cargo"`
}

type bookingResponse struct {
	Reference       string           `json:"reference"`
	Status          string           `json:"status"`
	VoyageID        int64            `json:"voyage_id"`
	ContainerType   string           `json:"container_type"`
	Quantity        int              `json:"quantity"`
	UnitPriceCents  int64            `json:"unit_price_cents"`
	TotalPriceCents int64            `json:"total_price_cents"`
	Cargo           domain.CargoMeta `json:"cargo"`
	CreatedAt       string           `json:"created_at"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	PayerUserID int64  `json:"payer_user_id"`
	Payee       string `json:"payee"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type contractResponse struct {
	ID         string          `json:"id"`
	Terms      json.RawMessage `json:"terms"`
	Status     string          `json:"status"`
	DeployedAt string          `json:"deployed_at"`
	ExecutedAt string          `json:"executed_at,omitempty"`
}

type bookingDetailsResponse struct {
	bookingResponse
	Transactions []transactionResponse `json:"transactions"`
	Contracts    []contractResponse    `json:"contracts"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup, quota gin.HandlerFunc) {
	router.POST("/", quota, h.create)
	router.GET("/:reference", h.get)
	router.PUT("/:reference/confirm", h.confirm)
	router.DELETE("/:reference", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	ident, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:        ident.UserID,
		VoyageID:      req.VoyageID,
		ContainerType: req.ContainerType,
		Quantity:      req.Quantity,
		Cargo:         req.Cargo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	details, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := bookingDetailsResponse{
		bookingResponse: toBookingResponse(&details.Booking),
		Transactions:    make([]transactionResponse, 0, len(details.Transactions)),
		Contracts:       make([]contractResponse, 0, len(details.Contracts)),
	}
	for _, t := range details.Transactions {
		resp.Transactions = append(resp.Transactions, transactionResponse{
			ID:          t.ID.String(),
			Type:        t.Type,
			PayerUserID: t.PayerUserID,
			Payee:       t.Payee,
			AmountCents: t.AmountCents,
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, ct := range details.Contracts {
		cr := contractResponse{
			ID:         ct.ID.String(),
			Terms:      json.RawMessage(ct.Terms),
			Status:     string(ct.Status),
			DeployedAt: ct.DeployedAt.Format(time.RFC3339),
		}
		if ct.ExecutedAt != nil {
			cr.ExecutedAt = ct.ExecutedAt.Format(time.RFC3339)
		}
		resp.Contracts = append(resp.Contracts, cr)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) confirm(c *gin.Context) {
	confirmed, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(confirmed))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.CancelBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		Reference:       b.Reference,
		Status:          string(b.Status),
		VoyageID:        b.VoyageID,
		ContainerType:   string(b.ContainerType),
		Quantity:        b.Quantity,
		UnitPriceCents:  b.UnitPriceCents,
		TotalPriceCents: b.TotalPriceCents,
		Cargo:           b.CargoMeta,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
}
