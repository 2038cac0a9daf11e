package api

import (
	"context"
	"net/http"

	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/pkg/logging"

	"github.com/gin-gonic/gin"
)

// CheckInner marks a booking arrived and notifies the people involved.
type CheckInner interface {
	CheckIn(ctx context.Context, bookingID, location, checkedInBy, patientPhone string) (*models.Booking, error)
}

type BookingHandler struct {
	Store   *store.Store
	CheckIn CheckInner
	Logger  *logging.Logger
}

func NewBookingHandler(s *store.Store, checkIn CheckInner, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{Store: s, CheckIn: checkIn, Logger: logger}
}

func (h *BookingHandler) Register(g gin.IRouter) {
	g.GET("/bookings/:id", h.GetBooking)
	g.POST("/bookings/:id/checkin", h.CheckInBooking)
	g.GET("/patients/:id/bookings", h.PatientBookings)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.Store.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Booking", "get booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

func (h *BookingHandler) PatientBookings(c *gin.Context) {
	bookings, err := h.Store.BookingsForPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Booking", "get bookings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": nonNil(bookings), "count": len(bookings)})
}

type CheckInRequest struct {
	ArrivalLocation string `json:"arrivalLocation"`
	CheckedInBy     string `json:"checkedInBy"`
}

func (h *BookingHandler) CheckInBooking(c *gin.Context) {
	var req CheckInRequest
	// an empty body is a front desk check-in with no details
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}
	if req.ArrivalLocation == "" {
		req.ArrivalLocation = "reception"
	}
	if req.CheckedInBy == "" {
		req.CheckedInBy = "staff"
	}

	booking, err := h.CheckIn.CheckIn(c.Request.Context(), c.Param("id"), req.ArrivalLocation, req.CheckedInBy, "")
	if err != nil {
		h.Logger.Warn("check-in failed", "booking_id", c.Param("id"), "error", err)
		storeError(c, err, "Booking", "check in")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}
