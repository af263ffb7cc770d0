package api

import (
	"net/http"

	reqdto "transit-booking/internal/handler/dto/request"
	resdto "transit-booking/internal/handler/dto/response"
	"transit-booking/internal/handler/httperr"
	"transit-booking/internal/handler/middleware"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/commands"
	"transit-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	cmds    commands.BookingCommands
	q       queries.BookingQueries
	catalog queries.CatalogQueries
}

func NewBookingHandler(cmds commands.BookingCommands, q queries.BookingQueries, catalog queries.CatalogQueries) *BookingHandler {
	return &BookingHandler{cmds: cmds, q: q, catalog: catalog}
}

// @Summary Search offerings
// @Description Find offerings by origin, destination and travel date with live availability
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body reqdto.SearchRequest true "Search criteria"
// @Success 200 {object} resdto.SearchResponse
// @Failure 400 {object} httperr.Response
// @Router /api/bookings/search [post]
func (h *BookingHandler) Search(c *gin.Context) {
	var req reqdto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithReason(c, http.StatusBadRequest, err, "InvalidSearchCriteria", "Invalid request format", nil)
		return
	}

	views, err := h.catalog.Search(c.Request.Context(), req.ToInput())
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}

	resp, err := resdto.FromOfferingViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Quote fare
// @Description Price an offering class for a passenger count without reserving anything
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body reqdto.QuoteRequest true "Quote request"
// @Success 200 {object} resdto.QuoteResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/bookings/quote [post]
func (h *BookingHandler) Quote(c *gin.Context) {
	var req reqdto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	view, err := h.catalog.Quote(c.Request.Context(), req.ToInput())
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}

	resp, err := resdto.FromQuoteView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Create booking
// @Description Validate, price, hold seats, charge and confirm a booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Idempotency key (UUID)"
// @Param request body reqdto.CreateBookingRequest true "Booking request"
// @Success 201 {object} resdto.CreateBookingResponse
// @Success 200 {object} resdto.CreateBookingResponse "replayed"
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 402 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /api/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthorized, "Unauthorized", nil)
		return
	}

	idempotencyKey, err := getIdempotencyKey(c)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}

	var req reqdto.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request format", nil)
		return
	}

	result, err := h.cmds.CreateBooking(c.Request.Context(), req.ToInput(), userID, idempotencyKey)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromCreateResult(result.Booking, result.IsReplayed))
}

// @Summary Get booking
// @Description Look up a booking by PNR
// @Tags bookings
// @Produce json
// @Param pnr path string true "PNR"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} httperr.Response
// @Router /api/bookings/{pnr} [get]
func (h *BookingHandler) GetByPNR(c *gin.Context) {
	view, err := h.q.GetByPNR(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}

	resp, err := resdto.FromBookingView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel booking
// @Description Cancel a confirmed booking, release its seats and refund per the refund policy
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param pnr path string true "PNR"
// @Success 200 {object} resdto.BookingResponse
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /api/bookings/{pnr}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthorized, "Unauthorized", nil)
		return
	}

	view, err := h.cmds.CancelBooking(c.Request.Context(), c.Param("pnr"), userID)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}

	resp, err := resdto.FromBookingView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List user bookings
// @Description Newest first, including failed attempts
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} resdto.BookingListResponse
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /api/users/{userId}/bookings [get]
func (h *BookingHandler) ListUserBookings(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid user ID format", nil)
		return
	}

	views, err := h.q.ListForUser(c.Request.Context(), userID)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}

	resp, err := resdto.FromBookingViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func getIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return uuid.Nil, errs.ErrIdempotencyKeyRequired
	}

	key, err := uuid.Parse(keyStr)
	if err != nil || key == uuid.Nil {
		return uuid.Nil, errs.Mark(errs.Newf("invalid idempotency key %q", keyStr), errs.ErrIdempotencyKeyRequired)
	}
	return key, nil
}
