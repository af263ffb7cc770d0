package api

import (
	"net/http"

	reqdto "transit-booking/internal/handler/dto/request"
	resdto "transit-booking/internal/handler/dto/response"
	"transit-booking/internal/handler/httperr"
	"transit-booking/internal/usecase/commands"
	"transit-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WalletHandler struct {
	cmds commands.WalletCommands
	q    queries.WalletQueries
}

func NewWalletHandler(cmds commands.WalletCommands, q queries.WalletQueries) *WalletHandler {
	return &WalletHandler{cmds: cmds, q: q}
}

// @Summary Wallet balance
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} resdto.WalletResponse
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /api/users/{userId}/wallet [get]
func (h *WalletHandler) Balance(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid user ID format", nil)
		return
	}

	view, err := h.q.Balance(c.Request.Context(), userID)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromWalletView(view))
}

// @Summary Top up wallet
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param request body reqdto.TopUpRequest true "Top-up amount in paise"
// @Success 200 {object} resdto.WalletResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /api/users/{userId}/wallet/topup [post]
func (h *WalletHandler) TopUp(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid user ID format", nil)
		return
	}

	var req reqdto.TopUpRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithReason(c, http.StatusBadRequest, bindErr, "InvalidAmount", "Invalid request format", nil)
		return
	}

	view, err := h.cmds.TopUp(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromWalletView(view))
}
