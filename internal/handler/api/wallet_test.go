//go:build unit

package api_test

import (
	"net/http"
	"testing"

	"transit-booking/internal/handler/api"
	resdto "transit-booking/internal/handler/dto/response"
	"transit-booking/internal/pkg/errs"
	"transit-booking/internal/usecase/queries"
	"transit-booking/tests/common/httptest"
	commandsmock "transit-booking/tests/mock/commands"
	queriesmock "transit-booking/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type WalletHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockWalletCommands
	mockQueries  *queriesmock.MockWalletQueries
	userID       uuid.UUID
}

func (s *WalletHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockWalletCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockWalletQueries(s.mockCtrl)
	handler := api.NewWalletHandler(s.mockCommands, s.mockQueries)
	s.userID = uuid.New()

	s.router.GET("/users/:userId/wallet", handler.Balance)
	s.router.POST("/users/:userId/wallet/topup", handler.TopUp)
}

func (s *WalletHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestWalletHandlerSuite(t *testing.T) {
	suite.Run(t, new(WalletHandlerTestSuite))
}

func (s *WalletHandlerTestSuite) TestBalance() {
	s.Run("success", func() {
		s.mockQueries.EXPECT().Balance(gomock.Any(), s.userID).
			Return(&queries.WalletView{UserID: s.userID, BalanceCents: 250050, Currency: "INR"}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/users/"+s.userID.String()+"/wallet", nil, "")

		var body resdto.WalletResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(int64(250050), body.BalanceCents)
		s.Equal(2500.5, body.Balance)
		s.Equal("INR", body.Currency)
	})

	s.Run("error: 400 on malformed user id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/users/abc/wallet", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid user ID format")
	})
}

func (s *WalletHandlerTestSuite) TestTopUp() {
	url := "/users/" + s.userID.String() + "/wallet/topup"

	s.Run("success", func() {
		s.mockCommands.EXPECT().TopUp(gomock.Any(), s.userID, int64(50000)).
			Return(&queries.WalletView{UserID: s.userID, BalanceCents: 300000, Currency: "INR"}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"amountCents": 50000}, "")

		var body resdto.WalletResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(int64(300000), body.BalanceCents)
	})

	s.Run("error: 400 when amount is missing", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{}, "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("error: 400 when usecase rejects the amount", func() {
		s.mockCommands.EXPECT().TopUp(gomock.Any(), s.userID, int64(-100)).
			Return(nil, errs.Mark(errs.New("amount must be positive"), errs.ErrInvalidAmount)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"amountCents": -100}, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid amount")
	})
}
