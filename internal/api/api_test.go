package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shieldfi/testnet-rewards/internal/db"
	"github.com/shieldfi/testnet-rewards/internal/errors"
	"github.com/shieldfi/testnet-rewards/internal/rewards"
	"github.com/shieldfi/testnet-rewards/internal/types"
	"github.com/shieldfi/testnet-rewards/internal/websocket"
)

const testWallet = "0x1111111111111111111111111111111111111111"

// MockRewardsService is a mock implementation of RewardsService
type MockRewardsService struct {
	mock.Mock
}

func (m *MockRewardsService) GetOrCreateAccount(wallet string) (*db.PointsAccount, error) {
	args := m.Called(wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.PointsAccount), args.Error(1)
}

func (m *MockRewardsService) GetUserActivities(wallet string, limit int) ([]db.TestnetActivity, error) {
	args := m.Called(wallet, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.TestnetActivity), args.Error(1)
}

func (m *MockRewardsService) GetUserRank(wallet string) (int, error) {
	args := m.Called(wallet)
	return args.Int(0), args.Error(1)
}

func (m *MockRewardsService) GetLeaderboard(limit int) ([]db.LeaderboardEntry, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.LeaderboardEntry), args.Error(1)
}

func (m *MockRewardsService) GetLeaderboardStats() (*db.LeaderboardStats, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.LeaderboardStats), args.Error(1)
}

func (m *MockRewardsService) ValidateReferralCode(code string) (*db.PointsAccount, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.PointsAccount), args.Error(1)
}

func (m *MockRewardsService) ProcessReferral(referrerWallet, referredWallet string, refs types.CorrelationRefs) (bool, error) {
	args := m.Called(referrerWallet, referredWallet, refs)
	return args.Bool(0), args.Error(1)
}

func awardArgs(args mock.Arguments) (*rewards.ActivityResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rewards.ActivityResult), args.Error(1)
}

func (m *MockRewardsService) AwardDepositPoints(wallet string, amountUSD float64, refs types.CorrelationRefs) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet, amountUSD, refs))
}

func (m *MockRewardsService) AwardBridgePoints(wallet string, direction types.BridgeDirection, refs types.CorrelationRefs) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet, direction, refs))
}

func (m *MockRewardsService) AwardWithdrawalPoints(wallet string, refs types.CorrelationRefs) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet, refs))
}

func (m *MockRewardsService) AwardDailyLoginPoints(wallet string) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet))
}

func (m *MockRewardsService) AwardSwapPoints(wallet string, refs types.CorrelationRefs) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet, refs))
}

func (m *MockRewardsService) AwardBoostActivatedPoints(wallet string) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet))
}

func (m *MockRewardsService) AwardStakingDailyPoints(wallet string) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet))
}

func (m *MockRewardsService) AwardBugReportPoints(wallet, description string) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet, description))
}

func (m *MockRewardsService) AwardSocialSharePoints(wallet string) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet))
}

func (m *MockRewardsService) AwardFaucetClaimPoints(wallet string) (*rewards.ActivityResult, error) {
	return awardArgs(m.Called(wallet))
}

func setupTestRouter(svc RewardsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(svc, websocket.NewWebSocketManager())
}

func TestGetLeaderboardEndpoint(t *testing.T) {
	mockSvc := new(MockRewardsService)
	mockSvc.On("GetLeaderboard", 10).Return([]db.LeaderboardEntry{
		{Rank: 1, WalletAddress: "0x1111", TotalPoints: 100, Tier: "bronze"},
		{Rank: 2, WalletAddress: "0x2222", TotalPoints: 50, Tier: "bronze"},
	}, nil)

	router := setupTestRouter(mockSvc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/leaderboard", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string][]db.LeaderboardEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["leaderboard"], 2)
	assert.Equal(t, 1, body["leaderboard"][0].Rank)
	mockSvc.AssertExpectations(t)
}

func TestGetLeaderboardLimitClamped(t *testing.T) {
	mockSvc := new(MockRewardsService)
	mockSvc.On("GetLeaderboard", 100).Return([]db.LeaderboardEntry{}, nil)

	router := setupTestRouter(mockSvc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/leaderboard?limit=5000", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAwardDailyLogin(t *testing.T) {
	t.Run("awarded", func(t *testing.T) {
		mockSvc := new(MockRewardsService)
		mockSvc.On("AwardDailyLoginPoints", testWallet).Return(&rewards.ActivityResult{
			PointsAwarded: 5,
			Activity:      &db.TestnetActivity{ActivityType: db.ActivityDailyLogin, PointsEarned: 5},
			Account:       &db.PointsAccount{WalletAddress: testWallet, TotalPoints: 5, OtherPoints: 5},
		}, nil)

		router := setupTestRouter(mockSvc)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/user/"+testWallet+"/login", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["awarded"])
		assert.Equal(t, float64(5), body["points_awarded"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("already claimed today", func(t *testing.T) {
		mockSvc := new(MockRewardsService)
		mockSvc.On("AwardDailyLoginPoints", testWallet).Return(nil, nil)

		router := setupTestRouter(mockSvc)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/user/"+testWallet+"/login", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["awarded"])
		mockSvc.AssertExpectations(t)
	})
}

func TestAwardDepositValidation(t *testing.T) {
	mockSvc := new(MockRewardsService)
	router := setupTestRouter(mockSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/user/"+testWallet+"/deposit",
		bytes.NewBufferString(`{"amount_usd": 0}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "AwardDepositPoints")
}

func TestAwardDeposit(t *testing.T) {
	mockSvc := new(MockRewardsService)
	mockSvc.On("AwardDepositPoints", testWallet, 25.0,
		types.CorrelationRefs{TxHash: "0xabc", VaultID: "vault-1"}).
		Return(&rewards.ActivityResult{
			PointsAwarded: 20,
			Activity:      &db.TestnetActivity{ActivityType: db.ActivityDeposit, PointsEarned: 20},
			Account:       &db.PointsAccount{WalletAddress: testWallet, TotalPoints: 70, DepositPoints: 70},
		}, nil)

	router := setupTestRouter(mockSvc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/user/"+testWallet+"/deposit",
		bytes.NewBufferString(`{"amount_usd": 25, "tx_hash": "0xabc", "vault_id": "vault-1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestValidateReferralCodeEndpoint(t *testing.T) {
	t.Run("known code", func(t *testing.T) {
		mockSvc := new(MockRewardsService)
		mockSvc.On("ValidateReferralCode", "SHIELD-AB12CD34").
			Return(&db.PointsAccount{WalletAddress: testWallet}, nil)

		router := setupTestRouter(mockSvc)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/referral/SHIELD-AB12CD34", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["valid"])
		assert.Equal(t, testWallet, body["referrer"])
	})

	t.Run("unknown code", func(t *testing.T) {
		mockSvc := new(MockRewardsService)
		mockSvc.On("ValidateReferralCode", "SHIELD-00000000").Return(nil, nil)

		router := setupTestRouter(mockSvc)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/referral/SHIELD-00000000", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["valid"])
	})
}

func TestProcessReferralEndpoint(t *testing.T) {
	mockSvc := new(MockRewardsService)
	mockSvc.On("ProcessReferral", "0xaaa", "0xbbb",
		types.CorrelationRefs{TxHash: "0xbind"}).Return(true, nil)

	router := setupTestRouter(mockSvc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/referral",
		bytes.NewBufferString(`{"referrer": "0xaaa", "referred": "0xbbb", "tx_hash": "0xbind"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["bound"])
	mockSvc.AssertExpectations(t)
}

func TestErrorMiddlewareMapping(t *testing.T) {
	t.Run("validation error becomes 400", func(t *testing.T) {
		mockSvc := new(MockRewardsService)
		mockSvc.On("AwardDailyLoginPoints", "bogus").
			Return(nil, &errors.ValidationError{Field: "wallet address", Message: "bogus"})

		router := setupTestRouter(mockSvc)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/user/bogus/login", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("database error becomes 500", func(t *testing.T) {
		mockSvc := new(MockRewardsService)
		mockSvc.On("GetLeaderboardStats").
			Return(nil, &errors.DatabaseError{Operation: "query leaderboard stats"})

		router := setupTestRouter(mockSvc)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/leaderboard/stats", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetUserRankEndpoint(t *testing.T) {
	mockSvc := new(MockRewardsService)
	mockSvc.On("GetUserRank", testWallet).Return(3, nil)

	router := setupTestRouter(mockSvc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/user/"+testWallet+"/rank", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["rank"])
	mockSvc.AssertExpectations(t)
}

func TestGetTierProgressEndpoint(t *testing.T) {
	mockSvc := new(MockRewardsService)
	mockSvc.On("GetOrCreateAccount", testWallet).Return(&db.PointsAccount{
		WalletAddress: testWallet,
		TotalPoints:   250,
		Tier:          "bronze",
	}, nil)

	router := setupTestRouter(mockSvc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/user/"+testWallet+"/progress", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "silver", body["next_tier"])
	assert.Equal(t, float64(250), body["points_needed"])
	assert.InDelta(t, 50.0, body["progress_percent"].(float64), 0.01)
	mockSvc.AssertExpectations(t)
}
