package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"campchain/core/state"
	"campchain/native/campaign"
	"campchain/native/token"
	"campchain/storage"
)

const testAuthToken = "test-secret"

type testServer struct {
	server *Server
	token  *token.Ledger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := state.NewManager(db)
	tok, err := token.NewLedger(mgr, "CMP")
	require.NoError(t, err)

	engine := campaign.NewEngine()
	engine.SetState(mgr)
	engine.SetAsset(tok)
	registry := campaign.NewRegistry(mgr)
	registry.SetNowFunc(func() int64 { return 1000 })
	dir, err := campaign.NewDirectory(mgr, testAddr(0xA0), campaign.Defaults{
		Token:        "CMP",
		TaxRecipient: testAddr(0xD0),
		TaxRateBps:   500,
	})
	require.NoError(t, err)
	dir.SetNowFunc(func() int64 { return 1000 })
	require.NoError(t, dir.SetManager(testAddr(0xA0), testAddr(0xB0)))

	return &testServer{
		server: NewServer(dir, registry, engine, tok, testAuthToken),
		token:  tok,
	}
}

func testAddr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func testAddrHex(b byte) string {
	return formatAddress(testAddr(b))
}

type rpcTestResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (ts *testServer) call(t *testing.T, method string, params interface{}, authed bool) (int, *rpcTestResponse) {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAuthToken)
	}
	recorder := httptest.NewRecorder()
	ts.server.ServeHTTP(recorder, req)

	resp := &rpcTestResponse{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), resp))
	return recorder.Code, resp
}

func (ts *testServer) createCampaign(t *testing.T) string {
	t.Helper()
	status, resp := ts.call(t, "campaign_create", map[string]interface{}{
		"caller":       testAddrHex(0xB0),
		"name":         "spring contributor drive",
		"startTime":    2000,
		"endTime":      3000,
		"rewardAmount": "500",
		"owner":        testAddrHex(0xC0),
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var created campaignResult
	require.NoError(t, json.Unmarshal(resp.Result, &created))
	return created.ID
}

func TestServerRejectsMalformedRequests(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(nil))
	recorder := httptest.NewRecorder()
	ts.server.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	recorder = httptest.NewRecorder()
	ts.server.ServeHTTP(recorder, req)
	resp := &rpcTestResponse{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, codeParseError, resp.Error.Code)

	status, resp := ts.call(t, "campaign_unknown", nil, false)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestServerRequiresAuthForWrites(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.call(t, "campaign_create", map[string]interface{}{}, false)
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	// Reads stay open.
	status, resp = ts.call(t, "campaign_count", nil, false)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
}

func TestServerCampaignLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createCampaign(t)

	status, resp := ts.call(t, "campaign_get", map[string]interface{}{"id": id}, false)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var fetched campaignResult
	require.NoError(t, json.Unmarshal(resp.Result, &fetched))
	require.Equal(t, "spring contributor drive", fetched.Name)
	require.Equal(t, uint32(500), fetched.TaxRateBps)
	require.False(t, fetched.Funded)

	// Seed the owner balance and vault allowance outside the RPC surface.
	owner := testAddr(0xC0)
	require.NoError(t, ts.token.Mint(owner, big.NewInt(500)))
	parsedID, err := parseCampaignID(id)
	require.NoError(t, err)
	require.NoError(t, ts.token.Approve(owner, campaign.VaultAddress(parsedID), big.NewInt(500)))

	status, resp = ts.call(t, "campaign_fund", map[string]interface{}{
		"id":     id,
		"caller": testAddrHex(0xC0),
		"amount": "500",
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var funded campaignResult
	require.NoError(t, json.Unmarshal(resp.Result, &funded))
	require.True(t, funded.Funded)
	require.Equal(t, "475", funded.Pool)

	// 5% tax routed to the recipient.
	status, resp = ts.call(t, "token_balanceOf", map[string]interface{}{"address": testAddrHex(0xD0)}, false)
	require.Equal(t, http.StatusOK, status)
	var taxBalance tokenBalanceResult
	require.NoError(t, json.Unmarshal(resp.Result, &taxBalance))
	require.Equal(t, "25", taxBalance.Balance)

	status, resp = ts.call(t, "campaign_registerScores", map[string]interface{}{
		"id":           id,
		"caller":       testAddrHex(0xC0),
		"participants": []string{testAddrHex(0x01), testAddrHex(0x02)},
		"scores":       []uint64{10, 20},
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	status, resp = ts.call(t, "campaign_withdraw", map[string]interface{}{
		"id":     id,
		"caller": testAddrHex(0x01),
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var share map[string]string
	require.NoError(t, json.Unmarshal(resp.Result, &share))
	require.Equal(t, "158", share["share"])

	status, resp = ts.call(t, "campaign_getScore", map[string]interface{}{
		"id":          id,
		"participant": testAddrHex(0x01),
	}, false)
	require.Equal(t, http.StatusOK, status)
	var record scoreResult
	require.NoError(t, json.Unmarshal(resp.Result, &record))
	require.True(t, record.Withdrawn)
	require.Equal(t, uint64(10), record.Score)

	status, resp = ts.call(t, "campaign_participants", map[string]interface{}{"id": id}, false)
	require.Equal(t, http.StatusOK, status)
	var participants []string
	require.NoError(t, json.Unmarshal(resp.Result, &participants))
	require.Len(t, participants, 2)
}

func TestServerModuleErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createCampaign(t)

	missing := formatID(campaign.CampaignID{0xFF})
	status, resp := ts.call(t, "campaign_get", map[string]interface{}{"id": missing}, false)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeCampaignNotFound, resp.Error.Code)

	// Withdrawing from an unfunded campaign is a conflict, not a 500.
	status, resp = ts.call(t, "campaign_withdraw", map[string]interface{}{
		"id":     id,
		"caller": testAddrHex(0x01),
	}, true)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, codeCampaignConflict, resp.Error.Code)

	// Non-owner funding attempts surface the authorization code.
	status, resp = ts.call(t, "campaign_fund", map[string]interface{}{
		"id":     id,
		"caller": testAddrHex(0x99),
		"amount": "500",
	}, true)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeCampaignAuth, resp.Error.Code)

	// A tax rate above 100% is rejected for any caller.
	status, resp = ts.call(t, "campaign_setTaxRate", map[string]interface{}{
		"id":         id,
		"caller":     testAddrHex(0xB0),
		"taxRateBps": 10001,
	}, true)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeCampaignInvalid, resp.Error.Code)
}

func TestServerRegistryMethods(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createCampaign(t)

	status, resp := ts.call(t, "campaign_updateName", map[string]interface{}{
		"id":     id,
		"caller": testAddrHex(0xC0),
		"name":   "autumn drive",
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var updated campaignResult
	require.NoError(t, json.Unmarshal(resp.Result, &updated))
	require.Equal(t, "autumn drive", updated.Name)

	status, resp = ts.call(t, "campaign_setTaxRecipient", map[string]interface{}{
		"id":        id,
		"caller":    testAddrHex(0xB0),
		"recipient": testAddrHex(0xE0),
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, &updated))
	require.Equal(t, testAddrHex(0xE0), updated.TaxRecipient)

	status, resp = ts.call(t, "campaign_listByOwner", map[string]interface{}{"owner": testAddrHex(0xC0)}, false)
	require.Equal(t, http.StatusOK, status)
	var ids []string
	require.NoError(t, json.Unmarshal(resp.Result, &ids))
	require.Equal(t, []string{id}, ids)
}

func TestServerTokenMethods(t *testing.T) {
	ts := newTestServer(t)
	owner := testAddr(0x31)
	require.NoError(t, ts.token.Mint(owner, big.NewInt(1000)))

	status, resp := ts.call(t, "token_approve", map[string]interface{}{
		"caller":  formatAddress(owner),
		"spender": testAddrHex(0x32),
		"amount":  "400",
	}, true)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	status, resp = ts.call(t, "token_allowance", map[string]interface{}{
		"owner":   formatAddress(owner),
		"spender": testAddrHex(0x32),
	}, false)
	require.Equal(t, http.StatusOK, status)
	var allowance tokenAllowanceResult
	require.NoError(t, json.Unmarshal(resp.Result, &allowance))
	require.Equal(t, "400", allowance.Allowance)

	status, resp = ts.call(t, "token_balanceOf", map[string]interface{}{"address": "0xzz"}, false)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}
