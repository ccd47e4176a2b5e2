package rpc

import (
	"encoding/json"
	"net/http"
)

type campaignCreateParams struct {
	Caller       string `json:"caller"`
	Name         string `json:"name"`
	StartTime    uint64 `json:"startTime"`
	EndTime      uint64 `json:"endTime"`
	RewardAmount string `json:"rewardAmount"`
	Owner        string `json:"owner"`
}

func (s *Server) handleCampaignCreate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignCreateParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner", err.Error())
		return
	}
	reward, err := parseAmount(params.RewardAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid rewardAmount", err.Error())
		return
	}
	created, err := s.dir.CreateCampaign(caller, params.Name, params.StartTime, params.EndTime, reward, owner)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newCampaignResult(created))
}

type campaignSetManagerParams struct {
	Caller  string `json:"caller"`
	Manager string `json:"manager"`
}

func (s *Server) handleCampaignSetManager(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignSetManagerParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	manager, err := parseAddress(params.Manager)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid manager", err.Error())
		return
	}
	if err := s.dir.SetManager(caller, manager); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"manager": formatAddress(manager)})
}

type campaignIDParams struct {
	ID string `json:"id"`
}

func (s *Server) handleCampaignGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	id, ok := decodeCampaignID(w, req)
	if !ok {
		return
	}
	c, found := s.registry.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, req.ID, codeCampaignNotFound, "campaign not found", nil)
		return
	}
	writeResult(w, req.ID, newCampaignResult(c))
}

func (s *Server) handleCampaignList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	ids, err := s.dir.ListCampaigns()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatIDs(ids))
}

type campaignByOwnerParams struct {
	Owner string `json:"owner"`
}

func (s *Server) handleCampaignListByOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignByOwnerParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner", err.Error())
		return
	}
	ids, err := s.dir.CampaignsByOwner(owner)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatIDs(ids))
}

func (s *Server) handleCampaignCount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	count, err := s.dir.CampaignCount()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]int{"count": count})
}

type campaignFundParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) handleCampaignFund(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignFundParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseCampaignID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid id", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", err.Error())
		return
	}
	if err := s.engine.Fund(id, caller, amount); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	c, _ := s.engine.GetCampaign(id)
	writeResult(w, req.ID, newCampaignResult(c))
}

type registerScoreParams struct {
	ID          string `json:"id"`
	Caller      string `json:"caller"`
	Participant string `json:"participant"`
	Score       uint64 `json:"score"`
}

func (s *Server) handleCampaignRegisterScore(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerScoreParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseCampaignID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid id", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	participant, err := parseAddress(params.Participant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid participant", err.Error())
		return
	}
	if err := s.engine.RegisterScore(id, caller, participant, params.Score); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"registered": true})
}

type registerScoresParams struct {
	ID           string   `json:"id"`
	Caller       string   `json:"caller"`
	Participants []string `json:"participants"`
	Scores       []uint64 `json:"scores"`
}

func (s *Server) handleCampaignRegisterScores(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerScoresParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseCampaignID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid id", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	participants := make([][20]byte, 0, len(params.Participants))
	for i, raw := range params.Participants {
		participant, err := parseAddress(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid participant", map[string]interface{}{"index": i, "error": err.Error()})
			return
		}
		participants = append(participants, participant)
	}
	if err := s.engine.RegisterScores(id, caller, participants, params.Scores); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]int{"registered": len(participants)})
}

type campaignWithdrawParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

func (s *Server) handleCampaignWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignWithdrawParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseCampaignID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid id", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	share, err := s.engine.Withdraw(id, caller)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"share": formatAmount(share)})
}

type campaignScoreParams struct {
	ID          string `json:"id"`
	Participant string `json:"participant"`
}

func (s *Server) handleCampaignGetScore(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignScoreParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, err := parseCampaignID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid id", err.Error())
		return
	}
	participant, err := parseAddress(params.Participant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid participant", err.Error())
		return
	}
	record, found := s.engine.GetScore(id, participant)
	if !found {
		writeError(w, http.StatusNotFound, req.ID, codeCampaignNotFound, "score not found", nil)
		return
	}
	writeResult(w, req.ID, &scoreResult{
		Participant: formatAddress(record.Participant),
		Score:       record.Score,
		Withdrawn:   record.Withdrawn,
	})
}

func (s *Server) handleCampaignParticipants(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	id, ok := decodeCampaignID(w, req)
	if !ok {
		return
	}
	participants, err := s.engine.Participants(id)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	encoded := make([]string, 0, len(participants))
	for _, participant := range participants {
		encoded = append(encoded, formatAddress(participant))
	}
	writeResult(w, req.ID, encoded)
}

type campaignUpdateNameParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Name   string `json:"name"`
}

func (s *Server) handleCampaignUpdateName(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignUpdateNameParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, caller, ok := decodeIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.registry.UpdateName(id, caller, params.Name); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	s.writeCampaign(w, req, id)
}

type campaignUpdateDatesParams struct {
	ID        string `json:"id"`
	Caller    string `json:"caller"`
	StartTime uint64 `json:"startTime"`
	EndTime   uint64 `json:"endTime"`
}

func (s *Server) handleCampaignUpdateDates(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignUpdateDatesParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, caller, ok := decodeIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.registry.UpdateDates(id, caller, params.StartTime, params.EndTime); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	s.writeCampaign(w, req, id)
}

type campaignUpdateRewardParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) handleCampaignUpdateRewardAmount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignUpdateRewardParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, caller, ok := decodeIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", err.Error())
		return
	}
	if err := s.registry.UpdateRewardAmount(id, caller, amount); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	s.writeCampaign(w, req, id)
}

type campaignTaxRecipientParams struct {
	ID        string `json:"id"`
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
}

func (s *Server) handleCampaignSetTaxRecipient(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignTaxRecipientParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, caller, ok := decodeIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient", err.Error())
		return
	}
	if err := s.registry.SetTaxRecipient(id, caller, recipient); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	s.writeCampaign(w, req, id)
}

type campaignTaxRateParams struct {
	ID         string `json:"id"`
	Caller     string `json:"caller"`
	TaxRateBps uint32 `json:"taxRateBps"`
}

func (s *Server) handleCampaignSetTaxRate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params campaignTaxRateParams
	if !decodeParams(w, req, &params) {
		return
	}
	id, caller, ok := decodeIDAndCaller(w, req, params.ID, params.Caller)
	if !ok {
		return
	}
	if err := s.registry.SetTaxRate(id, caller, params.TaxRateBps); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	s.writeCampaign(w, req, id)
}

func (s *Server) writeCampaign(w http.ResponseWriter, req *RPCRequest, id [32]byte) {
	c, found := s.registry.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, req.ID, codeCampaignNotFound, "campaign not found", nil)
		return
	}
	writeResult(w, req.ID, newCampaignResult(c))
}

// decodeParams unmarshals the single positional params object shared by every
// handler. It reports failure after writing the error response.
func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "params must contain a single object", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params payload", err.Error())
		return false
	}
	return true
}

func decodeCampaignID(w http.ResponseWriter, req *RPCRequest) ([32]byte, bool) {
	var params campaignIDParams
	if !decodeParams(w, req, &params) {
		return [32]byte{}, false
	}
	id, err := parseCampaignID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid id", err.Error())
		return [32]byte{}, false
	}
	return id, true
}

func decodeIDAndCaller(w http.ResponseWriter, req *RPCRequest, rawID, rawCaller string) ([32]byte, [20]byte, bool) {
	id, err := parseCampaignID(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid id", err.Error())
		return [32]byte{}, [20]byte{}, false
	}
	caller, err := parseAddress(rawCaller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return [32]byte{}, [20]byte{}, false
	}
	return id, caller, true
}
