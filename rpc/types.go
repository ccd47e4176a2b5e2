package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"campchain/native/campaign"
)

type campaignResult struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	Manager      string `json:"manager"`
	StartTime    uint64 `json:"startTime"`
	EndTime      uint64 `json:"endTime"`
	CreatedAt    uint64 `json:"createdAt"`
	Token        string `json:"token"`
	RewardAmount string `json:"rewardAmount"`
	TaxRecipient string `json:"taxRecipient"`
	TaxRateBps   uint32 `json:"taxRateBps"`
	Funded       bool   `json:"funded"`
	Pool         string `json:"pool"`
	TotalScore   uint64 `json:"totalScore"`
	Vault        string `json:"vault"`
}

func newCampaignResult(c *campaign.Campaign) *campaignResult {
	return &campaignResult{
		ID:           formatID(c.ID),
		Name:         c.Name,
		Owner:        formatAddress(c.Owner),
		Manager:      formatAddress(c.Manager),
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		CreatedAt:    c.CreatedAt,
		Token:        c.Token,
		RewardAmount: formatAmount(c.RewardAmount),
		TaxRecipient: formatAddress(c.TaxRecipient),
		TaxRateBps:   c.TaxRateBps,
		Funded:       c.Funded,
		Pool:         formatAmount(c.Pool),
		TotalScore:   c.TotalScore,
		Vault:        formatAddress(campaign.VaultAddress(c.ID)),
	}
}

type scoreResult struct {
	Participant string `json:"participant"`
	Score       uint64 `json:"score"`
	Withdrawn   bool   `json:"withdrawn"`
}

func formatAddress(a [20]byte) string {
	return "0x" + hex.EncodeToString(a[:])
}

func formatID(id campaign.CampaignID) string {
	return "0x" + hex.EncodeToString(id[:])
}

func formatIDs(ids []campaign.CampaignID) []string {
	encoded := make([]string, 0, len(ids))
	for _, id := range ids {
		encoded = append(encoded, formatID(id))
	}
	return encoded
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(trimmed) != 40 {
		return addr, fmt.Errorf("address must be 20 hex bytes")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address encoding: %w", err)
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseCampaignID(value string) (campaign.CampaignID, error) {
	var id campaign.CampaignID
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(trimmed) != 64 {
		return id, fmt.Errorf("campaign id must be 32 hex bytes")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("invalid campaign id encoding: %w", err)
	}
	copy(id[:], raw)
	return id, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}
