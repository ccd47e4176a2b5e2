package campaign

import (
	"math/big"
	"strings"
)

// CampaignID uniquely identifies one reward round. IDs are derived
// deterministically from the owner, the campaign name and the directory
// sequence counter, so recreating the same directory state yields the same
// identifiers.
type CampaignID [32]byte

// Campaign captures the metadata and economic state of a single reward round.
// Name, dates and the nominal reward amount stay owner-mutable until funding;
// once Funded flips the campaign is economically immutable and Pool holds the
// distributable net amount for the rest of its life.
type Campaign struct {
	ID           CampaignID
	Name         string
	Owner        [20]byte
	Manager      [20]byte
	StartTime    uint64
	EndTime      uint64
	CreatedAt    uint64
	Token        string
	RewardAmount *big.Int
	TaxRecipient [20]byte
	TaxRateBps   uint32
	Funded       bool
	Pool         *big.Int
	TotalScore   uint64
}

// Clone returns a deep copy of the campaign so callers can safely mutate the
// copy without affecting the stored instance.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	clone := *c
	clone.RewardAmount = cloneBigInt(c.RewardAmount)
	clone.Pool = cloneBigInt(c.Pool)
	return &clone
}

// Started reports whether the campaign start time has passed.
func (c *Campaign) Started(now uint64) bool {
	return c != nil && now >= c.StartTime
}

// ScoreRecord tracks one participant's contribution to a campaign. A record
// with Score zero counts as unset and may still be overwritten; the first
// nonzero score is final (first-write-wins).
type ScoreRecord struct {
	Participant [20]byte
	Score       uint64
	Withdrawn   bool
}

// Clone returns a copy of the score record.
func (r *ScoreRecord) Clone() *ScoreRecord {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// SanitizeCampaign validates and normalises a campaign definition, returning a
// cloned instance with trimmed name and non-nil amounts. The original value is
// not mutated.
func SanitizeCampaign(c *Campaign) (*Campaign, error) {
	if c == nil {
		return nil, ErrCampaignNotFound
	}
	clone := c.Clone()
	clone.Name = strings.TrimSpace(clone.Name)
	if clone.Name == "" {
		return nil, ErrInvalidName
	}
	if clone.Owner == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if clone.TaxRateBps > 10_000 {
		return nil, ErrTaxRateTooHigh
	}
	if clone.RewardAmount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if clone.EndTime != 0 && clone.EndTime < clone.StartTime {
		return nil, ErrInvalidDates
	}
	return clone, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
