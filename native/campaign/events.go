package campaign

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"campchain/core/types"
)

const (
	EventTypeCampaignCreated     = "campaign.created"
	EventTypeManagerUpdated      = "campaign.directory.manager_updated"
	EventTypeCampaignFunded      = "campaign.funded"
	EventTypeScoreRegistered     = "campaign.score_registered"
	EventTypeRewardWithdrawn     = "campaign.reward_withdrawn"
	EventTypeNameUpdated         = "campaign.name_updated"
	EventTypeDatesUpdated        = "campaign.dates_updated"
	EventTypeRewardUpdated       = "campaign.reward_updated"
	EventTypeTaxRecipientUpdated = "campaign.tax_recipient_updated"
	EventTypeTaxRateUpdated      = "campaign.tax_rate_updated"
)

type campaignEvent struct {
	evt *types.Event
}

func (e campaignEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e campaignEvent) Event() *types.Event { return e.evt }

func baseAttributes(c *Campaign) map[string]string {
	attrs := make(map[string]string)
	if c == nil {
		return attrs
	}
	attrs["id"] = hex.EncodeToString(c.ID[:])
	attrs["owner"] = hex.EncodeToString(c.Owner[:])
	return attrs
}

func bigIntAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewCreatedEvent returns the canonical payload emitted when the directory
// instantiates a campaign.
func NewCreatedEvent(c *Campaign) *types.Event {
	attrs := baseAttributes(c)
	if c != nil {
		attrs["name"] = c.Name
		attrs["manager"] = hex.EncodeToString(c.Manager[:])
		attrs["startTime"] = strconv.FormatUint(c.StartTime, 10)
		attrs["endTime"] = strconv.FormatUint(c.EndTime, 10)
		attrs["rewardAmount"] = bigIntAttr(c.RewardAmount)
		attrs["token"] = c.Token
		attrs["taxRecipient"] = hex.EncodeToString(c.TaxRecipient[:])
		attrs["taxRateBps"] = strconv.FormatUint(uint64(c.TaxRateBps), 10)
	}
	return &types.Event{Type: EventTypeCampaignCreated, Attributes: attrs}
}

// NewManagerUpdatedEvent returns the payload emitted when the directory admin
// designates a new campaign manager.
func NewManagerUpdatedEvent(manager [20]byte) *types.Event {
	return &types.Event{Type: EventTypeManagerUpdated, Attributes: map[string]string{
		"manager": hex.EncodeToString(manager[:]),
	}}
}

// NewFundedEvent returns the payload emitted when the owner deposits the
// reward. The distributable pool equals amount minus tax.
func NewFundedEvent(c *Campaign, amount, tax *big.Int) *types.Event {
	attrs := baseAttributes(c)
	attrs["amount"] = bigIntAttr(amount)
	attrs["tax"] = bigIntAttr(tax)
	if c != nil {
		attrs["pool"] = bigIntAttr(c.Pool)
	}
	return &types.Event{Type: EventTypeCampaignFunded, Attributes: attrs}
}

// NewScoreRegisteredEvent returns the payload emitted for every registration
// attempt. Duplicate registrations are no-ops but still notify observers with
// duplicate=true.
func NewScoreRegisteredEvent(c *Campaign, participant [20]byte, score uint64, duplicate bool) *types.Event {
	attrs := baseAttributes(c)
	attrs["participant"] = hex.EncodeToString(participant[:])
	attrs["score"] = strconv.FormatUint(score, 10)
	attrs["duplicate"] = strconv.FormatBool(duplicate)
	if c != nil {
		attrs["totalScore"] = strconv.FormatUint(c.TotalScore, 10)
	}
	return &types.Event{Type: EventTypeScoreRegistered, Attributes: attrs}
}

// NewWithdrawnEvent returns the payload emitted when a participant collects
// their proportional share.
func NewWithdrawnEvent(c *Campaign, participant [20]byte, share *big.Int) *types.Event {
	attrs := baseAttributes(c)
	attrs["participant"] = hex.EncodeToString(participant[:])
	attrs["share"] = bigIntAttr(share)
	return &types.Event{Type: EventTypeRewardWithdrawn, Attributes: attrs}
}

// NewNameUpdatedEvent returns the payload emitted after a name change.
func NewNameUpdatedEvent(c *Campaign) *types.Event {
	attrs := baseAttributes(c)
	if c != nil {
		attrs["name"] = c.Name
	}
	return &types.Event{Type: EventTypeNameUpdated, Attributes: attrs}
}

// NewDatesUpdatedEvent returns the payload emitted after a schedule change.
func NewDatesUpdatedEvent(c *Campaign) *types.Event {
	attrs := baseAttributes(c)
	if c != nil {
		attrs["startTime"] = strconv.FormatUint(c.StartTime, 10)
		attrs["endTime"] = strconv.FormatUint(c.EndTime, 10)
	}
	return &types.Event{Type: EventTypeDatesUpdated, Attributes: attrs}
}

// NewRewardUpdatedEvent returns the payload emitted after the owner edits the
// nominal reward amount pre-funding.
func NewRewardUpdatedEvent(c *Campaign) *types.Event {
	attrs := baseAttributes(c)
	if c != nil {
		attrs["rewardAmount"] = bigIntAttr(c.RewardAmount)
	}
	return &types.Event{Type: EventTypeRewardUpdated, Attributes: attrs}
}

// NewTaxRecipientUpdatedEvent returns the payload emitted after a manager
// changes the tax recipient.
func NewTaxRecipientUpdatedEvent(c *Campaign) *types.Event {
	attrs := baseAttributes(c)
	if c != nil {
		attrs["taxRecipient"] = hex.EncodeToString(c.TaxRecipient[:])
	}
	return &types.Event{Type: EventTypeTaxRecipientUpdated, Attributes: attrs}
}

// NewTaxRateUpdatedEvent returns the payload emitted after a manager changes
// the tax rate.
func NewTaxRateUpdatedEvent(c *Campaign) *types.Event {
	attrs := baseAttributes(c)
	if c != nil {
		attrs["taxRateBps"] = strconv.FormatUint(uint64(c.TaxRateBps), 10)
	}
	return &types.Event{Type: EventTypeTaxRateUpdated, Attributes: attrs}
}
