package campaign

import "errors"

var (
	ErrNilState         = errors.New("campaign: state not configured")
	ErrNilAsset         = errors.New("campaign: reward asset not configured")
	ErrCampaignNotFound = errors.New("campaign: campaign not found")
	ErrUnauthorized     = errors.New("campaign: unauthorized")
	ErrManagerNotSet    = errors.New("campaign: directory manager not set")
	ErrAlreadyFunded    = errors.New("campaign: already funded")
	ErrNotFunded        = errors.New("campaign: not funded")
	ErrAlreadyWithdrawn = errors.New("campaign: already withdrawn")
	ErrNoScore          = errors.New("campaign: no recorded score")
	ErrLengthMismatch   = errors.New("campaign: participants and scores length mismatch")
	ErrTaxRateTooHigh   = errors.New("campaign: tax rate above 10000 bps")
	ErrZeroAddress      = errors.New("campaign: zero address")
	ErrInvalidAmount    = errors.New("campaign: amount must be positive")
	ErrInvalidName      = errors.New("campaign: name must not be empty")
	ErrEndNotInFuture   = errors.New("campaign: end time must be in the future")
	ErrInvalidDates     = errors.New("campaign: end time before start time")
	ErrRewardLocked     = errors.New("campaign: reward amount locked")
	ErrTransferFailed   = errors.New("campaign: asset transfer failed")
	ErrReentrantCall    = errors.New("campaign: reentrant call rejected")
)
