package models

import (
	"fmt"
	"time"
)

// FlagKey names a per-family capability toggle
type FlagKey string

const (
	FlagChildMessaging FlagKey = "child_to_child_messaging"
	FlagChildCalls     FlagKey = "child_to_child_calls"
)

// ParseFlagKey converts a wire string into a FlagKey
func ParseFlagKey(s string) (FlagKey, error) {
	switch FlagKey(s) {
	case FlagChildMessaging, FlagChildCalls:
		return FlagKey(s), nil
	}
	return "", fmt.Errorf("unknown feature flag key: %q", s)
}

// FeatureFlag is a per-family boolean toggle gating an optional capability
type FeatureFlag struct {
	ID        int64
	FamilyID  int64
	Key       FlagKey
	Enabled   bool
	UpdatedAt time.Time
}
