package core

import (
	"time"
)

// WhitelistScore is reported for numbers found in the cache tier. It is a
// routing policy value for the dialplan, not a score tellows produced.
const WhitelistScore = 1

// ScoreVariable is the dialplan variable carrying the score
const ScoreVariable = "TELLOWS_SCORE"

// ReputationScore represents the tellows reply for one number
type ReputationScore struct {
	Number           string
	NormalizedNumber string
	Score            int
	Searches         int
	Comments         int
	CheckedAt        time.Time
}

// PartnerInfo represents the tellows account metadata
type PartnerInfo struct {
	Info           string
	Company        string
	AllowScoreList string
	Premium        string
	ValidUntil     string
	Requests       string
}

// DecisionSource tells which tier produced a decision
type DecisionSource string

const (
	SourceNone   DecisionSource = "none"
	SourceCache  DecisionSource = "cache"
	SourceRemote DecisionSource = "remote"
)

// Decision represents the outcome of checking one caller
type Decision struct {
	CallerID   string
	Number     string // canonical form, empty when normalization failed
	Source     DecisionSource
	Score      int
	HasScore   bool
	Reputation *ReputationScore
	// CacheErr is set when the cache tier failed and the check fell through
	CacheErr error
}
