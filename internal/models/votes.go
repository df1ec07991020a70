package models

import "strings"

type Vote struct {
	TwitterUsername string        `json:"twitter_username"`
	ChosenAI        ParticipantID `json:"chosen_ai"`
}

type VoteTally struct {
	BattleID   string                `json:"battle_id"`
	Votes      []Vote                `json:"votes"`
	VoteCounts map[ParticipantID]int `json:"vote_counts"`
}

func (t *VoteTally) Count(id ParticipantID) int {
	if t == nil {
		return 0
	}
	return t.VoteCounts[id]
}

// NormalizeHandle strips surrounding whitespace and a single leading "@".
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
