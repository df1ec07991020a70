package models

import "strings"

type BattleStatus string

const (
	StatusInProgress BattleStatus = "in_progress"
	StatusCompleted  BattleStatus = "completed"
)

// Message is one transcript entry as returned by the backend.
type Message struct {
	Role    string `json:"role"`    // "system", "assistant", ...
	Content string `json:"content"`
}

type Scores struct {
	OpenAI   int `json:"openai"`
	DeepSeek int `json:"deepseek"`
}

// Battle mirrors the backend's battle object. It is always replaced as a whole,
// never patched locally.
type Battle struct {
	ID       string       `json:"id"`
	Messages []Message    `json:"messages"`
	Status   BattleStatus `json:"status"`
	Winner   string       `json:"winner,omitempty"` // participant id or "tie"
	Scores   *Scores      `json:"scores,omitempty"`
}

func (b *Battle) Completed() bool {
	return b != nil && b.Status == StatusCompleted
}

// Transcript drops the topic seed at index 0.
func (b *Battle) Transcript() []Message {
	if b == nil || len(b.Messages) <= 1 {
		return nil
	}
	return b.Messages[1:]
}

// Columns splits the transcript by parity: odd entries go left, even entries go right.
func (b *Battle) Columns() (left, right []Message) {
	for i, msg := range b.Transcript() {
		if i%2 == 1 {
			left = append(left, msg)
		} else {
			right = append(right, msg)
		}
	}
	return left, right
}

func (b *Battle) WinnerLabel() string {
	if b == nil || b.Winner == "" {
		return "Pending Votes"
	}
	return strings.ToUpper(b.Winner)
}
