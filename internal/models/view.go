package models

type Column struct {
	Participant Participant `json:"participant"`
	Messages    []Message   `json:"messages"`
}

type Count struct {
	Participant Participant `json:"participant"`
	Value       int         `json:"value"`
}

// View is what the battle page and the websocket watchers receive.
type View struct {
	Topic       string        `json:"topic"`
	Handle      string        `json:"handle"`
	Battle      *Battle       `json:"battle"`
	Votes       *VoteTally    `json:"votes"`
	Busy        bool          `json:"busy"`
	BattleError string        `json:"battleError,omitempty"`
	VoteError   string        `json:"voteError,omitempty"`
	Left        Column        `json:"left"`
	Right       Column        `json:"right"`
	ShowStart   bool          `json:"showStart"`
	CanStart    bool          `json:"canStart"`
	CanAdvance  bool          `json:"canAdvance"`
	CanVote     bool          `json:"canVote"`
	Completed   bool          `json:"completed"`
	WinnerLabel string        `json:"winnerLabel"`
	Tally       []Count       `json:"tally,omitempty"`
	Scores      []Count       `json:"scores,omitempty"`
	Choices     []Participant `json:"choices"`
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
