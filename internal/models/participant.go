package models

type ParticipantID string

const (
	ParticipantOpenAI   ParticipantID = "openai"
	ParticipantDeepSeek ParticipantID = "deepseek"
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

type Participant struct {
	ID    ParticipantID `json:"id"`
	Name  string        `json:"name"`
	Side  Side          `json:"side"`
	Image string        `json:"image"`
}

var Participants = map[ParticipantID]Participant{
	ParticipantOpenAI: {
		ID:    ParticipantOpenAI,
		Name:  "OpenAI",
		Side:  SideRight,
		Image: "/assets/characters/openai/openai_normal.png",
	},
	ParticipantDeepSeek: {
		ID:    ParticipantDeepSeek,
		Name:  "DeepSeek",
		Side:  SideLeft,
		Image: "/assets/characters/deepseek/deepseek_normal.png",
	},
}

// ParticipantOrder is the display order for votes, tallies and scores.
var ParticipantOrder = []ParticipantID{ParticipantOpenAI, ParticipantDeepSeek}

func ParseParticipant(s string) (ParticipantID, bool) {
	id := ParticipantID(s)
	if _, ok := Participants[id]; !ok {
		return "", false
	}
	return id, true
}

func ParticipantOnSide(side Side) Participant {
	for _, p := range Participants {
		if p.Side == side {
			return p
		}
	}
	return Participant{}
}
