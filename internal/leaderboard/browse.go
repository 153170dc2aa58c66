package leaderboard

import (
	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
)

// Browse steps through the month list. Challenges are newest-first, so
// "prev" (an older month) moves to a higher index and "next" to a lower one.
type Browse struct {
	Challenge model.Challenge `json:"challenge"`
	Index     int             `json:"index"`
	HasPrev   bool            `json:"hasPrev"`
	HasNext   bool            `json:"hasNext"`
}

const (
	StepPrev = "prev"
	StepNext = "next"
)

// Step moves the cursor from the challenge identified by from (id or slug;
// empty starts at the newest) one step in direction step ("", "prev" or
// "next"). Stepping past either end stays put.
func Step(challenges []model.Challenge, from, step string) (Browse, error) {
	if len(challenges) == 0 {
		return Browse{}, apperror.NoActiveChallenge()
	}

	index := 0
	if from != "" {
		index = -1
		for i, c := range challenges {
			if c.ID == from || c.Slug == from {
				index = i
				break
			}
		}
		if index < 0 {
			return Browse{}, apperror.ChallengeNotFound(from)
		}
	}

	switch step {
	case "":
	case StepPrev:
		if index < len(challenges)-1 {
			index++
		}
	case StepNext:
		if index > 0 {
			index--
		}
	default:
		return Browse{}, apperror.ValidationFailed("step", `step must be "prev" or "next"`)
	}

	return Browse{
		Challenge: challenges[index],
		Index:     index,
		HasPrev:   index < len(challenges)-1,
		HasNext:   index > 0,
	}, nil
}
