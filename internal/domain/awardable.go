package domain

import (
	"encoding/json"
	"time"
)

// AwardableKind distinguishes badges from achievements.
type AwardableKind string

const (
	KindBadge       AwardableKind = "badge"
	KindAchievement AwardableKind = "achievement"
)

// Awardable is a badge or an achievement. Both share criteria evaluation
// and award semantics; only achievements may bundle badges.
type Awardable struct {
	Kind          AwardableKind `json:"kind"`
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Icon          string        `json:"icon,omitempty"`
	Criteria      Criteria      `json:"-"`
	RewardPoints  int           `json:"rewardPoints"`
	Active        bool          `json:"active"`
	Secret        bool          `json:"secret"`
	BundledBadges []string      `json:"bundledBadges,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type awardableAlias Awardable

type awardableJSON struct {
	awardableAlias
	Criteria json.RawMessage `json:"criteria"`
}

func (a Awardable) MarshalJSON() ([]byte, error) {
	raw, err := MarshalCriteria(a.Criteria)
	if err != nil {
		return nil, err
	}
	return json.Marshal(awardableJSON{awardableAlias: awardableAlias(a), Criteria: raw})
}

func (a *Awardable) UnmarshalJSON(data []byte) error {
	var wire awardableJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = Awardable(wire.awardableAlias)
	a.Criteria = nil
	if len(wire.Criteria) > 0 && string(wire.Criteria) != "null" {
		c, err := UnmarshalCriteria(wire.Criteria)
		if err != nil {
			return err
		}
		a.Criteria = c
	}
	return nil
}

// Grant is one badge or achievement newly owned by a user.
type Grant struct {
	Kind         AwardableKind `json:"kind"`
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	RewardPoints int           `json:"rewardPoints"`
	BundledBy    string        `json:"bundledBy,omitempty"`
}

// AwardResult lists what a single evaluation pass granted.
type AwardResult struct {
	Badges       []Grant `json:"badges"`
	Achievements []Grant `json:"achievements"`
}

// Empty reports whether nothing was granted.
func (r AwardResult) Empty() bool {
	return len(r.Badges) == 0 && len(r.Achievements) == 0
}
