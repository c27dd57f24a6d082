package riot

// AccountResponse represents the response from /riot/account/v1/accounts/by-riot-id
type AccountResponse struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// MatchResponse represents the response from /tft/match/v1/matches/{matchId}
type MatchResponse struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	DataVersion  string   `json:"data_version"`
	MatchID      string   `json:"match_id"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameDatetime int64              `json:"game_datetime"`
	GameLength   float64            `json:"game_length"`
	GameVersion  string             `json:"game_version"`
	QueueID      int                `json:"queue_id"`
	SetNumber    int                `json:"tft_set_number"`
	Participants []MatchParticipant `json:"participants"`
}

// MatchParticipant is one player's final standing. Fields the API may omit are
// pointers so an absent value stays distinguishable from an empty one.
type MatchParticipant struct {
	PUUID                *string `json:"puuid"`
	RiotIDGameName       *string `json:"riotIdGameName"`
	RiotIDTagline        *string `json:"riotIdTagline"`
	Placement            *int    `json:"placement"`
	Level                int     `json:"level"`
	GoldLeft             int     `json:"gold_left"`
	LastRound            int     `json:"last_round"`
	TotalDamageToPlayers *int    `json:"total_damage_to_players"`
	PlayersEliminated    *int    `json:"players_eliminated"`
	Traits               []Trait `json:"traits"`
	Units                []Unit  `json:"units"`
}

type Trait struct {
	Name        *string `json:"name"`
	NumUnits    int    `json:"num_units"`
	Style       int    `json:"style"`
	TierCurrent int    `json:"tier_current"`
	TierTotal   int    `json:"tier_total"`
}

type Unit struct {
	CharacterID *string  `json:"character_id"`
	Rarity      int      `json:"rarity"`
	Tier        int      `json:"tier"`
	ItemNames   []string `json:"itemNames"`
}

// ParticipantPUUIDs returns the metadata participant list, which is what the
// API uses to link a match back to players.
func (m *MatchResponse) ParticipantPUUIDs() []string {
	if m == nil {
		return nil
	}
	return m.Metadata.Participants
}
