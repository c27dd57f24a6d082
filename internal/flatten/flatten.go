// Package flatten turns nested TFT match records into one flat row per
// participant, suitable for delimited-text or table export.
package flatten

import (
	"fmt"
	"strconv"
	"strings"

	"tftrivals/internal/riot"
)

const (
	Unknown = "Unknown"

	listSeparator = "; "
	itemSeparator = ","
)

// Columns in export order
var columns = []string{
	"match_id",
	"puuid",
	"name",
	"placement",
	"total_damage_to_players",
	"players_eliminated",
	"traits",
	"units",
}

// FlatRow is one participant of one match. Placement is 0 when the API did
// not report it. Traits and Units are human-readable and not meant to be
// parsed back.
type FlatRow struct {
	MatchID              string
	PUUID                string
	Name                 string
	Placement            int
	TotalDamageToPlayers int
	PlayersEliminated    int
	Traits               string
	Units                string
}

// Header returns the column names matching Record.
func Header() []string {
	return append([]string(nil), columns...)
}

// Record renders the row as strings in Header order.
func (r FlatRow) Record() []string {
	placement := Unknown
	if r.Placement > 0 {
		placement = strconv.Itoa(r.Placement)
	}
	return []string{
		r.MatchID,
		r.PUUID,
		r.Name,
		placement,
		strconv.Itoa(r.TotalDamageToPlayers),
		strconv.Itoa(r.PlayersEliminated),
		r.Traits,
		r.Units,
	}
}

// Flatten produces one row per info participant of every match. Nil matches
// are skipped. It never mutates its input.
func Flatten(matches []*riot.MatchResponse) []FlatRow {
	total := 0
	for _, m := range matches {
		if m != nil {
			total += len(m.Info.Participants)
		}
	}

	rows := make([]FlatRow, 0, total)
	for _, m := range matches {
		if m == nil {
			continue
		}
		matchID := m.Metadata.MatchID
		if matchID == "" {
			matchID = Unknown
		}
		for _, p := range m.Info.Participants {
			rows = append(rows, FlatRow{
				MatchID:              matchID,
				PUUID:                orUnknown(p.PUUID),
				Name:                 orUnknown(p.RiotIDGameName) + "#" + orUnknown(p.RiotIDTagline),
				Placement:            orZero(p.Placement),
				TotalDamageToPlayers: orZero(p.TotalDamageToPlayers),
				PlayersEliminated:    orZero(p.PlayersEliminated),
				Traits:               formatTraits(p.Traits),
				Units:                formatUnits(p.Units),
			})
		}
	}
	return rows
}

// formatTraits renders "name(num_units); ..."
func formatTraits(traits []riot.Trait) string {
	parts := make([]string, 0, len(traits))
	for _, t := range traits {
		parts = append(parts, fmt.Sprintf("%s(%d)", orUnknown(t.Name), t.NumUnits))
	}
	return strings.Join(parts, listSeparator)
}

// formatUnits renders "character_id[tier:N, items:a,b]; ..."
func formatUnits(units []riot.Unit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		parts = append(parts, fmt.Sprintf("%s[tier:%d, items:%s]",
			orUnknown(u.CharacterID), u.Tier, strings.Join(u.ItemNames, itemSeparator)))
	}
	return strings.Join(parts, listSeparator)
}

// orUnknown substitutes Unknown only when the API left the field out; a
// present but empty value is kept as is
func orUnknown(s *string) string {
	if s == nil {
		return Unknown
	}
	return *s
}

func orZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
