package main

import (
	"fmt"
	"strings"
)

// parseRiotID splits "GameName#TagLine" into its two non-empty parts
func parseRiotID(riotID string) (gameName, tagLine string, err error) {
	parts := strings.SplitN(riotID, "#", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid Riot ID format '%s', expected 'GameName#TagLine'", riotID)
	}

	gameName = strings.TrimSpace(parts[0])
	tagLine = strings.TrimSpace(parts[1])
	if gameName == "" || tagLine == "" || strings.Contains(tagLine, "#") {
		return "", "", fmt.Errorf("invalid Riot ID format '%s', expected 'GameName#TagLine'", riotID)
	}
	return gameName, tagLine, nil
}
