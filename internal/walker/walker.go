package walker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"tftrivals/internal/riot"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// DefaultMatchesPerLayer is how many recent matches are requested per hop
	DefaultMatchesPerLayer = 20

	// Bloom filters only back the summary counts, so modest sizing is enough
	bloomCapacity = 100000
	bloomFPRate   = 0.001

	// Upper bound on the accumulation list's initial capacity; it grows past this as needed
	maxPreallocMatches = 1024
)

// ErrInvalidLayers is returned when a walk is asked for fewer than one layer
var ErrInvalidLayers = errors.New("number of layers must be greater than 0")

// MatchSource is the subset of the Riot client the walk needs
type MatchSource interface {
	GetMatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error)
}

// MatchObserver is told about every match record the walk accumulates
type MatchObserver interface {
	ObserveMatch(match *riot.MatchResponse) error
}

// Config holds configuration for the walker
type Config struct {
	MatchesPerLayer int
	// Rand drives both random choices; seeded from the clock when nil
	Rand     *rand.Rand
	Observer MatchObserver
}

// Walker samples matches by hopping from player to player through shared matches
type Walker struct {
	source          MatchSource
	matchesPerLayer int
	rng             *rand.Rand
	observer        MatchObserver
}

// Stats summarises one walk. Unique counts are bloom-filter estimates.
type Stats struct {
	LayersRun      int
	WastedLayers   int
	MatchesFetched int
	MatchFailures  int
	UniquePlayers  int
	UniqueMatches  int
	StoppedEarly   bool
	Duration       time.Duration
}

// Result is everything a walk accumulated
type Result struct {
	Matches []*riot.MatchResponse
	Stats   Stats
}

// walkState is the cursor and the remaining-layer counter of a running walk
type walkState struct {
	cursor    string
	remaining int
}

func New(source MatchSource, cfg Config) *Walker {
	if cfg.MatchesPerLayer <= 0 {
		cfg.MatchesPerLayer = DefaultMatchesPerLayer
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Walker{
		source:          source,
		matchesPerLayer: cfg.MatchesPerLayer,
		rng:             rng,
		observer:        cfg.Observer,
	}
}

// Run walks layers hops starting from startPUUID and returns every match
// fetched along the way. A layer whose match list comes back empty leaves the
// cursor where it is. The walk stops early when the chosen match lists no
// participants. On cancellation the matches gathered so far are returned
// together with the context error.
func (w *Walker) Run(ctx context.Context, startPUUID string, layers int) (*Result, error) {
	if layers <= 0 {
		return nil, ErrInvalidLayers
	}
	if startPUUID == "" {
		return nil, fmt.Errorf("walker: starting PUUID cannot be empty")
	}

	started := time.Now()
	result := &Result{Matches: make([]*riot.MatchResponse, 0, preallocSize(layers, w.matchesPerLayer))}
	seenPlayers := bloom.NewWithEstimates(bloomCapacity, bloomFPRate)
	seenMatches := bloom.NewWithEstimates(bloomCapacity, bloomFPRate)

	finish := func(err error) (*Result, error) {
		result.Stats.Duration = time.Since(started)
		return result, err
	}

	state := walkState{cursor: startPUUID, remaining: layers}
	for state.remaining > 0 {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		state.remaining--
		result.Stats.LayersRun++

		if !seenPlayers.TestAndAddString(state.cursor) {
			result.Stats.UniquePlayers++
		}

		matchIDs, err := w.source.GetMatchIDs(ctx, state.cursor, 0, w.matchesPerLayer)
		if err != nil && ctx.Err() != nil {
			return finish(ctx.Err())
		}
		if len(matchIDs) == 0 {
			if err != nil {
				log.Printf("[Walker] Failed to fetch match list for %s: %v", short(state.cursor), err)
			} else {
				log.Printf("[Walker] No matches found for %s", short(state.cursor))
			}
			result.Stats.WastedLayers++
			continue
		}

		for _, matchID := range matchIDs {
			if err := ctx.Err(); err != nil {
				return finish(err)
			}

			match, err := w.source.GetMatch(ctx, matchID)
			if err != nil || match == nil {
				if ctx.Err() != nil {
					return finish(ctx.Err())
				}
				log.Printf("[Walker] Failed to fetch %s: %v", matchID, err)
				result.Stats.MatchFailures++
				continue
			}

			result.Matches = append(result.Matches, match)
			result.Stats.MatchesFetched++
			if !seenMatches.TestAndAddString(matchID) {
				result.Stats.UniqueMatches++
			}

			if w.observer != nil {
				if err := w.observer.ObserveMatch(match); err != nil {
					log.Printf("[Walker] Observer failed on %s: %v", matchID, err)
				}
			}
		}

		if len(result.Matches) == 0 {
			log.Printf("[Walker] No match data retrieved yet, staying on %s", short(state.cursor))
			result.Stats.WastedLayers++
			continue
		}

		// Any match gathered so far is eligible, not only this layer's
		chosen := result.Matches[w.rng.Intn(len(result.Matches))]
		participants := chosen.ParticipantPUUIDs()
		if len(participants) == 0 {
			log.Printf("[Walker] No participants found in match %s, stopping", chosen.Metadata.MatchID)
			result.Stats.StoppedEarly = true
			break
		}

		state.cursor = strings.TrimSpace(participants[w.rng.Intn(len(participants))])
		log.Printf("[Walker] Layers left: %d (%d matches collected)", state.remaining, len(result.Matches))
	}

	return finish(nil)
}

// preallocSize is layers*perLayer capped at maxPreallocMatches, without overflowing
func preallocSize(layers, perLayer int) int {
	if layers <= 0 || perLayer <= 0 {
		return 0
	}
	if layers > maxPreallocMatches/perLayer {
		return maxPreallocMatches
	}
	return layers * perLayer
}

// short trims a PUUID for log lines
func short(puuid string) string {
	if len(puuid) > 16 {
		return puuid[:16] + "..."
	}
	return puuid
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%02dm%02ds", hours, mins, secs)
}

// PrintSummary writes the end-of-walk report
func (s Stats) PrintSummary(rows int) {
	fmt.Printf("\n=== Walk Complete ===\n")
	fmt.Printf("Total time: %s\n", FormatDuration(s.Duration))
	fmt.Printf("Layers run: %d (%d without new data)\n", s.LayersRun, s.WastedLayers)
	if s.StoppedEarly {
		fmt.Printf("Stopped early: chosen match had no participants\n")
	}
	fmt.Printf("Players visited: ~%d unique\n", s.UniquePlayers)
	fmt.Printf("Matches fetched: %d (~%d unique, %d failed)\n", s.MatchesFetched, s.UniqueMatches, s.MatchFailures)
	fmt.Printf("Rows exported: %d\n", rows)
	if s.MatchesFetched > 0 {
		avgPerMatch := s.Duration / time.Duration(s.MatchesFetched)
		fmt.Printf("Avg time per match: %s\n", FormatDuration(avgPerMatch))
	}
}
