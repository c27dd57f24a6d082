// Package export writes flattened match rows to their destinations.
package export

import (
	"context"
	"log"

	"tftrivals/internal/flatten"
)

// DefaultCSVPath is where the walk's rows land unless told otherwise
const DefaultCSVPath = "Data/match_data.csv"

// Sink is a destination for flattened rows
type Sink interface {
	Name() string
	Write(ctx context.Context, rows []flatten.FlatRow) error
	Close() error
}

// WriteAll writes rows to every sink, continuing past failures. It returns
// the first error seen.
func WriteAll(ctx context.Context, rows []flatten.FlatRow, sinks ...Sink) error {
	var first error
	for _, s := range sinks {
		if err := s.Write(ctx, rows); err != nil {
			log.Printf("[Export] %s failed: %v", s.Name(), err)
			if first == nil {
				first = err
			}
			continue
		}
		log.Printf("[Export] Wrote %d rows to %s", len(rows), s.Name())
	}
	return first
}
