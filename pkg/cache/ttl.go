package cache

import (
	"fmt"
	"time"
)

// Class identifies a volatility class. Every cached value belongs to exactly
// one class, and the class alone determines its base TTL.
type Class string

const (
	ClassTrending        Class = "trending"
	ClassSocial          Class = "social"
	ClassCitations       Class = "citations"
	ClassDerived         Class = "derived"
	ClassImplementations Class = "implementations"
	ClassStatistics      Class = "statistics"
	ClassMetadata        Class = "metadata"
	ClassEmbeddings      Class = "embeddings"
)

// Classes lists every volatility class, most volatile first.
var Classes = []Class{
	ClassTrending,
	ClassSocial,
	ClassCitations,
	ClassDerived,
	ClassImplementations,
	ClassStatistics,
	ClassMetadata,
	ClassEmbeddings,
}

// TTLTable maps each volatility class to its base TTL.
type TTLTable map[Class]time.Duration

// DefaultTTLs returns the stock TTL table. Volatile upstream signals expire
// in minutes, stable artifacts like embeddings live for weeks.
func DefaultTTLs() TTLTable {
	return TTLTable{
		ClassTrending:        10 * time.Minute,
		ClassSocial:          15 * time.Minute,
		ClassCitations:       time.Hour,
		ClassDerived:         time.Hour,
		ClassImplementations: 6 * time.Hour,
		ClassStatistics:      6 * time.Hour,
		ClassMetadata:        7 * 24 * time.Hour,
		ClassEmbeddings:      30 * 24 * time.Hour,
	}
}

// Validate checks that every class has a positive TTL. A missing class is an
// error rather than a silent zero TTL.
func (t TTLTable) Validate() error {
	for _, class := range Classes {
		ttl, ok := t[class]
		if !ok {
			return fmt.Errorf("ttl table: missing class %q", class)
		}
		if ttl <= 0 {
			return fmt.Errorf("ttl table: class %q has non-positive ttl %v", class, ttl)
		}
	}
	return nil
}
