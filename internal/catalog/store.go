package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
	"github.com/tigertalks/tigertalks-go/internal/logger"
)

// CacheRecorder receives cache hit/miss counts for lookups.
// Implemented by *metrics.Metrics.
type CacheRecorder interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// Store serves read-only catalog lookups backed by a lazily loaded snapshot.
// The first caller triggers the load; concurrent first callers share a single
// load via singleflight. Once loaded the data never changes, so reads take
// only an RLock.
type Store struct {
	path string
	log  *logger.Logger

	sf singleflight.Group

	mu       sync.RWMutex
	loaded   bool
	byCode   map[string]*Course  // canonical code -> course (primary and crosslisted)
	byDept   map[string][]string // subject code -> sorted course codes
	distWith map[string][]string // normalized distribution code -> sorted course codes
	allCodes []string            // every primary course code, sorted

	loads   atomic.Int64 // snapshot reads performed, at most 1 in steady state
	metrics CacheRecorder
}

// NewStore creates a Store reading from the given snapshot path.
// Paths ending in .gz are transparently decompressed.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{
		path: path,
		log:  log.WithModule("catalog"),
	}
}

// SetMetrics attaches a cache recorder. Must be called before first use.
func (s *Store) SetMetrics(m CacheRecorder) {
	s.metrics = m
}

// Load ensures the snapshot is loaded. Safe for concurrent use; all
// concurrent first callers share one underlying read.
func (s *Store) Load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		s.recordHit("catalog")
		return nil
	}
	s.recordMiss("catalog")

	_, err, _ := s.sf.Do("load", func() (any, error) {
		s.mu.RLock()
		loaded := s.loaded
		s.mu.RUnlock()
		if loaded {
			return nil, nil
		}
		return nil, s.doLoad(ctx)
	})
	return err
}

func (s *Store) doLoad(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.loads.Add(1)
	snap, err := readSnapshot(s.path)
	if err != nil {
		s.log.WithError(err).Error("Failed to load catalog snapshot")
		return fmt.Errorf("%w: %v", apperrors.ErrCatalogUnavailable, err)
	}

	if len(snap.Term) == 0 {
		return fmt.Errorf("%w: snapshot has no term data", apperrors.ErrCatalogUnavailable)
	}
	term := snap.Term[0]

	byCode := make(map[string]*Course)
	byDept := make(map[string][]string)
	distWith := make(map[string][]string)
	var allCodes []string

	for si := range term.Subjects {
		subject := &term.Subjects[si]
		dept := strings.ToUpper(subject.Code)
		if dept == "" {
			continue
		}
		for ci := range subject.Courses {
			course := &subject.Courses[ci]
			if course.CatalogNumber == "" {
				continue
			}
			code := dept + " " + course.CatalogNumber
			byCode[code] = course
			byDept[dept] = append(byDept[dept], code)
			allCodes = append(allCodes, code)

			for _, x := range course.Crosslistings {
				xs := strings.ToUpper(x.Subject)
				if xs == "" || x.CatalogNumber == "" {
					continue
				}
				xcode := xs + " " + x.CatalogNumber
				if _, taken := byCode[xcode]; !taken {
					byCode[xcode] = course
				}
			}

			// STL/SEL style synonyms can make a course carry the same
			// requirement twice; index it once.
			seenDist := make(map[string]struct{}, len(course.Detail.Distribution))
			for _, tag := range course.Detail.Distribution {
				norm := NormalizeDistribution(tag)
				if norm == "" {
					continue
				}
				if _, dup := seenDist[norm]; dup {
					continue
				}
				seenDist[norm] = struct{}{}
				distWith[norm] = append(distWith[norm], code)
			}
		}
	}

	for dept := range byDept {
		sort.Strings(byDept[dept])
	}
	for dist := range distWith {
		sort.Strings(distWith[dist])
	}
	sort.Strings(allCodes)

	s.mu.Lock()
	s.byCode = byCode
	s.byDept = byDept
	s.distWith = distWith
	s.allCodes = allCodes
	s.loaded = true
	s.mu.Unlock()

	s.log.WithFields(map[string]any{
		"courses":       len(allCodes),
		"subjects":      len(byDept),
		"distributions": len(distWith),
	}).Info("Catalog snapshot loaded")
	return nil
}

func readSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip snapshot: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Match resolves a canonical course code to its catalog entry.
// Crosslisted codes resolve to the primary entry.
func (s *Store) Match(ctx context.Context, code string) (*Course, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	course, ok := s.byCode[code]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("course %s: %w", code, apperrors.ErrNotFound)
	}
	return course, nil
}

// Has reports whether a canonical course code exists in the catalog.
func (s *Store) Has(ctx context.Context, code string) bool {
	if err := s.Load(ctx); err != nil {
		return false
	}
	s.mu.RLock()
	_, ok := s.byCode[code]
	s.mu.RUnlock()
	return ok
}

// DepartmentCourses returns the sorted course codes offered under a subject
// prefix. Unknown departments return an empty list.
func (s *Store) DepartmentCourses(ctx context.Context, dept string) ([]string, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	codes := s.byDept[strings.ToUpper(dept)]
	s.mu.RUnlock()
	out := make([]string, len(codes))
	copy(out, codes)
	return out, nil
}

// AllCourseCodes returns every primary course code, sorted.
func (s *Store) AllCourseCodes(ctx context.Context) ([]string, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	codes := s.allCodes
	s.mu.RUnlock()
	out := make([]string, len(codes))
	copy(out, codes)
	return out, nil
}

// DistributionCourses returns the exact, sorted set of course codes that
// satisfy a distribution requirement. Synonym codes (STL, STN, QR) resolve to
// their canonical form before lookup.
func (s *Store) DistributionCourses(ctx context.Context, dist string) ([]string, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	norm := NormalizeDistribution(dist)
	s.mu.RLock()
	codes := s.distWith[norm]
	s.mu.RUnlock()
	out := make([]string, len(codes))
	copy(out, codes)
	return out, nil
}

// Ready reports whether the snapshot is loadable. Used by the readiness probe.
func (s *Store) Ready(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Store) recordHit(cache string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(cache)
	}
}

func (s *Store) recordMiss(cache string) {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(cache)
	}
}
