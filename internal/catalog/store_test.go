package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/metrics"
)

const testSnapshot = `{
  "term": [
    {
      "code": "1264",
      "name": "Spring 2026",
      "subjects": [
        {
          "code": "COS",
          "name": "Computer Science",
          "courses": [
            {
              "catalog_number": "126",
              "title": "Computer Science: An Interdisciplinary Approach",
              "instructors": [{"full_name": "Alan Turing"}],
              "crosslistings": [{"subject": "EGR", "catalog_number": "126"}],
              "classes": [
                {
                  "type_name": "Lecture",
                  "schedule": {
                    "meetings": [
                      {"days": ["M", "W"], "start_time": "10:00", "end_time": "10:50"}
                    ]
                  }
                }
              ],
              "detail": {
                "description": "An introduction to computer science.",
                "distribution": ["QR"]
              }
            },
            {
              "catalog_number": "333",
              "title": "Advanced Programming Techniques",
              "instructors": [],
              "classes": [],
              "detail": {
                "description": "Software engineering at scale.",
                "distribution": ""
              }
            }
          ]
        },
        {
          "code": "ENV",
          "name": "Environmental Studies",
          "courses": [
            {
              "catalog_number": "200",
              "title": "Climate Science",
              "instructors": [{"full_name": "Ada Lovelace"}],
              "classes": [
                {
                  "type_name": "Seminar",
                  "schedule": {
                    "meetings": [
                      {"days": ["T", "R"], "start_time": "13:30", "end_time": "14:50"}
                    ]
                  }
                }
              ],
              "detail": {
                "description": "The physics of climate.",
                "distribution": "STL, SEL"
              }
            }
          ]
        }
      ]
    }
  ]
}`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(testSnapshot), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return NewStore(path, logger.New("error"))
}

func TestStore_Match(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("primary code", func(t *testing.T) {
		course, err := store.Match(ctx, "COS 126")
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if course.Title != "Computer Science: An Interdisciplinary Approach" {
			t.Errorf("unexpected title %q", course.Title)
		}
	})

	t.Run("crosslisting resolves to primary", func(t *testing.T) {
		course, err := store.Match(ctx, "EGR 126")
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if course.CatalogNumber != "126" || course.Title != "Computer Science: An Interdisciplinary Approach" {
			t.Errorf("crosslisting resolved to wrong course: %+v", course)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := store.Match(ctx, "XXX 999")
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("Match() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_DepartmentCourses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	codes, err := store.DepartmentCourses(ctx, "cos")
	if err != nil {
		t.Fatalf("DepartmentCourses() error = %v", err)
	}
	want := []string{"COS 126", "COS 333"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("DepartmentCourses() = %v, want %v", codes, want)
	}

	empty, err := store.DepartmentCourses(ctx, "NOPE")
	if err != nil {
		t.Fatalf("DepartmentCourses() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown department should be empty, got %v", empty)
	}
}

func TestStore_DistributionCourses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("legacy tag indexed under canonical code", func(t *testing.T) {
		// COS 126 carries QR in the snapshot; the index must serve it as QCR.
		codes, err := store.DistributionCourses(ctx, "QCR")
		if err != nil {
			t.Fatalf("DistributionCourses() error = %v", err)
		}
		if !reflect.DeepEqual(codes, []string{"COS 126"}) {
			t.Errorf("QCR courses = %v, want [COS 126]", codes)
		}
	})

	t.Run("legacy query code resolves", func(t *testing.T) {
		codes, err := store.DistributionCourses(ctx, "QR")
		if err != nil {
			t.Fatalf("DistributionCourses() error = %v", err)
		}
		if !reflect.DeepEqual(codes, []string{"COS 126"}) {
			t.Errorf("QR courses = %v, want [COS 126]", codes)
		}
	})

	t.Run("delimited string tags deduplicated", func(t *testing.T) {
		// ENV 200 lists "STL, SEL" which are the same requirement.
		codes, err := store.DistributionCourses(ctx, "SEL")
		if err != nil {
			t.Fatalf("DistributionCourses() error = %v", err)
		}
		if !reflect.DeepEqual(codes, []string{"ENV 200"}) {
			t.Errorf("SEL courses = %v, want [ENV 200]", codes)
		}
	})
}

func TestStore_AllCourseCodes(t *testing.T) {
	store := newTestStore(t)

	codes, err := store.AllCourseCodes(context.Background())
	if err != nil {
		t.Fatalf("AllCourseCodes() error = %v", err)
	}
	want := []string{"COS 126", "COS 333", "ENV 200"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("AllCourseCodes() = %v, want %v", codes, want)
	}
}

func TestStore_Details(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("full details", func(t *testing.T) {
		details, err := store.Details(ctx, "ENV 200")
		if err != nil {
			t.Fatalf("Details() error = %v", err)
		}
		want := CourseDetails{
			Code:        "ENV 200",
			Title:       "Climate Science",
			Instructor:  "Ada Lovelace",
			Format:      "Seminar",
			Schedule:    "Tue, Thu 13:30-14:50",
			Description: "The physics of climate.",
		}
		if details != want {
			t.Errorf("Details() = %+v, want %+v", details, want)
		}
	})

	t.Run("missing instructor and sections", func(t *testing.T) {
		details, err := store.Details(ctx, "COS 333")
		if err != nil {
			t.Fatalf("Details() error = %v", err)
		}
		if details.Instructor != "TBA" {
			t.Errorf("Instructor = %q, want TBA", details.Instructor)
		}
		if details.Format != "Unknown" {
			t.Errorf("Format = %q, want Unknown", details.Format)
		}
		if details.Schedule != "TBA" {
			t.Errorf("Schedule = %q, want TBA", details.Schedule)
		}
	})
}

func TestStore_ConcurrentLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Load(ctx); err != nil {
				t.Errorf("Load() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if loads := store.loads.Load(); loads != 1 {
		t.Errorf("snapshot read %d times, want exactly 1", loads)
	}
}

func TestStore_GzipSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(testSnapshot)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	store := NewStore(path, logger.New("error"))
	if !store.Has(context.Background(), "COS 126") {
		t.Error("gzip snapshot should load and contain COS 126")
	}
}

func TestStore_MissingSnapshot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"), logger.New("error"))
	err := store.Load(context.Background())
	if !errors.Is(err, apperrors.ErrCatalogUnavailable) {
		t.Errorf("Load() error = %v, want ErrCatalogUnavailable", err)
	}
}

func TestNormalizeDistribution(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"STL", "SEL"},
		{"STN", "SEN"},
		{"QR", "QCR"},
		{"sel", "SEL"},
		{" la ", "LA"},
		{"SEN", "SEN"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDistribution(tt.in); got != tt.want {
			t.Errorf("NormalizeDistribution(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDistribution(t *testing.T) {
	for _, code := range []string{"CD", "EC", "EM", "HA", "LA", "QCR", "SA", "SEL", "SEN", "QR", "STL", "STN"} {
		if !IsDistribution(code) {
			t.Errorf("IsDistribution(%q) = false, want true", code)
		}
	}
	for _, code := range []string{"COS", "XYZ", ""} {
		if IsDistribution(code) {
			t.Errorf("IsDistribution(%q) = true, want false", code)
		}
	}
}

// The metrics package must keep satisfying CacheRecorder.
var _ CacheRecorder = (*metrics.Metrics)(nil)

type countingRecorder struct {
	hits, misses int
}

func (r *countingRecorder) RecordCacheHit(string)  { r.hits++ }
func (r *countingRecorder) RecordCacheMiss(string) { r.misses++ }

func TestStore_RecordsCacheHitsAndMisses(t *testing.T) {
	store := newTestStore(t)
	rec := &countingRecorder{}
	store.SetMetrics(rec)
	ctx := context.Background()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.misses != 1 {
		t.Errorf("first load recorded %d misses, want 1", rec.misses)
	}

	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.hits != 1 {
		t.Errorf("cached load recorded %d hits, want 1", rec.hits)
	}
}
