package advisor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/genai"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/rag"
	"github.com/tigertalks/tigertalks-go/internal/storage"
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
              "classes": [{"type_name": "Lecture", "schedule": {"meetings": [{"days": ["M", "W"], "start_time": "10:00", "end_time": "10:50"}]}}],
              "detail": {"description": "An introduction to computer science in the context of scientific, engineering, and commercial applications.", "distribution": ["QR"]}
            },
            {
              "catalog_number": "226",
              "title": "Algorithms and Data Structures",
              "instructors": [{"full_name": "Robert Sedgewick"}],
              "classes": [{"type_name": "Lecture"}],
              "detail": {"description": "Fundamental algorithms and data structures: sorting, searching, graphs, and strings."}
            },
            {
              "catalog_number": "333",
              "title": "Advanced Programming Techniques",
              "instructors": [],
              "classes": [],
              "detail": {"description": "The practice of programming at scale."}
            }
          ]
        },
        {
          "code": "HIS",
          "name": "History",
          "courses": [
            {
              "catalog_number": "201",
              "title": "A History of the World",
              "instructors": [{"full_name": "Jeremy Adelman"}],
              "classes": [{"type_name": "Lecture"}],
              "detail": {"description": "Global history from antiquity onward.", "distribution": ["HA"]}
            }
          ]
        },
        {
          "code": "ECO",
          "name": "Economics",
          "courses": [
            {
              "catalog_number": "100",
              "title": "Introduction to Microeconomics",
              "instructors": [{"full_name": "Harvey Rosen"}],
              "classes": [{"type_name": "Lecture"}],
              "detail": {"description": "Markets, supply and demand, and consumer behavior.", "distribution": ["SA"]}
            }
          ]
        },
        {
          "code": "MAT",
          "name": "Mathematics",
          "courses": [
            {
              "catalog_number": "201",
              "title": "Multivariable Calculus",
              "instructors": [{"full_name": "Emmy Noether"}],
              "classes": [{"type_name": "Lecture"}],
              "detail": {"description": "Vectors, partial derivatives, and multiple integrals.", "distribution": ["QCR"]}
            }
          ]
        },
        {
          "code": "PHY",
          "name": "Physics",
          "courses": [
            {
              "catalog_number": "101",
              "title": "Introductory Physics I",
              "instructors": [{"full_name": "Lisa Randall"}],
              "classes": [{"type_name": "Lecture"}],
              "detail": {"description": "Mechanics with laboratory experiments.", "distribution": ["STL"]}
            }
          ]
        },
        {
          "code": "ENV",
          "name": "Environmental Studies",
          "courses": [
            {
              "catalog_number": "200",
              "title": "The Environmental Nexus",
              "instructors": [{"full_name": "Ada Lovelace"}],
              "classes": [{"type_name": "Seminar"}],
              "detail": {"description": "Climate change, biodiversity, and sustainability with lab sessions.", "distribution": ["SEL"]}
            }
          ]
        },
        {
          "code": "AAS",
          "name": "African American Studies",
          "courses": [
            {
              "catalog_number": "225",
              "title": "Martin, Malcolm, and Ella",
              "instructors": [{"full_name": "Eddie S. Glaude"}],
              "classes": [{"type_name": "Seminar"}],
              "detail": {"description": "Black Freedom Movement leadership with laboratory sessions in archival work.", "distribution": ["SEL", "LA"]}
            }
          ]
        }
      ]
    }
  ]
}`

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func newTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(testSnapshot), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return catalog.NewStore(path, testLogger())
}

// fakeEmbeddings serves stored vectors to the vector index.
type fakeEmbeddings struct {
	rows []*storage.CourseEmbedding
}

func (f *fakeEmbeddings) GetAllEmbeddings(_ context.Context) ([]*storage.CourseEmbedding, error) {
	return f.rows, nil
}

// fakeEmbedder returns one fixed vector for every query.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

const testEmbeddingModel = "text-embedding-3-small"

// newTestIndex builds a refreshed vector index over the given course vectors.
func newTestIndex(t *testing.T, vectors map[string][]float32) *rag.VectorIndex {
	t.Helper()
	source := &fakeEmbeddings{}
	for code, vec := range vectors {
		source.rows = append(source.rows, &storage.CourseEmbedding{
			CourseCode: code,
			ModelID:    testEmbeddingModel,
			Vector:     vec,
		})
	}
	idx := rag.NewVectorIndex(source, testEmbeddingModel, testLogger())
	if err := idx.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return idx
}

// fakeLLM scripts Complete and CourseCodes responses.
type fakeLLM struct {
	completeText string
	completeErr  error
	codes        []string
	codesErr     error
	completeReqs []genai.CompletionRequest
	codesReqs    []genai.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, _ string, req genai.CompletionRequest) (string, error) {
	f.completeReqs = append(f.completeReqs, req)
	return f.completeText, f.completeErr
}

func (f *fakeLLM) CourseCodes(_ context.Context, _ string, req genai.CompletionRequest, _ int) ([]string, error) {
	f.codesReqs = append(f.codesReqs, req)
	return f.codes, f.codesErr
}

var errScripted = errors.New("scripted failure")

// fakeUsers serves one user.
type fakeUsers struct {
	user *storage.User
	err  error
}

func (f *fakeUsers) GetUser(_ context.Context, _ string) (*storage.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}
