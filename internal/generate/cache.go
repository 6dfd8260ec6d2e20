package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"examgen-server/internal/model"
)

// Cache is a content-addressed result cache: one JSON file per
// fingerprint under a cache directory. Entries are written once after a
// successful generation and never invalidated here; clearing the
// directory is the external cache-busting mechanism.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Fingerprint computes the stable cache key for a generation request. The
// rubric is normalized (rows sorted, IDs and timestamps excluded) so two
// rubrics with identical content share a fingerprint regardless of row
// order or storage identity.
func Fingerprint(subject, topic string, level model.BloomLevel, rubric *model.Rubric) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", subject, topic, level)
	if rubric != nil {
		h.Write([]byte(normalizeRubric(rubric)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeRubric(r *model.Rubric) string {
	types := make([]string, 0, len(r.QuestionDistributions))
	for _, d := range r.QuestionDistributions {
		types = append(types, fmt.Sprintf("%s:%d:%d", d.QuestionType, d.Count, d.MarksEach))
	}
	sort.Strings(types)

	los := make([]string, 0, len(r.LODistributions))
	for _, d := range r.LODistributions {
		los = append(los, fmt.Sprintf("%s:%d", d.LearningOutcome, d.Percentage))
	}
	sort.Strings(los)

	return strings.Join(types, ",") + ";" + strings.Join(los, ",") + ";" + r.AIInstructions
}

// Get returns the cached drafts for a fingerprint, or ok=false on a miss.
// A corrupt entry counts as a miss.
func (c *Cache) Get(fingerprint string) ([]model.QuestionDraft, bool) {
	data, err := os.ReadFile(c.entryPath(fingerprint))
	if err != nil {
		return nil, false
	}
	var drafts []model.QuestionDraft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, false
	}
	return drafts, true
}

// Put stores drafts under a fingerprint. Best effort: a failed write is
// reported but the generation result itself is unaffected.
func (c *Cache) Put(fingerprint string, drafts []model.QuestionDraft) error {
	data, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := os.WriteFile(c.entryPath(fingerprint), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (c *Cache) entryPath(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}
