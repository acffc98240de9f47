// Package mappings provides the course-to-component mapping store. Each
// mapping pairs an internal course key with a Learndot component ID; both
// sides may appear in multiple mappings, but each pair is unique.
package mappings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CourseMapping pairs a course key with a Learndot component.
type CourseMapping struct {
	// ComponentID is the numeric ID of the Learndot component
	ComponentID int64 `yaml:"componentId"`

	// CourseKey is the internal course identifier
	CourseKey string `yaml:"courseKey"`
}

func (m CourseMapping) String() string {
	return fmt.Sprintf("componentId=%d, courseKey=%s", m.ComponentID, m.CourseKey)
}

// mappingsFile is the on-disk structure of the mappings file.
type mappingsFile struct {
	Mappings []CourseMapping `yaml:"mappings"`
}

// Store holds the loaded course mappings.
type Store struct {
	mappings []CourseMapping
	byCourse map[string][]int64
}

// Load reads and validates a mappings YAML file.
func Load(path string) (*Store, error) {
	// #nosec G304 -- path comes from validated configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}

	var file mappingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse mappings file: %w", err)
	}

	return New(file.Mappings)
}

// New builds a store from a mapping list, validating each entry and the
// uniqueness of (componentId, courseKey) pairs.
func New(list []CourseMapping) (*Store, error) {
	type pair struct {
		component int64
		course    string
	}
	seen := make(map[pair]struct{}, len(list))
	byCourse := make(map[string][]int64)

	for _, m := range list {
		if m.ComponentID <= 0 {
			return nil, fmt.Errorf("invalid mapping (%s): componentId must be positive", m)
		}
		if m.CourseKey == "" {
			return nil, fmt.Errorf("invalid mapping (componentId=%d): courseKey is required", m.ComponentID)
		}

		p := pair{component: m.ComponentID, course: m.CourseKey}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate mapping (%s)", m)
		}
		seen[p] = struct{}{}

		byCourse[m.CourseKey] = append(byCourse[m.CourseKey], m.ComponentID)
	}

	return &Store{mappings: list, byCourse: byCourse}, nil
}

// All returns every mapping in file order.
func (s *Store) All() []CourseMapping {
	return s.mappings
}

// ComponentsForCourse returns the component IDs mapped to a course, in file
// order. The result is empty when the course is unmapped.
func (s *Store) ComponentsForCourse(courseKey string) []int64 {
	return s.byCourse[courseKey]
}

// FilterByCourses returns the mappings whose course key is in courseKeys.
// An empty filter returns all mappings.
func (s *Store) FilterByCourses(courseKeys []string) []CourseMapping {
	if len(courseKeys) == 0 {
		return s.mappings
	}

	wanted := make(map[string]struct{}, len(courseKeys))
	for _, k := range courseKeys {
		wanted[k] = struct{}{}
	}

	var out []CourseMapping
	for _, m := range s.mappings {
		if _, ok := wanted[m.CourseKey]; ok {
			out = append(out, m)
		}
	}
	return out
}
