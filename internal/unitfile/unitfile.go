// Package unitfile reads content unit descriptions: knowledge points,
// optional relation candidates and difficulty annotations. Files may be
// plain JSON or JSON with comments.
package unitfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/knowledge"
	"github.com/abhisek/kpath/internal/planner"
	"github.com/abhisek/kpath/internal/relation"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalid is wrapped by every error caused by the file's content rather
// than by I/O.
var ErrInvalid = errors.New("invalid unit file")

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse unit schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://unit.json", doc); err != nil {
			compileErr = fmt.Errorf("add unit schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile("schema://unit.json")
	})
	return compiled, compileErr
}

// Point is a knowledge point as written in a unit file.
type Point struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Summary   string   `json:"summary,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
}

// File is a decoded unit file.
type File struct {
	Name            string                          `json:"unit"`
	KnowledgePoints []Point                         `json:"knowledge_points"`
	Relations       []knowledge.Relation            `json:"relations,omitempty"`
	Difficulty      map[string]knowledge.Difficulty `json:"difficulty,omitempty"`
	DifficultPoints []int64                         `json:"difficult_points,omitempty"`

	levels map[int64]knowledge.Difficulty
}

// Parse validates data against the unit schema and decodes it.
func Parse(data []byte) (*File, error) {
	raw := jsonc.ToJSON(data)

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	sch, err := schema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	f.levels = make(map[int64]knowledge.Difficulty, len(f.Difficulty))
	for key, level := range f.Difficulty {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: difficulty key %q: %w", ErrInvalid, key, err)
		}
		f.levels[id] = level
	}
	return &f, nil
}

// ParseFile reads and parses the unit file at path. A file without a unit
// name is named after its base name.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Points converts the file's knowledge points. Time ranges become spans.
func (f *File) Points() []knowledge.KnowledgePoint {
	out := make([]knowledge.KnowledgePoint, len(f.KnowledgePoints))
	for i, p := range f.KnowledgePoints {
		kp := knowledge.KnowledgePoint{
			ID:       p.ID,
			Name:     p.Name,
			Summary:  p.Summary,
			Keywords: append([]string(nil), p.Keywords...),
		}
		if p.StartTime != nil && p.EndTime != nil {
			kp.Span = &knowledge.Span{Start: *p.StartTime, End: *p.EndTime}
		}
		out[i] = kp
	}
	return out
}

// Unit returns the builder input described by f.
func (f *File) Unit() kgraph.Unit {
	return kgraph.Unit{
		Name:      f.Name,
		Points:    f.Points(),
		Relations: append([]knowledge.Relation(nil), f.Relations...),
	}
}

// PlanOptions returns the difficulty annotations as planner options.
func (f *File) PlanOptions() planner.Options {
	opts := planner.Options{
		Difficulty:      make(map[int64]knowledge.Difficulty, len(f.levels)),
		DifficultPoints: make(map[int64]bool, len(f.DifficultPoints)),
	}
	for id, level := range f.levels {
		opts.Difficulty[id] = level
	}
	for _, id := range f.DifficultPoints {
		opts.DifficultPoints[id] = true
	}
	return opts
}

// ExtractRelations fills in relations proposed by src when the file lists
// none. It returns the number of relations added.
func (f *File) ExtractRelations(src relation.Source) int {
	if len(f.Relations) > 0 {
		return 0
	}
	f.Relations = relation.Collect(src, f.Points())
	return len(f.Relations)
}
