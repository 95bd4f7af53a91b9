/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: segment.go
Description: Domain segmenter. Groups entity schemas into proposed service boundaries
from their foreign key graph and records the references that cross boundaries.
*/

package segment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/schema"
	"github.com/sirupsen/logrus"
)

// Options tunes boundary proposals
type Options struct {
	MaxBoundarySize int     // Components above this size are split
	PrefixWeight    float64 // Weight of field prefix similarity when splitting
}

// DefaultOptions returns the documented segmentation defaults
func DefaultOptions() Options {
	return Options{
		MaxBoundarySize: 8,
		PrefixWeight:    0.5,
	}
}

// Segmenter proposes service boundaries
type Segmenter struct {
	opts   Options
	logger *logrus.Logger
}

// NewSegmenter creates a segmenter. Non-positive sizes and negative weights fall back
// to the defaults.
func NewSegmenter(opts Options, logger *logrus.Logger) *Segmenter {
	d := DefaultOptions()
	if opts.MaxBoundarySize < 1 {
		opts.MaxBoundarySize = d.MaxBoundarySize
	}
	if opts.PrefixWeight < 0 {
		opts.PrefixWeight = d.PrefixWeight
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Segmenter{opts: opts, logger: logger}
}

// Segment partitions entities into service boundaries. Every entity lands in exactly
// one boundary. References to entities outside the set are ignored. The result depends
// only on entity names and foreign keys, never on input order.
func (s *Segmenter) Segment(entities []*core.EntitySchema) ([]core.ServiceBoundary, error) {
	byName := make(map[string]*core.EntitySchema, len(entities))
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		if e == nil || e.Name == "" {
			return nil, fmt.Errorf("%w: unnamed entity", core.ErrInvalidInput)
		}
		key := strings.ToUpper(e.Name)
		if _, dup := byName[key]; dup {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateEntity, e.Name)
		}
		byName[key] = e
		names = append(names, e.Name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToUpper(names[i]), strings.ToUpper(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	g := newGraph(names)
	for i, n := range names {
		e := byName[strings.ToUpper(n)]
		for _, f := range e.Fields {
			if p := fieldPrefix(f.Name); p != "" {
				g.prefixes[i][p] = true
			}
		}
		for _, fk := range e.ForeignKeys {
			if j, ok := g.lookup(fk.References); ok {
				g.link(i, j)
			}
		}
	}

	var groups [][]int
	for _, c := range g.components() {
		if len(c) <= s.opts.MaxBoundarySize {
			groups = append(groups, c)
			continue
		}
		parts := g.split(c, s.opts.MaxBoundarySize, s.opts.PrefixWeight)
		s.logger.WithFields(logrus.Fields{
			"component": len(c),
			"parts":     len(parts),
		}).Debug("Split oversized component")
		groups = append(groups, parts...)
	}

	boundaries := make([]core.ServiceBoundary, len(groups))
	owner := make(map[int]int, len(names))
	used := map[string]bool{}
	for b, members := range groups {
		name := boundaryName(names[g.anchor(members)], used)
		boundaries[b].Name = name
		for _, i := range members {
			boundaries[b].Entities = append(boundaries[b].Entities, names[i])
			owner[i] = b
		}
	}

	crossing := 0
	for i, n := range names {
		e := byName[strings.ToUpper(n)]
		for _, fk := range e.ForeignKeys {
			j, ok := g.lookup(fk.References)
			if !ok || owner[i] == owner[j] {
				continue
			}
			home := &boundaries[owner[i]]
			home.References = append(home.References, core.CrossReference{
				Entity:         n,
				Field:          fk.Field,
				Target:         names[j],
				TargetBoundary: boundaries[owner[j]].Name,
			})
			crossing++
		}
	}

	for b := range boundaries {
		refs := boundaries[b].References
		sort.SliceStable(refs, func(i, j int) bool {
			if refs[i].Entity != refs[j].Entity {
				return refs[i].Entity < refs[j].Entity
			}
			return refs[i].Field < refs[j].Field
		})
	}
	sort.SliceStable(boundaries, func(i, j int) bool { return boundaries[i].Name < boundaries[j].Name })

	s.logger.WithFields(logrus.Fields{
		"entities":   len(names),
		"boundaries": len(boundaries),
		"crossing":   crossing,
	}).Info("Service boundaries proposed")
	return boundaries, nil
}

// boundaryName derives "<anchor>-service" and numbers repeats
func boundaryName(anchor string, used map[string]bool) string {
	base := schema.Kebab(anchor)
	if base == "" {
		base = "entity"
	}
	base += "-service"
	name := base
	for n := 2; used[name]; n++ {
		name = base + "-" + strconv.Itoa(n)
	}
	used[name] = true
	return name
}
