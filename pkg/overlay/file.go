/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: file.go
Description: Advisor serving annotations from a reviewed YAML, JSON or TOML file, keyed
by entity name. Useful for curated mappings and for runs without network access.
*/

package overlay

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/pelletier/go-toml/v2"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// annotationFile is the on-disk shape:
//
//	entities:
//	  CUSTOMER:
//	    - field: CSNM
//	      suggested_name: customerName
type annotationFile struct {
	Entities map[string][]Annotation `yaml:"entities" toml:"entities"`
}

// FileAdvisor answers from a fixed annotation table
type FileAdvisor struct {
	source   string
	entities map[string][]Annotation // upper-case entity name
}

// NewFileAdvisor parses annotation file content. Sources ending in .toml are read as
// TOML; anything else as YAML, which also accepts JSON.
func NewFileAdvisor(source string, data []byte) (*FileAdvisor, error) {
	var doc annotationFile
	var err error
	if strings.EqualFold(path.Ext(source), ".toml") {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse annotation file %s: %w", source, err)
	}
	a := &FileAdvisor{source: source, entities: make(map[string][]Annotation, len(doc.Entities))}
	for name, list := range doc.Entities {
		key := strings.ToUpper(name)
		a.entities[key] = append(a.entities[key], list...)
	}
	return a, nil
}

// LoadFileAdvisor reads an annotation file from any afs location
func LoadFileAdvisor(ctx context.Context, location string) (*FileAdvisor, error) {
	if location == "" {
		return nil, fmt.Errorf("overlay: annotation file is required for the %s provider", ProviderFile)
	}
	data, err := afs.New().DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read annotation file %s: %w", location, err)
	}
	return NewFileAdvisor(location, data)
}

// Name implements Advisor
func (a *FileAdvisor) Name() string {
	return ProviderFile + ":" + a.source
}

// Advise implements Advisor. Entities without an entry get an empty set.
func (a *FileAdvisor) Advise(ctx context.Context, entity *core.EntitySchema) (*AnnotationSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := a.entities[strings.ToUpper(entity.Name)]
	return &AnnotationSet{
		Entity:      entity.Name,
		Source:      a.Name(),
		Annotations: append([]Annotation(nil), list...),
	}, nil
}
