/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: resource.go
Description: REST resource shape for an entity: collection, item, search and nested
routes derived from the primary key and incoming references.
*/

package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// APIPrefix is prepended to every resource path
const APIPrefix = "/api/v1"

// Resource is the REST shape of one entity
type Resource struct {
	Entity     string      `json:"entity" yaml:"entity"`
	Path       string      `json:"path" yaml:"path"`
	ItemPath   string      `json:"item_path,omitempty" yaml:"item_path,omitempty"`
	Operations []Operation `json:"operations" yaml:"operations"`
}

// Operation is one route of a resource
type Operation struct {
	Method     string      `json:"method" yaml:"method"`
	Path       string      `json:"path" yaml:"path"`
	Summary    string      `json:"summary" yaml:"summary"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Parameter is a path or query parameter
type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	In       string `json:"in" yaml:"in"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// CollectionPath returns the plural kebab-case collection path of an entity
func CollectionPath(entity string) string {
	tokens := strings.Split(Kebab(entity), "-")
	tokens[len(tokens)-1] = Plural(tokens[len(tokens)-1])
	return APIPrefix + "/" + strings.Join(tokens, "-")
}

// ToResource builds the REST shape of entity. Related entities that reference it add
// nested collection routes under its item path.
func ToResource(entity *core.EntitySchema, related []*core.EntitySchema) *Resource {
	props := PropertyNames(entity)
	path := CollectionPath(entity.Name)
	r := &Resource{Entity: entity.Name, Path: path}

	r.Operations = append(r.Operations,
		Operation{
			Method:  "GET",
			Path:    path,
			Summary: fmt.Sprintf("List %s records", entity.Name),
			Parameters: []Parameter{
				{Name: "limit", In: "query", Type: "integer"},
				{Name: "offset", In: "query", Type: "integer"},
			},
		},
		Operation{Method: "POST", Path: path, Summary: fmt.Sprintf("Create a %s record", entity.Name)},
		Operation{Method: "GET", Path: path + "/search", Summary: fmt.Sprintf("Search %s records", entity.Name), Parameters: searchParameters(entity, props)},
	)

	if len(entity.PrimaryKey) == 0 {
		return r
	}

	var params []Parameter
	item := path
	for _, k := range entity.PrimaryKey {
		name := props[k]
		item += "/{" + name + "}"
		f, _ := entity.Field(k)
		params = append(params, Parameter{Name: name, In: "path", Type: paramType(f), Required: true})
	}
	r.ItemPath = item
	r.Operations = append(r.Operations,
		Operation{Method: "GET", Path: item, Summary: fmt.Sprintf("Get a %s record", entity.Name), Parameters: params},
		Operation{Method: "PUT", Path: item, Summary: fmt.Sprintf("Update a %s record", entity.Name), Parameters: params},
		Operation{Method: "DELETE", Path: item, Summary: fmt.Sprintf("Delete a %s record", entity.Name), Parameters: params},
	)

	var nested []Operation
	for _, other := range related {
		if other == nil || strings.EqualFold(other.Name, entity.Name) {
			continue
		}
		for _, fk := range other.ForeignKeys {
			if !strings.EqualFold(fk.References, entity.Name) {
				continue
			}
			child := CollectionPath(other.Name)
			nested = append(nested, Operation{
				Method:     "GET",
				Path:       item + child[len(APIPrefix):],
				Summary:    fmt.Sprintf("List %s records of a %s", other.Name, entity.Name),
				Parameters: params,
			})
			break
		}
	}
	sort.SliceStable(nested, func(i, j int) bool { return nested[i].Path < nested[j].Path })
	r.Operations = append(r.Operations, nested...)
	return r
}

// searchParameters offers the key and enum fields as query filters
func searchParameters(entity *core.EntitySchema, props map[string]string) []Parameter {
	var params []Parameter
	for _, f := range entity.Fields {
		if !entity.IsPrimaryKey(f.Name) && (f.Type == nil || f.Type.Kind != core.KindEnum) {
			continue
		}
		params = append(params, Parameter{Name: props[f.Name], In: "query", Type: paramType(f)})
	}
	return params
}

func paramType(f core.FieldDescriptor) string {
	if f.Type == nil {
		return "string"
	}
	switch f.Type.Kind {
	case core.KindInteger:
		return "integer"
	case core.KindDecimal:
		return "number"
	case core.KindBoolean:
		return "boolean"
	default:
		return "string"
	}
}
