/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: artifact_writer.go
Description: Writes analysis artifacts (schemas, resources, boundaries, reports) as JSON
or YAML to any afs location, local directories included.
*/

package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Artifact formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Marshal encodes v as indented JSON or as YAML. YAML keeps the JSON field names and
// order so both renderings describe the same document.
func Marshal(format string, v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		return append(data, '\n'), nil
	case FormatYAML, "yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("failed to convert artifact to yaml: %w", err)
		}
		blockStyle(&node)
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported artifact format: %s", format)
	}
}

// blockStyle clears the flow style JSON input leaves on every node
func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// WriteArtifact writes v to <location>/<name>.<format> and returns the written URL
func WriteArtifact(ctx context.Context, location, name, format string, v interface{}) (string, error) {
	if format == "" {
		format = FormatJSON
	}
	data, err := Marshal(format, v)
	if err != nil {
		return "", err
	}

	target := url.Join(location, name+"."+strings.ToLower(format))
	if err := afs.New().Upload(ctx, target, 0644, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", target, err)
	}
	return target, nil
}
