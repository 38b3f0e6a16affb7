// Package source reads a BIM model export (nested JSON element tree) and
// exposes it as a lazy, forward-only element stream.
// All model inputs for a takeoff run flow through here.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Element is one modeled object from the host application.
// Fixed categorical fields are lifted out of the raw record; the full record
// stays available as a property bag for dot-path parameter resolution.
type Element struct {
	ID       string
	Category string
	Family   string
	Type     string
	Level    string

	// Materials are the element's material associations, sorted by
	// material name so runs are reproducible.
	Materials []MaterialQuantity

	// Bag is the raw decoded record, used for dot-path lookups.
	Bag map[string]interface{}
}

// MaterialQuantity is one element-to-material association with its
// measured area and volume contribution.
type MaterialQuantity struct {
	Material    string
	Area        decimal.Decimal
	Volume      decimal.Decimal
	AreaUnits   string
	VolumeUnits string

	// Structural holds the layer's structural type parameters when
	// structural extraction is enabled, keyed by parameter name.
	Structural map[string]string
}

// Model is a fully decoded model export.
type Model struct {
	Name string
	root map[string]interface{}
}

// Parser decodes model export JSON.
type Parser struct {
	// IncludeStructural lifts structural layer parameters
	// (properties.Parameters.Type Parameters.Structure) onto material
	// associations, matched by layer index.
	IncludeStructural bool
}

func NewParser() *Parser {
	return &Parser{}
}

// ParseFile decodes a model export from a file on disk.
func (p *Parser) ParseFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse decodes a model export from a reader.
func (p *Parser) Parse(r io.Reader) (*Model, error) {
	var root map[string]interface{}
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode model JSON: %w", err)
	}

	model := &Model{root: root}
	if name, ok := root["name"].(string); ok {
		model.Name = name
	}
	return model, nil
}

// ParseBytes decodes a model export from bytes.
func (p *Parser) ParseBytes(data []byte) (*Model, error) {
	return p.Parse(strings.NewReader(string(data)))
}

// Iterator walks the element tree depth-first in document order, one
// element per Next call. Single pass, no rewinding.
type Iterator struct {
	parser *Parser
	stack  []map[string]interface{}
}

// Elements returns a fresh iterator over the model's element tree.
func (p *Parser) Elements(m *Model) *Iterator {
	return &Iterator{
		parser: p,
		stack:  []map[string]interface{}{m.root},
	}
}

// Next returns the next element, or nil when the tree is exhausted.
func (it *Iterator) Next() *Element {
	for len(it.stack) > 0 {
		node := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		children := childNodes(node)
		for i := len(children) - 1; i >= 0; i-- {
			it.stack = append(it.stack, children[i])
		}

		if el := it.parser.buildElement(node); el != nil {
			return el
		}
	}
	return nil
}

// childNodes collects nested elements from "elements" or "@elements".
func childNodes(node map[string]interface{}) []map[string]interface{} {
	raw, ok := node["elements"]
	if !ok {
		raw, ok = node["@elements"]
	}
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var children []map[string]interface{}
	for _, item := range list {
		if child, ok := item.(map[string]interface{}); ok {
			children = append(children, child)
		}
	}
	return children
}

// buildElement lifts fixed fields and material quantities out of a raw node.
// Container nodes without a category still come through; the pipeline's
// category filter decides what to keep.
func (p *Parser) buildElement(node map[string]interface{}) *Element {
	el := &Element{
		ID:       stringField(node, "id"),
		Category: stringField(node, "category"),
		Family:   stringField(node, "family"),
		Type:     stringField(node, "type"),
		Level:    levelName(node),
		Bag:      node,
	}

	props, _ := node["properties"].(map[string]interface{})
	el.Materials = p.buildMaterials(props)
	return el
}

func stringField(node map[string]interface{}, key string) string {
	if s, ok := node[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// levelName handles both flat ("level": "Level 1") and object
// ("level": {"name": "Level 1"}) encodings.
func levelName(node map[string]interface{}) string {
	switch v := node["level"].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		if name, ok := v["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func (p *Parser) buildMaterials(props map[string]interface{}) []MaterialQuantity {
	if props == nil {
		return nil
	}
	raw, ok := props["Material Quantities"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var layers []structuralLayer
	if p.IncludeStructural {
		layers = structuralLayers(props)
	}

	materials := make([]MaterialQuantity, 0, len(names))
	for i, name := range names {
		attrs, ok := raw[name].(map[string]interface{})
		if !ok {
			continue
		}
		mq := MaterialQuantity{Material: strings.TrimSpace(name)}
		mq.Area, mq.AreaUnits = measure(attrs, "area")
		mq.Volume, mq.VolumeUnits = measure(attrs, "volume")
		if i < len(layers) {
			mq.Structural = layers[i].params
		}
		materials = append(materials, mq)
	}
	return materials
}

// measure reads a quantity attribute that is either a bare value or a
// {"value": n, "units": "m²"} object. Some exporters emit quantities as
// strings, so numeric strings are parsed too.
func measure(attrs map[string]interface{}, key string) (decimal.Decimal, string) {
	raw, ok := attrs[key]
	if !ok {
		return decimal.Zero, ""
	}
	if v, ok := raw.(map[string]interface{}); ok {
		units, _ := v["units"].(string)
		return measureValue(v["value"]), units
	}
	return measureValue(raw), ""
}

func measureValue(raw interface{}) decimal.Decimal {
	switch v := raw.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

type structuralLayer struct {
	name   string
	params map[string]string
}

// structuralLayers extracts properties.Parameters."Type Parameters".Structure,
// sorted by layer name for deterministic index matching.
func structuralLayers(props map[string]interface{}) []structuralLayer {
	params, ok := props["Parameters"].(map[string]interface{})
	if !ok {
		return nil
	}
	typeParams, ok := params["Type Parameters"].(map[string]interface{})
	if !ok {
		return nil
	}
	structure, ok := typeParams["Structure"].(map[string]interface{})
	if !ok {
		return nil
	}

	names := make([]string, 0, len(structure))
	for name := range structure {
		names = append(names, name)
	}
	sort.Strings(names)

	layers := make([]structuralLayer, 0, len(names))
	for _, name := range names {
		layer := structuralLayer{name: name, params: make(map[string]string)}
		if attrs, ok := structure[name].(map[string]interface{}); ok {
			for k, v := range attrs {
				layer.params[k] = scalarString(v)
			}
		}
		layers = append(layers, layer)
	}
	return layers
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
