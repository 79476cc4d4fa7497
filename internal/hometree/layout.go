package hometree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Layout is the YAML description of a home.
//
//	root: /Home
//	rooms:
//	  - name: Living Room
//	    devices:
//	      - name: Light
//	        type: percentage
//	        value: "OFF"
//	        default: "50%"
type Layout struct {
	Root  string     `yaml:"root,omitempty"`
	Rooms []RoomSpec `yaml:"rooms"`
}

// RoomSpec is a folder. Rooms may nest.
type RoomSpec struct {
	Name    string       `yaml:"name"`
	Path    string       `yaml:"path,omitempty"`
	Devices []DeviceSpec `yaml:"devices,omitempty"`
	Rooms   []RoomSpec   `yaml:"rooms,omitempty"`
}

// DeviceSpec is a leaf device. Value and Default use display strings.
type DeviceSpec struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path,omitempty"`
	Type    string `yaml:"type,omitempty"`
	Value   string `yaml:"value,omitempty"`
	Default string `yaml:"default,omitempty"`
}

// DefaultLayout is the built-in four-room house.
func DefaultLayout() Layout {
	light := DeviceSpec{Name: "Light", Type: "percentage", Value: "OFF", Default: "50%"}
	fan := DeviceSpec{Name: "Fan", Type: "percentage", Value: "OFF", Default: "50%"}
	return Layout{
		Root: DefaultRoot,
		Rooms: []RoomSpec{
			{Name: "Living Room", Path: "/Home/LivingRoom", Devices: []DeviceSpec{
				light,
				{Name: "TV", Value: "OFF"},
				{Name: "Fan", Value: "OFF"},
			}},
			{Name: "Kitchen", Devices: []DeviceSpec{
				light,
				fan,
				{Name: "Refrigerator", Value: "ON"},
			}},
			{Name: "Bedroom", Devices: []DeviceSpec{
				light,
				fan,
				{Name: "AC", Type: "temperature", Value: "OFF", Default: "24°C"},
			}},
			{Name: "Bathroom", Devices: []DeviceSpec{
				light,
				{Name: "Air Vent", Path: "/Home/Bathroom/Fan", Value: "OFF"},
				{Name: "Water Heater", Value: "OFF"},
			}},
		},
	}
}

// DefaultTree builds DefaultLayout.
func DefaultTree() *Tree {
	t, err := DefaultLayout().Build()
	if err != nil {
		panic("hometree: default layout: " + err.Error())
	}
	return t
}

// LoadLayout reads a layout file and builds its tree.
func LoadLayout(path string) (*Tree, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(b)
}

// ParseLayout decodes a single YAML layout document and builds its tree.
// Unknown fields are rejected.
func ParseLayout(data []byte) (*Tree, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decode layout yaml: empty document")
		}
		return nil, fmt.Errorf("decode layout yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return nil, errors.New("decode layout yaml: unexpected trailing document")
	}
	return l.Build()
}

// Build validates the layout and returns the tree it describes. Paths
// default to the parent path plus the name with spaces removed.
func (l Layout) Build() (*Tree, error) {
	t := New(l.Root)
	if len(l.Rooms) == 0 {
		return nil, errors.New("layout has no rooms")
	}
	for _, r := range l.Rooms {
		if err := addRoom(t, t.Root(), r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func addRoom(t *Tree, dir string, r RoomSpec) error {
	path := r.Path
	if path == "" {
		path = childPath(dir, r.Name)
	}
	if err := t.Add(dir, Entry{Name: r.Name, Path: path, Kind: KindFolder}); err != nil {
		return err
	}
	for _, d := range r.Devices {
		e, err := d.entry(path)
		if err != nil {
			return err
		}
		if err := t.Add(path, e); err != nil {
			return err
		}
	}
	for _, sub := range r.Rooms {
		if err := addRoom(t, path, sub); err != nil {
			return err
		}
	}
	return nil
}

func (d DeviceSpec) entry(dir string) (Entry, error) {
	kind, err := ParseValueKind(d.Type)
	if err != nil {
		return Entry{}, fmt.Errorf("device %q: %w", d.Name, err)
	}

	value := Off
	if d.Value != "" {
		if value, err = ParseValue(kind, d.Value); err != nil {
			return Entry{}, fmt.Errorf("device %q: %w", d.Name, err)
		}
	}

	def := DefaultOn(kind)
	if d.Default != "" {
		if def, err = ParseValue(kind, d.Default); err != nil {
			return Entry{}, fmt.Errorf("device %q default: %w", d.Name, err)
		}
		if !def.On {
			return Entry{}, fmt.Errorf("device %q: default must not be OFF", d.Name)
		}
	}

	path := d.Path
	if path == "" {
		path = childPath(dir, d.Name)
	}
	return Entry{
		Name:      d.Name,
		Path:      path,
		Kind:      KindDevice,
		ValueKind: kind,
		Value:     value,
		DefaultOn: def,
	}, nil
}

func childPath(dir, name string) string {
	return dir + "/" + strings.ReplaceAll(name, " ", "")
}
