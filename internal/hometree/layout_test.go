package hometree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const garageLayout = `
root: /Home
rooms:
  - name: Garage
    devices:
      - name: Door Light
        type: percentage
        value: "30%"
      - name: Heater
        type: temperature
        default: "20°C"
    rooms:
      - name: Workshop
        devices:
          - name: Saw
            value: "ON"
`

func TestParseLayout(t *testing.T) {
	tree, err := ParseLayout([]byte(garageLayout))
	require.NoError(t, err)

	assert.Equal(t, []string{"Workshop", "Door Light", "Heater"}, names(tree.List("/Home/Garage")))

	light, ok := tree.Lookup("/Home/Garage/DoorLight")
	require.True(t, ok)
	assert.Equal(t, Level(30), light.Value)
	assert.Equal(t, Level(50), light.DefaultOn)

	heater, ok := tree.Lookup("/Home/Garage/Heater")
	require.True(t, ok)
	assert.Equal(t, Off, heater.Value)
	assert.Equal(t, Level(20), heater.DefaultOn)

	saw, ok := tree.Lookup("/Home/Garage/Workshop/Saw")
	require.True(t, ok)
	assert.Equal(t, "ON", saw.Display())
}

func TestParseLayoutErrors(t *testing.T) {
	tests := map[string]string{
		"empty":          ``,
		"no rooms":       `root: /Home`,
		"unknown field":  "rooms:\n  - name: A\n    colour: red\n",
		"bad type":       "rooms:\n  - name: A\n    devices:\n      - name: L\n        type: rgb\n",
		"bad value":      "rooms:\n  - name: A\n    devices:\n      - name: L\n        type: percentage\n        value: \"150%\"\n",
		"off default":    "rooms:\n  - name: A\n    devices:\n      - name: L\n        type: percentage\n        default: \"OFF\"\n",
		"duplicate path": "rooms:\n  - name: A\n  - name: A\n",
		"two documents":  "rooms:\n  - name: A\n---\nrooms:\n  - name: B\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLayout([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home.yaml")
	require.NoError(t, os.WriteFile(path, []byte(garageLayout), 0o644))

	tree, err := LoadLayout(path)
	require.NoError(t, err)
	assert.True(t, tree.HasDir("/Home/Garage/Workshop"))

	_, err = LoadLayout(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
