package hal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPinTableOverrideParsesValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pins.yaml")
	content := `
pins:
  - number: 17
    physical: 11
    direction: output
    subtype: pump
  - number: 27
    physical: 13
    direction: input
    subtype: sensor
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := LoadPinTableOverride(path)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, Descriptor{Number: 17, Physical: 11, Direction: Output, Subtype: SubtypePump}, table[0])
	assert.Equal(t, Descriptor{Number: 27, Physical: 13, Direction: Input, Subtype: SubtypeSensor}, table[1])
}

func TestLoadPinTableOverrideRejectsUnknownDirection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pins.yaml")
	content := `
pins:
  - number: 17
    physical: 11
    direction: sideways
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadPinTableOverride(path)
	assert.Error(t, err)
}

func TestLoadPinTableOverrideMissingFile(t *testing.T) {
	_, err := LoadPinTableOverride("/nonexistent/path.yaml")
	assert.Error(t, err)
}
