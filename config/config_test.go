package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeProfile(t, `
tag_width: 0.1
pixel_width: 3.45
tag_distance: 2.0
camera_index: 1
with_delay: 0.5
tag_family: tag36h11
samples: 5
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.TagWidth)
	assert.Equal(t, 3.45, p.PixelWidth)
	assert.Equal(t, 2.0, p.TagDistance)
	assert.Equal(t, 1, p.CameraIndex)
	assert.Equal(t, 0.5, p.WithDelay)
	assert.Equal(t, "tag36h11", p.TagFamily)
	assert.Equal(t, 5, p.Samples)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeProfile(t, "tag_width: [not a number")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsNegatives(t *testing.T) {
	cases := []struct {
		name string
		p    Profile
	}{
		{"tag width", Profile{TagWidth: -0.1}},
		{"pixel width", Profile{PixelWidth: -1}},
		{"distance", Profile{TagDistance1: -2}},
		{"focal length", Profile{FocalLength: -100}},
		{"camera index", Profile{CameraIndex: -1}},
		{"delay", Profile{WithDelay: -0.5}},
		{"samples", Profile{Samples: -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.p.Validate())
		})
	}
}

func TestValidateAcceptsZeroProfile(t *testing.T) {
	assert.NoError(t, (&Profile{}).Validate())
}
