package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	d := New(20)

	tests := []struct {
		name     string
		filename string
		want     Kind
	}{
		{"md5 style hash", "d41d8cd98f00b204e9800998ecf8427e.mp4", KindHex},
		{"sha1 style hash", "da39a3ee5e6b4b0d3255bfef95601890afd80709.mkv", KindHex},
		{"uppercase hex", "D41D8CD98F00B204E9800998ECF8427E.avi", KindHex},
		{"mixed case hex", "d41D8cD98F00b204E9800998eCf8427E.mov", KindHex},
		{"21 hex digits crosses threshold", strings.Repeat("a", 21) + ".mp4", KindHex},
		{"exactly 20 hex digits stays readable", strings.Repeat("a", 20) + ".mp4", KindReadable},
		{"canonical uuid", "123e4567-e89b-12d3-a456-426614174000.mp4", KindUUID},
		{"uppercase uuid", "123E4567-E89B-12D3-A456-426614174000.webm", KindUUID},
		{"braced uuid", "{123e4567-e89b-12d3-a456-426614174000}.mp4", KindUUID},
		{"human name with year", "vacation_2023.mp4", KindReadable},
		{"chinese name", "海边日落.mp4", KindReadable},
		{"short hex word", "deadbeef.mp4", KindReadable},
		{"hex groups joined by underscore", "a1b2c3d4e5f6a1b2c3d4_e5f6.mp4", KindReadable},
		{"hex split by extra dot", "a1b2c3d4e5f6a1b2c3.d4e5f6a1b2c3d4e5f6.mp4", KindReadable},
		{"dotfile", ".hidden", KindReadable},
		{"empty stem", ".mp4", KindReadable},
		{"no extension hash", "d41d8cd98f00b204e9800998ecf8427e", KindHex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, d.Classify(tt.filename), "filename %q", tt.filename)
		})
	}
}

func TestIsOpaque(t *testing.T) {
	t.Parallel()

	d := New(20)

	assert.True(t, d.IsOpaque("d41d8cd98f00b204e9800998ecf8427e.mp4"))
	assert.True(t, d.IsOpaque("123e4567-e89b-12d3-a456-426614174000.mp4"))
	assert.False(t, d.IsOpaque("vacation_2023.mp4"))
	assert.False(t, d.IsOpaque("生日聚会.mp4"))
}

// TestThresholdConfiguration checks the hex rule respects the configured
// minimum length.
func TestThresholdConfiguration(t *testing.T) {
	t.Parallel()

	strict := New(40)
	assert.False(t, strict.IsOpaque("d41d8cd98f00b204e9800998ecf8427e.mp4"), "32 hex digits below a threshold of 40")
	assert.True(t, strict.IsOpaque("da39a3ee5e6b4b0d3255bfef95601890afd80709a.mp4"), "41 hex digits over a threshold of 40")

	loose := New(8)
	assert.True(t, loose.IsOpaque("deadbeef0.mp4"), "9 hex digits over a threshold of 8")
	assert.False(t, loose.IsOpaque("deadbeef.mp4"), "8 hex digits is not strictly longer than 8")
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "readable", KindReadable.String())
	assert.Equal(t, "hex", KindHex.String())
	assert.Equal(t, "uuid", KindUUID.String())
}
