package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain text", "海边日落", "海边日落"},
		{"surrounding whitespace", "  小猫玩球  ", "小猫玩球"},
		{"ascii quotes", `"birthday party"`, "birthday party"},
		{"cjk corner quotes", "「生日聚会」", "生日聚会"},
		{"cjk double angle quotes", "《春节晚会》", "春节晚会"},
		{"cjk typographic quotes", "“海边日落”", "海边日落"},
		{"trailing period", "一只猫在玩球。", "一只猫在玩球"},
		{"trailing exclamation", "精彩进球！", "精彩进球"},
		{"ellipsis", "黄昏的街道...", "黄昏的街道"},
		{"html fragment", "<p>海边日落</p>", "海边日落"},
		{"newlines collapsed", "第一段\n\n第二段", "第一段 第二段"},
		{"tabs and spaces collapsed", "city \t night  drive", "city night drive"},
		{"nfc composition", "café", "café"},
		{"quotes then punctuation", "“小狗奔跑。”", "小狗奔跑"},
		{"empty input", "", ""},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantErr     bool
	}{
		{"chinese description", "一只猫在玩球", false},
		{"english description", "sunset over the bay", false},
		{"mixed with digits", "生日聚会2023", false},
		{"exactly at limit", strings.Repeat("猫", 100), false},
		{"empty", "", true},
		{"over limit", strings.Repeat("猫", 101), true},
		{"path separator", "family/trip", true},
		{"windows drive colon", "c:video", true},
		{"angle bracket", "cat<dog", true},
		{"question mark", "what?", true},
		{"asterisk", "star*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.description)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryClassification),
					"validation failures are permanent classification errors")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeThenValidateRoundTrip(t *testing.T) {
	// A typical verbose model reply survives normalization as a clean stem.
	raw := "\n“一只猫在玩球。”\n"
	normalized := Normalize(raw)
	require.NoError(t, Validate(normalized))
	assert.Equal(t, "一只猫在玩球", normalized)
}
