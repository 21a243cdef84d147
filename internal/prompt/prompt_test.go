package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nadzzz/agrisaarthi/internal/lang"
	"github.com/nadzzz/agrisaarthi/internal/weather"
)

var chennai = weather.Snapshot{Temp: weather.Value(32.4), Humidity: weather.Value(71), Condition: "haze"}

func TestCompose_TamilScenario(t *testing.T) {
	got := Compose(Input{Text: "Tomato leaves turning yellow"}, chennai, lang.Tamil)

	ta := templates[lang.Tamil]
	assert.True(t, strings.HasPrefix(got, ta.header))
	assert.Contains(t, got, ta.markers[0]+" Tomato leaves turning yellow\n")
	assert.NotContains(t, got, ta.markers[1])
	assert.NotContains(t, got, ta.markers[2])
	assert.Contains(t, got, "- "+ta.tempLabel+": 32.4°C\n")
	assert.Contains(t, got, "- "+ta.conditionLabel+": haze\n")
	assert.Contains(t, got, "- "+ta.humidityLabel+": 71%\n")
	for i, instr := range ta.instructions {
		assert.Contains(t, got, instr, "instruction %d", i+1)
	}
	assert.True(t, strings.HasSuffix(got, "3. "+ta.instructions[2]+"\n"))
}

func TestCompose_ModalityOrderAndTrim(t *testing.T) {
	in := Input{Text: "  question  ", AudioText: "\tspoken\n", ImageText: " leaf spot "}
	got := Compose(in, chennai, lang.English)

	en := templates[lang.English]
	iText := strings.Index(got, en.markers[0]+" question\n")
	iAudio := strings.Index(got, en.markers[1]+" spoken\n")
	iImage := strings.Index(got, en.markers[2]+" leaf spot\n")
	assert.True(t, iText >= 0 && iAudio > iText && iImage > iAudio, got)
	assert.NotContains(t, got, en.noInput)
}

func TestCompose_SkipsEmptyModalities(t *testing.T) {
	got := Compose(Input{ImageText: "powdery mildew"}, chennai, lang.Hindi)
	hi := templates[lang.Hindi]
	assert.NotContains(t, got, hi.markers[0])
	assert.NotContains(t, got, hi.markers[1])
	assert.Contains(t, got, hi.markers[2]+" powdery mildew")
}

func TestCompose_NoInputPlaceholder(t *testing.T) {
	for _, code := range []lang.Code{lang.Tamil, lang.Hindi, lang.English, lang.Telugu, lang.Malayalam} {
		got := Compose(Input{Text: "   "}, chennai, code)
		assert.Contains(t, got, NoInputPlaceholder(code), code)
		assert.NotEmpty(t, NoInputPlaceholder(code))
	}
}

func TestCompose_UnavailableWeatherVerbatim(t *testing.T) {
	got := Compose(Input{Text: "what to sow"}, weather.Unavailable(), lang.English)
	assert.Contains(t, got, "- Temperature: NA°C\n")
	assert.Contains(t, got, "- Condition: NA\n")
	assert.Contains(t, got, "- Humidity: NA%\n")

	got = Compose(Input{Text: "what to sow"}, weather.Snapshot{}, lang.English)
	assert.Contains(t, got, "- Condition: NA\n")
}

func TestCompose_UnknownLanguageUsesEnglish(t *testing.T) {
	in := Input{Text: "rice"}
	assert.Equal(t, Compose(in, chennai, lang.English), Compose(in, chennai, "fr"))
	assert.Equal(t, Compose(in, chennai, lang.English), Compose(in, chennai, ""))
}

func TestCompose_Deterministic(t *testing.T) {
	in := Input{Text: "a", AudioText: "b", ImageText: "c"}
	for _, code := range []lang.Code{lang.Tamil, lang.Hindi, lang.English, lang.Telugu, lang.Malayalam} {
		assert.Equal(t, Compose(in, chennai, code), Compose(in, chennai, code))
	}
}

func TestTemplates_Distinct(t *testing.T) {
	seen := map[string]lang.Code{}
	for code, tmpl := range templates {
		prev, dup := seen[tmpl.header]
		assert.False(t, dup, "%s and %s share a header", code, prev)
		seen[tmpl.header] = code
		for _, m := range tmpl.markers {
			assert.NotEmpty(t, m)
		}
	}
	assert.Len(t, templates, 5)
}

func TestSystemInstruction(t *testing.T) {
	assert.Equal(t, "நீங்கள் ஒரு விவசாய ஆலோசகர். தமிழில் பதிலளிக்கவும்.", SystemInstruction(lang.Tamil))
	assert.Contains(t, SystemInstruction(lang.Hindi), "हिंदी")
	assert.Contains(t, SystemInstruction(lang.Telugu), "తెలుగులో")
	assert.Contains(t, SystemInstruction(lang.Malayalam), "മലയാളത്തിൽ")
	assert.Equal(t, "You are a multilingual agricultural advisor AI.", SystemInstruction(lang.English))
	assert.Equal(t, "You are a multilingual agricultural advisor AI.", SystemInstruction("kn"))
}

func TestInput_Empty(t *testing.T) {
	assert.True(t, Input{}.Empty())
	assert.True(t, Input{Text: " ", AudioText: "\n"}.Empty())
	assert.False(t, Input{ImageText: "x"}.Empty())
}
