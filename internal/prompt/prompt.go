// Package prompt builds the advisory prompt sent to the LLM.
package prompt

import (
	"strconv"
	"strings"

	"github.com/nadzzz/agrisaarthi/internal/lang"
	"github.com/nadzzz/agrisaarthi/internal/weather"
)

// Input holds the text extracted from each modality of a request.
type Input struct {
	Text      string
	AudioText string
	ImageText string
}

// Normalized returns a copy with every field trimmed.
func (in Input) Normalized() Input {
	return Input{
		Text:      strings.TrimSpace(in.Text),
		AudioText: strings.TrimSpace(in.AudioText),
		ImageText: strings.TrimSpace(in.ImageText),
	}
}

// Empty reports whether no modality carries any text.
func (in Input) Empty() bool {
	n := in.Normalized()
	return n.Text == "" && n.AudioText == "" && n.ImageText == ""
}

// Compose merges the request modalities and weather into a prompt written in
// the template for code. Unknown codes use the English template.
// The output depends only on its arguments.
func Compose(in Input, w weather.Snapshot, code lang.Code) string {
	t := templateFor(code)
	in = in.Normalized()

	var b strings.Builder
	b.WriteString(t.header)
	b.WriteString("\n\n")
	b.WriteString(t.inputHeading)
	b.WriteByte('\n')

	lines := 0
	for i, v := range []string{in.Text, in.AudioText, in.ImageText} {
		if v == "" {
			continue
		}
		b.WriteString(t.markers[i])
		b.WriteByte(' ')
		b.WriteString(v)
		b.WriteByte('\n')
		lines++
	}
	if lines == 0 {
		b.WriteString(t.noInput)
		b.WriteByte('\n')
	}

	condition := strings.TrimSpace(w.Condition)
	if condition == "" {
		condition = weather.NA
	}

	b.WriteByte('\n')
	b.WriteString(t.weatherHeading)
	b.WriteByte('\n')
	b.WriteString("- " + t.tempLabel + ": " + w.Temp.String() + "°C\n")
	b.WriteString("- " + t.conditionLabel + ": " + condition + "\n")
	b.WriteString("- " + t.humidityLabel + ": " + w.Humidity.String() + "%\n")

	b.WriteByte('\n')
	for i, instr := range t.instructions {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(instr)
		b.WriteByte('\n')
	}
	return b.String()
}

// SystemInstruction returns the system message for code. Codes without a
// localized instruction get the generic multilingual advisor instruction.
func SystemInstruction(code lang.Code) string {
	if s, ok := systemInstructions[code]; ok {
		return s
	}
	return genericInstruction
}

const genericInstruction = "You are a multilingual agricultural advisor AI."

var systemInstructions = map[lang.Code]string{
	lang.Tamil:     "நீங்கள் ஒரு விவசாய ஆலோசகர். தமிழில் பதிலளிக்கவும்.",
	lang.Hindi:     "आप एक कृषि सलाहकार हैं। कृपया हिंदी में उत्तर दें।",
	lang.Telugu:    "మీరు ఒక వ్యవసాయ సలహాదారు. దయచేసి తెలుగులో సమాధానం ఇవ్వండి.",
	lang.Malayalam: "നിങ്ങൾ ഒരു കാർഷിക ഉപദേശകനാണ്. ദയവായി മലയാളത്തിൽ മറുപടി നൽകുക.",
}
