package prompt

import "github.com/nadzzz/agrisaarthi/internal/lang"

type template struct {
	header         string
	inputHeading   string
	markers        [3]string // text, speech, image
	noInput        string
	weatherHeading string
	tempLabel      string
	conditionLabel string
	humidityLabel  string
	// answer language, plantable crop, field issues
	instructions [3]string
}

func templateFor(code lang.Code) template {
	if t, ok := templates[code]; ok {
		return t
	}
	return templates[lang.English]
}

// NoInputPlaceholder returns the line used when a request carries no input.
func NoInputPlaceholder(code lang.Code) string {
	return templateFor(code).noInput
}

var templates = map[lang.Code]template{
	lang.English: {
		header:         "You are a multilingual agricultural advisor AI.",
		inputHeading:   "Input from farmer:",
		markers:        [3]string{"[Farmer's question]", "[Spoken message]", "[Image analysis]"},
		noInput:        "[No input provided]",
		weatherHeading: "Current weather in location:",
		tempLabel:      "Temperature",
		conditionLabel: "Condition",
		humidityLabel:  "Humidity",
		instructions: [3]string{
			"Respond only in English, in simple words.",
			"Recommend a crop that can be planted now in these weather conditions.",
			"If the input shows a problem with the field or crop, point it out and say how to fix it.",
		},
	},
	lang.Tamil: {
		header:         "நீங்கள் ஒரு விவசாய ஆலோசகர். கீழே உள்ள விவசாயியின் தகவல்களைப் படித்து ஆலோசனை வழங்கவும்.",
		inputHeading:   "விவசாயியின் உள்ளீடு:",
		markers:        [3]string{"[கேள்வி]", "[குரல் செய்தி]", "[பட பகுப்பாய்வு]"},
		noInput:        "[உள்ளீடு எதுவும் வழங்கப்படவில்லை]",
		weatherHeading: "தற்போதைய வானிலை:",
		tempLabel:      "வெப்பநிலை",
		conditionLabel: "நிலை",
		humidityLabel:  "ஈரப்பதம்",
		instructions: [3]string{
			"தமிழில் மட்டும் எளிய சொற்களில் பதிலளிக்கவும்.",
			"தற்போதைய வானிலைக்கு ஏற்ற, இப்போது பயிரிடக்கூடிய பயிரை பரிந்துரைக்கவும்.",
			"உள்ளீட்டில் பயிர் அல்லது வயல் பிரச்சினை தெரிந்தால் அதைக் குறிப்பிட்டு தீர்வு கூறவும்.",
		},
	},
	lang.Hindi: {
		header:         "आप एक कृषि सलाहकार हैं। नीचे दी गई किसान की जानकारी पढ़कर सलाह दें।",
		inputHeading:   "किसान का इनपुट:",
		markers:        [3]string{"[किसान का प्रश्न]", "[आवाज़ संदेश]", "[तस्वीर विश्लेषण]"},
		noInput:        "[कोई इनपुट नहीं दिया गया]",
		weatherHeading: "वर्तमान मौसम:",
		tempLabel:      "तापमान",
		conditionLabel: "स्थिति",
		humidityLabel:  "नमी",
		instructions: [3]string{
			"कृपया केवल हिंदी में सरल शब्दों में उत्तर दें।",
			"वर्तमान मौसम के अनुसार अभी बोई जा सकने वाली फसल की सलाह दें।",
			"यदि इनपुट में फसल या खेत की कोई समस्या दिखे तो उसे बताएं और उपाय सुझाएं।",
		},
	},
	lang.Telugu: {
		header:         "మీరు ఒక వ్యవసాయ సలహాదారు. క్రింది రైతు సమాచారాన్ని చదివి సలహా ఇవ్వండి.",
		inputHeading:   "రైతు సమాచారం:",
		markers:        [3]string{"[రైతు ప్రశ్న]", "[వాయిస్ సందేశం]", "[చిత్ర విశ్లేషణ]"},
		noInput:        "[ఏ సమాచారం ఇవ్వలేదు]",
		weatherHeading: "ప్రస్తుత వాతావరణం:",
		tempLabel:      "ఉష్ణోగ్రత",
		conditionLabel: "పరిస్థితి",
		humidityLabel:  "తేమ",
		instructions: [3]string{
			"దయచేసి తెలుగులో మాత్రమే సులభమైన మాటల్లో సమాధానం ఇవ్వండి.",
			"ప్రస్తుత వాతావరణానికి తగిన, ఇప్పుడు నాటగల పంటను సూచించండి.",
			"సమాచారంలో పంట లేదా పొలం సమస్య కనిపిస్తే దాన్ని తెలియజేసి పరిష్కారం చెప్పండి.",
		},
	},
	lang.Malayalam: {
		header:         "നിങ്ങൾ ഒരു കാർഷിക ഉപദേശകനാണ്. താഴെയുള്ള കർഷകന്റെ വിവരങ്ങൾ വായിച്ച് ഉപദേശം നൽകുക.",
		inputHeading:   "കർഷകന്റെ വിവരങ്ങൾ:",
		markers:        [3]string{"[കർഷകന്റെ ചോദ്യം]", "[ശബ്ദ സന്ദേശം]", "[ചിത്ര വിശകലനം]"},
		noInput:        "[ഒരു വിവരവും നൽകിയിട്ടില്ല]",
		weatherHeading: "നിലവിലെ കാലാവസ്ഥ:",
		tempLabel:      "താപനില",
		conditionLabel: "അവസ്ഥ",
		humidityLabel:  "ഈർപ്പം",
		instructions: [3]string{
			"ദയവായി മലയാളത്തിൽ മാത്രം ലളിതമായ വാക്കുകളിൽ മറുപടി നൽകുക.",
			"നിലവിലെ കാലാവസ്ഥയ്ക്ക് അനുയോജ്യമായ, ഇപ്പോൾ നടാവുന്ന വിള നിർദ്ദേശിക്കുക.",
			"വിളയിലോ വയലിലോ പ്രശ്നം കാണുന്നുണ്ടെങ്കിൽ അത് ചൂണ്ടിക്കാണിച്ച് പരിഹാരം പറയുക.",
		},
	},
}
