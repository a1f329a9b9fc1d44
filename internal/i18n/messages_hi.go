package i18n

// hindiMessages returns the Hindi catalog.
func hindiMessages() map[string]string {
	return map[string]string{
		KeyFallbackAnswer:   "क्षमा करें, मुझे अभी इसका उत्तर नहीं मिल पाया। आपका प्रश्न नोट कर लिया गया है और एक कर्मचारी शीघ्र ही आपसे संपर्क करेगा।",
		KeyEscalationNotice: "मैंने आपका प्रश्न एक कर्मचारी को भेज दिया है। आपको जल्द ही उत्तर मिलेगा।",
		KeyGreeting:         "नमस्ते! मैं कैंपस सहायक हूँ। प्रवेश, फीस, समय-सारणी, छात्रावास आदि के बारे में पूछें।",
		KeyNoSources:        "यह जानकारी संस्थान के ज्ञानकोष में नहीं मिली।",
	}
}
