package i18n

// englishMessages returns the English catalog.
func englishMessages() map[string]string {
	return map[string]string{
		KeyFallbackAnswer:   "I'm sorry, I couldn't find an answer right now. Your question has been noted and a staff member will follow up with you.",
		KeyEscalationNotice: "I've forwarded your question to a staff member. You will hear back soon.",
		KeyGreeting:         "Hello! I'm the campus assistant. Ask me about admissions, fees, timetables, hostels and more.",
		KeyNoSources:        "I couldn't find this in the institution's knowledge base.",
	}
}
