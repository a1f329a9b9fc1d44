package i18n

import "testing"

func TestT_KnownLanguage(t *testing.T) {
	t.Parallel()

	got := T(LangHI, KeyFallbackAnswer)
	if got == "" || got == KeyFallbackAnswer {
		t.Errorf("T(hi, fallback_answer) = %q, want Hindi text", got)
	}
	if got == T(LangEN, KeyFallbackAnswer) {
		t.Error("Hindi catalog should differ from English")
	}
}

func TestT_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	if got, want := T("ta", KeyFallbackAnswer), T(LangEN, KeyFallbackAnswer); got != want {
		t.Errorf("T(ta) = %q, want English fallback %q", got, want)
	}
}

func TestT_UnknownKeyReturnsKey(t *testing.T) {
	t.Parallel()

	if got := T(LangEN, "no_such_key"); got != "no_such_key" {
		t.Errorf("T() = %q, want key echo", got)
	}
}

func TestT_RegionSubtagStripped(t *testing.T) {
	t.Parallel()

	if got, want := T("hi-IN", KeyGreeting), T(LangHI, KeyGreeting); got != want {
		t.Errorf("T(hi-IN) = %q, want %q", got, want)
	}
}

func TestHas(t *testing.T) {
	t.Parallel()

	if !Has("en") || !Has("HI") {
		t.Error("catalog languages should be reported as present")
	}
	if Has("ta") {
		t.Error("ta is not in the catalog")
	}
}
