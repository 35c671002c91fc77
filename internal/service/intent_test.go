package service

import (
	"testing"

	"enstp-advisor-go/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguageSwitch(t *testing.T) {
	cases := []struct {
		input string
		want  model.Language
		ok    bool
	}{
		{"Can you speak in English please?", model.LanguageEnglish, true},
		{"Please answer in english", model.LanguageEnglish, true},
		{"Parle-moi en anglais", model.LanguageEnglish, true},
		{"Réponds en anglais stp", model.LanguageEnglish, true},
		{"écris en anglais", model.LanguageEnglish, true},
		{"parle en arabe", model.LanguageArabic, true},
		{"respond to me in Arabic", model.LanguageArabic, true},
		{"تكلم معي بالعربية", model.LanguageArabic, true},
		{"Reviens en français s'il te plaît", model.LanguageFrench, true},
		{"switch back to French", model.LanguageFrench, true},
		{"Speak in English. Non, finalement parle en arabe", model.LanguageArabic, true},
		{"J'aime la résistance des matériaux", "", false},
		{"Les cours se passent en anglais ?", "", false},
		{"Le cours d'Anglais Technique est-il difficile ?", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := DetectLanguageSwitch(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestIsAttributionQuery(t *testing.T) {
	positives := []string{
		"Who created you?",
		"who made this bot",
		"Who is your creator?",
		"Qui t'a créé ?",
		"Qui vous a conçu ?",
		"Qui est ton créateur",
		"من صنعك؟",
	}
	for _, in := range positives {
		assert.True(t, IsAttributionQuery(in), in)
	}

	negatives := []string{
		"Qui enseigne la géotechnique ?",
		"Who teaches bridges in DIB?",
		"Je préfère les structures",
	}
	for _, in := range negatives {
		assert.False(t, IsAttributionQuery(in), in)
	}
}
