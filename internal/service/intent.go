package service

import (
	"regexp"
	"strings"

	"enstp-advisor-go/internal/model"
)

// AttributionAnswer 是“谁创造了你”类问题的固定回答。
const AttributionAnswer = "Cherif tas"

// languageRequest 把一种显式切换请求映射到目标语言。
type languageRequest struct {
	lang    model.Language
	pattern *regexp.Regexp
}

// Go regexp 的 \b 只识别 ASCII 单词边界，因此以非 ASCII 字符开头或结尾的词不加 \b。
const (
	enVerbs = `\b(speak|talk|answer|respond|reply|write|switch|continue|go)\b`
	frVerbs = `(parle|parlez|parler|réponds|répondez|répondre|écris|écrivez|continue|continuez|passe|passez|passons|reviens|revenez|revenir|retour)\b`
	arVerbs = `(تكلم|تحدث|أجب|اجب|رد|اكتب)`
)

var languageRequests = []languageRequest{
	{model.LanguageEnglish, regexp.MustCompile(`(?i)` + enVerbs + `.{0,30}?\s(in|to)\s+english\b`)},
	{model.LanguageEnglish, regexp.MustCompile(`(?i)` + frVerbs + `.{0,30}?\s(en|à l'|a l')\s*anglais\b`)},
	{model.LanguageEnglish, regexp.MustCompile(`(?i)\b(in english|en anglais)\s*(please|pls|svp|s'il (te|vous) pla[iî]t)`)},
	{model.LanguageArabic, regexp.MustCompile(`(?i)` + enVerbs + `.{0,30}?\s(in|to)\s+arabic\b`)},
	{model.LanguageArabic, regexp.MustCompile(`(?i)` + frVerbs + `.{0,30}?\s(en|à l'|a l')\s*arabe\b`)},
	{model.LanguageArabic, regexp.MustCompile(`(?i)\b(in arabic|en arabe)\s*(please|pls|svp|s'il (te|vous) pla[iî]t)`)},
	{model.LanguageArabic, regexp.MustCompile(arVerbs + `\s+(معي\s+)?(باللغة\s+العربية|بالعربية|بالعربي)`)},
	{model.LanguageFrench, regexp.MustCompile(`(?i)` + enVerbs + `.{0,30}?\s(in|to)\s+french\b`)},
	{model.LanguageFrench, regexp.MustCompile(`(?i)` + frVerbs + `.{0,30}?\s(en|au)\s+français`)},
	{model.LanguageFrench, regexp.MustCompile(arVerbs + `\s+(معي\s+)?(باللغة\s+الفرنسية|بالفرنسية|بالفرنسي)`)},
}

// DetectLanguageSwitch 判断学生是否显式要求切换回复语言。
// 同一句中出现多个请求时，以最后出现的为准。
func DetectLanguageSwitch(text string) (model.Language, bool) {
	bestPos := -1
	var best model.Language
	for _, req := range languageRequests {
		locs := req.pattern.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		if pos := locs[len(locs)-1][0]; pos > bestPos {
			bestPos = pos
			best = req.lang
		}
	}
	return best, bestPos >= 0
}

var attributionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwho\s+(created|made|built|invented|developed|designed|programmed)\s+(you|this\s+(bot|app|assistant|chatbot))\b`),
	regexp.MustCompile(`(?i)\bwho\s+(is|are)\s+your\s+(creator|maker|author|developer|inventor)s?\b`),
	regexp.MustCompile(`(?i)\bqui\s+(t'a|vous\s+a|ta|t\s+a)\s+(créé|cree|crée|créée|inventé|invente|conçu|concu|développé|developpe|programmé|fait)`),
	regexp.MustCompile(`(?i)\bqui\s+(est|sont)\s+(ton|votre|tes|vos)\s+(créateur|createur|inventeur|concepteur|développeur|developpeur)`),
	regexp.MustCompile(`(?i)\b(ton|votre)\s+(créateur|createur|inventeur|concepteur)\b`),
	regexp.MustCompile(`من\s+(صنعك|خلقك|برمجك|طورك|أنشأك|انشأك|اخترعك)`),
}

// IsAttributionQuery 判断输入是否在询问助手的创造者。
func IsAttributionQuery(text string) bool {
	text = strings.TrimSpace(text)
	for _, p := range attributionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
