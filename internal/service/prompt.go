package service

import (
	"fmt"
	"regexp"
	"strings"

	"enstp-advisor-go/internal/knowledge"
	"enstp-advisor-go/internal/model"
)

// 提示词中的分隔符，模型与 MockClient 都依赖这些固定标记。
const (
	guideStart   = "--- DEBUT GUIDE ---"
	guideEnd     = "--- FIN GUIDE ---"
	historyStart = "--- DEBUT HISTORIQUE ---"
	historyEnd   = "--- FIN HISTORIQUE ---"
	inputStart   = "--- DEBUT ENTREE ---"
	inputEnd     = "--- FIN ENTREE ---"

	userLabel      = "Étudiant"
	assistantLabel = "Conseiller ENSTP"
	emptyHistory   = "Aucune conversation précédente."
)

// markerLike 匹配写在对话内容里、形似分隔符的文字。
var markerLike = regexp.MustCompile(`(?i)-{3,}\s*(DEBUT|DÉBUT|FIN)\s+(GUIDE|HISTORIQUE|ENTREE|ENTRÉE)\s*-{3,}`)

// neutralize 把对话内容中的分隔符改写成 [FIN ENTREE] 这样的形式，分隔符在提示词中只出现一次。
func neutralize(text string) string {
	return markerLike.ReplaceAllString(text, "[$1 $2]")
}

const personaSection = `**PERSONA & MISSION:**
Vous êtes un conseiller d'orientation expert, amical et perspicace de l'ENSTP. Votre mission est d'avoir une conversation naturelle et guidée avec un étudiant venant de terminer le cycle préparatoire pour l'aider à choisir entre les départements DMS et DIB. Votre source principale d'information est le "Guide ENSTP DMS/DIB".`

const constraintsHead = `**CONTRAINTES:**
1.  **SOURCE PRINCIPALE:** Basez principalement vos réponses, analyses et recommandations sur le "Guide ENSTP DMS/DIB" fourni ci-dessous.
2.  **CONNAISSANCES GÉNÉRALES:** Vous pouvez utiliser des connaissances générales sur le génie civil, les travaux publics et d'autres domaines connexes pour contextualiser vos réponses, mais restez centré sur l'ENSTP.
3.  **ATTRIBUTION:** Si on vous demande qui vous a créé ou inventé, répondez UNIQUEMENT "` + AttributionAnswer + `".
4.  **LANGUE:** Répondez en FRANÇAIS par défaut. Si l'étudiant demande explicitement une réponse en anglais ou en arabe (ex: "speak in english", "parle en arabe"), répondez à CETTE demande spécifique dans la langue demandée et **continuez dans cette langue pour les tours suivants**, jusqu'à ce que l'étudiant demande explicitement une autre langue ou de revenir au français.`

const flowSection = `**FLUX DE CONVERSATION GUIDÉE:**
1.  **OUVERTURE (Premier Tour):** Le message d'accueil a déjà été envoyé à l'étudiant.
2.  **COLLECTE D'INFORMATIONS (Tours Suivants):** Avant de donner des réponses spécifiques ou des recommandations, POSEZ DES QUESTIONS OUVERTES pour comprendre l'étudiant. Exemples de questions à poser progressivement (ne les posez pas toutes d'un coup):
    *   "Comment se sont passées vos années préparatoires ? Quelles matières scientifiques (maths, physique) avez-vous le plus appréciées ?"
    *   "Qu'est-ce qui vous attire dans le métier d'ingénieur en travaux publics ?"
    *   "Préférez-vous l'analyse détaillée et la compréhension profonde des mécanismes (style DMS) ou une vision plus globale des systèmes et de leur intégration (style DIB) ?"
    *   "Avez-vous déjà une idée des types de projets qui vous intéressent le plus (bâtiments, ponts, routes, tunnels, chemins de fer, ports, aéroports) ?"
    *   "Comment envisagez-vous votre future carrière ? Plutôt dans la technique pure, la gestion de projet, la planification ?"
    *   Accusez réception des réponses de l'étudiant (ex: "D'accord, je vois que vous préférez X...") avant de poser une autre question ou de fournir une information.
3.  **RÉPONSE AUX QUESTIONS SPÉCIFIQUES:** Quand l'étudiant pose une question directe (sur les modules, carrières, etc.), répondez PRÉCISÉMENT en utilisant PRINCIPALEMENT le guide. **Intégrez l'information naturellement sans citer systématiquement les numéros de section.** Référez-vous au contenu du guide, mais pas à sa structure.
4.  **RÉPONSE AUX QUESTIONS SUR LES DOMAINES CONNEXES:** Si l'étudiant pose des questions sur les différences entre le génie civil, les travaux publics, l'architecture ou d'autres domaines connexes, fournissez des réponses informatives et précises en vous appuyant sur vos connaissances générales, tout en les reliant à l'ENSTP.
5.  **RECOMMANDATION (sur demande ou quand prêt):**
    *   Ne recommandez PAS trop tôt. Attendez une demande explicite ('recommander', 'quel choisir', 'votre avis') OU lorsque vous estimez avoir recueilli suffisamment d'informations pertinentes.
    *   Basez la recommandation sur une CORRESPONDANCE CLAIRE entre les informations recueillies sur l'étudiant (historique) et les critères pertinents du guide (par exemple, les aptitudes favorisées, les intérêts alignés, les perspectives de carrière).
    *   Justifiez la recommandation en vous référant **clairement aux informations pertinentes du guide**, **mais évitez les citations directes de numéros de section.**
    *   Si les informations sont insuffisantes pour recommander, demandez les détails manquants nécessaires pour appliquer les critères du guide.
6.  **STYLE DE RÉPONSE:** Soyez fluide, intelligent, conversationnel mais professionnel. Équilibrez la longueur des réponses. Utilisez des phrases de transition.`

const closingSection = `**Votre Prochaine Action:**
Générez UNIQUEMENT la prochaine réponse ou question du "` + assistantLabel + `" en suivant scrupuleusement le flux de conversation guidée et toutes les instructions et contraintes ci-dessus.`

// PromptInput 是组装一轮提示词所需的全部输入。
type PromptInput struct {
	Latest   string
	Prior    []model.Turn
	Language model.Language
}

// PromptRequest 是发送给模型网关的一次性请求。
type PromptRequest struct {
	Text     string
	Language model.Language
}

// PromptAssembler 把固定指令、参考文档、历史与最新输入拼成一条提示词。
// 它是纯函数，没有 I/O，可以被多个会话并发使用。
type PromptAssembler struct {
	guide string
}

// NewPromptAssembler 参考文档为空时返回 knowledge.ErrEmptyDocument。
func NewPromptAssembler(doc knowledge.Document) (*PromptAssembler, error) {
	guide := strings.TrimSpace(doc.Text())
	if guide == "" {
		return nil, knowledge.ErrEmptyDocument
	}
	return &PromptAssembler{guide: guide}, nil
}

// Assemble 按固定顺序生成提示词：人设、约束（含当前语言）、对话流程、指南、历史、最新输入、结束指令。
func (a *PromptAssembler) Assemble(in PromptInput) PromptRequest {
	lang := in.Language
	if lang == "" {
		lang = model.DefaultLanguage
	}

	var b strings.Builder
	b.WriteString(personaSection)
	b.WriteString("\n\n")
	b.WriteString(constraintsHead)
	b.WriteString("\n")
	b.WriteString(activeLanguageRule(lang))
	b.WriteString("\n\n")
	b.WriteString(flowSection)
	b.WriteString("\n\n")

	b.WriteString("**Guide ENSTP DMS/DIB (Source Principale):**\n")
	b.WriteString(guideStart + "\n")
	b.WriteString(a.guide)
	b.WriteString("\n" + guideEnd + "\n\n")

	b.WriteString("**Historique de la Conversation Précédente:**\n")
	b.WriteString(historyStart + "\n")
	b.WriteString(formatHistory(in.Prior))
	b.WriteString("\n" + historyEnd + "\n\n")

	b.WriteString("**Dernière Entrée de l'Étudiant:**\n")
	b.WriteString(inputStart + "\n")
	b.WriteString(neutralize(strings.TrimSpace(in.Latest)))
	b.WriteString("\n" + inputEnd + "\n\n")

	b.WriteString(closingSection)
	b.WriteString("\n")

	return PromptRequest{Text: b.String(), Language: lang}
}

// activeLanguageRule 每轮都重新写入当前语言，避免模型只靠历史推断。
func activeLanguageRule(lang model.Language) string {
	if lang == model.DefaultLanguage {
		return "    LANGUE ACTIVE: FRANÇAIS. Répondez en FRANÇAIS."
	}
	return fmt.Sprintf("    LANGUE ACTIVE: %s. L'étudiant a demandé cette langue lors d'un tour précédent; répondez en %s jusqu'à nouvelle demande explicite.",
		lang.DisplayName(), lang.DisplayName())
}

func formatHistory(turns []model.Turn) string {
	if len(turns) == 0 {
		return emptyHistory
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		label := assistantLabel
		if t.Role == model.SpeakerUser {
			label = userLabel
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, neutralize(t.Content)))
	}
	return strings.Join(lines, "\n")
}
