package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AboutText 是“关于”页面的说明文字。
const AboutText = `### Votre guide personnel pour l'orientation à l'ENSTP

Bienvenue dans votre conseiller d'orientation intelligent !

J'ai été créé par **Cherif Tas** pour aider les étudiants à explorer leurs options à l'ENSTP. Au lieu de parcourir des brochures ou d'attendre un rendez-vous d'orientation, vous pouvez simplement discuter avec moi comme avec un ami bien informé.

✨ **Ce que je peux faire pour vous:**
- Répondre à vos questions sur votre parcours académique
- Vous aider à découvrir quelle spécialisation correspond le mieux à votre profil
- Clarifier vos doutes sur les débouchés professionnels
- Vous aider à prendre une décision éclairée basée sur vos forces et aspirations

👇 **Pour commencer:**
Partagez simplement vos intérêts, vos forces académiques ou vos questions sur votre futur parcours.`

// RateLimitNotice 提醒学生服务端存在调用频率限制。
const RateLimitNotice = "⚠️ L'API ne peut pas supporter un grand nombre de requêtes. Si vous recevez une erreur de limite d'API, veuillez patienter quelques instants avant de réessayer."

// SystemHandler 提供健康检查与“关于”信息。
type SystemHandler struct {
	provider string
}

func NewSystemHandler(provider string) *SystemHandler {
	return &SystemHandler{provider: provider}
}

// Health 用于存活探测。
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"status": "ok"}})
}

// About 返回应用的介绍、署名与使用提示。
func (h *SystemHandler) About(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"title":    "Conseiller ENSTP - Votre Guide Intelligent",
			"about":    AboutText,
			"notice":   RateLimitNotice,
			"credits":  "Créé par: Cherif Tas",
			"provider": h.provider,
		},
	})
}
