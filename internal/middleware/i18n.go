// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
)

// I18nMiddleware picks the first supported language from Accept-Language,
// e.g. "es-EC,es;q=0.9,en;q=0.8" selects "es".
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", negotiate(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func negotiate(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		base := strings.ToLower(strings.FieldsFunc(tag, func(r rune) bool { return r == '-' || r == '_' })[0])
		if i18n.IsSupported(base) {
			return base
		}
	}
	return i18n.DefaultLanguage()
}
