package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/oalbalushi/tendering-system/internal/gateway"
)

// TwilioSignature проверяет подпись X-Twilio-Signature входящего вебхука.
// Применяется только в боевом режиме: запрос с неверной подписью получает 403
// и не доходит до обработчика.
func TwilioSignature(authToken string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}

			requestURL := requestURL(r)
			signature := r.Header.Get("X-Twilio-Signature")

			if !gateway.ValidateSignature(authToken, requestURL, r.PostForm, signature) {
				logger.Warn("invalid webhook signature",
					zap.String("url", requestURL),
					zap.String("remote", r.RemoteAddr),
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
