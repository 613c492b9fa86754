package middleware

import (
	"net/http"

	"ledgerbank/session"
	"ledgerbank/utils"
)

// LoginPath - точка входа, куда перенаправляются неаутентифицированные запросы
const LoginPath = "/login"

// Sessions загружает сессию клиента и прикрепляет ее к контексту запроса
func Sessions(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := manager.Load(r)
			if err != nil {
				utils.LogError("Failed to load session: %v", err)
				http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}

// RequireLogin перенаправляет анонимного клиента на страницу входа.
// Отсутствие входа - не ошибка, а навигация.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil || !sess.State.Authenticated() {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CurrentUsername возвращает имя вошедшего пользователя из контекста
func CurrentUsername(r *http.Request) (string, bool) {
	sess := session.FromContext(r.Context())
	if sess == nil || !sess.State.Authenticated() {
		return "", false
	}
	return sess.State.Username, true
}
