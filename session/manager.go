package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Manager связывает cookie клиента с состоянием в Store.
// Cookie содержит HS256-токен: jti - идентификатор сессии, exp - момент последней
// записи плюс ttl. Чтение сессии срок не продлевает.
type Manager struct {
	store      Store
	secret     []byte
	ttl        time.Duration
	cookieName string
	now        func() time.Time
}

func NewManager(store Store, secret []byte, ttl time.Duration, cookieName string) *Manager {
	return &Manager{
		store:      store,
		secret:     secret,
		ttl:        ttl,
		cookieName: cookieName,
		now:        time.Now,
	}
}

// Load возвращает сессию запроса. Отсутствующая, поддельная или истекшая cookie
// дает новую анонимную сессию; ошибка возвращается только при сбое Store.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return m.fresh(), nil
	}

	id, err := m.parseToken(cookie.Value)
	if err != nil {
		return m.fresh(), nil
	}

	state, ok, err := m.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return m.fresh(), nil
	}

	return &Session{ID: id, State: state}, nil
}

// Save сохраняет состояние и заново выдает cookie. Должен вызываться до записи тела ответа.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if err := m.store.Save(r.Context(), s.ID, s.State, m.ttl); err != nil {
		return err
	}

	now := m.now()
	token, err := m.signToken(s.ID, now)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear удаляет состояние сессии и стирает cookie у клиента
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request, s *Session) error {
	if err := m.store.Delete(r.Context(), s.ID); err != nil {
		return err
	}
	s.State = State{}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Renew выдает сессии новый идентификатор и удаляет состояние под старым.
// Вызывается при входе, чтобы идентификатор анонимной сессии не пережил аутентификацию.
func (m *Manager) Renew(r *http.Request, s *Session) error {
	if err := m.store.Delete(r.Context(), s.ID); err != nil {
		return err
	}
	s.ID = uuid.NewString()
	return nil
}

// TakeCaptcha забирает ответ CAPTCHA из Store, а не из загруженной копии состояния:
// из параллельных запросов одной сессии ответ получает только один
func (m *Manager) TakeCaptcha(ctx context.Context, s *Session) (string, error) {
	answer, err := m.store.TakeCaptcha(ctx, s.ID)
	if err != nil {
		return "", err
	}
	s.State.CaptchaAnswer = ""
	return answer, nil
}

func (m *Manager) fresh() *Session {
	return &Session{ID: uuid.NewString()}
}

func (m *Manager) signToken(id string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.ID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.ID, nil
}
