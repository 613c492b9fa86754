package services

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"ledgerbank/session"
)

// CaptchaService выдает простые арифметические проверки против ботов.
// Это не граница безопасности, поэтому используется math/rand.
type CaptchaService struct {
	intn func(n int) int
}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{intn: rand.IntN}
}

// Generate возвращает вопрос вида "a + b" и ответ - десятичную запись суммы.
// a и b независимо выбираются из [1, 99].
func (c *CaptchaService) Generate() (question, answer string) {
	a := c.intn(99) + 1
	b := c.intn(99) + 1
	return strconv.Itoa(a) + " + " + strconv.Itoa(b), strconv.Itoa(a + b)
}

// Issue создает новую проверку, сохраняет ответ в сессии и возвращает вопрос
func (c *CaptchaService) Issue(state *session.State) string {
	question, answer := c.Generate()
	state.CaptchaAnswer = answer
	return question
}

// Check сравнивает ввод без пробелов по краям с ответом, уже изъятым из сессии.
// Пустой ответ означает, что проверка не выдавалась или уже израсходована.
func (c *CaptchaService) Check(answer, input string) bool {
	if answer == "" {
		return false
	}
	return strings.TrimSpace(input) == answer
}
