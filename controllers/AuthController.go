package controllers

import (
	"net/http"

	"ledgerbank/services"
	"ledgerbank/session"
	"ledgerbank/utils"
)

// AuthController обрабатывает регистрацию, вход, выход и сброс пароля.
// Каждая форма защищена одноразовой CAPTCHA, привязанной к сессии.
type AuthController struct {
	users    *services.UserService
	captcha  *services.CaptchaService
	sessions *session.Manager
	views    *Views
}

func NewAuthController(users *services.UserService, captcha *services.CaptchaService, sessions *session.Manager, views *Views) *AuthController {
	return &AuthController{
		users:    users,
		captcha:  captcha,
		sessions: sessions,
		views:    views,
	}
}

// Home показывает главную страницу
func (c *AuthController) Home(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	c.views.Render(w, http.StatusOK, "home", ViewData{
		Title:    "Home",
		Username: sess.State.Username,
	})
}

// RegisterPage показывает форму регистрации с новой CAPTCHA
func (c *AuthController) RegisterPage(w http.ResponseWriter, r *http.Request) {
	c.showForm(w, r, "register", ViewData{Title: "Register"})
}

// Register обрабатывает отправку формы регистрации
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	data := ViewData{Title: "Register"}

	if err := r.ParseForm(); err != nil {
		c.fail(w, r, sess, "register", data, &services.ValidationError{Messages: []string{"malformed form"}})
		return
	}
	data.Form = map[string]string{
		"firstname": r.PostFormValue("firstname"),
		"lastname":  r.PostFormValue("lastname"),
		"emailid":   r.PostFormValue("emailid"),
		"username":  r.PostFormValue("username"),
	}

	if err := c.verifyCaptcha(r, sess); err != nil {
		c.fail(w, r, sess, "register", data, err)
		return
	}

	_, err := c.users.Register(r.Context(), services.CreateUserRequest{
		FirstName: r.PostFormValue("firstname"),
		LastName:  r.PostFormValue("lastname"),
		Email:     r.PostFormValue("emailid"),
		Username:  r.PostFormValue("username"),
		Password:  r.PostFormValue("password"),
	})
	if err != nil {
		c.fail(w, r, sess, "register", data, err)
		return
	}

	// ответ CAPTCHA уже израсходован в verifyCaptcha
	if !c.save(w, r, sess) {
		return
	}
	c.views.Render(w, http.StatusOK, "register", ViewData{
		Title:   "Register",
		Success: "Registration successful! Please login.",
	})
}

// LoginPage показывает форму входа с новой CAPTCHA
func (c *AuthController) LoginPage(w http.ResponseWriter, r *http.Request) {
	c.showForm(w, r, "login", ViewData{Title: "Login"})
}

// Login проверяет CAPTCHA и учетные данные и переводит сессию в состояние входа
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	data := ViewData{Title: "Login"}

	if err := r.ParseForm(); err != nil {
		c.fail(w, r, sess, "login", data, &services.ValidationError{Messages: []string{"malformed form"}})
		return
	}
	data.Form = map[string]string{"username": r.PostFormValue("username")}

	if err := c.verifyCaptcha(r, sess); err != nil {
		c.fail(w, r, sess, "login", data, err)
		return
	}

	user, err := c.users.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		c.fail(w, r, sess, "login", data, err)
		return
	}

	if err := c.sessions.Renew(r, sess); err != nil {
		utils.LogError("Failed to renew session: %v", err)
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
		return
	}
	sess.State = session.State{Username: user.Username}
	if !c.save(w, r, sess) {
		return
	}

	utils.LogInfo("User %q logged in", user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout завершает сессию
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if err := c.sessions.Clear(w, r, sess); err != nil {
		utils.LogError("Failed to clear session: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ForgotPasswordPage показывает форму сброса пароля
func (c *AuthController) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	c.showForm(w, r, "forgot_password", ViewData{Title: "Forgot password"})
}

// ForgotPassword заменяет пароль пользователя.
// Код подтверждения не запрашивается: сброс защищен только CAPTCHA.
func (c *AuthController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	data := ViewData{Title: "Forgot password"}

	if err := r.ParseForm(); err != nil {
		c.fail(w, r, sess, "forgot_password", data, &services.ValidationError{Messages: []string{"malformed form"}})
		return
	}
	data.Form = map[string]string{"username": r.PostFormValue("username")}

	if err := c.verifyCaptcha(r, sess); err != nil {
		c.fail(w, r, sess, "forgot_password", data, err)
		return
	}

	_, err := c.users.ResetPassword(r.Context(), services.ResetPasswordRequest{
		Username:    r.PostFormValue("username"),
		NewPassword: r.PostFormValue("new_password"),
	})
	if err != nil {
		c.fail(w, r, sess, "forgot_password", data, err)
		return
	}

	if !c.save(w, r, sess) {
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// verifyCaptcha изымает ответ из хранилища сессий и сверяет с вводом.
// Ответ расходуется при любой попытке.
func (c *AuthController) verifyCaptcha(r *http.Request, sess *session.Session) error {
	answer, err := c.sessions.TakeCaptcha(r.Context(), sess)
	if err != nil {
		return err
	}
	if !c.captcha.Check(answer, r.PostFormValue("captcha_input")) {
		return services.ErrInvalidCaptcha
	}
	return nil
}

// showForm выдает новую CAPTCHA и показывает форму
func (c *AuthController) showForm(w http.ResponseWriter, r *http.Request, page string, data ViewData) {
	sess := currentSession(r)
	data.Username = sess.State.Username
	data.CaptchaQuestion = c.captcha.Issue(&sess.State)
	if !c.save(w, r, sess) {
		return
	}
	c.views.Render(w, http.StatusOK, page, data)
}

// fail показывает ту же форму с сообщением об ошибке и новой CAPTCHA
func (c *AuthController) fail(w http.ResponseWriter, r *http.Request, sess *session.Session, page string, data ViewData, err error) {
	status := errorStatus(err)
	data.Error = errorMessage(err)
	data.Username = sess.State.Username
	data.CaptchaQuestion = c.captcha.Issue(&sess.State)
	if !c.save(w, r, sess) {
		return
	}
	c.views.Render(w, status, page, data)
}

func (c *AuthController) save(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if err := c.sessions.Save(w, r, sess); err != nil {
		utils.LogError("Failed to save session: %v", err)
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
		return false
	}
	return true
}

// currentSession возвращает сессию, прикрепленную middleware.Sessions
func currentSession(r *http.Request) *session.Session {
	if sess := session.FromContext(r.Context()); sess != nil {
		return sess
	}
	panic(session.ErrNoSession)
}
