package controllers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"ledgerbank/models"
	"ledgerbank/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home",
	"register",
	"login",
	"forgot_password",
	"deposit",
	"withdraw",
	"balance",
	"history",
	"profile",
}

// ViewData - данные, передаваемые в шаблон страницы
type ViewData struct {
	Title           string
	Username        string
	Error           string
	Success         string
	CaptchaQuestion string
	Form            map[string]string
	Balance         int64
	Transactions    []models.Transaction
	User            *models.User
}

// Views хранит разобранные шаблоны страниц
type Views struct {
	pages map[string]*template.Template
}

// NewViews разбирает встроенные шаблоны; каждая страница собирается с общим layout
func NewViews() (*Views, error) {
	v := &Views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// Render выполняет шаблон в буфер, чтобы ошибка шаблона не оставила половину страницы
func (v *Views) Render(w http.ResponseWriter, status int, page string, data ViewData) {
	t, ok := v.pages[page]
	if !ok {
		utils.LogError("Unknown page %q", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		utils.LogError("Failed to render %s: %v", page, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
