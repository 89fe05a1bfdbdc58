package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/thriftease/internal/middleware"
	"github.com/hitoshi/thriftease/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページ名。templates/配下のファイル名に対応する。
const (
	pageIndex     = "index.html"
	pageLogin     = "login.html"
	pageRegister  = "register.html"
	pageProtected = "protected.html"
	pageUsers     = "users.html"
	pageUserNew   = "user_new.html"
	pageError     = "error.html"
)

var pages = parsePages(pageIndex, pageLogin, pageRegister, pageProtected, pageUsers, pageUserNew, pageError)

// parsePages は各ページをlayout.htmlと組み合わせてパースする。
func parsePages(names ...string) map[string]*template.Template {
	m := make(map[string]*template.Template, len(names))
	for _, name := range names {
		m[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return m
}

// formValues はエラー時にフォームへ再表示する入力値。パスワードは含めない。
type formValues struct {
	Username  string
	FullName  string
	Address   string
	Telephone string
}

// pageData はテンプレートに渡すデータ。
type pageData struct {
	Title     string
	CSRFToken string
	Principal *model.Principal
	Error     string
	Form      formValues
	Users     []*model.User
}

// render はページをバッファに描画してからステータスコードとともに書き込む。
// 描画に失敗した場合は途中までのHTMLを返さず500とする。
func render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	data.CSRFToken = middleware.CSRFTokenFromContext(r.Context())

	t, ok := pages[page]
	if !ok {
		slog.Error("unknown page template", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError は汎用エラーページを描画する。原因はログにのみ記録すること。
func renderError(w http.ResponseWriter, r *http.Request, status int) {
	message := "Something went wrong. Please try again later."
	if status < http.StatusInternalServerError {
		message = "The request could not be processed."
	}
	render(w, r, status, pageError, pageData{
		Title: http.StatusText(status),
		Error: message,
	})
}
