package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ページ名
const (
	PageHome            = "home"
	PageRegister        = "register"
	PageConnectCalendar = "connect_calendar"
	PageSchedule        = "schedule"
	PageConfirm         = "confirm"
	PageError           = "error"
)

var pageNames = []string{
	PageHome,
	PageRegister,
	PageConnectCalendar,
	PageSchedule,
	PageConfirm,
	PageError,
}

// Page はレイアウトに渡す共通データ。
type Page struct {
	Title       string
	Description string
	CSRFToken   string
	Data        any
}

// Renderer は埋め込みテンプレートからページを描画する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer はレイアウトとページごとのテンプレートを解析する。
func NewRenderer(loc Localizer) (*Renderer, error) {
	funcs := template.FuncMap{
		"t": func(key string, args ...any) string {
			return loc.Sprintf(key, args...)
		},
	}

	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		if _, err := tmpl.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// MustNewRenderer はNewRendererのパニック版。
func MustNewRenderer(loc Localizer) *Renderer {
	r, err := NewRenderer(loc)
	if err != nil {
		panic(err)
	}
	return r
}

// Render はページをバッファに描画してからwに書き込む。
// 描画途中で失敗した場合にwへ部分的なHTMLを書かない。
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("failed to render page %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
