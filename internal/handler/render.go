package handler

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mancala/internal/game"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates implements echo.Renderer over the embedded page templates.
type Templates struct {
	t *template.Template
}

func NewTemplates() *Templates {
	return &Templates{t: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
}

func (t *Templates) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.t.ExecuteTemplate(w, name, data)
}

// boardRow pairs a human pot with the AI pot drawn beside it.
type boardRow struct {
	Pot   int
	Human int
	AI    int
}

type boardView struct {
	State     string
	Title     string
	Playable  bool
	AIBase    int
	HumanBase int
	Rows      []boardRow
}

// newBoardView lays the board out vertically: the AI's base on top, the
// human's pots down the left from the highest number, the AI's pots down
// the right, and the human's base at the foot.
func newBoardView(b game.Board, playable bool) boardView {
	half := b.Half()
	v := boardView{
		State:     b.String(),
		Playable:  playable,
		AIBase:    b.At(half),
		HumanBase: b.At(0),
	}
	for i := 0; i < b.Pots(); i++ {
		pot := half - 1 - i
		v.Rows = append(v.Rows, boardRow{Pot: pot, Human: b.At(pot), AI: b.At(half + 1 + i)})
	}
	return v
}
