package app

const Label = "Clicks"

//viewc:component template=app.html style=app.css
//viewc:use Counter
type App struct {
	Start int
	Last  int
}

func (a *App) OnChanged(value int) {
	a.Last = value
}
