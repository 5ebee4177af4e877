package app

//viewc:component template=app.html
//viewc:use Panel
type App struct {
	Total int
}

func (a *App) OnActivated() {
	a.Total++
}
