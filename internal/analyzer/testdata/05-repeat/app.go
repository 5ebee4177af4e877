package app

//viewc:component template=app.html
//viewc:use Row
type App struct {
	Rows     []string
	Selected int
}

func (a *App) Remove(i int) {
	a.Rows = append(a.Rows[:i], a.Rows[i+1:]...)
}
