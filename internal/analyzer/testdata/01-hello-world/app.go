package app

//viewc:component template=app.html
type App struct {
	Greeting string
}
