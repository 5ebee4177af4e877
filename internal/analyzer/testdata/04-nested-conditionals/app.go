package app

//viewc:component template=app.html
type App struct {
	A bool
	B bool
	C bool
}
