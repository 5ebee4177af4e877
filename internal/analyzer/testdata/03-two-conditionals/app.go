package app

//viewc:component template=app.html
//viewc:use Panel
type App struct {
	ShowHeader bool
	ShowFooter bool
	Title      string
}
