package app

//viewc:component template=panel.html
type Panel struct{}
