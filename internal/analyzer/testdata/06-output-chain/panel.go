package app

//viewc:component template=panel.html
//viewc:use Button
type Panel struct {
	clicks    int
	Activated func() `output:""`
}

func (p *Panel) OnClick() {
	p.clicks++
	p.Activated()
}
