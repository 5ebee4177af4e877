package app

//viewc:component template=button.html
type Button struct {
	Pressed bool
	Clicked func() `output:""`
}

func (b *Button) Press() {
	b.Pressed = true
	b.Clicked()
}
