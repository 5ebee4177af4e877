package app

//viewc:component template=row.html
type Row struct {
	Label    string `input:"required"`
	Position int    `input:""`
	Removed  func() `output:""`
}

func (r *Row) Delete() {
	r.Removed()
}
