package app

//viewc:component template=counter.html
type Counter struct {
	Initial int `input:"required"`
	Step    int `input:""`
	Count   int
	Changed func(value int) `output:""`
}

func (c *Counter) Increment() {
	c.Count += c.Step
	c.Changed(c.Count)
}
