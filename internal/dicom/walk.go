package dicom

// Walk calls fn for every element of ds in tag order, descending into
// sequence items depth first. depth is 0 for the elements of ds.
func (ds *Dataset) Walk(fn func(depth int, e *Element) error) error {
	return ds.walk(0, fn)
}

func (ds *Dataset) walk(depth int, fn func(int, *Element) error) error {
	for e := range ds.All() {
		if err := fn(depth, e); err != nil {
			return err
		}
		for _, item := range e.items {
			if err := item.walk(depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
