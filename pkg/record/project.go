package record

// Project restricts each record to the fields named in allowList, in
// allow-list order. Fields absent from a source record are set to an
// explicit null value, never dropped. An empty or nil allow-list is
// the identity projection and returns the input unchanged.
//
// Records are processed independently and output order matches input
// order.
func Project(records []Record, allowList []string) []Record {
	if len(allowList) == 0 {
		return records
	}

	projected := make([]Record, 0, len(records))
	for _, rec := range records {
		var p Record
		for _, field := range allowList {
			v, _ := rec.Get(field) // absent -> nil
			p.Set(field, v)
		}
		projected = append(projected, p)
	}
	return projected
}
