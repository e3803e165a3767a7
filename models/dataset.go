package models

// Record is one row of an uploaded dataset.
type Record struct {
	ID     string `json:"id"`
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// Dataset is the ordered, bounded set of records loaded from one upload.
type Dataset struct {
	FileName  string   `json:"file_name"`
	Namespace string   `json:"namespace"`
	Records   []Record `json:"records"`
	// Dropped counts rows beyond the row limit that were not loaded.
	Dropped int `json:"dropped"`

	byID map[string]int
}

// NewDataset builds a dataset and its id lookup table.
func NewDataset(fileName, namespace string, records []Record, dropped int) *Dataset {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.ID] = i
	}
	return &Dataset{
		FileName:  fileName,
		Namespace: namespace,
		Records:   records,
		Dropped:   dropped,
		byID:      byID,
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Lookup finds a record by exact id.
func (d *Dataset) Lookup(id string) (Record, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Record{}, false
	}
	return d.Records[i], true
}
