package export

import "fmt"

// Column is one exported field. Key indexes Row values and Label is the printed header.
type Column struct {
	Key   string
	Label string
	Width float64
}

// Row maps column keys to rendered cell values.
type Row map[string]string

// Dataset is a titled table ready for rendering.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []Row
}

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	return nil
}

func (d Dataset) labels() []string {
	labels := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		labels[i] = col.Label
		if labels[i] == "" {
			labels[i] = col.Key
		}
	}
	return labels
}
