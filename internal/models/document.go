package models

// Document is an uploaded file held in memory until the profile commit.
type Document struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data,omitempty"`
}

func (d *Document) Present() bool {
	return d != nil && d.Name != "" && len(d.Data) > 0
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Data = append([]byte(nil), d.Data...)
	return &c
}
