package metadata

// Field names a recognized metadata field
type Field string

// Recognized fields, in output order
const (
	FieldVersion          Field = "version"
	FieldProductName      Field = "productName"
	FieldFileDescription  Field = "fileDescription"
	FieldLegalCopyright   Field = "legalCopyright"
	FieldOriginalFilename Field = "originalFilename"
	FieldCompanyName      Field = "companyName"
)

// Fields lists every recognized field
var Fields = []Field{
	FieldVersion,
	FieldProductName,
	FieldFileDescription,
	FieldLegalCopyright,
	FieldOriginalFilename,
	FieldCompanyName,
}

// Record is the normalized metadata of a bundle or executable. Fields the
// descriptor does not carry are empty strings.
type Record struct {
	Version          string `json:"version"`
	ProductName      string `json:"productName"`
	FileDescription  string `json:"fileDescription"`
	LegalCopyright   string `json:"legalCopyright"`
	OriginalFilename string `json:"originalFilename"`
	CompanyName      string `json:"companyName"`
}

// newRecord builds a Record from the string values a loader extracted
func newRecord(values map[Field]string) Record {
	return Record{
		Version:          values[FieldVersion],
		ProductName:      values[FieldProductName],
		FileDescription:  values[FieldFileDescription],
		LegalCopyright:   values[FieldLegalCopyright],
		OriginalFilename: values[FieldOriginalFilename],
		CompanyName:      values[FieldCompanyName],
	}
}

// Get returns the value of a field
func (r Record) Get(f Field) string {
	switch f {
	case FieldVersion:
		return r.Version
	case FieldProductName:
		return r.ProductName
	case FieldFileDescription:
		return r.FileDescription
	case FieldLegalCopyright:
		return r.LegalCopyright
	case FieldOriginalFilename:
		return r.OriginalFilename
	case FieldCompanyName:
		return r.CompanyName
	}
	return ""
}

// ToMap converts the record to a map that always holds all six keys
func (r Record) ToMap() map[string]string {
	m := make(map[string]string, len(Fields))
	for _, f := range Fields {
		m[string(f)] = r.Get(f)
	}
	return m
}

// IsEmpty reports whether every field is empty
func (r Record) IsEmpty() bool {
	return r == Record{}
}
