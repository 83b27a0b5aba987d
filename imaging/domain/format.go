package domain

import "sort"

// FormatTag is the imaging format assigned to a member file
type FormatTag string

const (
	FormatNIfTI1 FormatTag = "NIfTI-1"
	FormatPNG    FormatTag = "PNG"
	FormatJPEG   FormatTag = "JPEG"
	FormatMINC   FormatTag = "MINC"
	FormatNRRD   FormatTag = "NRRD"
	FormatBRIK   FormatTag = "BRIK"
	FormatDICOM  FormatTag = "DICOM"
	FormatOther  FormatTag = "other"
)

// AllFormats lists every format tag in a stable order
var AllFormats = []FormatTag{
	FormatDICOM,
	FormatNIfTI1,
	FormatMINC,
	FormatBRIK,
	FormatNRRD,
	FormatPNG,
	FormatJPEG,
	FormatOther,
}

// FileClassification maps each format tag to the member file names of that format.
// Every tag is always present, possibly with an empty list.
// The BRIK list holds base names (no .HEAD/.BRIK extension) of complete pairs.
type FileClassification map[FormatTag][]string

// NewFileClassification returns a classification with an empty bucket for every tag
func NewFileClassification() FileClassification {
	fc := make(FileClassification, len(AllFormats))
	for _, tag := range AllFormats {
		fc[tag] = []string{}
	}
	return fc
}

// Add appends name to the bucket for tag
func (fc FileClassification) Add(tag FormatTag, name string) {
	fc[tag] = append(fc[tag], name)
}

// Sort orders every bucket lexically
func (fc FileClassification) Sort() {
	for _, names := range fc {
		sort.Strings(names)
	}
}

// Count returns the total number of entries across all buckets
func (fc FileClassification) Count() int {
	n := 0
	for _, names := range fc {
		n += len(names)
	}
	return n
}

// Clone returns a deep copy so callers cannot mutate a cached classification
func (fc FileClassification) Clone() FileClassification {
	out := make(FileClassification, len(fc))
	for tag, names := range fc {
		out[tag] = append([]string{}, names...)
	}
	return out
}
