package classify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dfryer1193/ndar/imaging/domain"
)

const (
	dicomMagicOffset = 128
	dicomMagic       = "DICM"
)

// suffixes are checked in order; first match wins. Matching is case-sensitive.
var suffixes = []struct {
	suffix string
	tag    domain.FormatTag
}{
	{".nii.gz", domain.FormatNIfTI1},
	{".png", domain.FormatPNG},
	{".jpg", domain.FormatJPEG},
	{".mnc", domain.FormatMINC},
	{".nrrd", domain.FormatNRRD},
	{".HEAD", domain.FormatBRIK},
	{".BRIK", domain.FormatBRIK},
}

// File returns the format of the file at path.
// Known extensions are decided from the name alone. Anything else is opened and
// checked for the DICOM preamble magic at offset 128; files too short to hold it are "other".
// BRIK results are provisional until HEAD/BRIK pairing.
func File(path string) (domain.FormatTag, error) {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s.suffix) {
			return s.tag, nil
		}
	}

	isDICOM, err := hasDICOMMagic(path)
	if err != nil {
		return "", fmt.Errorf("%w: sniffing %s: %w", domain.ErrClassification, path, err)
	}
	if isDICOM {
		return domain.FormatDICOM, nil
	}

	return domain.FormatOther, nil
}

func hasDICOMMagic(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, len(dicomMagic))
	_, err = f.ReadAt(buf, dicomMagicOffset)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return string(buf) == dicomMagic, nil
}
