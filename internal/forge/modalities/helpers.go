package modalities

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// floatToDS converts a float64 to a DICOM Decimal String.
func floatToDS(f float64) string {
	return fmt.Sprintf("%.6g", f)
}

// intToIS converts an int to a DICOM Integer String.
func intToIS(i int) string {
	return strconv.Itoa(i)
}

// attr is one value written by PutModalityElements.
type attr struct {
	tag   tag.Tag
	vr    dicom.VR
	value string
}

func putAll(ds *dicom.Dataset, attrs []attr) error {
	var errs []error
	for _, a := range attrs {
		if err := ds.PutString(a.tag, a.vr, a.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.tag, err))
		}
	}
	return errors.Join(errs...)
}
