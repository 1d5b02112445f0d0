package corruption

import (
	"fmt"
	"math/rand/v2"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Private creators written by the vendor blocks.
const (
	SiemensCSACreator      = "SIEMENS CSA HEADER"
	SiemensNonImageCreator = "SIEMENS CSA NON-IMAGE"
	GEIdentCreator         = "GEMS_IDEN_01"
	GEParamCreator         = "GEMS_PARM_01"
	PhilipsImagingCreator  = "Philips Imaging DD 001"
	PhilipsMRCreator       = "Philips MR Imaging DD 001"
	PhilipsMRCreator5      = "Philips MR Imaging DD 005"
)

func reserve(ds *dicom.Dataset, group uint16, creator string, low uint8) (tag.Tag, error) {
	t, ok := ds.ResolvePrivateTag(tag.New(group, 0x1000|uint16(low)), creator, true)
	if !ok {
		return 0, fmt.Errorf("%s in group %04X: %w", creator, group, dicom.ErrPrivateBlockUnavailable)
	}
	return t, nil
}

func putPrivateBytes(ds *dicom.Dataset, group uint16, creator string, low uint8, vr dicom.VR, b []byte) error {
	t, err := reserve(ds, group, creator, low)
	if err != nil {
		return err
	}
	return ds.PutBytes(t, vr, b)
}

// putPrivateSequence stores a one item private sequence and returns the
// item.
func putPrivateSequence(ds *dicom.Dataset, group uint16, creator string, low uint8) (*dicom.Dataset, error) {
	t, err := reserve(ds, group, creator, low)
	if err != nil {
		return nil, err
	}
	seq, err := ds.PutSequence(t)
	if err != nil {
		return nil, err
	}
	return seq.NewItem()
}

// putSiemens writes both CSA headers and the (0029,xx02) non-image
// sequence whose large OB payload trips fragile readers.
func putSiemens(ds *dicom.Dataset, rng *rand.Rand) error {
	if _, err := ds.PutPrivate(0x0029, SiemensCSACreator, 0x08, dicom.CS, "IMAGE NUM 4"); err != nil {
		return err
	}
	if err := putPrivateBytes(ds, 0x0029, SiemensCSACreator, 0x10, dicom.OB, csaImageHeader(rng)); err != nil {
		return err
	}
	if err := putPrivateBytes(ds, 0x0029, SiemensCSACreator, 0x20, dicom.OB, csaSeriesHeader(rng)); err != nil {
		return err
	}
	item, err := putPrivateSequence(ds, 0x0029, SiemensNonImageCreator, 0x02)
	if err != nil {
		return err
	}
	return putPrivateBytes(item, 0x0029, SiemensNonImageCreator, 0x00, dicom.OB, noise(rng, 5120, 4096))
}

func putGE(ds *dicom.Dataset, rng *rand.Rand) error {
	version := fmt.Sprintf("DV%d.%d_%d_M5", 20+rng.IntN(10), rng.IntN(10), rng.IntN(100))
	if _, err := ds.PutPrivate(0x0009, GEIdentCreator, 0xE3, dicom.LO, version); err != nil {
		return err
	}
	diffusion := make([]string, 4)
	for i := range diffusion {
		diffusion[i] = fmt.Sprint(rng.IntN(1000))
	}
	_, err := ds.PutPrivate(0x0043, GEParamCreator, 0x39, dicom.IS, diffusion...)
	return err
}

// putPhilips writes a diffusion b-factor and the nested scale sequence
// whose item uses a second creator of the same group.
func putPhilips(ds *dicom.Dataset, rng *rand.Rand) error {
	t, err := reserve(ds, 0x2001, PhilipsImagingCreator, 0x03)
	if err != nil {
		return err
	}
	if err := ds.PutFloat(t, dicom.FL, float64(rng.IntN(3)*500)); err != nil {
		return err
	}
	item, err := putPrivateSequence(ds, 0x2005, PhilipsMRCreator, 0x0E)
	if err != nil {
		return err
	}
	slope := fmt.Sprintf("%.10f", rng.Float64()*100+1)
	intercept := fmt.Sprintf("%.10f", rng.Float64()*10-5)
	if _, err := item.PutPrivate(0x2005, PhilipsMRCreator5, 0x00, dicom.DS, slope); err != nil {
		return err
	}
	_, err = item.PutPrivate(0x2005, PhilipsMRCreator5, 0x01, dicom.DS, intercept)
	return err
}
