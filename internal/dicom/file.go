package dicom

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
)

const preambleLen = 128

// File is a Part 10 file: the group 0002 meta information and the dataset.
type File struct {
	Meta           *Dataset
	Dataset        *Dataset
	TransferSyntax TransferSyntax
}

// NewFileMeta builds the file meta information for one instance.
func NewFileMeta(sopClassUID, sopInstanceUID string, ts TransferSyntax) *Dataset {
	meta := NewDataset()
	_ = meta.PutBytes(tag.FileMetaInformationVersion, OB, []byte{0, 1})
	_ = meta.PutString(tag.MediaStorageSOPClassUID, UI, sopClassUID)
	_ = meta.PutString(tag.MediaStorageSOPInstanceUID, UI, sopInstanceUID)
	_ = meta.PutString(tag.TransferSyntaxUID, UI, ts.UID)
	_ = meta.PutString(tag.ImplementationClassUID, UI, uid.ImplementationClass)
	_ = meta.PutString(tag.ImplementationVersionName, SH, uid.ImplementationVersion)
	return meta
}

// NewFile wraps ds with meta information naming the SOP class and
// instance. The UIDs default to the SOPClassUID and SOPInstanceUID of ds.
func NewFile(ds *Dataset, ts TransferSyntax) *File {
	class := ds.StringOr(tag.SOPClassUID, "")
	inst := ds.StringOr(tag.SOPInstanceUID, "")
	return &File{Meta: NewFileMeta(class, inst, ts), Dataset: ds, TransferSyntax: ts}
}

// ReadFile parses the Part 10 file at path.
func ReadFile(path string, opts ...ReaderOption) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if st, err := f.Stat(); err == nil {
		opts = append([]ReaderOption{WithLimit(st.Size())}, opts...)
	}
	df, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return df, nil
}

// Read parses a Part 10 stream. A stream without preamble is accepted when
// it starts like a bare dataset; its transfer syntax is then guessed.
func Read(src io.Reader, opts ...ReaderOption) (*File, error) {
	br := bufio.NewReader(src)
	out := &File{Meta: NewDataset(), Dataset: NewDataset()}
	head, _ := br.Peek(preambleLen + 4)
	if len(head) < preambleLen+4 || string(head[preambleLen:]) != "DICM" {
		ts, ok := guessSyntax(head)
		if !ok {
			return nil, ErrNoPreamble
		}
		out.TransferSyntax = ts
		r := NewReader(br, ts, opts...)
		r.log.Warn().Str("syntax", ts.UID).Msg("no preamble, reading a bare dataset")
		if err := r.ReadDataset(out.Dataset); err != nil {
			return nil, err
		}
		return out, nil
	}
	if _, err := br.Discard(preambleLen + 4); err != nil {
		return nil, err
	}
	mr := NewReader(br, ExplicitVRLittleEndian, append(opts, WithOffset(preambleLen+4))...)
	notMeta := func(t tag.Tag) bool { return t.Group() != 0x0002 }
	if err := mr.readElements(out.Meta, -1, false, notMeta); err != nil {
		return nil, fmt.Errorf("read file meta: %w", err)
	}
	tsUID, ok := out.Meta.String(tag.TransferSyntaxUID)
	if ok {
		out.TransferSyntax = LookupTransferSyntax(tsUID)
	} else {
		b, _ := br.Peek(8)
		if out.TransferSyntax, ok = guessSyntax(b); !ok {
			out.TransferSyntax = ExplicitVRLittleEndian
		}
		mr.log.Warn().Str("syntax", out.TransferSyntax.UID).Msg("file meta has no TransferSyntaxUID, syntax guessed")
	}
	body := io.Reader(br)
	if out.TransferSyntax.Deflated {
		fr := flate.NewReader(br)
		defer fr.Close()
		body = fr
	}
	dr := NewReader(body, out.TransferSyntax, append(opts, WithOffset(mr.Pos()))...)
	if out.TransferSyntax.Deflated {
		// Offsets inside an inflated stream do not map to the file.
		dr.limit = 0
	}
	if err := dr.ReadDataset(out.Dataset); err != nil {
		return nil, err
	}
	return out, nil
}

// guessSyntax looks at the first element header of a bare dataset.
func guessSyntax(b []byte) (TransferSyntax, bool) {
	if len(b) < 8 {
		return TransferSyntax{}, false
	}
	group := binary.LittleEndian.Uint16(b)
	if group == 0 || group > 0x0010 {
		if be := binary.BigEndian.Uint16(b); be > 0 && be <= 0x0010 {
			if _, err := vrFromBytes(b[4], b[5]); err == nil {
				return ExplicitVRBigEndian, true
			}
		}
		return TransferSyntax{}, false
	}
	if _, err := vrFromBytes(b[4], b[5]); err == nil {
		return ExplicitVRLittleEndian, true
	}
	return ImplicitVRLittleEndian, true
}

// Write encodes f as a Part 10 stream. The meta group length and transfer
// syntax UID are derived from the file.
func (f *File) Write(dst io.Writer) error {
	if f.TransferSyntax.UID == "" {
		f.TransferSyntax = ExplicitVRLittleEndian
	}
	if f.Meta == nil {
		f.Meta = NewFile(f.Dataset, f.TransferSyntax).Meta
	}
	if err := f.Meta.PutString(tag.TransferSyntaxUID, UI, f.TransferSyntax.UID); err != nil {
		return err
	}
	meta, err := EncodeDataset(f.Meta, ExplicitVRLittleEndian)
	if err != nil {
		return fmt.Errorf("encode file meta: %w", err)
	}
	bw := bufio.NewWriter(dst)
	if _, err := bw.Write(make([]byte, preambleLen)); err != nil {
		return err
	}
	if _, err := bw.WriteString("DICM"); err != nil {
		return err
	}
	mw := NewWriter(bw, ExplicitVRLittleEndian, WithStartOffset(preambleLen+4))
	if err := mw.WriteHeader(tag.FileMetaInformationGroupLength, UL, 4); err != nil {
		return err
	}
	var gl [4]byte
	binary.LittleEndian.PutUint32(gl[:], uint32(len(meta)))
	if _, err := bw.Write(gl[:]); err != nil {
		return err
	}
	if _, err := bw.Write(meta); err != nil {
		return err
	}
	if f.TransferSyntax.Deflated {
		fw, err := flate.NewWriter(bw, flate.DefaultCompression)
		if err != nil {
			return err
		}
		if err := NewWriter(fw, ExplicitVRLittleEndian).WriteDataset(f.Dataset); err != nil {
			return err
		}
		if err := fw.Close(); err != nil {
			return err
		}
	} else {
		start := int64(preambleLen + 4 + 12 + len(meta))
		if err := NewWriter(bw, f.TransferSyntax, WithStartOffset(start)).WriteDataset(f.Dataset); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Bytes returns the Part 10 encoding of f.
func (f *File) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes f to path, replacing any existing file.
func WriteFile(path string, f *File) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
