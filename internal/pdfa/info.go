package pdfa

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// DefaultProducer is the Producer of documents whose caller set none.
const DefaultProducer = "go-pdfmerge"

// FormatDate formats t as a PDF date string, D:YYYYMMDDHHmmSSOHH'mm'.
func FormatDate(t time.Time) string { return types.DateString(t) }

// ParseDate parses a PDF date string. The D: prefix and trailing fields
// may be omitted.
func ParseDate(s string) (time.Time, error) {
	t, ok := types.DateTime(s, true)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q is not a PDF date", ErrMetadata, s)
	}
	return t, nil
}

// stamp holds the document-information entries pdfcpu's writer claims for
// itself. Requested values win; the rest default to DefaultProducer and the
// document clock.
type stamp struct {
	producer string
	created  string
	modified string
}

func resolveStamp(info map[string]string, now time.Time) (stamp, error) {
	st := stamp{
		producer: info["Producer"],
		created:  info["CreationDate"],
		modified: info["ModDate"],
	}
	if st.producer == "" {
		st.producer = DefaultProducer
	}
	date := FormatDate(now)
	if st.created == "" {
		st.created = date
	}
	if st.modified == "" {
		st.modified = date
	}
	for _, s := range []string{st.created, st.modified} {
		if _, err := ParseDate(s); err != nil {
			return stamp{}, err
		}
	}
	return st, nil
}

func (st stamp) apply(d types.Dict) {
	d["Producer"] = textString(st.producer)
	d["CreationDate"] = textString(st.created)
	d["ModDate"] = textString(st.modified)
}

// times returns the creation and modification dates. Both parsed in
// resolveStamp.
func (st stamp) times() (created, modified time.Time) {
	created, _ = ParseDate(st.created)
	modified, _ = ParseDate(st.modified)
	return created, modified
}

// restamp appends an incremental update to the document written to f that
// puts st back into its document information. pdfcpu's writer always sets
// Producer to its own name and both dates to the wall clock.
func restamp(f *os.File, st stamp) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	conf, _ := newConfiguration(ValidationRelaxed)
	conf.PostProcessValidate = false
	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return fmt.Errorf("reading written document: %w", err)
	}

	info, err := writtenInfo(ctx)
	if err != nil {
		return err
	}
	st.apply(info)

	ctx.Write.Increment = true
	ctx.Write.Offset = ctx.Read.FileSize
	ctx.Write.IncrementWithObjNr(ctx.Info.ObjectNumber.Value())
	return api.WriteIncr(ctx, f, conf)
}

func writtenInfo(ctx *model.Context) (types.Dict, error) {
	if ctx.Info == nil {
		return nil, errors.New("written document has no document information")
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil {
		return nil, fmt.Errorf("reading document information: %w", err)
	}
	if d == nil {
		return nil, errors.New("document information is not a dictionary")
	}
	return d, nil
}
