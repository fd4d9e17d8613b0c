package pdfmerge

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/alnah/go-pdfmerge/internal/pdfa"
)

// loadedAttachment is an attachment whose payload was read during pre-flight.
type loadedAttachment struct {
	Attachment
	data    []byte
	modTime time.Time
}

// loadAttachment reads the payload of a and fills in its embedded name.
func loadAttachment(a Attachment) (loadedAttachment, error) {
	info, err := os.Stat(a.FilePath)
	if err != nil || info.IsDir() {
		return loadedAttachment{}, fmt.Errorf("%w: %s", ErrAttachmentNotFound, a.FilePath)
	}
	data, err := os.ReadFile(a.FilePath) // #nosec G304 -- path comes from the merge request
	if err != nil {
		return loadedAttachment{}, fmt.Errorf("reading attachment %s: %w", a.FilePath, err)
	}
	if a.Filename == "" {
		a.Filename = filepath.Base(a.FilePath)
	}
	return loadedAttachment{Attachment: a, data: data, modTime: info.ModTime()}, nil
}

// finalizer embeds attachments and metadata into an output document and
// closes it. One finalizer serves every document of a merge call.
type finalizer struct {
	attachments []loadedAttachment
	metadata    map[string]string
	invoice     InvoiceProfile
	now         func() time.Time
	userName    func() string
}

// finalize applies attachments, invoice XMP and document information, turns
// conformance checking back on, and closes doc. The invoice packet and the
// document information share one Producer and one pair of dates.
func (f *finalizer) finalize(doc document) error {
	for _, a := range f.attachments {
		err := doc.AttachFile(pdfa.EmbeddedFile{
			Name:         a.Filename,
			Description:  a.Description,
			MIMEType:     a.MIMEType,
			Relationship: pdfa.RelationshipAlternative,
			Data:         a.data,
			ModTime:      a.modTime,
		})
		if err != nil {
			return fmt.Errorf("%w: attaching %s: %v", ErrFinalize, a.Filename, err)
		}
	}

	now := f.now()
	info := documentInfo(f.metadata, now)

	if inv, ok := f.invoiceAttachment(); ok {
		v, err := newInvoiceXMP(inv.Filename, f.invoice, info, now, f.userName())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrXMPMetadata, err)
		}
		packet, err := renderInvoiceXMP(v)
		if err != nil {
			return err
		}
		if err := doc.SetXMPMetadata(packet); err != nil {
			return fmt.Errorf("%w: %v", ErrXMPMetadata, err)
		}
	}

	for _, k := range slices.Sorted(maps.Keys(info)) {
		doc.SetInfo(k, info[k])
	}

	enableChecking(doc)
	if err := doc.Close(); err != nil {
		return closeError(err)
	}
	return nil
}

// invoiceAttachment returns the first attachment carrying InvoiceKey.
func (f *finalizer) invoiceAttachment() (loadedAttachment, bool) {
	for _, a := range f.attachments {
		if a.Key == InvoiceKey {
			return a, true
		}
	}
	return loadedAttachment{}, false
}

// closeError maps a document close failure to the package's sentinels.
func closeError(err error) error {
	switch {
	case errors.Is(err, pdfa.ErrConformance):
		return fmt.Errorf("%w: %v", ErrConformance, err)
	case errors.Is(err, pdfa.ErrMetadata):
		return fmt.Errorf("%w: %v", ErrXMPMetadata, err)
	}
	return fmt.Errorf("%w: %v", ErrFinalize, err)
}
