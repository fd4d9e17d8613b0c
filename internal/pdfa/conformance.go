package pdfa

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// checkStructure applies the PDF/A-3b catalog rules this package is
// responsible for. pdfcpu's validator covers the general PDF syntax.
func checkStructure(ctx *model.Context) error {
	if ctx.Encrypt != nil {
		return fmt.Errorf("%w: document is encrypted", ErrConformance)
	}

	catalog, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConformance, err)
	}

	checks := []func(*model.Context, types.Dict) error{
		checkOutputIntent,
		checkMetadataStream,
		checkInfoMetadata,
		checkAssociatedFiles,
	}
	for _, check := range checks {
		if err := check(ctx, catalog); err != nil {
			return fmt.Errorf("%w: %v", ErrConformance, err)
		}
	}
	return nil
}

func checkOutputIntent(ctx *model.Context, catalog types.Dict) error {
	o, ok := catalog.Find("OutputIntents")
	if !ok {
		return errors.New("missing output intent")
	}
	intents, err := ctx.DereferenceArray(o)
	if err != nil {
		return err
	}

	for _, item := range intents {
		intent, err := ctx.DereferenceDict(item)
		if err != nil || intent == nil {
			continue
		}
		if s := intent.NameEntry("S"); s == nil || *s != outputIntentSubtype {
			continue
		}
		profile, _, err := ctx.DereferenceStreamDict(intent["DestOutputProfile"])
		if err == nil && profile != nil {
			return nil
		}
	}
	return fmt.Errorf("no %s output intent with a destination profile", outputIntentSubtype)
}

func checkMetadataStream(ctx *model.Context, catalog types.Dict) error {
	data, err := metadataContent(ctx, catalog)
	if err != nil {
		return err
	}
	return checkMetadataPacket(data)
}

func metadataContent(ctx *model.Context, catalog types.Dict) ([]byte, error) {
	o, ok := catalog.Find("Metadata")
	if !ok {
		return nil, errors.New("missing XMP metadata")
	}
	sd, _, err := ctx.DereferenceStreamDict(o)
	if err != nil {
		return nil, err
	}
	if sd == nil {
		return nil, errors.New("metadata is not a stream")
	}
	if _, filtered := sd.Find("Filter"); filtered {
		return nil, errors.New("metadata stream must not be filtered")
	}
	if err := sd.Decode(); err != nil {
		return nil, err
	}
	return sd.Content, nil
}

// Document-information entries with an XMP counterpart, in check order.
var (
	infoTextKeys = []string{"Title", "Author", "Subject", "Keywords", "Creator", "Producer"}
	infoDateKeys = []string{"CreationDate", "ModDate"}
)

// checkInfoMetadata requires every non-empty document-information entry
// with an XMP counterpart to carry the same value in the metadata packet.
// Dates are compared to the second.
func checkInfoMetadata(ctx *model.Context, catalog types.Dict) error {
	if ctx.Info == nil {
		return nil
	}
	info, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil || info == nil {
		return fmt.Errorf("reading document information: %v", err)
	}
	data, err := metadataContent(ctx, catalog)
	if err != nil {
		return err
	}
	props, err := readInfoProperties(data)
	if err != nil {
		return err
	}

	for _, k := range infoTextKeys {
		want := infoText(info, k)
		if want == "" {
			continue
		}
		if got := props.text[k]; got != want {
			return fmt.Errorf("info %s is %q but XMP has %q", k, want, got)
		}
	}
	for _, k := range infoDateKeys {
		raw := infoText(info, k)
		if raw == "" {
			continue
		}
		want, err := ParseDate(raw)
		if err != nil {
			return fmt.Errorf("info %s: %v", k, err)
		}
		got := props.dates[k]
		if got.IsZero() || !got.Truncate(time.Second).Equal(want.Truncate(time.Second)) {
			return fmt.Errorf("info %s is %s but XMP has %s", k, want.Format(time.RFC3339), got.Format(time.RFC3339))
		}
	}
	return nil
}

func infoText(info types.Dict, key string) string {
	o, ok := info.Find(key)
	if !ok {
		return ""
	}
	return decodeText(o)
}

func checkAssociatedFiles(ctx *model.Context, catalog types.Dict) error {
	o, ok := catalog.Find("AF")
	if !ok {
		return nil
	}
	specs, err := ctx.DereferenceArray(o)
	if err != nil {
		return err
	}

	for i, item := range specs {
		spec, err := ctx.DereferenceDict(item)
		if err != nil || spec == nil {
			return fmt.Errorf("associated file %d: not a file specification", i+1)
		}
		if spec.NameEntry("AFRelationship") == nil {
			return fmt.Errorf("associated file %d: missing AFRelationship", i+1)
		}
		ef, err := ctx.DereferenceDict(spec["EF"])
		if err != nil || ef == nil {
			return fmt.Errorf("associated file %d: missing embedded file", i+1)
		}
		sd, _, err := ctx.DereferenceStreamDict(ef["F"])
		if err != nil || sd == nil {
			return fmt.Errorf("associated file %d: missing embedded file stream", i+1)
		}
		if sd.NameEntry("Subtype") == nil {
			return fmt.Errorf("associated file %d: missing MIME type", i+1)
		}
		params, err := ctx.DereferenceDict(sd.Dict["Params"])
		if err != nil || params == nil {
			return fmt.Errorf("associated file %d: missing Params", i+1)
		}
		if _, ok := params.Find("ModDate"); !ok {
			return fmt.Errorf("associated file %d: missing ModDate", i+1)
		}
	}
	return nil
}

// Verify reads a written document and checks its PDF/A-3b catalog
// structure: output intent, XMP identification, document information that
// agrees with the XMP packet, associated files and the absence of
// encryption.
func Verify(r io.ReadSeeker) error {
	conf, _ := newConfiguration(ValidationRelaxed)
	ctx, err := api.ReadContext(r, conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageSource, err)
	}
	return checkStructure(ctx)
}
