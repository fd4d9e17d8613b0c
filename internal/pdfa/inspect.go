package pdfa

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Report summarizes a written document.
type Report struct {
	Pages         int
	Info          map[string]string
	Metadata      []byte
	OutputIntents []string
	Attachments   []Attachment
}

// Attachment describes one associated file found in a document.
type Attachment struct {
	Name         string
	Description  string
	MIMEType     string
	Relationship string
	Size         int
}

// InspectFile reads the document at path and summarizes it.
func InspectFile(path string) (*Report, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path chosen by the caller
	if err != nil {
		return nil, err
	}
	return Inspect(data)
}

// Inspect summarizes a PDF held in memory.
func Inspect(data []byte) (*Report, error) {
	conf, _ := newConfiguration(ValidationRelaxed)

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageSource, err)
	}
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageSource, err)
	}
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	rep := &Report{Pages: pages, Info: make(map[string]string)}

	if ctx.Info != nil {
		if info, err := ctx.DereferenceDict(*ctx.Info); err == nil {
			for k, v := range info {
				rep.Info[k] = decodeText(v)
			}
		}
	}

	if o, ok := catalog.Find("Metadata"); ok {
		if sd, _, err := ctx.DereferenceStreamDict(o); err == nil && sd != nil {
			if err := sd.Decode(); err == nil {
				rep.Metadata = sd.Content
			}
		}
	}

	if o, ok := catalog.Find("OutputIntents"); ok {
		intents, _ := ctx.DereferenceArray(o)
		for _, item := range intents {
			if intent, err := ctx.DereferenceDict(item); err == nil && intent != nil {
				if s := intent.NameEntry("S"); s != nil {
					rep.OutputIntents = append(rep.OutputIntents, *s)
				}
			}
		}
	}

	if o, ok := catalog.Find("AF"); ok {
		specs, _ := ctx.DereferenceArray(o)
		for _, item := range specs {
			if spec, err := ctx.DereferenceDict(item); err == nil && spec != nil {
				rep.Attachments = append(rep.Attachments, inspectAttachment(ctx, spec))
			}
		}
	}

	return rep, nil
}

func inspectAttachment(ctx *model.Context, spec types.Dict) Attachment {
	a := Attachment{
		Name:        decodeText(spec["UF"]),
		Description: decodeText(spec["Desc"]),
	}
	if a.Name == "" {
		a.Name = decodeText(spec["F"])
	}
	if rel := spec.NameEntry("AFRelationship"); rel != nil {
		a.Relationship = *rel
	}

	ef, err := ctx.DereferenceDict(spec["EF"])
	if err != nil || ef == nil {
		return a
	}
	sd, _, err := ctx.DereferenceStreamDict(ef["F"])
	if err != nil || sd == nil {
		return a
	}
	if st := sd.NameEntry("Subtype"); st != nil {
		a.MIMEType = *st
	}
	if params, err := ctx.DereferenceDict(sd.Dict["Params"]); err == nil && params != nil {
		if size, ok := params["Size"].(types.Integer); ok {
			a.Size = int(size)
		}
	}
	return a
}
