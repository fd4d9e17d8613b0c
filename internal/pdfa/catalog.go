package pdfa

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Output intent of every document.
const (
	outputIntentSubtype  = "GTS_PDFA1"
	outputConditionID    = "Custom"
	outputIntentRegistry = "http://www.color.org"
	outputIntentInfo     = "sRGB IEC61966-2.1"
)

const (
	defaultEmbeddedMediaType = "application/octet-stream"
	maxNameTreeDepth         = 32
)

// Associated file relationships.
const (
	RelationshipAlternative = "Alternative"
	RelationshipData        = "Data"
	RelationshipSource      = "Source"
	RelationshipSupplement  = "Supplement"
	RelationshipUnspecified = "Unspecified"
)

// MIMEType derives an embedded file's media type from its name.
// XML payloads are application/xml; unknown extensions fall back to
// application/octet-stream.
func MIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".xml" {
		return "application/xml"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if media, _, err := mime.ParseMediaType(t); err == nil {
			return media
		}
	}
	return defaultEmbeddedMediaType
}

func flateStream(d types.Dict, content []byte) (*types.StreamDict, error) {
	d["Filter"] = types.Name(filter.Flate)
	sd := &types.StreamDict{
		Dict:           d,
		Content:        content,
		FilterPipeline: []types.PDFFilter{{Name: filter.Flate}},
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("encoding stream: %w", err)
	}
	return sd, nil
}

func plainStream(d types.Dict, content []byte) (*types.StreamDict, error) {
	sd := &types.StreamDict{Dict: d, Content: content}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("encoding stream: %w", err)
	}
	return sd, nil
}

// addOutputIntent replaces the catalog's output intents with a single
// GTS_PDFA1 intent carrying profile.
func addOutputIntent(ctx *model.Context, catalog types.Dict, profile []byte) error {
	sd, err := flateStream(types.Dict{"N": types.Integer(3)}, profile)
	if err != nil {
		return err
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return fmt.Errorf("adding color profile: %w", err)
	}

	catalog["OutputIntents"] = types.Array{types.Dict{
		"Type":                      types.Name("OutputIntent"),
		"S":                         types.Name(outputIntentSubtype),
		"OutputConditionIdentifier": textString(outputConditionID),
		"OutputCondition":           textString(""),
		"RegistryName":              textString(outputIntentRegistry),
		"Info":                      textString(outputIntentInfo),
		"DestOutputProfile":         *ref,
	}}
	return nil
}

type nameEntry struct {
	key string
	val types.Object
}

// embedFiles adds one file specification per file, registers each in the
// EmbeddedFiles name tree and appends it to the catalog's AF array.
func embedFiles(ctx *model.Context, catalog types.Dict, files []EmbeddedFile, now time.Time) error {
	if len(files) == 0 {
		return nil
	}

	names, err := catalogNames(ctx, catalog)
	if err != nil {
		return err
	}
	entries, err := collectNames(ctx, names["EmbeddedFiles"], 0)
	if err != nil {
		return err
	}

	var af types.Array
	if o, ok := catalog.Find("AF"); ok {
		existing, err := ctx.DereferenceArray(o)
		if err != nil {
			return fmt.Errorf("reading associated files: %w", err)
		}
		af = append(af, existing...)
	}

	for _, f := range files {
		ref, err := embedFile(ctx, f, now)
		if err != nil {
			return err
		}
		entries = append(entries, nameEntry{key: f.Name, val: *ref})
		af = append(af, *ref)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	tree := make(types.Array, 0, 2*len(entries))
	for _, e := range entries {
		tree = append(tree, textString(e.key), e.val)
	}

	names["EmbeddedFiles"] = types.Dict{"Names": tree}
	catalog["AF"] = af
	return nil
}

func embedFile(ctx *model.Context, f EmbeddedFile, now time.Time) (*types.IndirectRef, error) {
	mediaType := f.MIMEType
	if mediaType == "" {
		mediaType = MIMEType(f.Name)
	}
	modTime := f.ModTime
	if modTime.IsZero() {
		modTime = now
	}
	rel := f.Relationship
	if rel == "" {
		rel = RelationshipAlternative
	}

	sd, err := flateStream(types.Dict{
		"Type":    types.Name("EmbeddedFile"),
		"Subtype": types.Name(mediaType),
		"Params": types.Dict{
			"Size":    types.Integer(len(f.Data)),
			"ModDate": types.StringLiteral(types.DateString(modTime)),
		},
	}, f.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEmbeddedFile, f.Name, err)
	}
	streamRef, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEmbeddedFile, f.Name, err)
	}

	spec := types.Dict{
		"Type":           types.Name("Filespec"),
		"F":              textString(f.Name),
		"UF":             textString(f.Name),
		"EF":             types.Dict{"F": *streamRef, "UF": *streamRef},
		"AFRelationship": types.Name(rel),
	}
	if f.Description != "" {
		spec["Desc"] = textString(f.Description)
	}
	return ctx.IndRefForNewObject(spec)
}

// catalogNames returns the catalog's name dictionary, creating it if needed.
func catalogNames(ctx *model.Context, catalog types.Dict) (types.Dict, error) {
	if o, ok := catalog.Find("Names"); ok {
		d, err := ctx.DereferenceDict(o)
		if err != nil {
			return nil, fmt.Errorf("reading name dictionary: %w", err)
		}
		if d != nil {
			return d, nil
		}
	}
	d := types.NewDict()
	catalog["Names"] = d
	return d, nil
}

// collectNames flattens a name tree into its key/value pairs.
func collectNames(ctx *model.Context, node types.Object, depth int) ([]nameEntry, error) {
	if node == nil {
		return nil, nil
	}
	if depth > maxNameTreeDepth {
		return nil, fmt.Errorf("%w: name tree too deep", ErrEmbeddedFile)
	}
	d, err := ctx.DereferenceDict(node)
	if err != nil || d == nil {
		return nil, err
	}

	var entries []nameEntry
	if o, ok := d.Find("Names"); ok {
		arr, err := ctx.DereferenceArray(o)
		if err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(arr); i += 2 {
			key, err := ctx.Dereference(arr[i])
			if err != nil {
				return nil, err
			}
			entries = append(entries, nameEntry{key: decodeText(key), val: arr[i+1]})
		}
	}
	if o, ok := d.Find("Kids"); ok {
		kids, err := ctx.DereferenceArray(o)
		if err != nil {
			return nil, err
		}
		for _, kid := range kids {
			sub, err := collectNames(ctx, kid, depth+1)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
		}
	}
	return entries, nil
}

// setMetadata attaches an uncompressed XMP stream to the catalog.
func setMetadata(ctx *model.Context, catalog types.Dict, packet []byte) error {
	sd, err := plainStream(types.Dict{
		"Type":    types.Name("Metadata"),
		"Subtype": types.Name("XML"),
	}, packet)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	catalog["Metadata"] = *ref
	return nil
}

// setInfo replaces the document information with the requested entries
// and st. Entries the merged sources carried describe those sources, not
// the merged document, so none are kept.
func setInfo(ctx *model.Context, info map[string]string, keys []string, st stamp) error {
	d := types.NewDict()
	for _, k := range keys {
		d[k] = textString(info[k])
	}
	st.apply(d)

	ref, err := ctx.IndRefForNewObject(d)
	if err != nil {
		return fmt.Errorf("adding document info: %w", err)
	}
	ctx.Info = ref
	return nil
}
