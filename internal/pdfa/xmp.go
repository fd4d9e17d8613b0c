package pdfa

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"seehuhn.de/go/xmp"
)

// PDF/A identification schema.
type pdfaID struct {
	_           xmp.Namespace `xmp:"http://www.aiim.org/pdfa/ns/id/"`
	_           xmp.Prefix    `xmp:"pdfaid"`
	Part        xmp.Text      `xmp:"part"`
	Conformance xmp.Text      `xmp:"conformance"`
}

// Adobe PDF schema.
type pdfProps struct {
	_        xmp.Namespace `xmp:"http://ns.adobe.com/pdf/1.3/"`
	_        xmp.Prefix    `xmp:"pdf"`
	Keywords xmp.Text
	Producer xmp.AgentName
}

// XMP basic schema.
type basicProps struct {
	_            xmp.Namespace `xmp:"http://ns.adobe.com/xap/1.0/"`
	_            xmp.Prefix    `xmp:"xmp"`
	CreateDate   xmp.Date
	ModifyDate   xmp.Date
	MetadataDate xmp.Date
	CreatorTool  xmp.AgentName
}

// defaultMetadata builds the XMP packet for documents that were given none.
// Its properties mirror the document-info entries and st so the two stay
// equivalent.
func defaultMetadata(info map[string]string, st stamp, now time.Time) ([]byte, error) {
	packet := xmp.NewPacket()

	dc := &xmp.DublinCore{}
	if v := info["Title"]; v != "" {
		dc.Title.Set(language.MustParse("x-default"), v)
	}
	if v := info["Author"]; v != "" {
		dc.Creator.Append(xmp.NewProperName(v))
	}
	if v := info["Subject"]; v != "" {
		dc.Description.Set(language.MustParse("x-default"), v)
	}

	created, modified := st.times()
	basic := &basicProps{
		CreateDate:   xmp.NewDate(created),
		ModifyDate:   xmp.NewDate(modified),
		MetadataDate: xmp.NewDate(now),
	}
	if v := info["Creator"]; v != "" {
		basic.CreatorTool = xmp.NewAgentName(v)
	}

	props := &pdfProps{Producer: xmp.NewAgentName(st.producer)}
	if v := info["Keywords"]; v != "" {
		props.Keywords = xmp.NewText(v)
	}

	id := &pdfaID{Part: xmp.NewText("3"), Conformance: xmp.NewText("B")}

	if err := packet.Set(dc, basic, props, id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}

	var buf bytes.Buffer
	if err := packet.Write(&buf, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	return buf.Bytes(), nil
}

// checkMetadataPacket parses an XMP packet and checks that it identifies
// the document as PDF/A-3.
func checkMetadataPacket(data []byte) error {
	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	id := &pdfaID{}
	packet.Get(id)
	if id.Part.V != "3" {
		return fmt.Errorf("%w: pdfaid:part is %q, want 3", ErrMetadata, id.Part.V)
	}
	return nil
}

// infoProperties holds the XMP properties that have a document-information
// counterpart, keyed by the Info entry name.
type infoProperties struct {
	text  map[string]string
	dates map[string]time.Time
}

func readInfoProperties(data []byte) (infoProperties, error) {
	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		return infoProperties{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	dc := &xmp.DublinCore{}
	basic := &basicProps{}
	props := &pdfProps{}
	packet.Get(dc)
	packet.Get(basic)
	packet.Get(props)

	creators := make([]string, 0, len(dc.Creator.V))
	for _, c := range dc.Creator.V {
		creators = append(creators, c.V)
	}

	return infoProperties{
		text: map[string]string{
			"Title":    localizedText(dc.Title),
			"Author":   strings.Join(creators, ", "),
			"Subject":  localizedText(dc.Description),
			"Keywords": props.Keywords.V,
			"Creator":  basic.CreatorTool.V,
			"Producer": props.Producer.V,
		},
		dates: map[string]time.Time{
			"CreationDate": basic.CreateDate.V,
			"ModDate":      basic.ModifyDate.V,
		},
	}, nil
}

// localizedText returns the x-default entry, or the only entry of a
// single-language value.
func localizedText(l xmp.Localized) string {
	if l.Default.V != "" {
		return l.Default.V
	}
	if len(l.V) == 1 {
		for _, t := range l.V {
			return t.V
		}
	}
	return ""
}
